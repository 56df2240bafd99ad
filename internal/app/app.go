// Package app wires configuration, storage, the model client, and the
// agent into a runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/genai"

	"github.com/nbhq/notabene/internal/agent"
	"github.com/nbhq/notabene/internal/auth"
	"github.com/nbhq/notabene/internal/chunker"
	"github.com/nbhq/notabene/internal/config"
	"github.com/nbhq/notabene/internal/database"
	"github.com/nbhq/notabene/internal/embed"
	"github.com/nbhq/notabene/internal/ingest"
	"github.com/nbhq/notabene/internal/knowledge"
	"github.com/nbhq/notabene/internal/llm"
	"github.com/nbhq/notabene/internal/tools"
	"github.com/nbhq/notabene/internal/transcript"
)

// App holds the wired application components.
type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	Pool         *pgxpool.Pool
	Knowledge    *knowledge.Store
	Pipeline     *ingest.Pipeline
	Registry     *tools.Registry
	LLM          *llm.Client
	Orchestrator *agent.Orchestrator
	Transcripts  *transcript.Store
	Tenants      auth.TenantProvider
}

// Setup creates and initializes the application. On error everything
// already opened is released.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			a.Close()
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	client, err := provideGenAIClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	embedder, err := embed.NewClient(client, cfg.EmbedderModel, cfg.EmbeddingDimension, logger)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	a.Knowledge = knowledge.New(knowledge.NewPGQuerier(pool), embedder, logger)
	a.Pipeline = ingest.New(a.Knowledge, logger,
		ingest.WithConcurrency(cfg.IngestConcurrency),
		ingest.WithChunkOptions(
			chunker.WithChunkSize(cfg.ChunkSize),
			chunker.WithOverlap(cfg.ChunkOverlap),
		),
	)

	model, err := llm.NewClient(client, cfg.Model, float32(cfg.Temperature), logger)
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}
	a.LLM = model

	registry, err := provideTools(a.Knowledge, model, logger)
	if err != nil {
		return nil, err
	}
	a.Registry = registry

	a.Orchestrator = agent.New(model, registry, logger,
		agent.WithMaxSteps(cfg.MaxSteps),
		agent.WithTurnTimeout(cfg.TurnTimeout),
	)
	a.Transcripts = transcript.New(pool)
	a.Tenants = auth.NewTokenProvider(cfg.AuthTokens)

	return a, nil
}

// Close releases held resources. Safe to call on a partially built App.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := database.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return pool, nil
}

func provideGenAIClient(ctx context.Context, cfg *config.Config) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return client, nil
}

func provideTools(store *knowledge.Store, gen tools.TextGenerator, logger *slog.Logger) (*tools.Registry, error) {
	registry := tools.NewRegistry(logger)
	for _, def := range []tools.Definition{
		tools.NewSearchNotes(store, logger),
		tools.NewSummarizeNotes(gen, logger),
		tools.NewFindGaps(gen, logger),
		tools.NewExtractEntities(gen, logger),
	} {
		if err := registry.Register(def); err != nil {
			return nil, fmt.Errorf("registering tool %s: %w", def.Name, err)
		}
	}
	return registry, nil
}
