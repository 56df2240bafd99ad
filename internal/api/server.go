package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nbhq/notabene/internal/agent"
	"github.com/nbhq/notabene/internal/auth"
	"github.com/nbhq/notabene/internal/knowledge"
	"github.com/nbhq/notabene/internal/llm"
	"github.com/nbhq/notabene/internal/transcript"
)

// Default server limits.
const (
	DefaultMaxUploadBytes  = 10 << 20
	defaultShutdownTimeout = 10 * time.Second
)

// Ingestor replaces a document's chunks in the knowledge base.
type Ingestor interface {
	Replace(ctx context.Context, sourceName, rawText, tenantID string) (int, error)
}

// SourceStore lists and deletes stored documents.
type SourceStore interface {
	ListSources(ctx context.Context, tenantID string) ([]knowledge.SourceInfo, error)
	DeleteBySource(ctx context.Context, source, tenantID string) (int64, error)
}

// Agent runs one assistant turn over the given history.
type Agent interface {
	Run(ctx context.Context, history []llm.Message, tenantID string, onChunk func(string)) (*agent.TurnResult, error)
}

// Transcripts persists and replays chat history.
type Transcripts interface {
	Append(ctx context.Context, msg transcript.Message) error
	History(ctx context.Context, chatID uuid.UUID, tenantID string) ([]transcript.Message, error)
}

// Options configures the HTTP server.
type Options struct {
	Addr           string
	AllowedOrigins []string
	RatePerSecond  float64
	RateBurst      int
	TrustProxy     bool
	MaxUploadBytes int64
}

// Server is the HTTP front of the assistant.
type Server struct {
	ingestor    Ingestor
	sources     SourceStore
	agent       Agent
	transcripts Transcripts
	tenants     auth.TenantProvider
	pool        *pgxpool.Pool
	opts        Options
	logger      *slog.Logger
}

// NewServer wires the handlers. pool is only used for the readiness probe
// and may be nil in tests.
func NewServer(ingestor Ingestor, sources SourceStore, ag Agent, transcripts Transcripts, tenants auth.TenantProvider, pool *pgxpool.Pool, opts Options, logger *slog.Logger) (*Server, error) {
	if ingestor == nil {
		return nil, errors.New("api: ingestor is required")
	}
	if sources == nil {
		return nil, errors.New("api: source store is required")
	}
	if ag == nil {
		return nil, errors.New("api: agent is required")
	}
	if tenants == nil {
		return nil, errors.New("api: tenant provider is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 10
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 20
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Server{
		ingestor:    ingestor,
		sources:     sources,
		agent:       ag,
		transcripts: transcripts,
		tenants:     tenants,
		pool:        pool,
		opts:        opts,
		logger:      logger,
	}, nil
}

// Handler builds the full routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)

	limiter := newRateLimiter(s.opts.RatePerSecond, s.opts.RateBurst)
	protect := func(h http.HandlerFunc) http.Handler {
		return chain(h,
			rateLimitMiddleware(limiter, s.opts.TrustProxy, s.logger),
			authMiddleware(s.tenants, s.logger),
		)
	}

	mux.Handle("POST /api/v1/chat", protect(s.handleChat))
	mux.Handle("POST /api/v1/upload", protect(s.handleUpload))
	mux.Handle("GET /api/v1/files", protect(s.handleListFiles))
	mux.Handle("DELETE /api/v1/files", protect(s.handleDeleteFile))

	return chain(mux,
		recoveryMiddleware(s.logger),
		requestIDMiddleware,
		loggingMiddleware(s.logger),
		corsMiddleware(s.opts.AllowedOrigins),
	)
}

// Run serves until ctx is canceled, then drains connections gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return <-errCh
}
