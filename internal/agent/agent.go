// Package agent runs the multi-step tool-calling loop for one user turn:
// model step, tool dispatch, feed results back, repeat until the model
// produces a final answer or the step budget runs out.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nbhq/notabene/internal/auth"
	"github.com/nbhq/notabene/internal/llm"
	"github.com/nbhq/notabene/internal/tools"
)

// DefaultMaxSteps bounds the number of model steps in one turn.
const DefaultMaxSteps = 5

// DefaultTurnTimeout bounds the wall clock of one turn.
const DefaultTurnTimeout = 60 * time.Second

// Model is the generative endpoint the orchestrator drives. Implemented by
// llm.Client; tests substitute scripted stubs.
type Model interface {
	Generate(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// TurnResult is the outcome of one completed turn.
type TurnResult struct {
	// Answer is the full assistant text, including the sources block when
	// search results grounded it.
	Answer string
	// Sources lists the citations in the sources block, if any.
	Sources []Citation
	// Steps is how many model steps the turn took.
	Steps int
}

// Orchestrator drives the agent loop. Safe for concurrent use; each Run is
// independent.
type Orchestrator struct {
	model       Model
	registry    *tools.Registry
	maxSteps    int
	turnTimeout time.Duration
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxSteps overrides the step budget. Values below 1 are ignored.
func WithMaxSteps(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.maxSteps = n
		}
	}
}

// WithTurnTimeout overrides the per-turn wall clock budget.
func WithTurnTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.turnTimeout = d
		}
	}
}

// New creates an Orchestrator.
func New(model Model, registry *tools.Registry, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		model:       model,
		registry:    registry,
		maxSteps:    DefaultMaxSteps,
		turnTimeout: DefaultTurnTimeout,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one turn over the given history for the tenant. Text deltas
// stream to onChunk as they arrive, including the appended sources block;
// onChunk may be nil.
//
// The loop is sequential across steps; tool calls requested within a single
// step dispatch concurrently, with results fed back in the order the model
// requested them.
func (o *Orchestrator) Run(ctx context.Context, history []llm.Message, tenantID string, onChunk func(string)) (*TurnResult, error) {
	if tenantID == "" {
		return nil, auth.ErrUnauthenticated
	}
	if len(history) == 0 {
		return nil, errors.New("empty message history")
	}

	ctx, cancel := context.WithTimeout(auth.WithTenant(ctx, tenantID), o.turnTimeout)
	defer cancel()

	messages := make([]llm.Message, len(history))
	copy(messages, history)

	citations := newCitationTracker()
	decls := o.registry.Declarations()

	var lastText string
	var lastChunks []string
	steps := 0
	for steps < o.maxSteps {
		steps++

		// Chunks are buffered per step and only replayed for the step whose
		// text becomes the answer; narration alongside tool calls must not
		// stream to the client and then vanish from the final text.
		var stepChunks []string
		var collect func(string)
		if onChunk != nil {
			collect = func(chunk string) { stepChunks = append(stepChunks, chunk) }
		}

		resp, err := o.model.Generate(ctx, llm.Request{
			System:   systemPrompt,
			Messages: messages,
			Tools:    decls,
			OnChunk:  collect,
		})
		if err != nil {
			return nil, fmt.Errorf("model step %d: %w", steps, err)
		}
		if resp.Text != "" {
			lastText = resp.Text
			lastChunks = stepChunks
		}

		if !resp.HasToolCalls() {
			return o.finish(lastText, lastChunks, citations, steps, onChunk), nil
		}

		o.logger.Debug("dispatching tool calls", "step", steps, "count", len(resp.ToolCalls))
		results := o.dispatch(ctx, resp.ToolCalls)
		citations.recordResults(resp.ToolCalls, results)

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		toolResults := make([]llm.ToolResult, len(results))
		for i, result := range results {
			toolResults[i] = llm.ToolResult{
				Name:     resp.ToolCalls[i].Name,
				Response: result.Response(),
			}
		}
		messages = append(messages, llm.Message{
			Role:        llm.RoleUser,
			ToolResults: toolResults,
		})
	}

	// Step budget exhausted with the model still asking for tools. Return
	// whatever text it last produced instead of looping forever.
	o.logger.Warn("turn hit step budget", "steps", steps)
	return o.finish(lastText, lastChunks, citations, steps, onChunk), nil
}

// dispatch runs one step's tool calls concurrently and reassembles the
// results in request order.
func (o *Orchestrator) dispatch(ctx context.Context, calls []llm.ToolCall) []tools.Result {
	results := make([]tools.Result, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = o.registry.Execute(ctx, call.Name, call.Args)
		}()
	}
	wg.Wait()
	return results
}

// finish assembles the final answer and streams it. The buffered chunks
// replay untouched when the answer only extends the model's text; when
// citation filtering rewrote the text, the whole answer streams in one
// piece so the client transcript always equals the answer.
func (o *Orchestrator) finish(text string, chunks []string, citations *citationTracker, steps int, onChunk func(string)) *TurnResult {
	answer, used := citations.finalize(text)
	if onChunk != nil && answer != "" {
		if strings.HasPrefix(answer, text) {
			for _, chunk := range chunks {
				onChunk(chunk)
			}
			if appended := answer[len(text):]; appended != "" {
				onChunk(appended)
			}
		} else {
			onChunk(answer)
		}
	}
	return &TurnResult{
		Answer:  answer,
		Sources: used,
		Steps:   steps,
	}
}
