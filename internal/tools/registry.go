package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/genai"
)

// Registry holds the registered tool definitions and dispatches calls to
// them. Arguments are validated against each tool's resolved schema before
// the body runs; an invalid shape becomes an error Result, never a crash.
//
// Register is not safe to call concurrently with Execute. Register
// everything up front, then share the Registry freely.
type Registry struct {
	defs     map[string]Definition
	resolved map[string]*jsonschema.Resolved
	logger   *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		defs:     make(map[string]Definition),
		resolved: make(map[string]*jsonschema.Resolved),
		logger:   logger,
	}
}

// Register adds a tool definition. The schema is resolved once here so
// Execute validates without re-resolving per call.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("tool %q already registered", def.Name)
	}
	if def.Schema == nil {
		return fmt.Errorf("tool %q has no schema", def.Name)
	}
	if def.Execute == nil {
		return fmt.Errorf("tool %q has no execute function", def.Name)
	}

	resolved, err := def.Schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolving schema for %q: %w", def.Name, err)
	}

	r.defs[def.Name] = def
	r.resolved[def.Name] = resolved
	return nil
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Declarations returns the registered tools as genai function declarations
// for the model request, in sorted name order.
func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(r.defs))
	for _, name := range r.Names() {
		def := r.defs[name]
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 def.Name,
			Description:          def.Description,
			ParametersJsonSchema: def.Schema,
		})
	}
	return decls
}

// Execute validates args against the named tool's schema and runs it. All
// failure modes come back as an error Result; Execute itself never panics
// even when a tool body does.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", name, "panic", rec)
			result = Failure(ErrCodeExecution, fmt.Sprintf("tool %q panicked: %v", name, rec))
		}
	}()

	def, ok := r.defs[name]
	if !ok {
		return Failure(ErrCodeUnknownTool, fmt.Sprintf("no tool named %q", name))
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := r.resolved[name].Validate(args); err != nil {
		r.logger.Debug("tool arguments rejected", "tool", name, "error", err)
		return Failure(ErrCodeValidation, fmt.Sprintf("invalid arguments for %q: %v", name, err))
	}

	result = def.Execute(ctx, args)
	r.logger.Debug("tool executed", "tool", name, "status", result.Status)
	return result
}
