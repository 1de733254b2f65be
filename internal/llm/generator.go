package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/semgen/semgen/internal/config"
	"github.com/semgen/semgen/internal/observability"
)

// Result records the generated text and which provider produced it, so a
// fallback-served description is distinguishable from a primary one.
type Result struct {
	Text     string
	Provider string
}

// Generator orchestrates a primary provider and at most one fallback. It
// never retries beyond the single fallback attempt; per-call retries on
// transient failures live inside the adapters.
type Generator struct {
	primary  Provider
	fallback Provider
	logger   *slog.Logger
}

// New builds a Generator from the llm config block. Credential resolution
// happens here for both primary and fallback, so a misconfigured fallback
// fails construction rather than the first degraded generation.
func New(cfg config.LLMConfig, deps Deps, logger *slog.Logger) (*Generator, error) {
	primary, err := newProvider(cfg, deps)
	if err != nil {
		return nil, err
	}
	var fallback Provider
	if fbCfg := cfg.FallbackLLM(); fbCfg != nil {
		fallback, err = newProvider(*fbCfg, deps)
		if err != nil {
			return nil, err
		}
	}
	return NewGenerator(primary, fallback, logger), nil
}

// NewGenerator wires explicit provider instances; tests and embedders use
// this directly.
func NewGenerator(primary Provider, fallback Provider, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{primary: primary, fallback: fallback, logger: logger}
}

func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	text, err := g.call(ctx, g.primary, req)
	if err == nil {
		observability.RecordDescription(g.primary.Name())
		return Result{Text: text, Provider: g.primary.Name()}, nil
	}

	if g.fallback == nil {
		return Result{}, err
	}

	g.logger.WarnContext(ctx, "primary provider failed, trying fallback",
		slog.String("primary", g.primary.Name()),
		slog.String("fallback", g.fallback.Name()),
		slog.String("entity", req.EntityName),
		slog.Any("error", err),
	)

	text, fbErr := g.call(ctx, g.fallback, req)
	if fbErr != nil {
		return Result{}, &GenerationError{Primary: err, Fallback: fbErr}
	}
	observability.RecordFallback()
	observability.RecordDescription(g.fallback.Name())
	return Result{Text: text, Provider: g.fallback.Name()}, nil
}

func (g *Generator) call(ctx context.Context, provider Provider, req Request) (string, error) {
	start := time.Now()
	text, err := provider.GenerateDescription(ctx, req)
	observability.ObserveLLMRequest(provider.Name(), time.Since(start), err)
	return text, err
}
