// Package graphrag provides a top-level convenience entry point for
// assembling the LLM invocation core with minimal boilerplate.
//
// Usage:
//
//	cfg, err := config.Load("config.yaml")
//	handler, err := graphrag.NewHandler(cfg, base, store, logger)
//	session, err := graphrag.OpenSession(ctx, cfg, handler, respond, store, logger)
//
// This is a thin wrapper over config, factory, llm and llm/mux; callers
// needing finer control can compose those packages directly.
package graphrag

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/graphrag/cache"
	"github.com/BaSui01/graphrag/config"
	"github.com/BaSui01/graphrag/factory"
	"github.com/BaSui01/graphrag/llm"
	"github.com/BaSui01/graphrag/llm/mux"
	"github.com/BaSui01/graphrag/metrics"
)

// BuildPipeline resolves the configured strategies through the default
// factory set and returns the assembled pipeline. Absent sub-configs leave
// the matching layer out of the composition.
func BuildPipeline(cfg *config.Config, store *metrics.Store, logger *zap.Logger) (llm.Pipeline, error) {
	set := factory.Defaults(logger)
	p := llm.Pipeline{
		Logger:        logger,
		Store:         store,
		Processor:     llm.UsageProcessor{},
		InjectionRate: cfg.ErrorInjectionRate,
	}

	if cfg.RateLimit != nil {
		rl := cfg.RateLimit.WithDefaults()
		limiter, err := set.Limiters.Resolve(rl.Type, rl)
		if err != nil {
			return llm.Pipeline{}, err
		}
		p.Limiter = limiter
	}

	if cfg.Retry != nil {
		rc := cfg.Retry.WithDefaults()
		retryer, err := set.Retryers.Resolve(rc.Type, rc)
		if err != nil {
			return llm.Pipeline{}, err
		}
		p.Retryer = retryer
	}

	if cfg.Cache != nil {
		cc := cfg.Cache.WithDefaults()
		if cc.Type != cache.TypeNone {
			cs, err := set.Caches.Resolve(cc.Type, cc)
			if err != nil {
				return llm.Pipeline{}, err
			}
			p.Cache = cs
			p.SingleFlight = cc.SingleFlight
		}
	}

	tokName := cfg.Tokenizer
	if tokName == "" {
		tokName = "tiktoken"
	}
	tok, err := set.Tokenizers.Resolve(tokName, cfg.Model)
	if err != nil {
		return llm.Pipeline{}, err
	}
	p.Tokenizer = tok

	return p, nil
}

// NewHandler wraps base with the full configured middleware stack.
func NewHandler(cfg *config.Config, base llm.Handler, store *metrics.Store, logger *zap.Logger) (llm.Handler, error) {
	p, err := BuildPipeline(cfg, store, logger)
	if err != nil {
		return nil, err
	}
	return p.BuildHandler(base), nil
}

// OpenSession opens a multiplexer session over an already wrapped handler.
func OpenSession(ctx context.Context, cfg *config.Config, handler llm.Handler, respond mux.ResponseHandler, store *metrics.Store, logger *zap.Logger) (*mux.Session, error) {
	return mux.Open(ctx, handler, respond, store, logger, mux.Options{
		Concurrency: cfg.Mux.Concurrency,
		QueueLimit:  cfg.Mux.QueueLimit,
	})
}
