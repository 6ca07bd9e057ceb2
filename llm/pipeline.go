package llm

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BaSui01/graphrag/limit"
	"github.com/BaSui01/graphrag/metrics"
	"github.com/BaSui01/graphrag/retry"
	"github.com/BaSui01/graphrag/tokenizer"
)

// Pipeline composes the cross-cutting layers around a base handler. Every
// collaborator is optional: a layer whose collaborator is nil is skipped,
// and with nothing configured BuildHandler returns the base handler plus
// trace-ID assignment only.
type Pipeline struct {
	Logger    *zap.Logger
	Store     *metrics.Store
	Cache     CacheStore
	Retryer   retry.Retryer
	Limiter   limit.Limiter
	Tokenizer tokenizer.Tokenizer
	Processor Processor

	// SingleFlight coalesces concurrent identical cache misses. Off by
	// default: two simultaneous callers with the same key then both miss
	// and both compute, matching plain get/set cache semantics.
	SingleFlight bool

	// InjectionRate, when positive, makes calls fail with InjectionErr at
	// that probability. Test-only.
	InjectionRate float64
	InjectionErr  error
}

// BuildHandler wraps base in the fixed layer order, innermost to outermost:
// error injection, metrics, rate limiting, retry, caching, counting,
// logging. The order is load-bearing; see the package comment.
func (p Pipeline) BuildHandler(base Handler) Handler {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	chain := NewChain()
	chain.Use(LoggingMiddleware(logger))
	if p.Store != nil {
		chain.Use(CountingMiddleware(p.Store))
	}
	if p.Cache != nil {
		var sf *singleflight.Group
		if p.SingleFlight {
			sf = &singleflight.Group{}
		}
		chain.Use(CachingMiddleware(p.Cache, sf, logger))
	}
	if p.Retryer != nil {
		chain.Use(RetryMiddleware(p.Retryer))
	}
	if p.Limiter != nil {
		chain.Use(RateLimitMiddleware(p.Limiter, p.Tokenizer, logger))
	}
	if p.Processor != nil {
		chain.Use(MetricsMiddleware(p.Processor))
	}
	if p.InjectionRate > 0 {
		chain.Use(ErrorInjectionMiddleware(p.InjectionRate, p.InjectionErr))
	}

	wrapped := chain.Then(base)
	return func(ctx context.Context, req *Request) (*Response, error) {
		if req.TraceID == "" {
			req.TraceID = NewTraceID()
		}
		return wrapped(ctx, req)
	}
}
