package llm

import (
	"context"
	"math/rand"
)

// ErrorInjectionMiddleware probabilistically fails calls before they reach
// the base handler. Test-only: the pipeline adds it solely when a non-zero
// failure rate is configured. A nil inject error defaults to a retryable
// injected-failure Error so retry behavior can be exercised end to end.
func ErrorInjectionMiddleware(rate float64, inject error) Middleware {
	if inject == nil {
		inject = &Error{
			Code:      ErrInjectedFailure,
			Message:   "injected failure",
			Retryable: true,
		}
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if rand.Float64() < rate {
				return nil, inject
			}
			return next(ctx, req)
		}
	}
}
