package llm

import (
	"context"

	"github.com/BaSui01/graphrag/metrics"
)

// CountingMiddleware records attempted, succeeded and failed totals per
// model. It sits outside the cache, so a cache hit counts as an attempt and
// a success without re-deriving anything from the inner layers.
func CountingMiddleware(store *metrics.Store) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			store.RecordAttempt(req.Model)

			resp, err := next(ctx, req)

			store.RecordOutcome(req.Model, req.Metrics, err == nil)
			return resp, err
		}
	}
}
