package llm

import (
	"context"

	"github.com/BaSui01/graphrag/retry"
)

// RetryMiddleware re-invokes the entire inner stack on transient failure.
// Because rate limiting sits inside this layer, every retry re-enters the
// rate limiter and re-queues fairly instead of hammering the upstream.
//
// The accumulator is updated through a defer so the final retry count is
// recorded even when the call ultimately fails.
func RetryMiddleware(retryer retry.Retryer) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			attempts := 0
			if req.Metrics != nil {
				defer func() {
					retries := attempts - 1
					if retries < 0 {
						retries = 0
					}
					req.Metrics.Retries = retries
					req.Metrics.Retried = retries > 0
				}()
			}

			result, err := retryer.DoWithResult(ctx, func(ctx context.Context) (any, error) {
				attempts++
				return next(ctx, req)
			})
			if err != nil {
				return nil, err
			}
			resp, _ := result.(*Response)
			return resp, nil
		}
	}
}
