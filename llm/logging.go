package llm

import (
	"context"

	"go.uber.org/zap"
)

// LoggingMiddleware is the outermost layer. It logs failures with the retry
// count pulled from the accumulator and returns the error unchanged.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			resp, err := next(ctx, req)
			if err != nil {
				retries := 0
				if req.Metrics != nil {
					retries = req.Metrics.Retries
				}
				logger.Error("llm call failed",
					zap.String("model", req.Model),
					zap.String("trace_id", req.TraceID),
					zap.Int("retries", retries),
					zap.Error(err),
				)
			}
			return resp, err
		}
	}
}
