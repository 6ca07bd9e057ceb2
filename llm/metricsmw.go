package llm

import (
	"context"
	"time"

	"github.com/BaSui01/graphrag/metrics"
)

// Processor derives detailed metrics from a completed call, mutating the
// accumulator in place.
type Processor interface {
	ProcessMetrics(model string, acc *metrics.Accumulator, req *Request, resp *Response)
}

// UsageProcessor extracts token usage from the response.
type UsageProcessor struct{}

func (UsageProcessor) ProcessMetrics(model string, acc *metrics.Accumulator, req *Request, resp *Response) {
	if resp == nil {
		return
	}
	acc.PromptTokens = resp.Usage.PromptTokens
	acc.CompletionTokens = resp.Usage.CompletionTokens
	acc.TotalTokens = resp.Usage.TotalTokens
}

// MetricsMiddleware records the wall-clock duration of the inner call and
// delegates detailed extraction to the processor. It sits just outside the
// real call so the duration reflects true compute cost, not retry sleeps or
// rate-limit waits; under retry each attempt's duration accumulates.
func MetricsMiddleware(processor Processor) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if req.Metrics == nil {
				return next(ctx, req)
			}

			start := time.Now()
			resp, err := next(ctx, req)
			req.Metrics.ComputeDuration += time.Since(start)

			if err == nil && processor != nil {
				processor.ProcessMetrics(req.Model, req.Metrics, req, resp)
			}
			return resp, err
		}
	}
}
