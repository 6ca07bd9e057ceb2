package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/graphrag/limit"
	"github.com/BaSui01/graphrag/tokenizer"
)

// RateLimitMiddleware estimates the token cost of the request, then blocks
// on the limiter before delegating. Completion traffic counts prompt tokens
// over the message history; embedding traffic sums token counts over the
// input list.
func RateLimitMiddleware(limiter limit.Limiter, tok tokenizer.Tokenizer, logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			tokens := estimateTokens(req, tok, logger)
			if req.Metrics != nil {
				req.Metrics.EstimatedTokens = tokens
			}

			start := time.Now()
			if err := limiter.Acquire(ctx, tokens); err != nil {
				return nil, err
			}
			if req.Metrics != nil {
				req.Metrics.RateLimitWait += time.Since(start)
			}
			return next(ctx, req)
		}
	}
}

// estimateTokens never fails the call: a tokenizer error falls back to the
// character-count estimator so rate limiting stays a best-effort signal.
func estimateTokens(req *Request, tok tokenizer.Tokenizer, logger *zap.Logger) int {
	if tok == nil {
		tok = tokenizer.NewEstimator(req.Model)
	}

	if req.IsEmbedding() {
		total := 0
		for _, input := range req.Input {
			n, err := tok.CountTokens(input)
			if err != nil {
				logger.Warn("token count failed, using estimator",
					zap.String("tokenizer", tok.Name()), zap.Error(err))
				n, _ = tokenizer.NewEstimator(req.Model).CountTokens(input)
			}
			total += n
		}
		return total
	}

	msgs := make([]tokenizer.Message, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = tokenizer.Message{Role: string(m.Role), Content: m.Content}
	}
	n, err := tok.CountMessages(msgs)
	if err != nil {
		logger.Warn("message token count failed, using estimator",
			zap.String("tokenizer", tok.Name()), zap.Error(err))
		n, _ = tokenizer.NewEstimator(req.Model).CountMessages(msgs)
	}
	return n
}
