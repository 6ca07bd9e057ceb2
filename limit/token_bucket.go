package limit

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TokenBucket is the smoothed alternative to the sliding window. It drives
// one x/time/rate limiter per configured cap: requests refill at
// RequestsPerPeriod per period and tokens at TokensPerPeriod per period.
// Admission waits on both, requests first.
type TokenBucket struct {
	requests *rate.Limiter
	tokens   *rate.Limiter
	tokCap   int
	logger   *zap.Logger
}

// NewTokenBucket builds a token-bucket limiter from cfg.
func NewTokenBucket(cfg Config, logger *zap.Logger) (*TokenBucket, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tb := &TokenBucket{tokCap: cfg.TokensPerPeriod, logger: logger}
	period := cfg.Period()
	if cfg.RequestsPerPeriod > 0 {
		tb.requests = rate.NewLimiter(
			rate.Limit(float64(cfg.RequestsPerPeriod)/period.Seconds()),
			cfg.RequestsPerPeriod,
		)
	}
	if cfg.TokensPerPeriod > 0 {
		tb.tokens = rate.NewLimiter(
			rate.Limit(float64(cfg.TokensPerPeriod)/period.Seconds()),
			cfg.TokensPerPeriod,
		)
	}
	return tb, nil
}

// Acquire waits on the request bucket, then the token bucket. A request
// costing more than the whole token bucket drains it and proceeds rather
// than waiting forever, mirroring the sliding window's soft-cap escape.
func (tb *TokenBucket) Acquire(ctx context.Context, tokens int) error {
	start := time.Now()
	if tb.requests != nil {
		if err := tb.requests.Wait(ctx); err != nil {
			return err
		}
	}
	if tb.tokens != nil && tokens > 0 {
		n := tokens
		if n > tb.tokCap {
			n = tb.tokCap
		}
		if err := tb.tokens.WaitN(ctx, n); err != nil {
			return err
		}
	}
	if wait := time.Since(start); wait > time.Second {
		tb.logger.Debug("token bucket admission", zap.Duration("waited", wait), zap.Int("tokens", tokens))
	}
	return nil
}
