package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CachingMiddleware memoizes responses keyed by the request fingerprint.
//
// Streaming and mocked calls bypass the cache entirely: their output is not
// reproducible the way a plain completion is. On a hit the cached metrics
// merge into the live accumulator and the hit flag is set without invoking
// the inner stack, so a hit never touches rate limiting or retry. A write
// happens only after the inner call succeeds; failures are never cached.
// A corrupted or unreadable entry is logged and treated as a miss.
//
// sf, when non-nil, coalesces concurrent identical in-flight requests so
// only the first caller computes; later callers share its result and are
// flagged as cache hits. Pass nil to keep the both-miss-both-compute
// behavior of a plain get/set cache.
func CachingMiddleware(store CacheStore, sf *singleflight.Group, logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if req.Stream || req.Mock {
				return next(ctx, req)
			}

			key := CacheKey(req)
			entry, err := store.Get(ctx, key)
			switch {
			case err == nil && entry != nil && entry.Response != nil:
				if req.Metrics != nil {
					req.Metrics.Merge(entry.Metrics)
					req.Metrics.CacheHit = true
				}
				logger.Debug("cache hit", zap.String("key", key), zap.String("model", req.Model))
				return entry.Response, nil
			case err != nil && !errors.Is(err, ErrCacheMiss):
				logger.Warn("cache read failed, treating as miss",
					zap.String("key", key), zap.Error(err))
			}

			compute := func() (*Response, error) {
				resp, err := next(ctx, req)
				if err != nil {
					return nil, err
				}
				fresh := &CacheEntry{
					Response:  resp,
					Metrics:   req.Metrics.Clone(),
					CreatedAt: time.Now(),
				}
				if err := store.Set(ctx, key, fresh); err != nil {
					logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
				}
				return resp, nil
			}

			if sf == nil {
				return compute()
			}

			v, err, shared := sf.Do(key, func() (any, error) {
				return compute()
			})
			if err != nil {
				return nil, err
			}
			if shared && req.Metrics != nil {
				req.Metrics.CacheHit = true
			}
			return v.(*Response), nil
		}
	}
}
