package factory

import (
	"go.uber.org/zap"

	"github.com/BaSui01/graphrag/cache"
	"github.com/BaSui01/graphrag/limit"
	"github.com/BaSui01/graphrag/llm"
	"github.com/BaSui01/graphrag/retry"
	"github.com/BaSui01/graphrag/tokenizer"
)

// Set bundles the registries for every pluggable collaborator.
type Set struct {
	Limiters   *Registry[limit.Config, limit.Limiter]
	Retryers   *Registry[retry.Config, retry.Retryer]
	Caches     *Registry[cache.Config, llm.CacheStore]
	Tokenizers *Registry[string, tokenizer.Tokenizer]
}

// Defaults returns a set with the built-in strategies registered.
//
// Limiters and caches are singleton-scoped: all callers with the same
// config share one window (or one store). Retryers are stateless between
// calls and tokenizers cache their own encodings, so retryers are built
// fresh and tokenizers reuse per model.
func Defaults(logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}

	limiters := NewRegistry[limit.Config, limit.Limiter]("limiter", true)
	limiters.Register(limit.TypeSlidingWindow, func(cfg limit.Config) (limit.Limiter, error) {
		return limit.NewSlidingWindow(cfg, logger)
	})
	limiters.Register(limit.TypeTokenBucket, func(cfg limit.Config) (limit.Limiter, error) {
		return limit.NewTokenBucket(cfg, logger)
	})

	retryers := NewRegistry[retry.Config, retry.Retryer]("retryer", false)
	retryers.Register(retry.TypeExponentialBackoff, func(cfg retry.Config) (retry.Retryer, error) {
		return retry.FromConfig(cfg, llm.SkipByCodes(cfg.SkipCodes), logger)
	})
	retryers.Register(retry.TypeImmediate, func(cfg retry.Config) (retry.Retryer, error) {
		return retry.FromConfig(cfg, llm.SkipByCodes(cfg.SkipCodes), logger)
	})

	caches := NewRegistry[cache.Config, llm.CacheStore]("cache", true)
	caches.Register(cache.TypeMemory, func(cfg cache.Config) (llm.CacheStore, error) {
		cfg = cfg.WithDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cache.NewMemory(cfg.MaxEntries, cfg.TTL), nil
	})
	caches.Register(cache.TypeRedis, func(cfg cache.Config) (llm.CacheStore, error) {
		return cache.NewRedis(cfg, logger)
	})

	tokenizers := NewRegistry[string, tokenizer.Tokenizer]("tokenizer", true)
	tokenizers.Register("tiktoken", func(model string) (tokenizer.Tokenizer, error) {
		return tokenizer.NewTiktoken(model), nil
	})
	tokenizers.Register("estimator", func(model string) (tokenizer.Tokenizer, error) {
		return tokenizer.NewEstimator(model), nil
	})

	return &Set{
		Limiters:   limiters,
		Retryers:   retryers,
		Caches:     caches,
		Tokenizers: tokenizers,
	}
}
