package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/graphrag/metrics"
)

// ErrCacheMiss is returned by CacheStore.Get when no entry exists.
var ErrCacheMiss = errors.New("cache miss")

// CacheEntry bundles a cached response with the metrics recorded at
// response-compute time, so a later hit can restore them.
type CacheEntry struct {
	Response  *Response            `json:"response"`
	Metrics   *metrics.Accumulator `json:"metrics,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// CacheStore is the cache collaborator consumed by the caching middleware.
// Implementations own their eviction and backing-store policy; see the
// cache package for the in-memory LRU and redis stores.
type CacheStore interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
}

// cacheKeyFields is the canonical subset of a request that determines its
// cache identity. Volatile fields (trace ID, stream flag, mock flag, the
// metrics accumulator) are deliberately absent.
type cacheKeyFields struct {
	Model       string         `json:"model"`
	Messages    []Message      `json:"messages,omitempty"`
	Input       []string       `json:"input,omitempty"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Temperature float32        `json:"temperature,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// CacheKey derives a deterministic fingerprint of the request's
// non-volatile arguments: identical calls map to identical keys.
func CacheKey(req *Request) string {
	data, err := json.Marshal(cacheKeyFields{
		Model:       req.Model,
		Messages:    req.Messages,
		Input:       req.Input,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Extra:       req.Extra,
	})
	if err != nil {
		// fallback: deterministic string rendering avoids key collisions
		data = []byte(fmt.Sprintf("%v", *req))
	}
	hash := sha256.Sum256(data)
	return "llm:cache:" + hex.EncodeToString(hash[:16])
}
