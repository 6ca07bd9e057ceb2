package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/BaSui01/graphrag/metrics"
)

// TestCacheKey_DeterministicAndVolatileFieldIndependent checks that the key
// depends only on the request's semantic arguments: equal arguments always
// produce equal keys, regardless of trace ID, stream/mock flags, or the
// accumulator attached to the request.
func TestCacheKey_DeterministicAndVolatileFieldIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		model := rapid.StringMatching(`[a-z0-9-]{1,20}`).Draw(t, "model")
		content := rapid.String().Draw(t, "content")
		maxTokens := rapid.IntRange(0, 4096).Draw(t, "maxTokens")
		temperature := float32(rapid.Float64Range(0, 2).Draw(t, "temperature"))

		base := &Request{
			Model:       model,
			Messages:    []Message{{Role: RoleUser, Content: content}},
			MaxTokens:   maxTokens,
			Temperature: temperature,
		}
		noisy := &Request{
			Model:       model,
			Messages:    []Message{{Role: RoleUser, Content: content}},
			MaxTokens:   maxTokens,
			Temperature: temperature,
			TraceID:     rapid.String().Draw(t, "traceID"),
			Stream:      rapid.Bool().Draw(t, "stream"),
			Mock:        rapid.Bool().Draw(t, "mock"),
			Metrics:     &metrics.Accumulator{Retries: rapid.IntRange(0, 10).Draw(t, "retries")},
		}

		if CacheKey(base) != CacheKey(noisy) {
			t.Fatalf("volatile fields changed the cache key")
		}
		if CacheKey(base) != CacheKey(base) {
			t.Fatalf("cache key is not deterministic")
		}
	})
}

// TestCacheKey_DistinguishesArguments checks that changing any semantic
// argument changes the key.
func TestCacheKey_DistinguishesArguments(t *testing.T) {
	base := &Request{
		Model:    "gpt-4o-mini",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}

	variants := []*Request{
		{Model: "gpt-4o", Messages: base.Messages},
		{Model: base.Model, Messages: []Message{{Role: RoleUser, Content: "goodbye"}}},
		{Model: base.Model, Messages: base.Messages, MaxTokens: 100},
		{Model: base.Model, Messages: base.Messages, Temperature: 0.7},
		{Model: base.Model, Input: []string{"hello"}},
	}

	seen := map[string]bool{CacheKey(base): true}
	for i, v := range variants {
		key := CacheKey(v)
		assert.False(t, seen[key], "variant %d collided with a previous key", i)
		seen[key] = true
	}
}

func TestCacheKey_Prefix(t *testing.T) {
	key := CacheKey(&Request{Model: "m"})
	assert.True(t, strings.HasPrefix(key, "llm:cache:"))
	// sha256 truncated to 16 bytes, hex encoded
	assert.Len(t, key, len("llm:cache:")+32)
}
