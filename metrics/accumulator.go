package metrics

import "time"

// Accumulator collects measurements for a single LLM call as it moves
// through the middleware pipeline. It is mutated in place by each layer:
// the metrics layer records compute duration, the rate-limit layer records
// estimated cost and wait time, the retry layer records attempt counts, and
// the cache layer flags hits. A nil Accumulator on a request disables
// metrics for that call.
//
// An Accumulator belongs to exactly one in-flight call and is not safe for
// concurrent mutation.
type Accumulator struct {
	// Retries is the number of retry attempts beyond the initial call.
	Retries int `json:"retries"`
	// Retried is set when the call needed at least one retry.
	Retried bool `json:"retried"`
	// CacheHit is set when the response was served from cache.
	CacheHit bool `json:"cache_hit"`

	// ComputeDuration is the wall-clock time of the downstream call only,
	// excluding rate-limit waits and retry sleeps.
	ComputeDuration time.Duration `json:"compute_duration"`
	// RateLimitWait is the time spent blocked waiting for window admission.
	RateLimitWait time.Duration `json:"rate_limit_wait"`

	// EstimatedTokens is the token cost estimated before the call for
	// rate-limit admission.
	EstimatedTokens int `json:"estimated_tokens"`
	// PromptTokens, CompletionTokens and TotalTokens are extracted from the
	// response usage after the call.
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Merge folds another accumulator into this one. Used when a cache hit
// restores the metrics recorded at response-compute time: counters add,
// flags OR, and token counts from the cached call win when present.
func (a *Accumulator) Merge(other *Accumulator) {
	if other == nil {
		return
	}
	a.Retries += other.Retries
	a.Retried = a.Retried || other.Retried
	a.CacheHit = a.CacheHit || other.CacheHit
	a.ComputeDuration += other.ComputeDuration
	a.RateLimitWait += other.RateLimitWait
	if other.EstimatedTokens > 0 {
		a.EstimatedTokens = other.EstimatedTokens
	}
	if other.PromptTokens > 0 {
		a.PromptTokens = other.PromptTokens
	}
	if other.CompletionTokens > 0 {
		a.CompletionTokens = other.CompletionTokens
	}
	if other.TotalTokens > 0 {
		a.TotalTokens = other.TotalTokens
	}
}

// Clone returns a copy of the accumulator. The cache layer stores a clone so
// later mutation of the live accumulator cannot leak into cached entries.
func (a *Accumulator) Clone() *Accumulator {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
