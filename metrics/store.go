package metrics

import (
	"sync"
	"time"
)

// ModelStats aggregates call statistics for one model.
type ModelStats struct {
	Attempted int64 `json:"attempted"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	CacheHits int64 `json:"cache_hits"`
	Retries   int64 `json:"retries"`

	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`

	ComputeDuration time.Duration `json:"compute_duration"`
	RateLimitWait   time.Duration `json:"rate_limit_wait"`
}

// Publisher receives aggregate events as they are recorded. The prometheus
// collector in internal/metrics implements this; a nil publisher is a no-op.
type Publisher interface {
	PublishCall(model string, acc *Accumulator, success bool)
	PublishSession(d time.Duration)
}

// Store aggregates per-model statistics across concurrent callers.
// All methods are safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	models    map[string]*ModelStats
	sessions  int64
	sessionNs time.Duration
	publisher Publisher
}

// NewStore creates an empty store. publisher may be nil.
func NewStore(publisher Publisher) *Store {
	return &Store{
		models:    make(map[string]*ModelStats),
		publisher: publisher,
	}
}

func (s *Store) stats(model string) *ModelStats {
	st, ok := s.models[model]
	if !ok {
		st = &ModelStats{}
		s.models[model] = st
	}
	return st
}

// RecordAttempt counts an attempted call for the model. A cache hit still
// counts as an attempt: the request-count layer sits outside the cache.
func (s *Store) RecordAttempt(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats(model).Attempted++
}

// RecordOutcome counts a success or failure and folds the call's
// accumulator into the model aggregate.
func (s *Store) RecordOutcome(model string, acc *Accumulator, success bool) {
	s.mu.Lock()
	st := s.stats(model)
	if success {
		st.Succeeded++
	} else {
		st.Failed++
	}
	if acc != nil {
		if acc.CacheHit {
			st.CacheHits++
		}
		st.Retries += int64(acc.Retries)
		st.PromptTokens += int64(acc.PromptTokens)
		st.CompletionTokens += int64(acc.CompletionTokens)
		st.TotalTokens += int64(acc.TotalTokens)
		st.ComputeDuration += acc.ComputeDuration
		st.RateLimitWait += acc.RateLimitWait
	}
	s.mu.Unlock()

	if s.publisher != nil {
		s.publisher.PublishCall(model, acc, success)
	}
}

// RecordSessionDuration records the total wall-clock time of one
// multiplexer session, normal exit or not.
func (s *Store) RecordSessionDuration(d time.Duration) {
	s.mu.Lock()
	s.sessions++
	s.sessionNs += d
	s.mu.Unlock()

	if s.publisher != nil {
		s.publisher.PublishSession(d)
	}
}

// Sessions returns the number of recorded sessions and their cumulative
// duration.
func (s *Store) Sessions() (int64, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions, s.sessionNs
}

// Snapshot returns a copy of the per-model aggregates.
func (s *Store) Snapshot() map[string]ModelStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]ModelStats, len(s.models))
	for model, st := range s.models {
		out[model] = *st
	}
	return out
}
