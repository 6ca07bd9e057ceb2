package limit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SlidingWindow admits requests so that, over any trailing period, at most
// RequestsPerPeriod requests and TokensPerPeriod tokens have been admitted.
// It keeps paired timestamp and token-cost queues for every admission still
// inside the window and evicts entries as they age out.
//
// The token cap is a soft rate signal, not a hard ceiling: a single request
// whose own cost exceeds the cap is admitted once the window is otherwise
// empty enough, so a legitimately large request can never deadlock.
type SlidingWindow struct {
	period  time.Duration
	reqCap  int // 0 disables the request cap
	tokCap  int // 0 disables the token cap
	stagger time.Duration

	mu        sync.Mutex
	stamps    []time.Time
	costs     []int
	tokenSum  int
	lastAdmit time.Time

	logger *zap.Logger
}

// NewSlidingWindow builds a limiter from cfg. The config must already be
// valid; construction re-checks the invariants and fails fast on a bad one.
func NewSlidingWindow(cfg Config, logger *zap.Logger) (*SlidingWindow, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.PeriodSeconds <= 0 {
		return nil, fmt.Errorf("limit: period_in_seconds must be positive, got %v", cfg.PeriodSeconds)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sw := &SlidingWindow{
		period: cfg.Period(),
		reqCap: cfg.RequestsPerPeriod,
		tokCap: cfg.TokensPerPeriod,
		logger: logger,
	}
	if sw.reqCap > 0 {
		// Minimum spacing between admissions keeps bursts from landing on
		// the upstream all at once.
		sw.stagger = sw.period / time.Duration(sw.reqCap)
	}
	return sw, nil
}

// evict drops entries older than now-period from both queues.
// Caller holds sw.mu.
func (sw *SlidingWindow) evict(now time.Time) {
	cutoff := now.Add(-sw.period)
	i := 0
	for i < len(sw.stamps) && !sw.stamps[i].After(cutoff) {
		sw.tokenSum -= sw.costs[i]
		i++
	}
	if i > 0 {
		sw.stamps = append(sw.stamps[:0], sw.stamps[i:]...)
		sw.costs = append(sw.costs[:0], sw.costs[i:]...)
	}
}

// blockedFor reports how long the caller must wait before re-checking, or
// zero when the request is admissible now. Caller holds sw.mu.
func (sw *SlidingWindow) blockedFor(now time.Time, tokens int) time.Duration {
	blocked := false
	switch {
	case sw.reqCap > 0 && len(sw.stamps) >= sw.reqCap:
		blocked = true
	case sw.tokCap > 0 && sw.tokenSum >= sw.tokCap:
		blocked = true
	case sw.tokCap > 0 && tokens <= sw.tokCap && sw.tokenSum+tokens > sw.tokCap:
		// Admitting would push the window over the soft cap. A request
		// whose own cost exceeds the cap skips this check entirely.
		blocked = true
	}
	if !blocked {
		return 0
	}

	// Wait until the oldest entry ages out, then re-check under the lock.
	wait := time.Millisecond
	if len(sw.stamps) > 0 {
		if w := sw.stamps[0].Add(sw.period).Sub(now); w > wait {
			wait = w
		}
	}
	return wait
}

// Acquire blocks until the window admits a request of the given token cost.
// The wait never holds the window lock; each re-check re-acquires it so
// concurrent callers get a fair chance to evict and admit.
func (sw *SlidingWindow) Acquire(ctx context.Context, tokens int) error {
	if tokens < 0 {
		tokens = 0
	}

	for {
		sw.mu.Lock()
		now := time.Now()
		sw.evict(now)

		wait := sw.blockedFor(now, tokens)
		if wait == 0 {
			if err := sw.admit(ctx, now, tokens); err != nil {
				sw.mu.Unlock()
				return err
			}
			sw.mu.Unlock()
			return nil
		}
		sw.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// admit enforces the stagger spacing, then records the admission.
// Caller holds sw.mu; the stagger sleep intentionally keeps the lock so the
// spacing between consecutive admissions holds across goroutines.
func (sw *SlidingWindow) admit(ctx context.Context, now time.Time, tokens int) error {
	if sw.stagger > 0 && !sw.lastAdmit.IsZero() {
		if since := now.Sub(sw.lastAdmit); since < sw.stagger {
			remain := sw.stagger - since
			timer := time.NewTimer(remain)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return ctx.Err()
			case <-timer.C:
			}
			now = time.Now()
		}
	}

	sw.stamps = append(sw.stamps, now)
	sw.costs = append(sw.costs, tokens)
	sw.tokenSum += tokens
	sw.lastAdmit = now

	sw.logger.Debug("rate limit admission",
		zap.Int("tokens", tokens),
		zap.Int("window_requests", len(sw.stamps)),
		zap.Int("window_tokens", sw.tokenSum),
	)
	return nil
}

// Window reports the number of requests and token sum currently inside the
// trailing period.
func (sw *SlidingWindow) Window() (requests, tokens int) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.evict(time.Now())
	return len(sw.stamps), sw.tokenSum
}
