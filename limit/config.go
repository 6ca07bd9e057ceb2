package limit

import (
	"errors"
	"fmt"
	"time"
)

// Limiter strategy names, as they appear in configuration.
const (
	TypeSlidingWindow = "sliding_window"
	TypeTokenBucket   = "token_bucket"
)

// DefaultPeriodSeconds is the window length used when none is configured.
const DefaultPeriodSeconds = 60.0

var errNoCaps = errors.New("limit: at least one of requests_per_period and tokens_per_period must be set")

// Config describes a rate limiter. At least one of the two per-period caps
// must be set; both may be set and are enforced independently.
type Config struct {
	Type              string  `yaml:"type" json:"type"`
	PeriodSeconds     float64 `yaml:"period_in_seconds" json:"period_in_seconds"`
	RequestsPerPeriod int     `yaml:"requests_per_period" json:"requests_per_period"`
	TokensPerPeriod   int     `yaml:"tokens_per_period" json:"tokens_per_period"`
}

// WithDefaults returns a copy of the config with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.Type == "" {
		c.Type = TypeSlidingWindow
	}
	if c.PeriodSeconds == 0 {
		c.PeriodSeconds = DefaultPeriodSeconds
	}
	return c
}

// Validate rejects bad configs before any limiter is built.
func (c Config) Validate() error {
	switch c.Type {
	case "", TypeSlidingWindow, TypeTokenBucket:
	default:
		return fmt.Errorf("limit: unknown limiter type %q", c.Type)
	}
	if c.PeriodSeconds < 0 {
		return fmt.Errorf("limit: period_in_seconds must be positive, got %v", c.PeriodSeconds)
	}
	if c.RequestsPerPeriod < 0 {
		return fmt.Errorf("limit: requests_per_period must be positive, got %d", c.RequestsPerPeriod)
	}
	if c.TokensPerPeriod < 0 {
		return fmt.Errorf("limit: tokens_per_period must be positive, got %d", c.TokensPerPeriod)
	}
	if c.RequestsPerPeriod == 0 && c.TokensPerPeriod == 0 {
		return errNoCaps
	}
	return nil
}

// Period returns the window length as a duration.
func (c Config) Period() time.Duration {
	return time.Duration(c.PeriodSeconds * float64(time.Second))
}
