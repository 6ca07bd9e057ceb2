package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/graphrag/cache"
	"github.com/BaSui01/graphrag/limit"
	"github.com/BaSui01/graphrag/retry"
)

type probe struct{ id int }

// TestRegistry_SingletonReusesPerConfig tests that singleton scope returns
// one instance per (name, config) pair.
func TestRegistry_SingletonReusesPerConfig(t *testing.T) {
	built := 0
	r := NewRegistry[int, *probe]("probe", true)
	r.Register("p", func(cfg int) (*probe, error) {
		built++
		return &probe{id: cfg}, nil
	})

	a, err := r.Resolve("p", 1)
	require.NoError(t, err)
	b, err := r.Resolve("p", 1)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, built)

	c, err := r.Resolve("p", 2)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, built)
}

// TestRegistry_NonSingletonBuildsFresh tests that non-singleton scope
// constructs a new instance on every resolve.
func TestRegistry_NonSingletonBuildsFresh(t *testing.T) {
	r := NewRegistry[int, *probe]("probe", false)
	r.Register("p", func(cfg int) (*probe, error) {
		return &probe{id: cfg}, nil
	})

	a, err := r.Resolve("p", 1)
	require.NoError(t, err)
	b, err := r.Resolve("p", 1)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

// TestRegistry_UnknownNameFails tests the error path.
func TestRegistry_UnknownNameFails(t *testing.T) {
	r := NewRegistry[int, *probe]("probe", true)
	_, err := r.Resolve("missing", 1)
	assert.ErrorContains(t, err, "unknown probe strategy")
}

// TestDefaults_SharedLimiterWindow tests the load-bearing singleton: two
// resolutions of the same limiter config must share one window, or
// concurrent callers would each get a private rate budget.
func TestDefaults_SharedLimiterWindow(t *testing.T) {
	set := Defaults(zap.NewNop())

	cfg := limit.Config{Type: limit.TypeSlidingWindow, PeriodSeconds: 60, RequestsPerPeriod: 5}
	a, err := set.Limiters.Resolve(limit.TypeSlidingWindow, cfg)
	require.NoError(t, err)
	b, err := set.Limiters.Resolve(limit.TypeSlidingWindow, cfg)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

// TestDefaults_RetryersBuiltFresh tests that retryers are not shared.
func TestDefaults_RetryersBuiltFresh(t *testing.T) {
	set := Defaults(zap.NewNop())

	cfg := retry.Config{Type: retry.TypeImmediate, MaxRetries: 3}
	a, err := set.Retryers.Resolve(retry.TypeImmediate, cfg)
	require.NoError(t, err)
	b, err := set.Retryers.Resolve(retry.TypeImmediate, cfg)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

// TestDefaults_AllStrategiesRegistered tests the built-in registrations.
func TestDefaults_AllStrategiesRegistered(t *testing.T) {
	set := Defaults(zap.NewNop())

	assert.ElementsMatch(t, []string{limit.TypeSlidingWindow, limit.TypeTokenBucket}, set.Limiters.Names())
	assert.ElementsMatch(t, []string{retry.TypeExponentialBackoff, retry.TypeImmediate}, set.Retryers.Names())
	assert.ElementsMatch(t, []string{cache.TypeMemory, cache.TypeRedis}, set.Caches.Names())
	assert.ElementsMatch(t, []string{"tiktoken", "estimator"}, set.Tokenizers.Names())
}

// TestDefaults_MemoryCacheResolves tests cache construction through the
// registry, config validation included.
func TestDefaults_MemoryCacheResolves(t *testing.T) {
	set := Defaults(zap.NewNop())

	store, err := set.Caches.Resolve(cache.TypeMemory, cache.Config{Type: cache.TypeMemory})
	require.NoError(t, err)
	assert.NotNil(t, store)

	_, err = set.Caches.Resolve(cache.TypeMemory, cache.Config{Type: cache.TypeMemory, MaxEntries: -1})
	assert.Error(t, err)
}
