package mux

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/graphrag/llm"
	"github.com/BaSui01/graphrag/metrics"
)

// collectingResponder records every delivered response keyed by request ID.
type collectingResponder struct {
	mu    sync.Mutex
	resps map[string]*llm.Response
	errs  map[string]error
}

func newCollectingResponder() *collectingResponder {
	return &collectingResponder{
		resps: make(map[string]*llm.Response),
		errs:  make(map[string]error),
	}
}

func (c *collectingResponder) handle(id string, resp *llm.Response, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.errs[id] = err
		return
	}
	c.resps[id] = resp
}

// TestSession_CorrelatesResponsesByID tests that each submitted request's
// outcome is delivered under its own ID, successes and failures mixed.
func TestSession_CorrelatesResponsesByID(t *testing.T) {
	handler := func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		// even-numbered requests fail
		n, _ := strconv.Atoi(strings.TrimPrefix(req.TraceID, "req-"))
		if n%2 == 0 {
			return nil, fmt.Errorf("planned failure for %s", req.TraceID)
		}
		return &llm.Response{Content: "answer for " + req.TraceID}, nil
	}

	rec := newCollectingResponder()
	s, err := Open(context.Background(), handler, rec.handle, nil, zap.NewNop(), Options{Concurrency: 3})
	require.NoError(t, err)

	const k = 20
	for i := 0; i < k; i++ {
		id := fmt.Sprintf("req-%d", i)
		require.NoError(t, s.Submit(id, &llm.Request{TraceID: id, Model: "m"}))
	}
	s.Close()

	assert.Len(t, rec.resps, k/2)
	assert.Len(t, rec.errs, k/2)
	for i := 0; i < k; i++ {
		id := fmt.Sprintf("req-%d", i)
		if i%2 == 0 {
			assert.Contains(t, rec.errs, id)
		} else {
			require.Contains(t, rec.resps, id)
			assert.Equal(t, "answer for "+id, rec.resps[id].Content)
		}
	}

	stats := s.Stats()
	assert.Equal(t, int64(k), stats.Submitted)
	assert.Equal(t, int64(k/2), stats.Completed)
	assert.Equal(t, int64(k/2), stats.Failed)
}

// TestSession_SubmitAfterCloseFails tests the closed-session contract.
func TestSession_SubmitAfterCloseFails(t *testing.T) {
	handler := func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		return &llm.Response{}, nil
	}
	s, err := Open(context.Background(), handler, func(string, *llm.Response, error) {}, nil, zap.NewNop(), Options{})
	require.NoError(t, err)

	s.Close()
	err = s.Submit("req-1", &llm.Request{})
	assert.ErrorIs(t, err, ErrClosed)

	// Close is idempotent
	s.Close()
}

// TestSession_EmptyIDRejected tests that a request without an ID cannot be
// submitted: there would be no way to correlate its response.
func TestSession_EmptyIDRejected(t *testing.T) {
	s, err := Open(context.Background(),
		func(ctx context.Context, req *llm.Request) (*llm.Response, error) { return &llm.Response{}, nil },
		func(string, *llm.Response, error) {}, nil, zap.NewNop(), Options{})
	require.NoError(t, err)
	defer s.Close()

	assert.ErrorIs(t, s.Submit("", &llm.Request{}), ErrEmptyRequestID)
}

// TestSession_PanickingHandlerIsolated tests that one panicking request is
// converted into an error for its own ID while other requests complete.
func TestSession_PanickingHandlerIsolated(t *testing.T) {
	handler := func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		if req.TraceID == "req-panic" {
			panic("handler blew up")
		}
		return &llm.Response{Content: "fine"}, nil
	}

	rec := newCollectingResponder()
	s, err := Open(context.Background(), handler, rec.handle, nil, zap.NewNop(), Options{Concurrency: 2})
	require.NoError(t, err)

	require.NoError(t, s.Submit("req-panic", &llm.Request{TraceID: "req-panic"}))
	require.NoError(t, s.Submit("req-ok", &llm.Request{TraceID: "req-ok"}))
	s.Close()

	require.Contains(t, rec.errs, "req-panic")
	var pe *llm.PanicError
	require.ErrorAs(t, rec.errs["req-panic"], &pe)
	assert.Equal(t, "handler blew up", pe.Value)

	require.Contains(t, rec.resps, "req-ok")
	assert.Equal(t, "fine", rec.resps["req-ok"].Content)
}

// TestSession_BackpressureBlocksSubmit tests that a full input queue makes
// Submit wait instead of growing memory without bound.
func TestSession_BackpressureBlocksSubmit(t *testing.T) {
	release := make(chan struct{})
	handler := func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		<-release
		return &llm.Response{}, nil
	}

	s, err := Open(context.Background(), handler, func(string, *llm.Response, error) {}, nil, zap.NewNop(),
		Options{Concurrency: 1, QueueLimit: 1})
	require.NoError(t, err)

	// First request occupies the worker, second fills the queue.
	require.NoError(t, s.Submit("req-0", &llm.Request{}))
	require.NoError(t, s.Submit("req-1", &llm.Request{}))

	blocked := make(chan error, 1)
	start := time.Now()
	go func() {
		blocked <- s.Submit("req-2", &llm.Request{})
	}()

	select {
	case <-blocked:
		t.Fatal("submit returned while the queue was full")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-blocked)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	s.Close()
}

// TestSession_ContextCancelAbandonsDrain tests the hard-interrupt path:
// after cancellation, blocked submits fail with the context error.
func TestSession_ContextCancelAbandonsDrain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	handler := func(c context.Context, req *llm.Request) (*llm.Response, error) {
		select {
		case <-release:
		case <-c.Done():
		}
		return &llm.Response{}, nil
	}

	s, err := Open(ctx, handler, func(string, *llm.Response, error) {}, nil, zap.NewNop(),
		Options{Concurrency: 1, QueueLimit: 1})
	require.NoError(t, err)

	require.NoError(t, s.Submit("req-0", &llm.Request{}))
	require.NoError(t, s.Submit("req-1", &llm.Request{}))

	blocked := make(chan error, 1)
	go func() {
		blocked <- s.Submit("req-2", &llm.Request{})
	}()

	cancel()
	assert.ErrorIs(t, <-blocked, context.Canceled)
}

// TestSession_DurationRecordedOnClose tests that closing the session
// records its wall-clock duration in the store.
func TestSession_DurationRecordedOnClose(t *testing.T) {
	store := metrics.NewStore(nil)
	s, err := Open(context.Background(),
		func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
			time.Sleep(20 * time.Millisecond)
			return &llm.Response{}, nil
		},
		func(string, *llm.Response, error) {}, store, zap.NewNop(), Options{})
	require.NoError(t, err)

	require.NoError(t, s.Submit("req-0", &llm.Request{}))
	s.Close()

	count, total := store.Sessions()
	assert.Equal(t, int64(1), count)
	assert.GreaterOrEqual(t, total, 20*time.Millisecond)
}

// TestOpen_RequiresHandlers tests constructor validation.
func TestOpen_RequiresHandlers(t *testing.T) {
	_, err := Open(context.Background(), nil, func(string, *llm.Response, error) {}, nil, zap.NewNop(), Options{})
	assert.Error(t, err)

	_, err = Open(context.Background(),
		func(ctx context.Context, req *llm.Request) (*llm.Response, error) { return nil, nil },
		nil, nil, zap.NewNop(), Options{})
	assert.Error(t, err)
}
