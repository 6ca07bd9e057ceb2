package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrorInjection_FullRateAlwaysFails tests that rate 1.0 fails every
// call with the default retryable injected error.
func TestErrorInjection_FullRateAlwaysFails(t *testing.T) {
	called := false
	h := ErrorInjectionMiddleware(1.0, nil)(func(ctx context.Context, req *Request) (*Response, error) {
		called = true
		return &Response{}, nil
	})

	for i := 0; i < 10; i++ {
		_, err := h(context.Background(), chatRequest("q"))
		assert.Error(t, err)
		assert.Equal(t, ErrInjectedFailure, CodeOf(err))

		var le *Error
		assert.True(t, errors.As(err, &le))
		assert.True(t, le.Retryable)
	}
	assert.False(t, called)
}

// TestErrorInjection_ZeroRateNeverFails tests the pass-through path.
func TestErrorInjection_ZeroRateNeverFails(t *testing.T) {
	h := ErrorInjectionMiddleware(0, nil)(func(ctx context.Context, req *Request) (*Response, error) {
		return &Response{Content: "ok"}, nil
	})

	for i := 0; i < 10; i++ {
		resp, err := h(context.Background(), chatRequest("q"))
		assert.NoError(t, err)
		assert.Equal(t, "ok", resp.Content)
	}
}

// TestErrorInjection_CustomError tests that a configured error is surfaced
// as-is.
func TestErrorInjection_CustomError(t *testing.T) {
	custom := errors.New("synthetic outage")
	h := ErrorInjectionMiddleware(1.0, custom)(func(ctx context.Context, req *Request) (*Response, error) {
		return &Response{}, nil
	})

	_, err := h(context.Background(), chatRequest("q"))
	assert.Same(t, custom, err)
}
