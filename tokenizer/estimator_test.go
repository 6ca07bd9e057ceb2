package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimator_CountTokens(t *testing.T) {
	e := NewEstimator("any-model")

	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"short ascii rounds up to one", "hi", 1},
		{"ascii roughly four chars per token", "abcdefghijklmnop", 4},
		{"cjk denser than ascii", "你好世界", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.CountTokens(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimator_MixedTextCountsBothScripts(t *testing.T) {
	e := NewEstimator("any-model")

	ascii, err := e.CountTokens("hello world this is text")
	require.NoError(t, err)
	mixed, err := e.CountTokens("hello world this is text 中文内容也在里面")
	require.NoError(t, err)
	assert.Greater(t, mixed, ascii)
}

func TestEstimator_CountMessagesAddsOverhead(t *testing.T) {
	e := NewEstimator("any-model")

	content, err := e.CountTokens("some message content")
	require.NoError(t, err)

	total, err := e.CountMessages([]Message{
		{Role: "user", Content: "some message content"},
	})
	require.NoError(t, err)
	// per-message overhead of 4 plus conversation-end overhead of 3
	assert.Equal(t, content+4+3, total)
}

func TestEstimator_Name(t *testing.T) {
	assert.Equal(t, "estimator", NewEstimator("m").Name())
}
