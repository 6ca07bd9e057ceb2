package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/graphrag/llm"
)

func entryWithContent(content string) *llm.CacheEntry {
	return &llm.CacheEntry{
		Response:  &llm.Response{Model: "gpt-4o-mini", Content: content},
		CreatedAt: time.Now(),
	}
}

// TestMemory_GetSet 验证基本读写
func TestMemory_GetSet(t *testing.T) {
	m := NewMemory(10, time.Hour)
	ctx := context.Background()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, llm.ErrCacheMiss)

	require.NoError(t, m.Set(ctx, "k1", entryWithContent("hello")))
	got, err := m.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Response.Content)
}

// TestMemory_LRUEviction 验证超出容量时淘汰最久未使用的条目
func TestMemory_LRUEviction(t *testing.T) {
	m := NewMemory(3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Set(ctx, fmt.Sprintf("k%d", i), entryWithContent(fmt.Sprintf("v%d", i))))
	}

	// 访问 k0，使 k1 成为最久未使用
	_, err := m.Get(ctx, "k0")
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "k3", entryWithContent("v3")))
	assert.Equal(t, 3, m.Len())

	_, err = m.Get(ctx, "k1")
	assert.ErrorIs(t, err, llm.ErrCacheMiss)

	for _, key := range []string{"k0", "k2", "k3"} {
		_, err := m.Get(ctx, key)
		assert.NoError(t, err, "key %s should survive", key)
	}
}

// TestMemory_TTLExpiry 验证过期条目按未命中处理
func TestMemory_TTLExpiry(t *testing.T) {
	m := NewMemory(10, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k1", entryWithContent("v1")))
	_, err := m.Get(ctx, "k1")
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	_, err = m.Get(ctx, "k1")
	assert.ErrorIs(t, err, llm.ErrCacheMiss)
}

// TestMemory_UpdateExistingKey 验证重复写入同一 key 覆盖旧值且不增加条目数
func TestMemory_UpdateExistingKey(t *testing.T) {
	m := NewMemory(10, time.Hour)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k1", entryWithContent("old")))
	require.NoError(t, m.Set(ctx, "k1", entryWithContent("new")))

	assert.Equal(t, 1, m.Len())
	got, err := m.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Response.Content)
}
