package cache

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/graphrag/llm"
)

// Memory 进程内 LRU 缓存（双向链表实现 O(1) 操作）
type Memory struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*lruNode
	head     *lruNode // 最近使用
	tail     *lruNode // 最久未使用
}

type lruNode struct {
	key       string
	entry     *llm.CacheEntry
	expiresAt time.Time
	prev      *lruNode
	next      *lruNode
}

// NewMemory 创建进程内 LRU 缓存
func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Memory{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruNode),
	}
}

// Get 实现 llm.CacheStore
func (m *Memory) Get(ctx context.Context, key string) (*llm.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.items[key]
	if !ok {
		return nil, llm.ErrCacheMiss
	}

	if m.ttl > 0 && time.Now().After(node.expiresAt) {
		m.removeNode(node)
		delete(m.items, key)
		return nil, llm.ErrCacheMiss
	}

	m.moveToHead(node)
	return node.entry, nil
}

// Set 实现 llm.CacheStore
func (m *Memory) Set(ctx context.Context, key string, entry *llm.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if node, ok := m.items[key]; ok {
		node.entry = entry
		node.expiresAt = time.Now().Add(m.ttl)
		m.moveToHead(node)
		return nil
	}

	if len(m.items) >= m.capacity {
		m.evictTail()
	}

	node := &lruNode{
		key:       key,
		entry:     entry,
		expiresAt: time.Now().Add(m.ttl),
	}
	m.items[key] = node
	m.addToHead(node)
	return nil
}

// Len 返回当前条目数
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) addToHead(node *lruNode) {
	node.prev = nil
	node.next = m.head
	if m.head != nil {
		m.head.prev = node
	}
	m.head = node
	if m.tail == nil {
		m.tail = node
	}
}

func (m *Memory) removeNode(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		m.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		m.tail = node.prev
	}
}

func (m *Memory) moveToHead(node *lruNode) {
	if node == m.head {
		return
	}
	m.removeNode(node)
	m.addToHead(node)
}

func (m *Memory) evictTail() {
	if m.tail == nil {
		return
	}
	delete(m.items, m.tail.key)
	m.removeNode(m.tail)
}
