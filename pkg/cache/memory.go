package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryOption configures NewMemory.
type MemoryOption func(*memoryLimits)

type memoryLimits struct {
	defaultTTL time.Duration
	maxEntries int
	maxBytes   int64
}

// WithDefaultTTL is used by Set calls with a zero TTL. It defaults to one hour.
func WithDefaultTTL(d time.Duration) MemoryOption {
	return func(l *memoryLimits) { l.defaultTTL = d }
}

// WithMaxEntries caps the number of entries. Zero means no cap.
func WithMaxEntries(n int) MemoryOption {
	return func(l *memoryLimits) { l.maxEntries = n }
}

// WithMaxBytes caps the summed length of []byte and string values.
// Values of other types weigh nothing. Zero means no cap.
func WithMaxBytes(n int64) MemoryOption {
	return func(l *memoryLimits) { l.maxBytes = n }
}

type item[V any] struct {
	key     string
	value   V
	size    int64
	expires time.Time
}

func (it *item[V]) live(now time.Time) bool {
	return it.expires.IsZero() || now.Before(it.expires)
}

func weigh(v any) int64 {
	switch b := v.(type) {
	case []byte:
		return int64(len(b))
	case string:
		return int64(len(b))
	default:
		return 0
	}
}

// Memory is an in-process LRU cache. Expired entries are dropped when they
// are read or when room is needed for a new one.
type Memory[V any] struct {
	mu     sync.Mutex
	limits memoryLimits
	index  map[string]*list.Element
	order  *list.List // front is most recently used
	bytes  int64
	closed bool
}

func NewMemory[V any](opts ...MemoryOption) *Memory[V] {
	l := memoryLimits{defaultTTL: time.Hour}
	for _, opt := range opts {
		opt(&l)
	}
	return &Memory[V]{limits: l, index: make(map[string]*list.Element), order: list.New()}
}

func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	el, ok := m.index[key]
	if !ok {
		return zero, ErrNotFound
	}
	it := el.Value.(*item[V])
	if !it.live(time.Now()) {
		m.drop(el)
		return zero, ErrNotFound
	}
	m.order.MoveToFront(el)
	return it.value, nil
}

func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	size := weigh(value)
	if m.limits.maxBytes > 0 && size > m.limits.maxBytes {
		// Never fits; keep whatever is cached instead of flushing it.
		return nil
	}

	if ttl == 0 {
		ttl = m.limits.defaultTTL
	}
	now := time.Now()
	it := &item[V]{key: key, value: value, size: size}
	if ttl > 0 {
		it.expires = now.Add(ttl)
	}

	if el, ok := m.index[key]; ok {
		m.drop(el)
	}
	m.makeRoom(now, size)
	m.index[key] = m.order.PushFront(it)
	m.bytes += size
	return nil
}

func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.index[key]; ok {
		m.drop(el)
	}
	return nil
}

// Len reports the number of entries, expired ones included.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.index)
}

// Close rejects further writes. It is safe to call more than once.
func (m *Memory[V]) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// makeRoom frees space for an entry of size bytes, dropping expired entries
// first and then the least recently used ones. mu must be held.
func (m *Memory[V]) makeRoom(now time.Time, size int64) {
	if !m.full(size) {
		return
	}
	for el := m.order.Back(); el != nil; {
		prev := el.Prev()
		if !el.Value.(*item[V]).live(now) {
			m.drop(el)
		}
		el = prev
	}
	for m.full(size) && m.order.Len() > 0 {
		m.drop(m.order.Back())
	}
}

func (m *Memory[V]) full(size int64) bool {
	if m.limits.maxEntries > 0 && len(m.index) >= m.limits.maxEntries {
		return true
	}
	return m.limits.maxBytes > 0 && m.bytes+size > m.limits.maxBytes
}

func (m *Memory[V]) drop(el *list.Element) {
	it := m.order.Remove(el).(*item[V])
	delete(m.index, it.key)
	m.bytes -= it.size
}

var _ Cache[any] = (*Memory[any])(nil)
