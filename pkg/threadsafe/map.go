package threadsafe

import (
	"sort"
	"sync"
)

// Map is a thread-safe map implementation.
type Map[K comparable, V any] struct {
	m  map[K]V
	mu sync.RWMutex
}

// NewMap creates a new thread-safe map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		m: make(map[K]V),
	}
}

// Set adds or updates a key-value pair in the map.
func (m *Map[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.m[key] = value
}

// Get retrieves a value by key from the map.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.m[key]
	return val, ok
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.m)
}

// Take removes every entry for which fn returns true and returns their keys, ordered by
// less.
func (m *Map[K, V]) Take(fn func(K, V) bool, less func(a, b K) bool) []K {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []K
	for k, v := range m.m {
		if fn(k, v) {
			keys = append(keys, k)
			delete(m.m, k)
		}
	}

	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	return keys
}
