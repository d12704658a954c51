// Package embeddings holds placeholder building blocks for a future
// retrieval step. Nothing here indexes, ranks or evicts.
package embeddings

import (
	"sync"
	"unicode/utf8"
)

// Store keeps embedding vectors by key.
type Store interface {
	Add(key string, vec []float64)
	Get(key string) ([]float64, bool)
}

// InMemoryStore is a Store backed by a map. It is safe for concurrent use.
// Vectors are copied on the way in and out so callers cannot alias them.
type InMemoryStore struct {
	mu      sync.RWMutex
	vectors map[string][]float64
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{vectors: make(map[string][]float64)}
}

// Add stores vec under key, replacing any previous vector.
func (s *InMemoryStore) Add(key string, vec []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[key] = append([]float64(nil), vec...)
}

// Get returns the vector stored under key.
func (s *InMemoryStore) Get(key string) ([]float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vectors[key]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), v...), true
}

// Len reports the number of stored vectors.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Retriever looks vectors up by exact key. There is no similarity search.
type Retriever struct {
	store Store
}

// NewRetriever wraps store.
func NewRetriever(store Store) *Retriever {
	return &Retriever{store: store}
}

// Retrieve delegates to the underlying store.
func (r *Retriever) Retrieve(key string) ([]float64, bool) {
	return r.store.Get(key)
}

// Embed returns a one-dimensional vector holding the rune count of text.
func Embed(text string) []float64 {
	return []float64{float64(utf8.RuneCountInString(text))}
}

// Flatten concatenates nested slices, preserving order.
func Flatten[T any](nested [][]T) []T {
	n := 0
	for _, s := range nested {
		n += len(s)
	}
	out := make([]T, 0, n)
	for _, s := range nested {
		out = append(out, s...)
	}
	return out
}
