package attr

import (
	"iter"
	"sync"
)

// Store is a scoped key-value storage of tagged values. It's used both as a
// connection attachment and as a request-scoped attributes map. The zero value
// is ready for use.
type Store struct {
	mu     sync.RWMutex
	values map[string]Value
}

func NewStore() *Store {
	return new(Store)
}

// Get returns the value by the key.
func (s *Store) Get(key string) (Value, bool) {
	s.mu.RLock()
	value, found := s.values[key]
	s.mu.RUnlock()

	return value, found
}

// Put stores the value and returns the previous one, if any.
func (s *Store) Put(key string, value Value) (prev Value, replaced bool) {
	s.mu.Lock()
	if s.values == nil {
		s.values = make(map[string]Value)
	}

	prev, replaced = s.values[key]
	s.values[key] = value
	s.mu.Unlock()

	return prev, replaced
}

// Remove deletes the key and returns the removed value, if any.
func (s *Store) Remove(key string) (Value, bool) {
	s.mu.Lock()
	value, found := s.values[key]
	delete(s.values, key)
	s.mu.Unlock()

	return value, found
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.values)
}

// All iterates over a snapshot of the stored entries, so the store may be safely
// modified during the iteration.
func (s *Store) All() iter.Seq2[string, Value] {
	s.mu.RLock()
	snapshot := make(map[string]Value, len(s.values))
	for key, value := range s.values {
		snapshot[key] = value
	}
	s.mu.RUnlock()

	return func(yield func(string, Value) bool) {
		for key, value := range snapshot {
			if !yield(key, value) {
				return
			}
		}
	}
}

// Clear drops all the entries.
func (s *Store) Clear() {
	s.mu.Lock()
	clear(s.values)
	s.mu.Unlock()
}

// Lookup retrieves a value stored under the Any kind and asserts it to T.
func Lookup[T any](s *Store, key string) (T, bool) {
	var zero T

	value, found := s.Get(key)
	if !found || value.kind != Any {
		return zero, false
	}

	typed, ok := value.any.(T)
	return typed, ok
}
