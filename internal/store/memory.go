// internal/store/memory.go
//
// In-memory keyed store for live play state.
// The HTTP server keeps two of these: harness games and solver sessions.
//
// Characteristics:
//   - Values keyed by an opaque ID string.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//   - Get returns ErrNotFound for unknown IDs.
//
// The store guards the map only. Values that are mutated after Get (a
// *solver.Session, a *game.Game) need their own lock.

package store

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get for unknown IDs.
var ErrNotFound = errors.New("not found")

// Store is the persistence interface for live values.
type Store[T any] interface {
	// Save persists or replaces the value under id.
	Save(ctx context.Context, id string, v T) error

	// Get retrieves the value stored under id.
	Get(ctx context.Context, id string) (T, error)

	// Delete drops id; deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// Len reports the number of stored values.
	Len() int
}

type memory[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore[T any]() Store[T] {
	return &memory[T]{items: make(map[string]T)}
}

func (m *memory[T]) Save(ctx context.Context, id string, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id] = v
	return nil
}

func (m *memory[T]) Get(ctx context.Context, id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.items[id]; ok {
		return v, nil
	}
	var zero T
	return zero, ErrNotFound
}

func (m *memory[T]) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
