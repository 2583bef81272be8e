package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var (
	ErrNotFound      = errors.New("connection not found")
	ErrAlreadyExists = errors.New("connection already registered")
	ErrInvalidID     = errors.New("invalid connection ID")
)

// Entry is a registered connection and its bookkeeping.
type Entry[T any] struct {
	ID           string
	Conn         T
	JoinedAt     time.Time
	LastActiveAt time.Time
}

// Registry holds the set of live connections
type Registry[T any] struct {
	clock   clockwork.Clock
	entries map[string]*Entry[T]
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry. A nil clock uses the real clock.
func NewRegistry[T any](clock clockwork.Clock) *Registry[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry[T]{
		clock:   clock,
		entries: make(map[string]*Entry[T]),
	}
}

// Add registers conn under id.
func (r *Registry[T]) Add(id string, conn T) error {
	if id == "" {
		return ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; exists {
		return ErrAlreadyExists
	}

	now := r.clock.Now()
	r.entries[id] = &Entry[T]{
		ID:           id,
		Conn:         conn,
		JoinedAt:     now,
		LastActiveAt: now,
	}
	return nil
}

// Remove deletes id and returns the removed entry. The second result is false
// when id was not registered, which is not an error.
func (r *Registry[T]) Remove(id string) (Entry[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[id]
	if !exists {
		return Entry[T]{}, false
	}
	delete(r.entries, id)
	return *e, true
}

// Get returns a copy of the entry for id
func (r *Registry[T]) Get(id string) (Entry[T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[id]
	if !exists {
		return Entry[T]{}, ErrNotFound
	}
	return *e, nil
}

// Contains reports whether id is registered
func (r *Registry[T]) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.entries[id]
	return exists
}

// Touch records activity for id.
func (r *Registry[T]) Touch(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[id]
	if !exists {
		return ErrNotFound
	}
	e.LastActiveAt = r.clock.Now()
	return nil
}

// List returns a snapshot of all entries ordered by join time.
func (r *Registry[T]) List() []Entry[T] {
	r.mu.RLock()
	result := make([]Entry[T], 0, len(r.entries))
	for _, e := range r.entries {
		result = append(result, *e)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].JoinedAt.Equal(result[j].JoinedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].JoinedAt.Before(result[j].JoinedAt)
	})
	return result
}

// Idle returns the IDs of entries with no activity within maxAge.
func (r *Registry[T]) Idle(maxAge time.Duration) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := r.clock.Now().Add(-maxAge)
	var ids []string
	for id, e := range r.entries {
		if e.LastActiveAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered connections
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
