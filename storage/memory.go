package storage

import (
	"context"
	"sync"
	"time"

	"trello-cloney/board"
)

type memoryEntry struct {
	mu        sync.Mutex
	state     *board.State
	expiresAt time.Time
}

// MemoryStore keeps views in process memory. Mutations of a view are
// serialized by a per-view lock.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	views map[string]*memoryEntry
}

// NewMemoryStore creates a store whose views expire ttl after their last
// use. A zero ttl keeps views until the process exits.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl < 0 {
		ttl = 0
	}
	return &MemoryStore{ttl: ttl, now: time.Now, views: make(map[string]*memoryEntry)}
}

func (m *MemoryStore) Create(_ context.Context, userID, viewID string, st *board.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	m.views[viewKey(userID, viewID)] = &memoryEntry{state: st.Clone(), expiresAt: m.expiry()}
	return nil
}

func (m *MemoryStore) Load(_ context.Context, userID, viewID string) (*board.State, error) {
	e, ok := m.entry(userID, viewID)
	if !ok {
		return nil, ErrViewNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, userID, viewID string, fn func(*board.State) error) (*board.State, error) {
	e, ok := m.entry(userID, viewID)
	if !ok {
		return nil, ErrViewNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	next := e.state.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	e.state = next
	return next.Clone(), nil
}

// entry returns the live entry for the view and extends its lifetime.
func (m *MemoryStore) entry(userID, viewID string) (*memoryEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := viewKey(userID, viewID)
	e, ok := m.views[key]
	if !ok {
		return nil, false
	}
	if m.ttl > 0 && !m.now().Before(e.expiresAt) {
		delete(m.views, key)
		return nil, false
	}
	e.expiresAt = m.expiry()
	return e, true
}

func (m *MemoryStore) expiry() time.Time {
	if m.ttl == 0 {
		return time.Time{}
	}
	return m.now().Add(m.ttl)
}

func (m *MemoryStore) sweepLocked() {
	if m.ttl == 0 {
		return
	}
	now := m.now()
	for k, e := range m.views {
		if !now.Before(e.expiresAt) {
			delete(m.views, k)
		}
	}
}
