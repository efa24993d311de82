package session

import (
	"errors"
	"sync"
	"time"

	"github.com/jun/drivelookup/internal/navigator"
)

const DefaultTTL = 30 * time.Minute

var (
	ErrNotFound = errors.New("search session not found")
	ErrNotOwner = errors.New("search session belongs to another user")
)

// Registry keeps the navigators of recent searches, keyed by search id.
type Registry interface {
	// Register stores nav under searchID for userID.
	Register(searchID, userID string, nav *navigator.Navigator)

	// Get returns the navigator if userID owns it and extends its TTL.
	Get(searchID, userID string) (*navigator.Navigator, error)

	// Release drops the search session if userID owns it.
	Release(searchID, userID string) error
}

type entry struct {
	userID    string
	nav       *navigator.Navigator
	expiresAt time.Time
}

// MemoryRegistry implements Registry with an in-memory map. Entries not
// touched for the TTL are evicted lazily and by Sweep.
type MemoryRegistry struct {
	entries     map[string]*entry
	mu          sync.Mutex
	ttlDuration time.Duration
	now         func() time.Time
}

// NewMemoryRegistry creates a registry with the given TTL (DefaultTTL if zero).
func NewMemoryRegistry(ttl time.Duration) *MemoryRegistry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryRegistry{
		entries:     make(map[string]*entry),
		ttlDuration: ttl,
		now:         time.Now,
	}
}

func (m *MemoryRegistry) Register(searchID, userID string, nav *navigator.Navigator) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.entries[searchID]; ok && old.nav != nav {
		old.nav.Close()
	}
	m.entries[searchID] = &entry{
		userID:    userID,
		nav:       nav,
		expiresAt: m.now().Add(m.ttlDuration),
	}
}

func (m *MemoryRegistry) Get(searchID, userID string) (*navigator.Navigator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.entries[searchID]
	if !ok {
		return nil, ErrNotFound
	}
	now := m.now()
	if !now.Before(existing.expiresAt) {
		existing.nav.Close()
		delete(m.entries, searchID)
		return nil, ErrNotFound
	}
	if existing.userID != userID {
		return nil, ErrNotOwner
	}

	// Heartbeat
	existing.expiresAt = now.Add(m.ttlDuration)
	return existing.nav, nil
}

func (m *MemoryRegistry) Release(searchID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.entries[searchID]
	if !ok {
		return ErrNotFound
	}
	if existing.userID != userID {
		return ErrNotOwner
	}
	existing.nav.Close()
	delete(m.entries, searchID)
	return nil
}

// Sweep evicts expired entries and returns how many were removed.
func (m *MemoryRegistry) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, e := range m.entries {
		if !now.Before(e.expiresAt) {
			e.nav.Close()
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of registered search sessions.
func (m *MemoryRegistry) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
