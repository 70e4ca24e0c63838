package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryTileBackend is an in-process tier, used in tests and single-node dev
// runs where neither Redis nor a shared disk is available.
type MemoryTileBackend struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewMemoryTileBackend(ttl time.Duration) *MemoryTileBackend {
	return &MemoryTileBackend{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

func (m *MemoryTileBackend) Store(_ context.Context, tileID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.entries[tileID] = memoryEntry{data: buf, expiresAt: time.Now().Add(m.ttl)}
	return nil
}

func (m *MemoryTileBackend) Fetch(_ context.Context, tileID string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[tileID]
	m.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.data, true, nil
}

func (m *MemoryTileBackend) Existing(_ context.Context, tileIDs []string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	existing := make([]string, 0, len(tileIDs))
	for _, id := range tileIDs {
		if entry, ok := m.entries[id]; ok && now.Before(entry.expiresAt) {
			existing = append(existing, id)
		}
	}
	return existing, nil
}

func (m *MemoryTileBackend) Ping(context.Context) error {
	return nil
}
