package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore keeps sessions in-process. It mirrors the Redis store's
// serialize-on-write behavior so callers never share mutable state with it.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	recent   []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

func (m *MemoryStore) Set(_ context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshalling session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.sessions[session.ID]
	m.sessions[session.ID] = data
	// Updates keep the session's history position; only new ids are pushed.
	if !exists {
		m.recent = append([]string{session.ID}, m.recent...)
		if len(m.recent) > historyCap {
			for _, id := range m.recent[historyCap:] {
				delete(m.sessions, id)
			}
			m.recent = m.recent[:historyCap]
		}
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	data, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshalling session: %w", err)
	}
	return &session, nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	m.removeRecent(sessionID)
	return nil
}

func (m *MemoryStore) Recent(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 || limit > historyCap {
		limit = historyCap
	}
	m.mu.RLock()
	ids := make([]string, 0, limit)
	for _, id := range m.recent {
		if len(ids) == limit {
			break
		}
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		session, err := m.Get(ctx, id)
		if err != nil {
			continue
		}
		summaries = append(summaries, Summary{
			ID:          session.ID,
			CreatedAt:   session.CreatedAt,
			Status:      session.Status,
			Origin:      session.Origin,
			Destination: session.Destination,
			TilesTotal:  len(session.Tiles),
		})
	}
	return summaries, nil
}

func (m *MemoryStore) removeRecent(sessionID string) {
	for i, id := range m.recent {
		if id == sessionID {
			m.recent = append(m.recent[:i], m.recent[i+1:]...)
			return
		}
	}
}
