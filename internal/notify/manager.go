package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Manager is the websocket Notifier: it tracks one subscriber per session and
// routes published events to the matching connection. Sessions without a
// subscriber simply drop their events; polling remains the source of truth.
type Manager struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *slog.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewManager(ctx context.Context, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	return &Manager{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (m *Manager) Start() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			if old, ok := m.clients[client.SessionID]; ok {
				go m.forceDisconnect(old)
			}
			m.clients[client.SessionID] = client
			m.mu.Unlock()
			m.logger.Info("subscriber connected", "sessionID", client.SessionID)
		case client := <-m.unregister:
			m.mu.Lock()
			if current, ok := m.clients[client.SessionID]; ok && current == client {
				delete(m.clients, client.SessionID)
				close(client.send)
				m.logger.Info("subscriber disconnected", "sessionID", client.SessionID)
			}
			m.mu.Unlock()
		case <-m.ctx.Done():
			return
		}
	}
}

// Publish implements Notifier. The read lock is held across the send: the
// unregister path closes client.send under the write lock, so releasing
// before Send would allow a send on a closed channel. Send never blocks,
// which keeps the critical section short.
func (m *Manager) Publish(_ context.Context, sessionID string, event Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	client, ok := m.clients[sessionID]
	if !ok {
		return
	}
	client.Send(event)
}

func (m *Manager) forceDisconnect(c *Client) {
	c.Close()
}

func (m *Manager) Shutdown() {
	m.cancel()
	m.mu.Lock()
	for _, client := range m.clients {
		client.Close()
	}
	m.mu.Unlock()
}
