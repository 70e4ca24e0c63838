package notify

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	// sendChannelSize controls the max number
	// of events that can be queued for a client.
	sendChannelSize = 16
	pingPeriod      = (60 * 9 * time.Second) / 10
)

// Client is one websocket subscriber, keyed by the session it watches.
type Client struct {
	SessionID string
	Conn      *websocket.Conn
	Manager   *Manager
	send      chan Event
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewClient(sessionID string, conn *websocket.Conn, manager *Manager) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		SessionID: sessionID,
		Conn:      conn,
		Manager:   manager,
		send:      make(chan Event, sendChannelSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (c *Client) Start() {
	go c.readPump()
	go c.writePump()
	c.Manager.register <- c
}

func (c *Client) Close() {
	if err := c.Conn.Close(websocket.StatusNormalClosure, "bye"); err != nil {
		c.Manager.logger.Debug("failed to close connection", "error", err)
	}
	c.cancel()
}

func (c *Client) Send(event Event) {
	select {
	case c.send <- event:
	default:
		c.Manager.forceDisconnect(c)
	}
}

// readPump exists to observe the peer closing; subscribers have nothing to
// say after the handshake.
func (c *Client) readPump() {
	defer func() {
		c.Manager.unregister <- c
		c.Close()
	}()

	for {
		var msg map[string]any
		if err := wsjson.Read(c.ctx, c.Conn, &msg); err != nil {
			c.Manager.logger.Debug("subscriber read ended", "sessionID", c.SessionID, "error", err)
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				_ = c.Conn.Close(websocket.StatusNormalClosure, "bye")
				return
			}
			if err := wsjson.Write(c.ctx, c.Conn, event); err != nil {
				c.Manager.logger.Warn("failed to write event", "sessionID", c.SessionID, "error", err)
				return
			}
			c.Manager.logger.Debug("event sent", "sessionID", c.SessionID, "type", event.Type)
		case <-ticker.C:
			if err := c.Conn.Ping(c.ctx); err != nil {
				c.Manager.logger.Debug("failed to ping subscriber", "sessionID", c.SessionID, "error", err)
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}
