package handlers

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/buildsafe/backend/pkg/logger"
)

// ActivityEvent is one item on the live ops feed: a suggestion was generated
// or a reviewer decided on one. The suggest RPC itself stays request/response;
// this feed is observation only.
type ActivityEvent struct {
	Type       string    `json:"type"`
	AuditLogID string    `json:"audit_log_id"`
	UsedAI     bool      `json:"used_ai,omitempty"`
	Accepted   *bool     `json:"accepted,omitempty"`
	Time       time.Time `json:"time"`
}

type ActivityFeed struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewActivityFeed() *ActivityFeed {
	return &ActivityFeed{
		clients: make(map[*websocket.Conn]bool),
	}
}

func (f *ActivityFeed) Publish(event ActivityEvent) {
	event.Time = time.Now()

	f.mu.Lock()
	defer f.mu.Unlock()

	for conn := range f.clients {
		if err := conn.WriteJSON(event); err != nil {
			logger.Debug("Dropping stale activity subscriber", zap.Error(err))
			conn.Close()
			delete(f.clients, conn)
		}
	}
}

func (f *ActivityFeed) HandleConnection(c *websocket.Conn) {
	logger.Info("Activity feed subscriber connected")

	f.mu.Lock()
	f.clients[c] = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.clients, c)
		f.mu.Unlock()
		c.Close()
		logger.Info("Activity feed subscriber disconnected")
	}()

	// Subscribers only listen; the read loop exists to detect disconnects.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}
