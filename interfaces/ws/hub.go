// Package ws delivers rendered document projections to connected
// browsers. Connections are grouped into per-session rooms; every
// document mutation pushes the full projection to the session's room.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"phrasely-backend/application/ports"
	"phrasely-backend/domain/core/valueobjects"
	"phrasely-backend/pkg/observability"
)

// Hub maintains active WebSocket connections grouped by session
type Hub struct {
	rooms map[string]map[*Client]bool // sessionID -> set of clients
	mu    sync.RWMutex

	register   chan *Client
	unregister chan *Client
	outbound   chan *roomMessage

	ctx     context.Context
	cancel  context.CancelFunc
	metrics *observability.Collector
	logger  *zap.Logger
}

// roomMessage targets every client subscribed to one session
type roomMessage struct {
	SessionID string
	Payload   []byte
}

// pushEnvelope is the wire shape of a projection push
type pushEnvelope struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewHub creates a new WebSocket hub
func NewHub(metrics *observability.Collector, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client, 100),
		unregister: make(chan *Client, 100),
		outbound:   make(chan *roomMessage, 1000),
		ctx:        ctx,
		cancel:     cancel,
		metrics:    metrics,
		logger:     logger,
	}
}

var _ ports.ProjectionPusher = (*Hub)(nil)

// Run starts the hub's main event loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAllConnections()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.outbound:
			h.deliver(message)
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.cancel()
}

// Push sends a payload to every socket subscribed to the session
func (h *Hub) Push(ctx context.Context, sessionID valueobjects.SessionID, payload interface{}) error {
	data, err := json.Marshal(pushEnvelope{
		Type:      "PROJECTION_UPDATED",
		SessionID: sessionID.String(),
		Timestamp: time.Now().Unix(),
		Data:      payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal projection push: %w", err)
	}

	message := &roomMessage{SessionID: sessionID.String(), Payload: data}
	select {
	case h.outbound <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		if h.metrics != nil {
			h.metrics.PushFailures.Inc()
		}
		return fmt.Errorf("push queue full, projection dropped")
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[client.sessionID] == nil {
		h.rooms[client.sessionID] = make(map[*Client]bool)
	}
	h.rooms[client.sessionID][client] = true

	if h.metrics != nil {
		h.metrics.ActiveConnections.Inc()
	}
	h.logger.Info("Client registered",
		zap.String("sessionID", client.sessionID),
		zap.String("socketID", client.socketID),
		zap.Int("roomSize", len(h.rooms[client.sessionID])),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[client.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.sessionID)
	}

	if h.metrics != nil {
		h.metrics.ActiveConnections.Dec()
	}
	h.logger.Info("Client unregistered",
		zap.String("sessionID", client.sessionID),
		zap.String("socketID", client.socketID),
	)
}

func (h *Hub) deliver(message *roomMessage) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[message.SessionID]))
	for client := range h.rooms[message.SessionID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		h.logger.Debug("No sockets for session", zap.String("sessionID", message.SessionID))
		return
	}

	for _, client := range clients {
		select {
		case client.send <- message.Payload:
			if h.metrics != nil {
				h.metrics.MessagesPushed.Inc()
			}
		default:
			// Slow consumer, drop it rather than block the hub.
			h.logger.Warn("Client send buffer full, disconnecting",
				zap.String("sessionID", client.sessionID),
				zap.String("socketID", client.socketID),
			)
			if h.metrics != nil {
				h.metrics.PushFailures.Inc()
			}
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

// RoomSize returns the number of sockets subscribed to a session
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sessionID, clients := range h.rooms {
		for client := range clients {
			close(client.send)
			client.conn.Close()
		}
		delete(h.rooms, sessionID)
	}
}
