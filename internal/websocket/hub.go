package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"metrolog/internal/infrastructure"
	"metrolog/pkg/contracts/events"
)

// ErrHubStopped is returned when publishing to a stopped hub.
var ErrHubStopped = errors.New("websocket hub stopped")

const broadcastBuffer = 256

type outbound struct {
	sessionID   string
	messageType events.MessageType
	data        []byte
}

// HubStats is a snapshot of hub counters.
type HubStats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesDropped  int64 `json:"messages_dropped"`
}

// Hub maintains the set of active clients and fans events out to them.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	logger  *slog.Logger
	metrics *Metrics

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *Metrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, broadcastBuffer),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
	}
}

// Start runs the hub loop in a new goroutine.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client, "normal")

		case out := <-h.broadcast:
			h.deliver(out)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.totalConnections.Add(1)

	ctx := c.context()
	h.metrics.recordConnection(ctx)
	h.logger.InfoContext(ctx, "client registered",
		slog.String("client_id", c.id),
		slog.String("session_id", c.sessionID),
		slog.String("remote_addr", c.remoteAddr),
		slog.Int("total_clients", count))

	msg := events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.NewString(),
			Type:      events.MessageTypeConnection,
			Timestamp: time.Now().UTC(),
			TraceID:   c.traceID,
		},
		SessionID: c.sessionID,
		Data:      events.Connection{ClientID: c.id, SessionID: c.sessionID},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal connection message", slog.String("error", err.Error()))
		return
	}
	select {
	case c.send <- data:
	default:
		h.logger.WarnContext(ctx, "client buffer full, connection message dropped", slog.String("client_id", c.id))
	}
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}

	ctx := c.context()
	h.metrics.recordDisconnection(ctx, time.Since(c.connectedAt), reason)
	h.logger.InfoContext(ctx, "client unregistered",
		slog.String("client_id", c.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", time.Since(c.connectedAt)),
		slog.Int("total_clients", count))
}

func (h *Hub) deliver(out outbound) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.follows(out.sessionID) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		select {
		case c.send <- out.data:
			delivered++
		default:
			h.messagesDropped.Add(1)
			h.metrics.recordDropped(c.context(), string(out.messageType))
			h.logger.WarnContext(c.context(), "client send buffer full, disconnecting", slog.String("client_id", c.id))
			h.removeClient(c, "slow_consumer")
		}
	}
	h.messagesSent.Add(int64(delivered))
	h.metrics.recordDelivery(context.Background(), string(out.messageType), delivered, len(out.data))

	h.logger.Debug("event delivered",
		slog.String("message_type", string(out.messageType)),
		slog.String("session_id", out.sessionID),
		slog.Int("delivered", delivered),
		slog.Int("size", len(out.data)))
}

// Publish queues msg for delivery. Missing ID, timestamp and trace id are
// filled in.
func (h *Hub) Publish(ctx context.Context, msg events.WebSocketMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if msg.TraceID == "" {
		msg.TraceID = infrastructure.GetTraceID(ctx)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal event",
			slog.String("message_type", string(msg.Type)),
			slog.String("error", err.Error()))
		return err
	}

	// broadcast is buffered, so the send below is always ready while it has
	// room; check quit first.
	select {
	case <-h.quit:
		return ErrHubStopped
	default:
	}

	select {
	case h.broadcast <- outbound{sessionID: msg.SessionID, messageType: msg.Type, data: data}:
		return nil
	case <-h.quit:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Broadcast publishes an event of messageType about sessionID.
func (h *Hub) Broadcast(ctx context.Context, messageType events.MessageType, sessionID string, data interface{}) error {
	return h.Publish(ctx, events.WebSocketMessage{
		BaseMessage: events.BaseMessage{Type: messageType},
		SessionID:   sessionID,
		Data:        data,
	})
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.quit:
		return ErrHubStopped
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns the hub counters.
func (h *Hub) Stats() HubStats {
	return HubStats{
		ActiveClients:    h.ClientCount(),
		TotalConnections: h.totalConnections.Load(),
		MessagesSent:     h.messagesSent.Load(),
		MessagesDropped:  h.messagesDropped.Load(),
	}
}

// Stop ends the hub loop and closes every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	close(h.quit)
	h.mu.Unlock()

	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}
