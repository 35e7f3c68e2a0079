package websocket

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"metrolog/internal/infrastructure"
)

const (
	defaultWriteWait  = 10 * time.Second
	defaultPongWait   = 60 * time.Second
	maxMessageSize    = 512
	clientSendBuffer  = 64
	heartbeatEnvelope = `{"type":"heartbeat"}`
)

// ClientOptions configure a client connection.
type ClientOptions struct {
	// SessionID restricts delivery to events of one session. Empty follows
	// every session.
	SessionID string
	TraceID   string
	// PongWait is how long to wait for a pong; pings go out at 9/10 of it
	// unless PingPeriod is set.
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	return o
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection
	send chan []byte
	opts ClientOptions

	id          string
	sessionID   string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	logger *slog.Logger
}

// NewClient creates a client on conn.
func NewClient(hub *Hub, conn Connection, opts ClientOptions, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	opts = opts.withDefaults()
	id := uuid.NewString()
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, clientSendBuffer),
		opts:        opts,
		id:          id,
		sessionID:   opts.SessionID,
		traceID:     opts.TraceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger: logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
		),
	}
}

// ID returns the client identifier.
func (c *Client) ID() string { return c.id }

func (c *Client) context() context.Context {
	ctx := context.Background()
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}

func (c *Client) follows(sessionID string) bool {
	return c.sessionID == "" || sessionID == "" || c.sessionID == sessionID
}

// ReadPump drains the connection until it fails, then unregisters the
// client. Clients only send heartbeats; anything else is ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WarnContext(c.context(), "unexpected websocket close", slog.String("error", err.Error()))
			}
			return
		}
		if string(bytes.TrimSpace(message)) == heartbeatEnvelope {
			c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
			continue
		}
		c.logger.DebugContext(c.context(), "ignoring client message", slog.Int("size", len(message)))
	}
}

// WritePump writes queued events and periodic pings until the hub closes
// the send channel or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.WarnContext(c.context(), "websocket write failed", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.context(), "ping failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// Serve registers a client for conn and starts its pumps.
func Serve(hub *Hub, conn Connection, opts ClientOptions, logger *slog.Logger) (*Client, error) {
	client := NewClient(hub, conn, opts, logger)
	if err := hub.Register(client); err != nil {
		conn.Close()
		return nil, err
	}
	go client.WritePump()
	go client.ReadPump()
	return client, nil
}
