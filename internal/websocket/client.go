package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	defaultWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	defaultPongWait = 60 * time.Second

	// Maximum message size allowed from peer
	defaultMaxMessageSize = 512
)

// Conn is the subset of *websocket.Conn a Client drives.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type ClientOptions struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = defaultMaxMessageSize
	}
	return o
}

// pingPeriod must stay below pongWait so a healthy peer always answers in time.
func (o ClientOptions) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

// Client is a Channel backed by a websocket connection. Writes are serialized by writeMu
// because the underlying connection supports one concurrent writer.
type Client struct {
	id       string
	userID   uint
	username string
	conn     Conn
	opts     ClientOptions
	logger   *slog.Logger

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(conn Conn, userID uint, username string, opts ClientOptions, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		id:       uuid.New().String(),
		userID:   userID,
		username: username,
		conn:     conn,
		opts:     opts.withDefaults(),
		logger:   logger,
		done:     make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) UserID() uint {
	return c.userID
}

func (c *Client) Username() string {
	return c.username
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Send writes msg as a single JSON text frame.
func (c *Client) Send(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msg.Type, err)
	}
	return c.write(websocket.TextMessage, data)
}

func (c *Client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return ErrClientDisconnected
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close sends a close frame with code and closes the transport. Only the first call has
// any effect.
func (c *Client) Close(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		c.writeMu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
		_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
		c.writeMu.Unlock()

		err = c.conn.Close()
		close(c.done)
		c.logger.Debug("Client closed", "clientID", c.id, "userID", c.userID, "code", code)
	})
	return err
}

// Run registers the client, serves it until the peer goes away, ctx is cancelled or the
// registry drops it, then releases the registration. It blocks for the connection's life.
func (c *Client) Run(ctx context.Context, registry *Registry) {
	registration := registry.Acquire(c)
	defer registration.Release()

	welcome := NewMessage(ConnectionData{
		Message:  "Connected to notifications",
		UserID:   c.userID,
		Username: c.username,
		ClientID: c.id,
	}, time.Now())
	if err := c.Send(welcome); err != nil {
		c.logger.Debug("Failed to send welcome message", "clientID", c.id, "userID", c.userID, "error", err)
		return
	}

	go c.keepAlive(ctx)
	c.readLoop()
}

// keepAlive pings the peer and closes the client when ctx is cancelled.
func (c *Client) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(c.opts.pingPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("Error sending ping", "clientID", c.id, "userID", c.userID, "error", err)
				_ = c.Close(websocket.CloseGoingAway, "ping failed")
				return
			}
		case <-ctx.Done():
			_ = c.Close(websocket.CloseGoingAway, "server shutting down")
			return
		case <-c.done:
			return
		}
	}
}

func (c *Client) readLoop() {
	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) && !c.closed.Load() {
				c.logger.Warn("WebSocket error", "clientID", c.id, "userID", c.userID, "error", err)
			} else {
				c.logger.Debug("WebSocket connection closed", "clientID", c.id, "userID", c.userID, "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		c.handleFrame(messageType, data)
	}
}

// handleFrame answers "ping" and ignores anything else; inbound frames carry no commands.
func (c *Client) handleFrame(messageType int, data []byte) {
	if messageType == websocket.TextMessage && strings.TrimSpace(string(data)) == "ping" {
		if err := c.Send(NewPongMessage(time.Now())); err != nil {
			c.logger.Debug("Failed to send pong", "clientID", c.id, "userID", c.userID, "error", err)
		}
		return
	}
	c.logger.Debug("Ignoring inbound frame", "clientID", c.id, "userID", c.userID, "messageType", messageType, "size", len(data))
}
