package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bandsite/fan-chat/internal/config"
	"github.com/bandsite/fan-chat/pkg/log"
)

var (
	ErrClosed       = errors.New("connection closed")
	ErrSlowConsumer = errors.New("send buffer full")
)

// Client is one websocket connection. Inbound frames go to the hub; the hub
// and the dispatcher write through Send.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	ctx    context.Context
	config config.WebSocketConfig

	mu     sync.Mutex
	closed bool
}

func NewClient(ctx context.Context, id string, hub *Hub, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	return &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, cfg.SendBuffer),
		ctx:    log.WithConn(ctx, id),
		config: cfg,
	}
}

func (c *Client) ID() string { return c.id }

// Send queues data without blocking. A client that has fallen a full buffer
// behind is closed; the read side then reports the disconnect to the hub.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.closeLocked()
		l := log.Ctx(c.ctx)
		l.Warn().Msg("send buffer full, closing slow client")
		return ErrSlowConsumer
	}
}

// Close stops further sends and lets WritePump say goodbye.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Start registers the client with the hub and runs its pumps.
func (c *Client) Start() error {
	if err := c.hub.Open(c.ctx, c); err != nil {
		c.conn.Close()
		return err
	}
	go c.WritePump()
	go c.ReadPump()
	return nil
}

func (c *Client) ReadPump() {
	defer func() {
		if err := c.hub.Close(c.ctx, c); err != nil {
			c.Close()
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	l := log.Ctx(c.ctx)
	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
		if msgType != websocket.TextMessage {
			l.Warn().Int("message_type", msgType).Msg("dropping non-text frame")
			continue
		}

		if err := c.hub.Deliver(c.ctx, c, message); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
