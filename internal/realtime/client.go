package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ramikart/ramikart-backend/pkg/config"
	"github.com/ramikart/ramikart-backend/pkg/logger"
)

// FrameHandler reacts to frames a client sends. Implementations must be safe
// for concurrent use; every connection runs its own read pump.
type FrameHandler interface {
	HandleFrame(ctx context.Context, client *Client, frame ClientFrame)
}

// Client is the middleman between one websocket connection and the hub.
type Client struct {
	ID     string
	UserID uuid.UUID

	hub     *Hub
	conn    *websocket.Conn
	handler FrameHandler
	cfg     config.RealtimeConfig
	logg    *logger.Logger

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

// NewClient wraps an upgraded connection. The caller still has to register
// the client on the hub and start both pumps.
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, handler FrameHandler, cfg config.RealtimeConfig, logg *logger.Logger) *Client {
	return &Client{
		ID:      uuid.NewString(),
		UserID:  userID,
		hub:     hub,
		conn:    conn,
		handler: handler,
		cfg:     cfg,
		logg:    logg,
		send:    make(chan []byte, cfg.SendBuffer),
		closed:  make(chan struct{}),
	}
}

// Send queues a frame for this single connection, bypassing the hub. Used
// for direct acknowledgements such as messageSent.
func (c *Client) Send(ctx context.Context, frame ServerFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		c.logg.Error(ctx, "marshal server frame", err)
		return
	}
	c.trySend(data)
}

func (c *Client) trySend(data []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

// ReadPump consumes frames from the peer until the connection drops, then
// unregisters the client. Runs once per connection in its own goroutine.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logg.Warn(ctx, "websocket read failed: "+err.Error())
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.Send(ctx, ServerFrame{
				Type:    EventError,
				Payload: map[string]string{"message": "malformed frame"},
			})
			continue
		}
		c.handler.HandleFrame(ctx, c, frame)
	}
}

// WritePump flushes queued frames to the peer and keeps the connection alive
// with periodic pings. Runs once per connection in its own goroutine.
func (c *Client) WritePump(ctx context.Context) {
	pingPeriod := c.cfg.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.closed:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
