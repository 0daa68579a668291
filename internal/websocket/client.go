package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/ruready-server/internal/dtos/ws_dto"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 256
)

type Client struct {
	ID     string
	UserID string
	IP     string
	Conn   *websocket.Conn
	Send   chan []byte

	hub       *Hub
	ctx       context.Context
	cancel    context.CancelFunc
	lastSeen  atomic.Int64
	closeOnce sync.Once
	onClose   func()
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, ip string) *Client {
	ctx, cancel := context.WithCancel(hub.ctx)
	c := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		IP:     ip,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		hub:    hub,
		ctx:    ctx,
		cancel: cancel,
	}
	c.touch()
	return c
}

func (c *Client) touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

func (c *Client) GetLastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

func (c *Client) IsClientActive() bool {
	return c.ctx.Err() == nil
}

// Start runs the pumps. The client unregisters itself when either stops.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Close is safe to call from any goroutine, any number of times.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.Conn != nil {
			_ = c.Conn.Close()
		}
		if c.onClose != nil {
			c.onClose()
		}
		c.hub.Unregister(c)
	})
}

// Emit queues one event frame for this connection only.
func (c *Client) Emit(event string, data any) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("ws: failed to encode frame")
		return
	}
	c.hub.deliver(c, frame)
}

func (c *Client) emitError(event, message string) {
	c.Emit(event, ws_dto.ErrorEvent{Error: message})
}

// writePump: take data from c.Send and send to socket + ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case msg := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump: read inbound frames + handle pong for keep-alive
func (c *Client) readPump() {
	defer c.Close()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.touch()
		c.hub.activity(c)
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("clientID", c.ID).Msg("ws: unexpected close")
			}
			return
		}
		c.touch()
		c.hub.dispatch(c, data)
	}
}
