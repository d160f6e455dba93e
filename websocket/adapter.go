package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ViMaSter/sessionserver/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 65536
)

// Conn adapts one gorilla websocket connection to domain.Transport. The
// read pump registers the connection with the registry, hands every frame
// to the dispatcher in arrival order and unregisters on close; the write
// pump drains the buffered send channel.
type Conn struct {
	ws         *websocket.Conn
	send       chan []byte
	registry   domain.Registry
	dispatcher domain.Dispatcher

	playerID int

	mu     sync.Mutex
	closed bool
}

func NewConn(ws *websocket.Conn, r domain.Registry, d domain.Dispatcher) *Conn {
	return &Conn{
		ws:         ws,
		send:       make(chan []byte, 256),
		registry:   r,
		dispatcher: d,
	}
}

// PlayerID returns the identity assigned at Start.
func (c *Conn) PlayerID() int { return c.playerID }

func (c *Conn) Send(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

// Ready reports whether the connection can still accept outbound messages.
func (c *Conn) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *Conn) Close() error {
	c.markClosed()
	return c.ws.Close()
}

func (c *Conn) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Conn) Start() {
	c.playerID = c.registry.Register(c)
	go c.writePump()
	go c.readPump()
}

func (c *Conn) readPump() {
	defer func() {
		c.markClosed()
		c.registry.Unregister(c.playerID)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("read error", "playerID", c.playerID, "error", err)
			}
			return
		}

		c.dispatcher.Handle(c.playerID, data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
