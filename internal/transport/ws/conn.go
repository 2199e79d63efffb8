package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// State is the lifecycle position of one connection.
type State int

const (
	StateConnecting State = iota
	StateIdentified
	StateUnidentified
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateIdentified:
		return "identified"
	case StateUnidentified:
		return "unidentified"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type conn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	state  State
	userID string
}

func newConn(connID string, ws *websocket.Conn, buffer int) *conn {
	return &conn{
		id:   connID,
		ws:   ws,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (c *conn) identify(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.state = StateIdentified
}

func (c *conn) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// identity returns the user id resolved at connect time, if any.
func (c *conn) identity() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.userID != ""
}

// enqueue hands frame to the write pump without blocking.
func (c *conn) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *conn) close() {
	c.once.Do(func() { close(c.done) })
}

// readPump discards inbound frames; it exists to observe pongs and the close.
func (c *conn) readPump() {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only writer on c.ws. It closes the socket on exit, which in
// turn ends readPump.
func (c *conn) writePump(log logrus.FieldLogger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.WithError(err).Debug("Write failed")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
	}
}
