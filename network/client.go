package network

import (
	"errors"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"hexarena/logic"
	"hexarena/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 1 << 16
)

var ErrSlowClient = errors.New("network: client send buffer full")

var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one websocket connection. It becomes bound to an actor after join.
type Client struct {
	Room      *Room
	Conn      *websocket.Conn
	SessionID string

	send    chan []byte
	limiter *rate.Limiter
	actor   atomic.Int32
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

func ServeWs(room *Room, w http.ResponseWriter, r *http.Request) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}
	hz := room.Config.Transport.InputRateHz
	c := &Client{
		Room:      room,
		Conn:      conn,
		SessionID: uuid.NewString(),
		send:      make(chan []byte, 256),
		limiter:   rate.NewLimiter(rate.Limit(hz), 2*hz),
	}

	go c.writePump()
	go c.readPump()
}

var errClosed = errors.New("network: client closed")

// Send queues a frame without blocking.
func (c *Client) Send(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errClosed
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrSlowClient
	}
}

// Close ends the write pump, which closes the socket.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

func (c *Client) ActorID() logic.ActorID { return logic.ActorID(c.actor.Load()) }

func (c *Client) bind(id logic.ActorID) { c.actor.Store(int32(id)) }

func (c *Client) readPump() {
	defer func() {
		if id := c.ActorID(); id != 0 {
			c.Room.Detach(id, c)
		}
		if n := c.dropped.Load(); n > 0 {
			c.Room.logger.Printf("session %s: %d frames over rate limit", c.SessionID, n)
		}
		c.Close()
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			break
		}
		if !c.limiter.Allow() {
			c.dropped.Add(1)
			continue
		}
		msg, err := c.Room.Wire.Unmarshal(frame)
		if err != nil {
			continue
		}
		c.handle(msg)
	}
}

// handle routes one inbound message. Anything malformed or out of order is dropped silently.
func (c *Client) handle(msg protocol.Message) {
	id := c.ActorID()
	switch msg.Type {
	case protocol.CodeJoin:
		if id != 0 {
			return
		}
		var req protocol.JoinRequest
		if msg.Decode(&req) != nil {
			return
		}
		c.Room.Join(c, c.SessionID, req.Name, c.bind)
	case protocol.CodeRejoin:
		if id != 0 {
			return
		}
		var req protocol.RejoinRequest
		if msg.Decode(&req) != nil {
			return
		}
		c.Room.Rejoin(c, c.SessionID, req.ActorID, req.SessionID, req.Name, c.bind)
	case protocol.CodeInput:
		if id == 0 {
			return
		}
		var in logic.InputState
		if msg.Decode(&in) != nil {
			return
		}
		c.Room.Input(id, in)
	case protocol.CodePickup:
		if id != 0 {
			c.Room.Pickup(id)
		}
	case protocol.CodeDrop:
		if id != 0 {
			c.Room.Drop(id)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
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
