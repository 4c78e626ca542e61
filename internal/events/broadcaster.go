package events

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// ErrTooManyConnections is returned by addClient once maxConns concurrent
// clients are already attached.
var ErrTooManyConnections = errors.New("events: too many websocket connections")

// envelope is the wire shape every event is serialized to: the topic name
// alongside its producer-owned payload.
type envelope struct {
	Seq     uint64 `json:"seq"`
	Topic   Topic  `json:"topic"`
	Payload any    `json:"payload"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{conn: conn, send: make(chan []byte, 64)}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Broadcaster is a Sink that fans every emitted event out to connected
// websocket clients as a JSON envelope. A client that falls behind its send
// buffer is disconnected rather than allowed to back-pressure the emitter,
// matching the Sink contract that Emit must never block on a slow peer.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	maxConns int
	seq      atomic.Uint64
}

// NewBroadcaster constructs a Broadcaster accepting at most maxConns
// simultaneous clients (0 means unlimited). Producers are responsible for
// masking sensitive fields (via PrivacyFilter) before calling Emit; the
// broadcaster itself only serializes and fans out.
func NewBroadcaster(maxConns int) *Broadcaster {
	return &Broadcaster{
		clients:  make(map[*client]bool),
		maxConns: maxConns,
	}
}

// Emit implements Sink.
func (b *Broadcaster) Emit(topic Topic, payload any) {
	env := envelope{
		Seq:     b.seq.Add(1),
		Topic:   topic,
		Payload: payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("events: broadcast marshal error: %v", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			log.Printf("events: client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}

func (b *Broadcaster) addClient(conn *websocket.Conn) (*client, error) {
	b.mu.Lock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		b.mu.Unlock()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many connections"))
		conn.Close()
		return nil, ErrTooManyConnections
	}
	c := newClient(conn)
	b.clients[c] = true
	b.mu.Unlock()
	return c, nil
}

// RemoveClient detaches c and closes its send channel.
func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

// ClientCount reports the number of currently attached clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
