package game

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"golang.org/x/exp/slog"

	"wingo/internal/lib/logger/sl"
)

const (
	writeWait = 10 * time.Second

	// sendBufferSize bounds the messages queued for one client. A client
	// that falls this far behind is disconnected.
	sendBufferSize = 256
)

// ErrClientClosed is returned when sending to a disconnected client.
var ErrClientClosed = errors.New("client closed")

// wsConn is the part of a websocket connection the hub writes to.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one websocket subscriber. All writes go through its send queue
// and a single write pump, so messages arrive in the order they were queued.
type Client struct {
	conn wsConn
	// track filters delivered events; empty receives every track.
	track   string
	send    chan []byte
	stopped chan struct{}
	mu      sync.Mutex
	closed  bool
	log     *slog.Logger
}

type hubMessage struct {
	track string
	data  []byte
}

// Hub fans round events out to connected websocket clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan hubMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = sl.Discard()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan hubMessage, 100),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log.With(slog.String("component", "hub")),
	}
}

// Run serves registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client connected", slog.String("track", client.track), slog.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			delete(h.clients, client)
			total := len(h.clients)
			h.mu.Unlock()
			client.close()
			h.log.Debug("client disconnected", slog.String("track", client.track), slog.Int("total", total))

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg hubMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.track != "" && msg.track != "" && client.track != msg.track {
			continue
		}
		if !client.trySend(msg.data) {
			h.log.Warn("client buffer full, disconnecting", slog.String("track", client.track))
			delete(h.clients, client)
			client.close()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.close()
		delete(h.clients, client)
	}
}

// Publish implements Publisher. A full broadcast queue drops the event.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	h.Broadcast(ev.Track, data)
	return nil
}

func (h *Hub) Broadcast(track string, data []byte) {
	select {
	case h.broadcast <- hubMessage{track: track, data: data}:
	default:
		h.log.Warn("broadcast channel full, dropping message", slog.String("track", track))
	}
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RegisterClient starts the client's write pump and adds it to the hub.
// On a stopped hub the client is closed right away.
func (h *Hub) RegisterClient(conn wsConn, track string) *Client {
	client := &Client{
		conn:    conn,
		track:   track,
		send:    make(chan []byte, sendBufferSize),
		stopped: make(chan struct{}),
		log:     h.log,
	}
	go client.writePump()

	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
	return client
}

// UnregisterClient removes the client and waits for its write pump to
// flush and close the connection.
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
	<-client.stopped
}

// Send queues v for the client as JSON.
func (c *Client) Send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if !c.trySend(data) {
		return ErrClientClosed
	}
	return nil
}

func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
		close(c.stopped)
	}()

	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			c.log.Debug("write failed", slog.String("track", c.track), sl.Err(err))
			c.close()
			return
		}
	}
}
