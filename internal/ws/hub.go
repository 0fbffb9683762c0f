package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// Client is the part of a websocket connection the hub writes to.
type Client interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Event is the JSON frame pushed to an owner's live connections.
type Event struct {
	Type    string      `json:"type"`
	Action  string      `json:"action"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

// Publisher delivers events to the connections of one owner.
type Publisher interface {
	Publish(ownerID string, event Event)
}

type subscription struct {
	ownerID string
	client  Client
}

type envelope struct {
	ownerID string
	payload []byte
}

// Hub fans events out to websocket clients grouped by owner.
type Hub struct {
	clients    map[string]map[Client]bool
	register   chan subscription
	unregister chan subscription
	broadcast  chan envelope
	done       chan struct{}
	mutex      sync.Mutex
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[Client]bool),
		register:   make(chan subscription),
		unregister: make(chan subscription),
		broadcast:  make(chan envelope, 256),
		done:       make(chan struct{}),
		log:        log.Named("ws"),
	}
}

// Register adds c to the owner's connections. Once the hub has stopped, c is closed instead.
func (h *Hub) Register(ownerID string, c Client) {
	select {
	case h.register <- subscription{ownerID, c}:
	case <-h.done:
		_ = c.Close()
	}
}

func (h *Hub) Unregister(ownerID string, c Client) {
	select {
	case h.unregister <- subscription{ownerID, c}:
	case <-h.done:
	}
}

// Publish never blocks the caller; events are dropped when the queue is full.
func (h *Hub) Publish(ownerID string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("marshal event", zap.String("action", event.Action), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- envelope{ownerID, payload}:
	default:
		h.log.Warn("event dropped, broadcast queue full", zap.String("action", event.Action))
	}
}

// ClientCount returns the number of live connections of an owner.
func (h *Hub) ClientCount(ownerID string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients[ownerID])
}

// Run serves the hub until ctx is cancelled, then closes every connection. Call it once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case sub := <-h.register:
			h.mutex.Lock()
			if h.clients[sub.ownerID] == nil {
				h.clients[sub.ownerID] = make(map[Client]bool)
			}
			h.clients[sub.ownerID][sub.client] = true
			h.mutex.Unlock()
			h.log.Debug("client connected", zap.String("user_id", sub.ownerID))

		case sub := <-h.unregister:
			h.mutex.Lock()
			h.remove(sub.ownerID, sub.client)
			h.mutex.Unlock()

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for conn := range h.clients[msg.ownerID] {
				if err := conn.WriteMessage(websocket.TextMessage, msg.payload); err != nil {
					h.remove(msg.ownerID, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// remove must be called with the mutex held.
func (h *Hub) remove(ownerID string, c Client) {
	conns, ok := h.clients[ownerID]
	if !ok || !conns[c] {
		return
	}
	delete(conns, c)
	_ = c.Close()
	if len(conns) == 0 {
		delete(h.clients, ownerID)
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for owner, conns := range h.clients {
		for c := range conns {
			_ = c.Close()
		}
		delete(h.clients, owner)
	}
}
