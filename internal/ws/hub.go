// Package ws implements the realtime fanout layer. Every successful
// mutation on a pin or category is pushed to all subscribed browser
// clients so each user's map stays current without polling.
package ws

import (
	"context"
	"log/slog"
	"sync"
)

// Event types pushed to clients. The payload shape per event:
//
//	pin_created, pin_updated        — the full pin object
//	pin_deleted                     — {"id": <pin id>}
//	pin_visited                     — {"pinId": <pin id>, "visit": <visit>}
//	category_created, category_updated — the full category object
//	category_deleted                — {"id": <category id>}
const (
	EventPinCreated      = "pin_created"
	EventPinUpdated      = "pin_updated"
	EventPinDeleted      = "pin_deleted"
	EventPinVisited      = "pin_visited"
	EventCategoryCreated = "category_created"
	EventCategoryUpdated = "category_updated"
	EventCategoryDeleted = "category_deleted"
)

// messageTypeJoin is sent by a client that wants to receive broadcasts.
// A connected client that never joins gets nothing.
const messageTypeJoin = "join_room"

// Message is the wire envelope for everything sent over a socket.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub tracks connected clients and fans broadcast messages out to the
// subscribed ones. All client state is owned by the Run loop; handlers
// talk to the hub only through channels and Broadcast.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run owns the client set until ctx is canceled, at which point all
// remaining clients are closed and ctx.Err() is returned.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return ctx.Err()

		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("websocket client connected", "client_id", client.id, "total_clients", total)

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("websocket client disconnected", "client_id", client.id, "total_clients", total)

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// Broadcast queues an event for delivery to every subscribed client.
// It never blocks: if the hub is saturated the event is dropped, since
// a client can always refetch current state over HTTP.
func (h *Hub) Broadcast(eventType string, data any) {
	select {
	case h.broadcast <- Message{Type: eventType, Data: data}:
	default:
		h.logger.Warn("broadcast channel full, dropping event", "event", eventType)
	}
}

// broadcastToClients delivers to subscribed clients only. A client
// whose send buffer is full is evicted rather than allowed to stall
// the whole fanout.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var evicted []*Client
	for client := range h.clients {
		if !client.joined.Load() {
			continue
		}
		select {
		case client.send <- message:
		default:
			evicted = append(evicted, client)
		}
	}

	for _, client := range evicted {
		close(client.send)
		delete(h.clients, client)
		h.logger.Warn("evicting slow websocket client", "client_id", client.id)
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.logger.Info("closed all websocket clients")
}

// ClientCount reports how many clients are currently connected,
// joined or not.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
