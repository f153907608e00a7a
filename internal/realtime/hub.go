package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Event types pushed to connected users.
const (
	EventTaskAssigned       = "task.assigned"
	EventConnectionAccepted = "connection.accepted"
	EventConnectionRejected = "connection.rejected"
	EventPaymentReleased    = "payment.released"
)

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type Client struct {
	ID     string
	UserID uuid.UUID
	Send   chan []byte
}

// Hub fans notification events out to connected websocket clients.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// Notify sends an event to every connection belonging to userID. A user with
// no open connections simply misses the event; nothing blocks.
func (h *Hub) Notify(userID uuid.UUID, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("realtime: marshal event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.UserID == userID {
			select {
			case client.Send <- payload:
			default:
				// slow consumer, drop
			}
		}
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if old, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(old.Send)
			}
			h.mu.Unlock()
		}
	}
}
