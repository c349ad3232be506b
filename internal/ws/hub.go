package ws

import (
	"OrderFlow/bot/flow"
	"OrderFlow/entity"
	"OrderFlow/internal/lib/sl"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

const (
	EventView  = "view"
	EventError = "error"
)

// ClientMessageHandler handles incoming WebSocket messages from flow clients.
type ClientMessageHandler interface {
	CurrentView(ctx context.Context, session *entity.Session) (flow.View, error)
	HandleDraft(ctx context.Context, session *entity.Session, step int, input flow.Input) error
}

// Event represents a WebSocket event sent to a user's clients.
type Event struct {
	Type   string      `json:"type"`
	UserID string      `json:"-"`
	Data   interface{} `json:"data"`
}

// Hub maintains the set of active WebSocket clients and routes events by user.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	handler    ClientMessageHandler
	log        *slog.Logger
}

// NewHub creates a new Hub instance.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log.With(sl.Module("ws hub")),
	}
}

// SetHandler sets the handler for incoming client messages.
func (h *Hub) SetHandler(handler ClientMessageHandler) {
	h.handler = handler
}

// Run starts the hub's event loop. Should be called in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.log.With(sl.Err(err)).Error("marshal event")
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				if client.userID != event.UserID {
					continue
				}
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Notify pushes a flow view to every connection of its user. It never blocks; when the
// queue is full the view is dropped and the next one supersedes it.
func (h *Hub) Notify(view flow.View) {
	select {
	case h.broadcast <- &Event{Type: EventView, UserID: view.UserID, Data: view}:
	default:
		h.log.Warn("event queue full, view dropped", slog.String("user_id", view.UserID))
	}
}

// clientEvent represents an incoming WebSocket message from a flow client.
type clientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// HandleClientMessage parses and dispatches an incoming message from a client.
func (h *Hub) HandleClientMessage(c *Client, raw []byte) {
	if h.handler == nil {
		return
	}

	var event clientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		h.log.Warn("failed to parse client ws message", sl.Err(err))
		return
	}

	switch event.Type {
	case "draft":
		var data struct {
			Step  int        `json:"step"`
			Input flow.Input `json:"input"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil {
			h.log.Warn("failed to parse draft data", sl.Err(err))
			return
		}
		if err := h.handler.HandleDraft(context.Background(), c.session, data.Step, data.Input); err != nil && !flow.Silent(err) {
			h.log.Debug("draft rejected",
				slog.String("user_id", c.userID),
				slog.Int("step", data.Step),
				sl.Err(err),
			)
			c.queue(&Event{Type: EventError, Data: map[string]string{"message": err.Error()}})
		}
	}
}
