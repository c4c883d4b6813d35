package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/threadline/configurator-backend/internal/app/service"
	"github.com/threadline/configurator-backend/internal/metrics"
	"github.com/threadline/configurator-backend/pkg/logger"
)

// Message types sent to preview clients.
const (
	MessageBindingsChanged = "bindings.changed"
	MessagePong            = "pong"
)

// ProductRoom is joined by everyone previewing a product.
func ProductRoom(productID uint) string {
	return fmt.Sprintf("product:%d", productID)
}

// ForkRoom is joined by a user previewing their customized copy of a
// product.
func ForkRoom(referencedProductID uint, customizedByUser string) string {
	return fmt.Sprintf("fork:%d:%s", referencedProductID, customizedByUser)
}

// ClientMessage is a frame received from a preview client.
type ClientMessage struct {
	Type string `json:"type"`
}

// ServerMessage is a frame pushed to preview clients. Clients refetch the
// preview endpoint when they receive bindings.changed.
type ServerMessage struct {
	Type  string                `json:"type"`
	Event *service.BindingEvent `json:"event,omitempty"`
}

// Client is one preview connection. It is subscribed to a fixed set of
// rooms for its lifetime.
type Client struct {
	Hub   *Hub
	Conn  *Conn
	Rooms []string
	Send  chan []byte

	rateMu        sync.Mutex
	messageCount  int
	lastResetTime time.Time
}

// NewClient builds a client with a buffered send queue.
func NewClient(hub *Hub, conn *Conn, rooms ...string) *Client {
	return &Client{
		Hub:   hub,
		Conn:  conn,
		Rooms: rooms,
		Send:  make(chan []byte, 64),
	}
}

type roomMessage struct {
	room    string
	payload []byte
}

// Hub tracks preview connections by room and fans binding changes out to
// them. It implements service.BindingObserver.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage
	done       chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan roomMessage, 1024),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done, then
// closes every client's send queue.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			for _, room := range client.Rooms {
				if h.rooms[room] == nil {
					h.rooms[room] = make(map[*Client]bool)
				}
				h.rooms[room][client] = true
			}
			h.mu.Unlock()
			metrics.PreviewSubscribers.Inc()
			logger.Debug("Preview client registered", map[string]interface{}{
				"rooms": client.Rooms,
			})

		case client := <-h.unregister:
			if h.remove(client) {
				metrics.PreviewSubscribers.Dec()
				logger.Debug("Preview client unregistered", map[string]interface{}{
					"rooms": client.Rooms,
				})
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.rooms[message.room] {
				select {
				case client.Send <- message.payload:
				default:
					go h.Unregister(client)
					logger.Warn("Preview client send buffer full, disconnecting", map[string]interface{}{
						"room": message.room,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

// remove drops client from its rooms and closes its queue. It reports
// false when the client was already gone.
func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	found := false
	for _, room := range client.Rooms {
		members, ok := h.rooms[room]
		if !ok || !members[client] {
			continue
		}
		found = true
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if found {
		close(client.Send)
	}
	return found
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	closed := map[*Client]bool{}
	for _, members := range h.rooms {
		for client := range members {
			if !closed[client] {
				close(client.Send)
				closed[client] = true
				metrics.PreviewSubscribers.Dec()
			}
		}
	}
	h.rooms = make(map[string]map[*Client]bool)
}

// Register adds client to its rooms. After the hub stops the client's
// queue is closed immediately.
func (h *Hub) Register(client *Client) {
	select {
	case <-h.done:
		close(client.Send)
		return
	default:
	}
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribers returns the number of clients in room.
func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Publish queues message for every client in room. A full queue drops the
// message.
func (h *Hub) Publish(room string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- roomMessage{room: room, payload: data}:
	default:
		logger.Warn("Preview broadcast queue full, message dropped", map[string]interface{}{
			"room": room,
		})
	}
	return nil
}

// OnBindingsChanged notifies viewers of the changed product. A fork's
// change goes to its owner's room, an original's to the product room.
func (h *Hub) OnBindingsChanged(_ context.Context, event service.BindingEvent) {
	room := ProductRoom(event.ProductID)
	if event.ReferencedProductID != nil && event.CustomizedByUser != "" {
		room = ForkRoom(*event.ReferencedProductID, event.CustomizedByUser)
	}

	if err := h.Publish(room, ServerMessage{Type: MessageBindingsChanged, Event: &event}); err != nil {
		logger.Error("Failed to publish binding change", err, map[string]interface{}{
			"room": room,
		})
	}
}

// HandleClientMessage answers client frames. Clients over the rate limit
// are ignored.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.rateMu.Lock()
	now := time.Now()
	if now.Sub(client.lastResetTime) >= time.Second {
		client.messageCount = 0
		client.lastResetTime = now
	}
	client.messageCount++
	count := client.messageCount
	client.rateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Preview client rate limit exceeded", map[string]interface{}{
			"rooms": client.Rooms,
			"count": count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Debug("Ignoring malformed preview client message", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if msg.Type == "ping" {
		data, _ := json.Marshal(ServerMessage{Type: MessagePong})
		select {
		case client.Send <- data:
		default:
		}
	}
}
