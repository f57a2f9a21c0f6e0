package websocket

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// Sender is the write side of a realtime connection. The concrete type is
// *websocket.Conn from gofiber/contrib; tests plug in fakes.
type Sender interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Client is one socket connection. UserID stays nil-valued until an
// authenticated action binds it; room membership alone never requires
// authentication, write operations do.
type Client struct {
	UserID uuid.UUID
	Conn   Sender

	writeMu sync.Mutex
}

// Send writes one frame to the connection. The underlying websocket conn
// allows only a single concurrent writer, so every write goes through
// this mutex, whether from a broadcast or the connection's own read loop.
func (c *Client) Send(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(v)
}

// Event is the envelope for every server→client frame.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Room names. One room per user for direct notifications, one per company
// for HR-facing ones, one per chat for live message fan-out.
func UserRoom(id uuid.UUID) string    { return "user:" + id.String() }
func CompanyRoom(id uuid.UUID) string { return "company:" + id.String() }
func ChatRoom(id uuid.UUID) string    { return "chat:" + id.String() }

// Hub tracks connections and their room memberships and fans events out to
// room members. It is constructed once in main and passed by reference to
// every handler that broadcasts; it never calls back into business logic.
// Memberships are not durable: a reconnecting client rejoins its rooms.
type Hub struct {
	mu          sync.RWMutex
	rooms       map[string]map[*Client]struct{}
	memberships map[*Client]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:       make(map[string]map[*Client]struct{}),
		memberships: make(map[*Client]map[string]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if _, ok := h.memberships[c]; !ok {
		h.memberships[c] = make(map[string]struct{})
	}
	h.mu.Unlock()
}

// Unregister drops the client from every room. Disconnect is silent
// cleanup only; nothing persisted changes.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	for room := range h.memberships[c] {
		h.leaveLocked(room, c)
	}
	delete(h.memberships, c)
	h.mu.Unlock()
}

func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	members := h.rooms[room]
	if members == nil {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}

	joined := h.memberships[c]
	if joined == nil {
		joined = make(map[string]struct{})
		h.memberships[c] = joined
	}
	joined[room] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	h.leaveLocked(room, c)
	if joined, ok := h.memberships[c]; ok {
		delete(joined, room)
	}
	h.mu.Unlock()
}

func (h *Hub) leaveLocked(room string, c *Client) {
	members := h.rooms[room]
	if members == nil {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Broadcast sends an event to every member of a room and returns the
// delivered count. Delivery is best effort: members whose socket write
// fails are dropped from the hub.
func (h *Hub) Broadcast(room string, event string, data interface{}) int {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	payload := Event{Event: event, Data: data}
	delivered := 0
	for _, c := range members {
		if err := c.Send(payload); err != nil {
			log.Printf("Error sending %s event to room %s: %v", event, room, err)
			c.Conn.Close()
			h.Unregister(c)
			continue
		}
		delivered++
	}
	return delivered
}
