package ws

import (
	"log"
	"sync"
)

// Hub routes events to the connections joined to each room. All membership
// changes and deliveries flow through a single command channel, so commands
// issued in order from one connection goroutine are applied in that order:
// a client is always registered before its init sync is delivered.
//
// Delivery is best-effort per connection. A recipient whose send buffer is
// full is dropped so one stalled connection cannot hold up a room.
type Hub struct {
	// Registered clients and their room, owned by the run loop. The mutex
	// lets stats readers peek without going through the loop.
	rooms   map[string]map[*Client]bool
	clients map[*Client]string

	commands chan command

	mu sync.RWMutex
}

type commandKind int

const (
	cmdRegister commandKind = iota
	cmdUnregister
	cmdToRoom
	cmdToConnection
)

type command struct {
	kind    commandKind
	client  *Client
	roomID  string
	data    []byte
	exclude *Client
}

func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[string]map[*Client]bool),
		clients:  make(map[*Client]string),
		commands: make(chan command, 256),
	}
}

// Register adds a client to its room's delivery set.
func (h *Hub) Register(c *Client) {
	h.commands <- command{kind: cmdRegister, client: c, roomID: c.roomID}
}

// Unregister removes a client and closes its outbound queue. Safe for
// clients that never joined a room, and idempotent.
func (h *Hub) Unregister(c *Client) {
	h.commands <- command{kind: cmdUnregister, client: c}
}

// ToRoom delivers data to every client joined to roomID, except exclude if
// given.
func (h *Hub) ToRoom(roomID string, data []byte, exclude *Client) {
	h.commands <- command{kind: cmdToRoom, roomID: roomID, data: data, exclude: exclude}
}

// ToConnection delivers data to exactly one client. Dropped silently if the
// client is already gone.
func (h *Hub) ToConnection(c *Client, data []byte) {
	h.commands <- command{kind: cmdToConnection, client: c, data: data}
}

func (h *Hub) Run() {
	for cmd := range h.commands {
		switch cmd.kind {
		case cmdRegister:
			h.mu.Lock()
			if _, ok := h.rooms[cmd.roomID]; !ok {
				h.rooms[cmd.roomID] = make(map[*Client]bool)
			}
			h.rooms[cmd.roomID][cmd.client] = true
			h.clients[cmd.client] = cmd.roomID
			count := len(h.rooms[cmd.roomID])
			h.mu.Unlock()

			log.Printf("Client %s joined room %s (total: %d)", cmd.client.id, cmd.roomID, count)

		case cmdUnregister:
			h.mu.Lock()
			h.drop(cmd.client)
			h.mu.Unlock()

		case cmdToRoom:
			h.mu.Lock()
			for client := range h.rooms[cmd.roomID] {
				if client == cmd.exclude {
					continue
				}
				h.deliver(client, cmd.data)
			}
			h.mu.Unlock()

		case cmdToConnection:
			h.mu.Lock()
			if _, ok := h.clients[cmd.client]; ok {
				h.deliver(cmd.client, cmd.data)
			}
			h.mu.Unlock()
		}
	}
}

// deliver queues data for one client, dropping the client if its buffer is
// full. Caller holds the lock.
func (h *Hub) deliver(c *Client, data []byte) {
	select {
	case c.send <- data:
	default:
		log.Printf("Client %s send buffer full, dropping connection", c.id)
		h.drop(c)
	}
}

// drop removes a client from all bookkeeping and closes its queue. Caller
// holds the lock.
func (h *Hub) drop(c *Client) {
	roomID, tracked := h.clients[c]
	if tracked {
		delete(h.clients, c)
		if clients, ok := h.rooms[roomID]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.rooms, roomID)
				log.Printf("Room %s closed (empty)", roomID)
			} else {
				log.Printf("Client %s left room %s (remaining: %d)", c.id, roomID, len(clients))
			}
		}
	}
	c.closeSend()
}

// RoomCount returns the number of rooms with at least one connection.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// ClientCount returns the number of connections joined to any room.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ActiveRooms returns connection counts per room.
func (h *Hub) ActiveRooms() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	active := make(map[string]int, len(h.rooms))
	for roomID, clients := range h.rooms {
		active[roomID] = len(clients)
	}
	return active
}
