package ws

import (
	"encoding/json"
	"log"

	"github.com/manpreetbhatti/sketchsync/internal/draw"
	"github.com/manpreetbhatti/sketchsync/internal/protocol"
	"github.com/manpreetbhatti/sketchsync/internal/store"
)

// sessionPhase is the per-connection lifecycle: a connection joins at most
// one room, then disconnects. Disconnected is terminal.
type sessionPhase int

const (
	phaseUnjoined sessionPhase = iota
	phaseJoined
	phaseDisconnected
)

// Gateway maps inbound client events to room-state transitions and fans the
// results out through the hub. All handlers for one connection run on its
// reader goroutine, so a connection's events apply in arrival order.
//
// Across connections, each handler holds the room's commit lock over the
// state transition and the enqueue of its resulting events. The hub channel
// is FIFO, so this makes delivery order identical to commit order for every
// observer: a joiner's init snapshot cannot miss or double-count a stroke
// racing with its registration, and two concurrent senders' strokes reach
// the room in the order the log admitted them.
//
// Events that arrive in the wrong phase are dropped silently: the protocol
// has no error replies, a misbehaving client just sees nothing happen.
type Gateway struct {
	store *store.Store
	hub   *Hub
}

func NewGateway(store *store.Store, hub *Hub) *Gateway {
	return &Gateway{store: store, hub: hub}
}

// Dispatch routes one inbound message. Undecodable envelopes are dropped
// with a diagnostic; payload contents are passed through untouched.
func (g *Gateway) Dispatch(c *Client, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		log.Printf("Dropping malformed message from client %s: %v", c.id, err)
		return
	}

	switch env.Type {
	case protocol.EventJoin:
		g.handleJoin(c, env.Payload)
	case protocol.EventStroke:
		g.handleStroke(c, env.Payload)
	case protocol.EventBatch:
		g.handleBatch(c, env.Payload)
	case protocol.EventPointer:
		g.handlePointer(c, env.Payload)
	case protocol.EventUndo:
		g.handleUndo(c)
	case protocol.EventRedo:
		g.handleRedo(c)
	case protocol.EventClear:
		g.handleClear(c)
	default:
		log.Printf("Unknown event type %q from client %s", env.Type, c.id)
	}
}

func (g *Gateway) handleJoin(c *Client, payload json.RawMessage) {
	if c.phase != phaseUnjoined {
		log.Printf("Ignoring join from client %s in phase %d", c.id, c.phase)
		return
	}

	var join protocol.Join
	if payload != nil {
		if err := json.Unmarshal(payload, &join); err != nil {
			log.Printf("Dropping malformed join from client %s: %v", c.id, err)
			return
		}
	}
	if join.RoomID == "" {
		join.RoomID = "default"
	}
	if join.Name == "" {
		join.Name = "Anon"
	}
	if join.Color == "" {
		join.Color = draw.RandomColor()
	}

	room := g.store.GetOrCreate(join.RoomID)
	user := draw.User{ID: c.id, Name: join.Name, Color: join.Color}

	c.roomID = join.RoomID
	c.room = room
	c.user = user
	c.phase = phaseJoined

	room.Commit.Lock()
	defer room.Commit.Unlock()

	room.State.Join(c.id, user)
	g.hub.Register(c)

	// The joining connection gets the full picture: membership and the live
	// operation log. Undone operations are invisible to it. The snapshot is
	// taken under the commit lock, right after registration, so no stroke
	// can land between the two and arrive both here and as a relay.
	g.send(c, protocol.EventInit, protocol.Init{
		Users:      room.State.Users(),
		Operations: room.State.Operations(),
	})

	g.broadcast(c.roomID, protocol.EventUserJoined, user, c)
	g.broadcast(c.roomID, protocol.EventUsers, room.State.Users(), nil)
}

func (g *Gateway) handleStroke(c *Client, payload json.RawMessage) {
	if c.phase != phaseJoined {
		return
	}

	var op draw.Operation
	if err := json.Unmarshal(payload, &op); err != nil {
		log.Printf("Dropping malformed stroke from client %s: %v", c.id, err)
		return
	}
	if op.ID == "" {
		op.ID = draw.NewID()
	}

	c.room.Commit.Lock()
	defer c.room.Commit.Unlock()

	c.room.State.Push(op)
	g.broadcast(c.roomID, protocol.EventStroke, op, c)
}

func (g *Gateway) handleBatch(c *Client, payload json.RawMessage) {
	if c.phase != phaseJoined {
		return
	}

	var ops []draw.Operation
	if err := json.Unmarshal(payload, &ops); err != nil {
		log.Printf("Dropping malformed batch from client %s: %v", c.id, err)
		return
	}
	// A null payload is no batch at all. An explicit empty batch still goes
	// through: it invalidates redo history and is relayed, like any push.
	if ops == nil {
		return
	}

	// A batch of n operations costs n tokens, not one. The reader already
	// charged one for the message itself.
	if len(ops) > 1 && !c.limiter.AllowN(len(ops)-1) {
		log.Printf("Dropping oversized batch (%d ops) from rate-limited client %s", len(ops), c.id)
		return
	}

	for i := range ops {
		if ops[i].ID == "" {
			ops[i].ID = draw.NewID()
		}
	}

	c.room.Commit.Lock()
	defer c.room.Commit.Unlock()

	c.room.State.BatchPush(ops)
	g.broadcast(c.roomID, protocol.EventBatch, ops, c)
}

func (g *Gateway) handlePointer(c *Client, payload json.RawMessage) {
	if c.phase != phaseJoined {
		return
	}

	var sample protocol.PointerSample
	if payload != nil {
		if err := json.Unmarshal(payload, &sample); err != nil {
			log.Printf("Dropping malformed pointer from client %s: %v", c.id, err)
			return
		}
	}

	c.room.Commit.Lock()
	defer c.room.Commit.Unlock()

	// Absent coordinates are meaningful (pointer off canvas) and must still
	// reach the room so remote cursors can hide.
	c.room.State.SetPointer(c.id, draw.Pointer{X: sample.X, Y: sample.Y, Color: c.user.Color})
	g.broadcast(c.roomID, protocol.EventPointer, protocol.PointerUpdate{
		ID:    c.id,
		X:     sample.X,
		Y:     sample.Y,
		Color: c.user.Color,
	}, c)
}

func (g *Gateway) handleUndo(c *Client) {
	if c.phase != phaseJoined {
		return
	}

	c.room.Commit.Lock()
	defer c.room.Commit.Unlock()

	op, ok := c.room.State.UndoLast()
	if !ok {
		return
	}
	// The sender learns the chosen operation's id from the broadcast too,
	// so undo goes to the whole room.
	g.broadcast(c.roomID, protocol.EventUndo, protocol.Undo{OpID: op.ID}, nil)
}

func (g *Gateway) handleRedo(c *Client) {
	if c.phase != phaseJoined {
		return
	}

	c.room.Commit.Lock()
	defer c.room.Commit.Unlock()

	op, ok := c.room.State.RedoLast()
	if !ok {
		return
	}
	g.broadcast(c.roomID, protocol.EventRedo, op, nil)
}

func (g *Gateway) handleClear(c *Client) {
	if c.phase != phaseJoined {
		return
	}

	c.room.Commit.Lock()
	defer c.room.Commit.Unlock()

	c.room.State.ClearAll()
	g.broadcast(c.roomID, protocol.EventClear, nil, nil)
}

// Disconnect tears down the session. Idempotent: the reader goroutine calls
// it once on exit, and a second call finds the terminal phase.
func (g *Gateway) Disconnect(c *Client) {
	if c.phase != phaseJoined {
		c.phase = phaseDisconnected
		return
	}
	c.phase = phaseDisconnected

	c.room.Commit.Lock()
	defer c.room.Commit.Unlock()

	c.room.State.Leave(c.id)
	log.Printf("Client %s disconnected from room %s", c.id, c.roomID)

	g.broadcast(c.roomID, protocol.EventUserLeft, protocol.UserLeft{ID: c.id}, c)
	g.broadcast(c.roomID, protocol.EventUsers, c.room.State.Users(), c)
}

func (g *Gateway) send(c *Client, eventType string, payload interface{}) {
	data, err := protocol.Encode(eventType, payload)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", eventType, err)
		return
	}
	g.hub.ToConnection(c, data)
}

func (g *Gateway) broadcast(roomID, eventType string, payload interface{}, exclude *Client) {
	data, err := protocol.Encode(eventType, payload)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", eventType, err)
		return
	}
	g.hub.ToRoom(roomID, data, exclude)
}
