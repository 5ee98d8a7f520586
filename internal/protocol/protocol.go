package protocol

import (
	"encoding/json"

	"github.com/manpreetbhatti/sketchsync/internal/draw"
)

// Event types exchanged with clients. Inbound and outbound stroke, batch,
// pointer, undo, redo and clear share a name: the server relays what it
// accepted.
const (
	EventJoin    = "join"
	EventStroke  = "stroke"
	EventBatch   = "batch"
	EventPointer = "pointer"
	EventUndo    = "undo"
	EventRedo    = "redo"
	EventClear   = "clear"

	EventInit       = "init"
	EventUserJoined = "user-joined"
	EventUserLeft   = "user-left"
	EventUsers      = "users"
)

// Envelope frames every message: a type tag plus a type-specific payload.
// Payload contents are not validated here; only the envelope must parse.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses a wire message into its envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}

// Encode frames a payload under the given event type. A nil payload encodes
// as an envelope with no payload field (clear, for example, carries none).
func Encode(eventType string, payload interface{}) ([]byte, error) {
	env := Envelope{Type: eventType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// Join is the inbound join request. Name and color are optional; the server
// fills in defaults.
type Join struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

// PointerSample is the inbound cursor position. Absent coordinates mean the
// pointer left the canvas; that state is still relayed so remote cursors can
// hide.
type PointerSample struct {
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
}

// PointerUpdate is the outbound cursor event, tagged with the sender.
type PointerUpdate struct {
	ID    string   `json:"id"`
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
	Color string   `json:"color,omitempty"`
}

// Init is the one-time sync sent to a joining connection. It carries the
// membership snapshot and the live operation log; undone operations are
// never included.
type Init struct {
	Users      []draw.User      `json:"users"`
	Operations []draw.Operation `json:"operations"`
}

// Undo identifies the operation the whole room must retract.
type Undo struct {
	OpID string `json:"opId"`
}

// UserLeft names the departed connection.
type UserLeft struct {
	ID string `json:"id"`
}
