package draw

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// Tool selects how an operation's path is applied to the canvas.
type Tool string

const (
	ToolBrush  Tool = "brush"
	ToolEraser Tool = "eraser"
)

// Point is a canvas-space coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Operation is one atomic drawing action. Immutable once accepted. Contents
// arrive from clients and are relayed as-is; validation is not this layer's
// job.
type Operation struct {
	ID     string  `json:"id"`
	UserID string  `json:"userId"`
	Path   []Point `json:"path"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
	Tool   Tool    `json:"tool"`
}

// User is a connected participant. ID is the connection identity.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Pointer is the last-known cursor sample for a connection. Nil coordinates
// mean the pointer is not over the canvas; remote cursors hide themselves.
type Pointer struct {
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
	Color string   `json:"color,omitempty"`
}

// NewID returns an opaque unique identifier, used for connections and for
// operations that arrive without one.
func NewID() string {
	return uuid.NewString()
}

// RandomColor picks a pseudo-random hue for users that join without a color.
func RandomColor() string {
	return fmt.Sprintf("hsl(%d 80%% 50%%)", rand.Intn(360))
}
