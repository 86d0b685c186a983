// Package marker describes the visualization marker published for the carried
// object. The field layout and numeric codes follow the widely used
// visualization marker message, so any viewer that understands that message
// can render the output.
package marker

import (
	"fmt"
	"time"
)

// Shape is the marker geometry type.
type Shape int32

const (
	Arrow    Shape = 0
	Cube     Shape = 1
	Sphere   Shape = 2
	Cylinder Shape = 3
)

// Action tells the viewer whether to show or remove the marker.
type Action int32

const (
	// Add creates or modifies the marker identified by namespace and id.
	Add Action = 0
	// Delete removes the marker identified by namespace and id.
	Delete Action = 2
)

// String returns "add" or "delete".
func (a Action) String() string {
	switch a {
	case Add:
		return "add"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("action(%d)", int32(a))
	}
}

// Vector3 is a 3D vector used for positions and scale.
type Vector3 struct {
	X, Y, Z float64
}

// Quaternion is an orientation.
type Quaternion struct {
	X, Y, Z, W float64
}

// Identity is the no-rotation orientation.
var Identity = Quaternion{W: 1}

// ColorRGBA holds a colour with components in [0, 1].
type ColorRGBA struct {
	R, G, B, A float32
}

// Marker is one renderable marker message.
type Marker struct {
	FrameID     string
	Stamp       time.Time
	Namespace   string
	ID          int32
	Shape       Shape
	Action      Action
	Position    Vector3
	Orientation Quaternion
	Scale       Vector3
	Color       ColorRGBA
	// Lifetime is how long the viewer keeps the marker; zero means forever.
	Lifetime time.Duration
}

// String returns a compact description for logs.
func (m Marker) String() string {
	return fmt.Sprintf("%s/%d %s at (%.2f, %.2f)", m.Namespace, m.ID, m.Action, m.Position.X, m.Position.Y)
}

// Style holds the fixed presentation of the carried object.
type Style struct {
	FrameID   string
	Namespace string
	ID        int32
	Shape     Shape
	Scale     float64
	Color     ColorRGBA
}

// DefaultStyle returns a 0.2 m opaque green cube in the map frame. Every
// publish reuses namespace "cube" and id 0, so each one replaces the last.
func DefaultStyle() Style {
	return Style{
		FrameID:   "map",
		Namespace: "cube",
		ID:        0,
		Shape:     Cube,
		Scale:     0.2,
		Color:     ColorRGBA{R: 0, G: 1, B: 0, A: 1},
	}
}

// Validate checks that the style produces a visible marker.
func (s Style) Validate() error {
	if s.FrameID == "" {
		return fmt.Errorf("marker frame id must not be empty")
	}
	if s.Scale <= 0 {
		return fmt.Errorf("marker scale must be positive, got %f", s.Scale)
	}
	for name, v := range map[string]float32{"r": s.Color.R, "g": s.Color.G, "b": s.Color.B, "a": s.Color.A} {
		if v < 0 || v > 1 {
			return fmt.Errorf("marker color %s must be between 0 and 1, got %f", name, v)
		}
	}
	return nil
}

// Build returns the marker for the object at (x, y) on the ground plane.
func (s Style) Build(x, y float64, action Action, stamp time.Time) Marker {
	return Marker{
		FrameID:     s.FrameID,
		Stamp:       stamp,
		Namespace:   s.Namespace,
		ID:          s.ID,
		Shape:       s.Shape,
		Action:      action,
		Position:    Vector3{X: x, Y: y, Z: 0},
		Orientation: Identity,
		Scale:       Vector3{X: s.Scale, Y: s.Scale, Z: s.Scale},
		Color:       s.Color,
		Lifetime:    0,
	}
}
