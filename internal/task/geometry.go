// Package task tracks the robot's progress through the pick-and-place task.
//
// A Controller consumes odometry poses, shifts them into the task frame and
// advances a monotonic State when the robot comes within the proximity
// threshold of the pickup and drop-off points.
package task

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a position in the task ("map") frame, in metres.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// String formats the point as "(x, y)".
func (p Point) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", p.X, p.Y)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return r2.Norm(r2.Sub(a.vec(), b.vec()))
}

// Pose is a raw odometry position as reported by the robot, before the
// sensor-to-task frame offset is applied.
type Pose struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Config describes the task geometry.
type Config struct {
	// Pickup is where the object waits to be collected.
	Pickup Point
	// Dropoff is where the object is delivered.
	Dropoff Point
	// Offset aligns the odometry frame with the task frame.
	Offset Point
	// Threshold is the radius within which the robot is "at" a point.
	// The comparison is strict.
	Threshold float64
}

// DefaultConfig returns the geometry of the simulated pick-and-place world.
func DefaultConfig() Config {
	return Config{
		Pickup:    Point{X: 6.0, Y: -5.0},
		Dropoff:   Point{X: 2.0, Y: 0.0},
		Offset:    Point{X: 2.0, Y: 0.35},
		Threshold: 0.35,
	}
}

// Validate checks that the geometry can produce transitions.
func (c Config) Validate() error {
	if c.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive, got %f", c.Threshold)
	}
	return nil
}

// Adjust shifts an odometry pose into the task frame.
func (c Config) Adjust(p Pose) Point {
	v := r2.Add(r2.Vec{X: p.X, Y: p.Y}, c.Offset.vec())
	return Point{X: v.X, Y: v.Y}
}

// Within reports whether p lies strictly inside the threshold disk around target.
func (c Config) Within(p, target Point) bool {
	return Distance(p, target) < c.Threshold
}
