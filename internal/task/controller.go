package task

import (
	"sync"
	"time"

	"github.com/banshee-data/add-markers/internal/monitoring"
	"github.com/banshee-data/add-markers/internal/timeutil"
)

// Transition records a single forward step of the task state.
type Transition struct {
	From     State
	To       State
	Pose     Pose
	Adjusted Point
	// Distance is the distance to the point that triggered the transition.
	// It is zero for MarkDroppedOff, which is driven by the publisher.
	Distance float64
	At       time.Time
}

// TransitionObserver is notified synchronously after every transition.
type TransitionObserver interface {
	OnTransition(Transition)
}

// Snapshot is a consistent view of the controller for diagnostics.
type Snapshot struct {
	State       State  `json:"state"`
	LastPose    Pose   `json:"last_pose"`
	Adjusted    Point  `json:"adjusted"`
	HavePose    bool   `json:"have_pose"`
	PoseCount   uint64 `json:"pose_count"`
	Transitions int    `json:"transitions"`
	// CarryDone is set once the post-pickup pause has run, including when the
	// task was consumed before the pause finished.
	CarryDone bool `json:"carry_done"`
}

// Controller owns the task state and advances it from pose updates.
// Observe and MarkDroppedOff are expected to be called from a single
// goroutine; the read accessors are safe from any goroutine.
type Controller struct {
	cfg   Config
	clock timeutil.Clock

	mu          sync.RWMutex
	state       State
	lastPose    Pose
	adjusted    Point
	havePose    bool
	poseCount   uint64
	transitions int
	carryDone   bool

	once      monitoring.Once
	observers []TransitionObserver
}

// NewController creates a Controller in the NotPickedUp state.
func NewController(cfg Config, clock timeutil.Clock) *Controller {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Controller{cfg: cfg, clock: clock}
}

// AddObserver registers an observer for future transitions.
func (c *Controller) AddObserver(o TransitionObserver) {
	c.observers = append(c.observers, o)
}

// Config returns the geometry the controller was built with.
func (c *Controller) Config() Config {
	return c.cfg
}

// State returns the current task state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Snapshot returns the current state and the most recent pose.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		State:       c.state,
		LastPose:    c.lastPose,
		Adjusted:    c.adjusted,
		HavePose:    c.havePose,
		PoseCount:   c.poseCount,
		Transitions: c.transitions,
		CarryDone:   c.carryDone,
	}
}

// Observe applies one odometry update and returns the transitions it caused.
//
// The pickup check fires only while the object is still waiting. The drop-off
// check is independent and fires only once the object is carried, so a single
// pose may cause both transitions when the two disks overlap.
func (c *Controller) Observe(p Pose) []Transition {
	adjusted := c.cfg.Adjust(p)
	now := c.clock.Now()

	var out []Transition

	c.mu.Lock()
	c.lastPose = p
	c.adjusted = adjusted
	c.havePose = true
	c.poseCount++

	if c.state == NotPickedUp && c.cfg.Within(adjusted, c.cfg.Pickup) {
		d := Distance(adjusted, c.cfg.Pickup)
		out = append(out, c.advanceLocked(PickedUp, p, adjusted, d, now))
	}
	if c.state.Carrying() && c.state != Consumed && c.cfg.Within(adjusted, c.cfg.Dropoff) {
		d := Distance(adjusted, c.cfg.Dropoff)
		out = append(out, c.advanceLocked(Consumed, p, adjusted, d, now))
	}
	c.mu.Unlock()

	for _, tr := range out {
		switch tr.To {
		case PickedUp:
			c.once.Logf("picked", "[Task] Item picked at %s (distance %.3f)", tr.Adjusted, tr.Distance)
		case Consumed:
			c.once.Logf("consumed", "[Task] Item is consumed successfully at %s (distance %.3f)", tr.Adjusted, tr.Distance)
		}
		c.notify(tr)
	}
	return out
}

// MarkDroppedOff records that the post-pickup pause has finished and the
// object should now be shown at the drop-off point. Once the object has been
// picked up it sets CarryDone; only PickedUp advances to DroppedOff, and the
// return value reports whether that happened.
func (c *Controller) MarkDroppedOff() bool {
	c.mu.Lock()
	if c.state.Carrying() {
		c.carryDone = true
	}
	if c.state != PickedUp {
		c.mu.Unlock()
		return false
	}
	tr := c.advanceLocked(DroppedOff, c.lastPose, c.adjusted, 0, c.clock.Now())
	c.mu.Unlock()

	c.once.Logf("dropped", "[Task] Item carried, showing at drop-off %s", c.cfg.Dropoff)
	c.notify(tr)
	return true
}

// CarryDone reports whether the post-pickup pause has run.
func (c *Controller) CarryDone() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.carryDone
}

// advanceLocked moves the state forward. Callers hold c.mu and guarantee
// to > c.state.
func (c *Controller) advanceLocked(to State, p Pose, adjusted Point, d float64, at time.Time) Transition {
	tr := Transition{From: c.state, To: to, Pose: p, Adjusted: adjusted, Distance: d, At: at}
	c.state = to
	c.transitions++
	return tr
}

func (c *Controller) notify(tr Transition) {
	for _, o := range c.observers {
		o.OnTransition(tr)
	}
}
