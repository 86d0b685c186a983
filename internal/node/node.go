// Package node runs the marker publishing loop.
//
// A single goroutine alternates between publishing the marker for the current
// task state and draining at most one pending pose into the task controller.
// Publishing is held back until the marker topic has at least one subscriber.
package node

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/banshee-data/add-markers/internal/bus"
	"github.com/banshee-data/add-markers/internal/marker"
	"github.com/banshee-data/add-markers/internal/monitoring"
	"github.com/banshee-data/add-markers/internal/task"
	"github.com/banshee-data/add-markers/internal/timeutil"
)

const (
	// PoseTopic carries odometry poses into the node.
	PoseTopic = "odom"
	// MarkerTopic carries markers out of the node.
	MarkerTopic = "visualization_marker"

	poseQueueDepth = 10
)

// Config holds the timing and presentation of the publishing loop.
type Config struct {
	// PickupPause is how long the loop blocks after hiding the marker at
	// pickup, simulating the carry.
	PickupPause time.Duration

	// SubscriberBackoff is the wait between subscriber checks.
	SubscriberBackoff time.Duration

	// PublishInterval paces the loop between publishes. Zero runs the loop
	// back to back.
	PublishInterval time.Duration

	// Style is the marker presentation.
	Style marker.Style
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		PickupPause:       5 * time.Second,
		SubscriberBackoff: time.Second,
		PublishInterval:   20 * time.Millisecond,
		Style:             marker.DefaultStyle(),
	}
}

// Recorder receives what the node publishes and consumes. The journal
// implements it.
type Recorder interface {
	RecordMarker(marker.Marker)
	RecordPose(task.Pose, task.Point)
}

// Node is the marker publisher.
type Node struct {
	cfg     Config
	ctrl    *task.Controller
	markers *bus.Topic[marker.Marker]
	poses   *bus.Subscription[task.Pose]
	clock   timeutil.Clock

	recorder Recorder
	once     monitoring.Once

	published atomic.Uint64
	consumed  atomic.Uint64
	running   atomic.Bool
}

// New creates a Node and subscribes it to the pose topic, so poses published
// from now on are queued for the loop.
func New(cfg Config, ctrl *task.Controller, markers *bus.Topic[marker.Marker], poses *bus.Topic[task.Pose], clock timeutil.Clock) (*Node, error) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	sub, err := poses.Subscribe(poseQueueDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", poses.Name(), err)
	}
	return &Node{
		cfg:     cfg,
		ctrl:    ctrl,
		markers: markers,
		poses:   sub,
		clock:   clock,
	}, nil
}

// SetRecorder attaches a recorder for published markers and consumed poses.
func (n *Node) SetRecorder(r Recorder) {
	n.recorder = r
}

// Run publishes markers until the task is consumed or ctx is cancelled.
// Both outcomes are normal termination and return nil.
func (n *Node) Run(ctx context.Context) error {
	if !n.running.CompareAndSwap(false, true) {
		return fmt.Errorf("node already running")
	}
	defer n.running.Store(false)
	defer n.poses.Close()

	for {
		if !n.waitForSubscriber(ctx) {
			monitoring.Logf("[Node] Shutdown requested while waiting for a subscriber")
			return nil
		}

		done, err := n.step(ctx)
		if err != nil {
			monitoring.Logf("[Node] Shutdown requested: %v", err)
			return nil
		}
		if done {
			monitoring.Logf("[Node] Task consumed, stopping after %d markers", n.published.Load())
			return nil
		}

		n.drainOne()

		if n.cfg.PublishInterval > 0 {
			if err := timeutil.Sleep(ctx, n.clock, n.cfg.PublishInterval); err != nil {
				monitoring.Logf("[Node] Shutdown requested: %v", err)
				return nil
			}
		}
	}
}

// waitForSubscriber blocks until the marker topic has a subscriber. It
// returns false if ctx is cancelled first.
func (n *Node) waitForSubscriber(ctx context.Context) bool {
	for n.markers.NumSubscribers() < 1 {
		if ctx.Err() != nil {
			return false
		}
		n.once.Logf("waiting", "[Node] WARNING: Please create a subscriber to the marker")
		if err := timeutil.Sleep(ctx, n.clock, n.cfg.SubscriberBackoff); err != nil {
			return false
		}
	}
	n.once.Logf("subscribed", "[Node] Someone subscribed to the marker")
	return true
}

// step publishes the marker for the current progress and reports done once
// the task has been consumed. The consumed check follows the publish, so the
// last marker a viewer sees is the object at drop-off, or hidden when the
// task was consumed before the carry pause ran.
func (n *Node) step(ctx context.Context) (bool, error) {
	cfg := n.ctrl.Config()
	stamp := n.clock.Now()

	switch {
	case n.ctrl.State() == task.NotPickedUp:
		n.publish(n.cfg.Style.Build(cfg.Pickup.X, cfg.Pickup.Y, marker.Add, stamp))

	case !n.ctrl.CarryDone():
		n.publish(n.cfg.Style.Build(cfg.Pickup.X, cfg.Pickup.Y, marker.Delete, stamp))
		monitoring.Logf("[Node] Object hidden at pickup, carrying for %v", n.cfg.PickupPause)
		if err := timeutil.Sleep(ctx, n.clock, n.cfg.PickupPause); err != nil {
			return false, err
		}
		n.ctrl.MarkDroppedOff()

	default:
		n.publish(n.cfg.Style.Build(cfg.Dropoff.X, cfg.Dropoff.Y, marker.Add, stamp))
	}

	return n.ctrl.State() == task.Consumed, nil
}

func (n *Node) publish(m marker.Marker) {
	n.markers.Publish(m)
	n.published.Add(1)
	if n.recorder != nil {
		n.recorder.RecordMarker(m)
	}
}

// drainOne feeds at most one queued pose to the controller.
func (n *Node) drainOne() {
	p, ok := n.poses.TryRecv()
	if !ok {
		return
	}
	n.consumed.Add(1)
	n.ctrl.Observe(p)
	if n.recorder != nil {
		n.recorder.RecordPose(p, n.ctrl.Config().Adjust(p))
	}
}

// Stats returns loop statistics.
func (n *Node) Stats() Stats {
	return Stats{
		State:         n.ctrl.State().String(),
		Published:     n.published.Load(),
		PosesConsumed: n.consumed.Load(),
		Running:       n.running.Load(),
	}
}

// Stats contains node statistics.
type Stats struct {
	State         string `json:"state"`
	Published     uint64 `json:"published"`
	PosesConsumed uint64 `json:"poses_consumed"`
	Running       bool   `json:"running"`
}
