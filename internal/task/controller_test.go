package task

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/add-markers/internal/monitoring"
	"github.com/banshee-data/add-markers/internal/timeutil"
)

// poseAt returns the odometry pose whose adjusted position is p under cfg.
func poseAt(cfg Config, p Point) Pose {
	return Pose{X: p.X - cfg.Offset.X, Y: p.Y - cfg.Offset.Y}
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions []Transition
}

func (r *recordingObserver) OnTransition(tr Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, tr)
}

func newTestController(t *testing.T) (*Controller, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewController(DefaultConfig(), clock), clock
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5.0, Distance(Point{0, 0}, Point{3, 4}), 1e-12)
	assert.InDelta(t, 0.0, Distance(Point{2, 0}, Point{2, 0}), 1e-12)
}

func TestConfig_Adjust(t *testing.T) {
	cfg := DefaultConfig()

	got := cfg.Adjust(Pose{X: 4.0, Y: -5.35})
	assert.InDelta(t, 6.0, got.X, 1e-9)
	assert.InDelta(t, -5.0, got.Y, 1e-9)

	got = cfg.Adjust(Pose{X: 0.0, Y: -0.35})
	assert.InDelta(t, 2.0, got.X, 1e-9)
	assert.InDelta(t, 0.0, got.Y, 1e-9)
}

func TestConfig_Within(t *testing.T) {
	cfg := Config{Threshold: 5}
	target := Point{X: 1, Y: 1}

	assert.True(t, cfg.Within(Point{X: 1, Y: 1}, target))
	assert.True(t, cfg.Within(Point{X: 4, Y: 4}, target))
	assert.False(t, cfg.Within(Point{X: 4, Y: 5}, target), "a point on the rim is outside")
	assert.False(t, cfg.Within(Point{X: 7, Y: 1}, target))
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Threshold = 0
	assert.Error(t, cfg.Validate())
}

func TestController_StaysNotPickedUpOutsideDisk(t *testing.T) {
	c, _ := newTestController(t)
	cfg := c.Config()

	// Walk a ring just outside the pickup disk and pass straight over the
	// drop-off point, which must have no effect before pickup.
	for i := 0; i < 360; i++ {
		theta := float64(i) * math.Pi / 180
		ring := Point{X: cfg.Pickup.X + 0.36*math.Cos(theta), Y: cfg.Pickup.Y + 0.36*math.Sin(theta)}
		assert.Empty(t, c.Observe(poseAt(cfg, ring)))
	}
	assert.Empty(t, c.Observe(poseAt(cfg, cfg.Dropoff)))
	assert.Equal(t, NotPickedUp, c.State())
}

func TestController_ThresholdIsStrict(t *testing.T) {
	c, _ := newTestController(t)
	cfg := c.Config()

	// Exactly on the boundary along the x axis.
	edge := Point{X: cfg.Pickup.X + cfg.Threshold, Y: cfg.Pickup.Y}
	require.GreaterOrEqual(t, Distance(cfg.Adjust(poseAt(cfg, edge)), cfg.Pickup), cfg.Threshold-1e-12)
	c.Observe(Pose{X: edge.X - cfg.Offset.X + 1e-9, Y: edge.Y - cfg.Offset.Y})
	assert.Equal(t, NotPickedUp, c.State())

	inside := Point{X: cfg.Pickup.X + cfg.Threshold - 0.01, Y: cfg.Pickup.Y}
	c.Observe(poseAt(cfg, inside))
	assert.Equal(t, PickedUp, c.State())
}

func TestController_PickupOnce(t *testing.T) {
	c, clock := newTestController(t)
	obs := &recordingObserver{}
	c.AddObserver(obs)

	trs := c.Observe(Pose{X: 4.0, Y: -5.35})
	require.Len(t, trs, 1)
	assert.Equal(t, NotPickedUp, trs[0].From)
	assert.Equal(t, PickedUp, trs[0].To)
	assert.InDelta(t, 0.0, trs[0].Distance, 1e-9)
	assert.Equal(t, clock.Now(), trs[0].At)

	// Re-entering the disk does not transition again.
	for i := 0; i < 5; i++ {
		assert.Empty(t, c.Observe(Pose{X: 4.0, Y: -5.35}))
	}
	assert.Equal(t, PickedUp, c.State())
	assert.Len(t, obs.transitions, 1)
}

func TestController_EndToEndScenario(t *testing.T) {
	c, _ := newTestController(t)

	trs := c.Observe(Pose{X: 4.0, Y: -5.35})
	require.Len(t, trs, 1)
	assert.Equal(t, PickedUp, trs[0].To)

	trs = c.Observe(Pose{X: 0.0, Y: -0.35})
	require.Len(t, trs, 1)
	assert.Equal(t, PickedUp, trs[0].From)
	assert.Equal(t, Consumed, trs[0].To)
	assert.Equal(t, Consumed, c.State())
}

func TestController_ConsumedAfterDroppedOff(t *testing.T) {
	c, _ := newTestController(t)
	c.Observe(Pose{X: 4.0, Y: -5.35})

	require.True(t, c.MarkDroppedOff())
	assert.Equal(t, DroppedOff, c.State())
	assert.False(t, c.MarkDroppedOff(), "second MarkDroppedOff must be a no-op")

	trs := c.Observe(Pose{X: 0.0, Y: -0.35})
	require.Len(t, trs, 1)
	assert.Equal(t, DroppedOff, trs[0].From)
	assert.Equal(t, Consumed, trs[0].To)

	assert.False(t, c.MarkDroppedOff(), "MarkDroppedOff must not regress Consumed")
	assert.Equal(t, Consumed, c.State())
}

func TestController_MarkDroppedOffBeforePickup(t *testing.T) {
	c, _ := newTestController(t)
	assert.False(t, c.MarkDroppedOff())
	assert.Equal(t, NotPickedUp, c.State())
	assert.False(t, c.CarryDone(), "no carry before pickup")
}

func TestController_CarryDone(t *testing.T) {
	c, _ := newTestController(t)
	c.Observe(Pose{X: 4.0, Y: -5.35})
	assert.False(t, c.CarryDone())

	require.True(t, c.MarkDroppedOff())
	assert.True(t, c.CarryDone())
	assert.True(t, c.Snapshot().CarryDone)
}

func TestController_CarryDoneAfterEarlyConsume(t *testing.T) {
	c, _ := newTestController(t)
	c.Observe(Pose{X: 4.0, Y: -5.35})
	c.Observe(Pose{X: 0.0, Y: -0.35})
	require.Equal(t, Consumed, c.State())
	assert.False(t, c.CarryDone())

	assert.False(t, c.MarkDroppedOff(), "consumed does not move back to dropped_off")
	assert.Equal(t, Consumed, c.State())
	assert.True(t, c.CarryDone(), "the pause still counts as done")
}

func TestController_OverlappingDisks(t *testing.T) {
	cfg := Config{
		Pickup:    Point{X: 1, Y: 1},
		Dropoff:   Point{X: 1.1, Y: 1},
		Threshold: 0.35,
	}
	c := NewController(cfg, timeutil.NewMockClock(time.Time{}))

	trs := c.Observe(Pose{X: 1.05, Y: 1})
	require.Len(t, trs, 2)
	assert.Equal(t, PickedUp, trs[0].To)
	assert.Equal(t, Consumed, trs[1].To)
}

func TestController_NeverRegresses(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		c, _ := newTestController(t)
		cfg := c.Config()
		prev := c.State()

		for i := 0; i < 500; i++ {
			var target Point
			switch rng.Intn(3) {
			case 0:
				target = cfg.Pickup
			case 1:
				target = cfg.Dropoff
			default:
				target = Point{X: rng.Float64()*10 - 2, Y: rng.Float64()*10 - 7}
			}
			jitter := Point{X: target.X + rng.NormFloat64()*0.2, Y: target.Y + rng.NormFloat64()*0.2}
			c.Observe(poseAt(cfg, jitter))
			if rng.Intn(10) == 0 {
				c.MarkDroppedOff()
			}

			cur := c.State()
			require.GreaterOrEqual(t, int(cur), int(prev), "state regressed from %s to %s", prev, cur)
			prev = cur
		}
	}
}

func TestController_LogsTransitionsOnce(t *testing.T) {
	original := monitoring.Logf
	defer func() { monitoring.Logf = original }()

	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	c, _ := newTestController(t)
	c.Observe(Pose{X: 4.0, Y: -5.35})
	c.Observe(Pose{X: 4.0, Y: -5.35})
	c.MarkDroppedOff()
	c.Observe(Pose{X: 0.0, Y: -0.35})
	c.Observe(Pose{X: 0.0, Y: -0.35})

	require.Len(t, lines, 3)
	assert.True(t, strings.Contains(lines[0], "Item picked"))
	assert.True(t, strings.Contains(lines[2], "Item is consumed successfully"))
}

func TestController_Snapshot(t *testing.T) {
	c, _ := newTestController(t)
	assert.False(t, c.Snapshot().HavePose)

	c.Observe(Pose{X: 1, Y: 2})
	snap := c.Snapshot()
	assert.True(t, snap.HavePose)
	assert.Equal(t, Pose{X: 1, Y: 2}, snap.LastPose)
	assert.InDelta(t, 3.0, snap.Adjusted.X, 1e-9)
	assert.Equal(t, uint64(1), snap.PoseCount)
	assert.Equal(t, NotPickedUp, snap.State)
}

func TestState_StringRoundTrip(t *testing.T) {
	for _, s := range []State{NotPickedUp, PickedUp, DroppedOff, Consumed} {
		got, err := ParseState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseState("teleported")
	assert.Error(t, err)
	assert.Equal(t, "state(9)", State(9).String())
	assert.False(t, NotPickedUp.Carrying())
	assert.True(t, Consumed.Carrying())
}
