package journal

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/add-markers/internal/marker"
	"github.com/banshee-data/add-markers/internal/monitoring"
	"github.com/banshee-data/add-markers/internal/task"
)

// ErrNoActiveRun is returned by FinishRun when StartRun was never called.
var ErrNoActiveRun = errors.New("journal: no active run")

// StartRun opens a new run for the given geometry and makes it the target
// of every later record call. It returns the run ID.
func (j *Journal) StartRun(cfg task.Config) (string, error) {
	id := uuid.New().String()
	query := `
		INSERT INTO runs (
			run_id, started_ns,
			pickup_x, pickup_y, dropoff_x, dropoff_y,
			offset_x, offset_y, threshold
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := j.db.Exec(query,
		id, j.clock.Now().UnixNano(),
		cfg.Pickup.X, cfg.Pickup.Y, cfg.Dropoff.X, cfg.Dropoff.Y,
		cfg.Offset.X, cfg.Offset.Y, cfg.Threshold,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	j.mu.Lock()
	j.runID = id
	j.lastMarker = nil
	j.havePose = false
	j.mu.Unlock()

	monitoring.Logf("[Journal] Recording run %s", id)
	return id, nil
}

// RunID returns the active run, or "" before StartRun.
func (j *Journal) RunID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runID
}

// FinishRun stamps the active run with its end time and final state.
func (j *Journal) FinishRun(final task.State) error {
	id := j.RunID()
	if id == "" {
		return ErrNoActiveRun
	}
	_, err := j.db.Exec(
		"UPDATE runs SET finished_ns = ?, final_state = ? WHERE run_id = ?",
		j.clock.Now().UnixNano(), final.String(), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	monitoring.Logf("[Journal] Run %s finished in state %s", id, final)
	return nil
}

// OnTransition stores a task transition. It satisfies task.TransitionObserver.
func (j *Journal) OnTransition(tr task.Transition) {
	id := j.RunID()
	if id == "" {
		return
	}
	query := `
		INSERT INTO transitions (
			run_id, from_state, to_state,
			pose_x, pose_y, adjusted_x, adjusted_y,
			distance, at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := j.db.Exec(query,
		id, tr.From.String(), tr.To.String(),
		tr.Pose.X, tr.Pose.Y, tr.Adjusted.X, tr.Adjusted.Y,
		tr.Distance, tr.At.UnixNano(),
	)
	if err != nil {
		j.logErr("insert transition", err)
	}
}

// RecordMarker stores a published marker when its action or position
// differs from the previous one. The publish loop repeats the same marker
// every tick, so only changes are kept.
func (j *Journal) RecordMarker(m marker.Marker) {
	key := markerKey{action: m.Action.String(), x: m.Position.X, y: m.Position.Y}

	j.mu.Lock()
	id := j.runID
	if id == "" || (j.lastMarker != nil && *j.lastMarker == key) {
		j.mu.Unlock()
		return
	}
	j.lastMarker = &key
	j.mu.Unlock()

	_, err := j.db.Exec(
		"INSERT INTO markers (run_id, action, x, y, stamp_ns) VALUES (?, ?, ?, ?, ?)",
		id, key.action, key.x, key.y, m.Stamp.UnixNano(),
	)
	if err != nil {
		j.logErr("insert marker", err)
	}
}

// RecordPose stores a consumed pose and its adjusted position, at most once
// per PoseSpacing.
func (j *Journal) RecordPose(p task.Pose, adjusted task.Point) {
	now := j.clock.Now()

	j.mu.Lock()
	id := j.runID
	if id == "" || (j.havePose && now.Sub(j.lastPoseAt) < j.opts.PoseSpacing) {
		j.mu.Unlock()
		return
	}
	j.havePose = true
	j.lastPoseAt = now
	j.mu.Unlock()

	_, err := j.db.Exec(
		"INSERT INTO poses (run_id, x, y, adjusted_x, adjusted_y, at_ns) VALUES (?, ?, ?, ?, ?, ?)",
		id, p.X, p.Y, adjusted.X, adjusted.Y, now.UnixNano(),
	)
	if err != nil {
		j.logErr("insert pose", err)
	}
}
