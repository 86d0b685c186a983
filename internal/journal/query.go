package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/add-markers/internal/report"
	"github.com/banshee-data/add-markers/internal/task"
)

// ErrNoRuns is returned by LatestRun on an empty journal.
var ErrNoRuns = errors.New("journal: no runs recorded")

// Run is one recorded node run.
type Run struct {
	RunID      string      `json:"run_id"`
	StartedNs  int64       `json:"started_ns"`
	FinishedNs *int64      `json:"finished_ns,omitempty"`
	FinalState string      `json:"final_state,omitempty"`
	Geometry   task.Config `json:"-"`
}

// TransitionRecord is a stored task transition.
type TransitionRecord struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	PoseX     float64 `json:"pose_x"`
	PoseY     float64 `json:"pose_y"`
	AdjustedX float64 `json:"adjusted_x"`
	AdjustedY float64 `json:"adjusted_y"`
	Distance  float64 `json:"distance"`
	AtNs      int64   `json:"at_ns"`
}

// MarkerRecord is a stored marker change.
type MarkerRecord struct {
	Action  string  `json:"action"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	StampNs int64   `json:"stamp_ns"`
}

// TrailPoint is a stored pose.
type TrailPoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	AdjustedX float64 `json:"adjusted_x"`
	AdjustedY float64 `json:"adjusted_y"`
	AtNs      int64   `json:"at_ns"`
}

const runColumns = `
	run_id, started_ns, finished_ns, final_state,
	pickup_x, pickup_y, dropoff_x, dropoff_y,
	offset_x, offset_y, threshold
`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	var finished sql.NullInt64
	var final sql.NullString
	g := &r.Geometry
	err := s.Scan(
		&r.RunID, &r.StartedNs, &finished, &final,
		&g.Pickup.X, &g.Pickup.Y, &g.Dropoff.X, &g.Dropoff.Y,
		&g.Offset.X, &g.Offset.Y, &g.Threshold,
	)
	if err != nil {
		return r, err
	}
	if finished.Valid {
		r.FinishedNs = &finished.Int64
	}
	if final.Valid {
		r.FinalState = final.String
	}
	return r, nil
}

// Runs returns all runs, newest first.
func (j *Journal) Runs() ([]Run, error) {
	rows, err := j.db.Query("SELECT " + runColumns + " FROM runs ORDER BY started_ns DESC")
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a single run. A missing run is sql.ErrNoRows.
func (j *Journal) GetRun(runID string) (Run, error) {
	row := j.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE run_id = ?", runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r, nil
}

// LatestRun returns the most recently started run.
func (j *Journal) LatestRun() (Run, error) {
	row := j.db.QueryRow("SELECT " + runColumns + " FROM runs ORDER BY started_ns DESC LIMIT 1")
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNoRuns
	}
	if err != nil {
		return r, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

// Transitions returns the transitions of a run in order.
func (j *Journal) Transitions(runID string) ([]TransitionRecord, error) {
	query := `
		SELECT from_state, to_state, pose_x, pose_y, adjusted_x, adjusted_y, distance, at_ns
		FROM transitions
		WHERE run_id = ?
		ORDER BY transition_id
	`
	rows, err := j.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []TransitionRecord
	for rows.Next() {
		var t TransitionRecord
		if err := rows.Scan(&t.From, &t.To, &t.PoseX, &t.PoseY, &t.AdjustedX, &t.AdjustedY, &t.Distance, &t.AtNs); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Markers returns the marker changes of a run in order.
func (j *Journal) Markers(runID string) ([]MarkerRecord, error) {
	rows, err := j.db.Query("SELECT action, x, y, stamp_ns FROM markers WHERE run_id = ? ORDER BY marker_id", runID)
	if err != nil {
		return nil, fmt.Errorf("list markers: %w", err)
	}
	defer rows.Close()

	var out []MarkerRecord
	for rows.Next() {
		var m MarkerRecord
		if err := rows.Scan(&m.Action, &m.X, &m.Y, &m.StampNs); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Trail returns the stored poses of a run in order.
func (j *Journal) Trail(runID string) ([]TrailPoint, error) {
	rows, err := j.db.Query("SELECT x, y, adjusted_x, adjusted_y, at_ns FROM poses WHERE run_id = ? ORDER BY pose_id", runID)
	if err != nil {
		return nil, fmt.Errorf("list poses: %w", err)
	}
	defer rows.Close()

	var out []TrailPoint
	for rows.Next() {
		var p TrailPoint
		if err := rows.Scan(&p.X, &p.Y, &p.AdjustedX, &p.AdjustedY, &p.AtNs); err != nil {
			return nil, fmt.Errorf("scan pose: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Trajectory assembles a run into a chartable trajectory. An empty runID
// selects the latest run.
func (j *Journal) Trajectory(runID string) (report.Trajectory, error) {
	var run Run
	var err error
	if runID == "" {
		run, err = j.LatestRun()
	} else {
		run, err = j.GetRun(runID)
	}
	if err != nil {
		return report.Trajectory{}, err
	}

	trail, err := j.Trail(run.RunID)
	if err != nil {
		return report.Trajectory{}, err
	}
	transitions, err := j.Transitions(run.RunID)
	if err != nil {
		return report.Trajectory{}, err
	}

	t := report.Trajectory{RunID: run.RunID, Geometry: run.Geometry}
	for _, p := range trail {
		t.Samples = append(t.Samples, report.Sample{At: time.Unix(0, p.AtNs), X: p.AdjustedX, Y: p.AdjustedY})
	}
	for _, tr := range transitions {
		t.Events = append(t.Events, report.Event{At: time.Unix(0, tr.AtNs), X: tr.AdjustedX, Y: tr.AdjustedY, Label: tr.To})
	}
	return t, nil
}
