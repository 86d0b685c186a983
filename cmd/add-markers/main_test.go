package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/add-markers/internal/journal"
	"github.com/banshee-data/add-markers/internal/monitoring"
	"github.com/banshee-data/add-markers/internal/task"
	"github.com/banshee-data/add-markers/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func TestFlagDefaults(t *testing.T) {
	if *listen != "localhost:50061" {
		t.Errorf("listen default = %q, want localhost:50061", *listen)
	}
	if *maxClients != 5 {
		t.Errorf("max-clients default = %d, want 5", *maxClients)
	}
	if *pcapSpeed != 1.0 {
		t.Errorf("pcap-speed default = %v, want 1.0", *pcapSpeed)
	}
	if *configFile != "" {
		t.Errorf("config default = %q, want empty", *configFile)
	}
}

func recordTestRun(t *testing.T, path string) string {
	t.Helper()
	clock := timeutil.NewMockClock(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
	j, err := journal.Open(path, journal.Options{Clock: clock})
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer j.Close()

	cfg := task.DefaultConfig()
	id, err := j.StartRun(cfg)
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	ctrl := task.NewController(cfg, clock)
	ctrl.AddObserver(j)
	for _, p := range []task.Pose{{X: 0, Y: 0}, {X: 4.0, Y: -5.35}, {X: 0, Y: -0.35}} {
		ctrl.Observe(p)
		j.RecordPose(p, cfg.Adjust(p))
		ctrl.MarkDroppedOff()
		clock.Advance(time.Second)
	}
	if err := j.FinishRun(ctrl.State()); err != nil {
		t.Fatalf("finish run: %v", err)
	}
	return id
}

func TestRunReport(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "journal.db")
	id := recordTestRun(t, db)

	htmlOut := filepath.Join(dir, "run.html")
	pngOut := filepath.Join(dir, "run.png")
	var out bytes.Buffer
	if err := runReport([]string{"-db", db, "-html", htmlOut, "-png", pngOut}, &out); err != nil {
		t.Fatalf("runReport: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "run "+id+": 3 poses, 3 transitions") {
		t.Errorf("unexpected summary:\n%s", got)
	}
	for _, label := range []string{"picked_up", "dropped_off", "consumed"} {
		if !strings.Contains(got, label) {
			t.Errorf("summary missing %s:\n%s", label, got)
		}
	}
	for _, f := range []string{htmlOut, pngOut} {
		if info, err := os.Stat(f); err != nil || info.Size() == 0 {
			t.Errorf("expected %s to be written: %v", f, err)
		}
	}
}

func TestRunReport_MissingJournal(t *testing.T) {
	var out bytes.Buffer
	err := runReport([]string{"-db", filepath.Join(t.TempDir(), "absent.db")}, &out)
	if err == nil {
		t.Fatal("expected error for missing journal")
	}
}

func TestRunReport_UnknownRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	recordTestRun(t, db)

	var out bytes.Buffer
	if err := runReport([]string{"-db", db, "-run", "nope"}, &out); err == nil {
		t.Fatal("expected error for unknown run")
	}
}
