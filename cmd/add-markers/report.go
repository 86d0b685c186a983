package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/add-markers/internal/journal"
	"github.com/banshee-data/add-markers/internal/report"
)

// runReport renders a recorded run from the journal. With no output flags it
// prints a summary of the run.
func runReport(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stdout)
	db := fs.String("db", "add_markers.db", "Run journal sqlite file")
	runID := fs.String("run", "", "Run ID (defaults to the latest run)")
	htmlOut := fs.String("html", "", "Write an interactive HTML chart to this file")
	pngOut := fs.String("png", "", "Write a PNG plot to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := os.Stat(*db); err != nil {
		return fmt.Errorf("journal %s: %w", *db, err)
	}
	j, err := journal.Open(*db, journal.DefaultOptions())
	if err != nil {
		return err
	}
	defer j.Close()

	t, err := j.Trajectory(*runID)
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}

	fmt.Fprintf(stdout, "run %s: %d poses, %d transitions\n", t.RunID, len(t.Samples), len(t.Events))
	for _, e := range t.Events {
		fmt.Fprintf(stdout, "  %s  %-13s at (%.3f, %.3f)\n", e.At.UTC().Format("15:04:05.000"), e.Label, e.X, e.Y)
	}

	if *htmlOut != "" {
		f, err := os.Create(*htmlOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", *htmlOut, err)
		}
		if err := report.RenderHTML(f, t); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s\n", *htmlOut)
	}
	if *pngOut != "" {
		if err := report.SavePNG(*pngOut, t); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s\n", *pngOut)
	}
	return nil
}
