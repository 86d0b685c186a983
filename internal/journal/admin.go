package journal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/add-markers/internal/monitoring"
	"github.com/banshee-data/add-markers/internal/report"
)

// AttachAdminRoutes mounts the journal debug pages on mux under /debug/.
func (j *Journal) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	// create a tailSQL instance and point it to the journal
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://"+j.path, j.db, &tailsql.DBOptions{
		Label: "Run journal",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.HandleFunc("runs", "Recorded pick-and-place runs", func(w http.ResponseWriter, r *http.Request) {
		runs, err := j.Runs()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if runs == nil {
			runs = []Run{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(runs); err != nil {
			monitoring.Logf("[Journal] failed to encode runs: %v", err)
		}
	})

	debug.HandleFunc("trajectory", "Trajectory of the latest run (?run=<id>, ?format=png)", func(w http.ResponseWriter, r *http.Request) {
		t, err := j.Trajectory(r.URL.Query().Get("run"))
		switch {
		case errors.Is(err, ErrNoRuns), errors.Is(err, sql.ErrNoRows):
			http.Error(w, "run not found", http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if r.URL.Query().Get("format") == "png" {
			w.Header().Set("Content-Type", "image/png")
			if err := report.WritePNG(w, t); err != nil {
				http.Error(w, fmt.Sprintf("render png: %v", err), http.StatusInternalServerError)
			}
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := report.RenderHTML(w, t); err != nil {
			http.Error(w, fmt.Sprintf("render chart: %v", err), http.StatusInternalServerError)
		}
	})
}
