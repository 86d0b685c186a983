package node

import (
	"encoding/json"
	"net/http"

	"tailscale.com/tsweb"

	"github.com/banshee-data/add-markers/internal/bus"
	"github.com/banshee-data/add-markers/internal/monitoring"
	"github.com/banshee-data/add-markers/internal/task"
)

// Status is the JSON body of the /debug/node route.
type Status struct {
	Loop    Stats          `json:"loop"`
	Task    task.Snapshot  `json:"task"`
	Markers bus.TopicStats `json:"markers"`
}

// Status returns the loop, task and marker topic state.
func (n *Node) Status() Status {
	return Status{
		Loop:    n.Stats(),
		Task:    n.ctrl.Snapshot(),
		Markers: n.markers.Stats(),
	}
}

// AttachAdminRoutes mounts the node status page on mux under /debug/.
func (n *Node) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("node", "Marker publisher state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(n.Status()); err != nil {
			monitoring.Logf("[Node] failed to encode status: %v", err)
		}
	})
}
