// Command marker-tail subscribes to a marker node and logs every marker it
// receives. While it is connected the node counts it as a subscriber, so it
// also serves as the observer that lets the node start publishing.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/banshee-data/add-markers/internal/marker"
	"github.com/banshee-data/add-markers/internal/transport"
)

var (
	addr        = flag.String("addr", "localhost:50061", "Marker service address")
	changesOnly = flag.Bool("changes", false, "Only log markers whose action or position changed")
	limit       = flag.Int("n", 0, "Exit after this many logged markers (0 runs until the stream ends)")
)

var errLimit = errors.New("marker limit reached")

// tail filters and formats the marker stream.
type tail struct {
	changesOnly bool
	limit       int

	logged int
	last   *marker.Marker
	logf   func(format string, v ...interface{})
}

func (t *tail) handle(m marker.Marker) error {
	if t.changesOnly && t.last != nil &&
		t.last.Action == m.Action && t.last.Position == m.Position {
		return nil
	}
	t.last = &m
	t.logged++
	t.logf("%s %s", m.Stamp.Format("15:04:05.000"), m)
	if t.limit > 0 && t.logged >= t.limit {
		return errLimit
	}
	return nil
}

func main() {
	flag.Parse()

	conn, err := transport.Dial(*addr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	t := &tail{changesOnly: *changesOnly, limit: *limit, logf: log.Printf}
	err = transport.NewClient(conn).SubscribeMarkers(ctx, t.handle)
	if err != nil && !errors.Is(err, errLimit) {
		log.Fatalf("marker stream failed: %v", err)
	}
	fmt.Printf("%d markers\n", t.logged)
}
