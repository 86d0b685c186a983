// Command odom-pub streams odometry lines to a marker node over gRPC. Lines
// are read from a file or stdin in any format the node's serial bridge
// accepts (CSV "x,y" or odometry JSON).
package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/add-markers/internal/odom"
	"github.com/banshee-data/add-markers/internal/task"
	"github.com/banshee-data/add-markers/internal/timeutil"
	"github.com/banshee-data/add-markers/internal/transport"
)

var (
	addr     = flag.String("addr", "localhost:50061", "Marker service address")
	file     = flag.String("file", "", "Odometry file (defaults to stdin)")
	interval = flag.Duration("interval", 50*time.Millisecond, "Delay between poses")
)

// publishLines parses each line of r and hands the pose to send, waiting
// interval between poses. Undecodable lines are skipped. It returns the
// number of poses sent.
func publishLines(ctx context.Context, r io.Reader, send func(task.Pose) error, interval time.Duration, clock timeutil.Clock) (int, error) {
	sent := 0
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		p, err := odom.ParseLine(scan.Text())
		if err != nil {
			continue
		}
		if sent > 0 && interval > 0 {
			if err := timeutil.Sleep(ctx, clock, interval); err != nil {
				return sent, err
			}
		}
		if err := send(p); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, scan.Err()
}

func main() {
	flag.Parse()

	in := io.Reader(os.Stdin)
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			log.Fatalf("failed to open %s: %v", *file, err)
		}
		defer f.Close()
		in = f
	}

	conn, err := transport.Dial(*addr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := transport.NewClient(conn).OpenPoseStream(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}

	n, err := publishLines(ctx, in, stream.Send, *interval, timeutil.RealClock{})
	if err != nil {
		log.Printf("stopped after %d poses: %v", n, err)
	}
	if err := stream.CloseAndRecv(); err != nil {
		log.Fatalf("pose stream failed: %v", err)
	}
	log.Printf("sent %d poses", n)
}
