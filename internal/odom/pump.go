package odom

import (
	"bufio"
	"context"
	"io"

	"github.com/banshee-data/add-markers/internal/monitoring"
	"github.com/banshee-data/add-markers/internal/task"
)

// PoseSink receives decoded poses. *bus.Topic[task.Pose] satisfies it.
type PoseSink interface {
	Publish(task.Pose) int
}

// Pump reads odometry lines from r and publishes each decoded pose to sink
// until r is exhausted or ctx is cancelled. Lines that fail to decode are
// logged and skipped. It returns the number of poses published.
func Pump(ctx context.Context, r io.Reader, sink PoseSink) (int, error) {
	scan := bufio.NewScanner(r)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// The blocking scan runs on its own goroutine so cancellation is
	// observed even while the reader is idle.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	published := 0
	skipped := 0
	for {
		select {
		case <-ctx.Done():
			return published, ctx.Err()

		case err := <-scanErrChan:
			return published, err

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return published, err
				default:
				}
				if skipped > 0 {
					monitoring.Logf("[Odom] Skipped %d undecodable lines", skipped)
				}
				return published, nil
			}
			p, err := ParseLine(line)
			if err != nil {
				skipped++
				monitoring.Logf("[Odom] Skipping line %q: %v", line, err)
				continue
			}
			sink.Publish(p)
			published++
		}
	}
}
