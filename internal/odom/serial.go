package odom

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.bug.st/serial"

	"github.com/banshee-data/add-markers/internal/monitoring"
)

// PortOptions describes the serial connection parameters of an odometry
// bridge that prints one pose per line.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// Normalize validates the options and applies defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 115200
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	switch parity := strings.TrimSpace(strings.ToUpper(opts.Parity)); parity {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}

	return opts, nil
}

// SerialMode converts the options into the mode go.bug.st/serial opens with.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}
	return mode, nil
}

// PortOpener opens a serial port. Tests substitute an in-memory port.
type PortOpener func(path string, mode *serial.Mode) (io.ReadCloser, error)

// OpenSerialPort opens a real serial device.
func OpenSerialPort(path string, mode *serial.Mode) (io.ReadCloser, error) {
	return serial.Open(path, mode)
}

// SerialSource pumps odometry lines from a serial device onto the pose topic.
type SerialSource struct {
	Path    string
	Options PortOptions
	Open    PortOpener
}

// Run opens the port and pumps it until ctx is cancelled or the port
// reaches EOF. The port is closed on return.
func (s *SerialSource) Run(ctx context.Context, sink PoseSink) error {
	mode, err := s.Options.SerialMode()
	if err != nil {
		return err
	}
	open := s.Open
	if open == nil {
		open = OpenSerialPort
	}

	port, err := open(s.Path, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.Path, err)
	}
	monitoring.Logf("[Odom] Reading odometry from %s at %d baud", s.Path, mode.BaudRate)

	// Closing the port unblocks the scanner goroutine inside Pump.
	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer func() {
		if stop() {
			port.Close()
		}
	}()

	n, err := Pump(ctx, port, sink)
	monitoring.Logf("[Odom] Serial source %s stopped after %d poses", s.Path, n)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
