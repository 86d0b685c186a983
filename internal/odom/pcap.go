package odom

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/add-markers/internal/monitoring"
	"github.com/banshee-data/add-markers/internal/timeutil"
)

// ReplayConfig configures replay of odometry datagrams from a packet capture.
type ReplayConfig struct {
	// UDPPort selects datagrams by destination port. Zero accepts any port.
	UDPPort int

	// SpeedMultiplier paces replay against capture timestamps (1.0 = real-time,
	// 2.0 = 2x speed). Zero or less replays as fast as the poses are decoded.
	SpeedMultiplier float64

	// Clock drives pacing. Defaults to the wall clock.
	Clock timeutil.Clock
}

// ReplayStats summarises a replay.
type ReplayStats struct {
	Packets   int `json:"packets"`
	Datagrams int `json:"datagrams"`
	Poses     int `json:"poses"`
	Skipped   int `json:"skipped"`
}

// ReplayFile opens a classic pcap file and replays it. See Replay.
func ReplayFile(ctx context.Context, path string, cfg ReplayConfig, sink PoseSink) (ReplayStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReplayStats{}, fmt.Errorf("failed to open PCAP file %s: %w", path, err)
	}
	defer f.Close()
	return Replay(ctx, f, cfg, sink)
}

// Replay reads UDP datagrams from a pcap stream. Each datagram payload may
// carry one or more odometry lines; every decoded pose is published to sink.
func Replay(ctx context.Context, r io.Reader, cfg ReplayConfig, sink PoseSink) (ReplayStats, error) {
	var stats ReplayStats

	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return stats, fmt.Errorf("failed to read PCAP header: %w", err)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if cfg.UDPPort > 0 {
		monitoring.Logf("[Odom] PCAP replay: filtering udp port %d (speed: %.1fx)", cfg.UDPPort, cfg.SpeedMultiplier)
	}

	packetSource := gopacket.NewPacketSource(reader, reader.LinkType())

	var lastPacketTime time.Time
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		packet, err := packetSource.NextPacket()
		if err == io.EOF {
			monitoring.Logf("[Odom] PCAP replay complete: %d packets, %d poses", stats.Packets, stats.Poses)
			return stats, nil
		}
		if err != nil {
			// Truncated trailing records are common in captures cut short.
			monitoring.Logf("[Odom] PCAP read stopped: %v", err)
			return stats, nil
		}
		stats.Packets++

		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok {
			continue
		}
		if cfg.UDPPort > 0 && int(udp.DstPort) != cfg.UDPPort {
			continue
		}
		if len(udp.Payload) == 0 {
			continue
		}
		stats.Datagrams++

		if cfg.SpeedMultiplier > 0 {
			captureTime := packet.Metadata().Timestamp
			if !lastPacketTime.IsZero() {
				delay := time.Duration(float64(captureTime.Sub(lastPacketTime)) / cfg.SpeedMultiplier)
				if delay > 0 {
					if err := timeutil.Sleep(ctx, clock, delay); err != nil {
						return stats, err
					}
				}
			}
			lastPacketTime = captureTime
		}

		scan := bufio.NewScanner(bytes.NewReader(udp.Payload))
		for scan.Scan() {
			p, err := ParseLine(scan.Text())
			if err != nil {
				stats.Skipped++
				continue
			}
			sink.Publish(p)
			stats.Poses++
		}
	}
}
