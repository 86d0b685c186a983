// Command add-markers runs the pick-and-place marker node.
//
// It shows a cube at the pickup point until the robot reaches it, hides the
// cube while the object is carried, then shows it at the drop-off point until
// the robot arrives there. Markers are served over gRPC; odometry arrives over
// gRPC, a serial bridge or a pcap replay.
//
// Usage:
//
//	add-markers [flags]
//	add-markers report [-db path] [-run id] [-html out.html] [-png out.png]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/add-markers/internal/bus"
	"github.com/banshee-data/add-markers/internal/config"
	"github.com/banshee-data/add-markers/internal/journal"
	"github.com/banshee-data/add-markers/internal/marker"
	"github.com/banshee-data/add-markers/internal/node"
	"github.com/banshee-data/add-markers/internal/odom"
	"github.com/banshee-data/add-markers/internal/task"
	"github.com/banshee-data/add-markers/internal/timeutil"
	"github.com/banshee-data/add-markers/internal/transport"
	"github.com/banshee-data/add-markers/internal/version"
)

var (
	configFile   = flag.String("config", "", "Path to a node config JSON file (defaults are built in)")
	listen       = flag.String("listen", transport.DefaultConfig().ListenAddr, "gRPC listen address for the marker service")
	maxClients   = flag.Int("max-clients", transport.DefaultConfig().MaxClients, "Maximum concurrent marker subscribers")
	debugListen  = flag.String("debug-listen", "localhost:8080", "Listen address for /debug/ pages (empty disables)")
	dbPath       = flag.String("db", "add_markers.db", "Run journal sqlite file (empty disables the journal)")
	serialPort   = flag.String("serial", "", "Serial device streaming odometry lines")
	serialBaud   = flag.Int("serial-baud", 115200, "Serial baud rate")
	serialParity = flag.String("serial-parity", "N", "Serial parity: N, E or O")
	pcapFile     = flag.String("pcap", "", "Replay odometry datagrams from a pcap file")
	pcapPort     = flag.Int("pcap-port", 0, "UDP destination port to replay (0 accepts any)")
	pcapSpeed    = flag.Float64("pcap-speed", 1.0, "Replay speed multiplier (0 replays as fast as possible)")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if flag.Arg(0) == "report" {
		if err := runReport(flag.Args()[1:], os.Stdout); err != nil {
			log.Fatalf("report: %v", err)
		}
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := &config.NodeConfig{}
	if *configFile != "" {
		var err error
		cfg, err = config.LoadNodeConfig(*configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	geometry := cfg.TaskGeometry()
	if err := geometry.Validate(); err != nil {
		log.Fatalf("invalid task geometry: %v", err)
	}
	settings := cfg.NodeSettings()
	if err := settings.Style.Validate(); err != nil {
		log.Fatalf("invalid marker style: %v", err)
	}

	log.Printf("%s starting: pickup %s, drop-off %s, threshold %.2f", version.String(), geometry.Pickup, geometry.Dropoff, geometry.Threshold)

	clock := timeutil.RealClock{}
	ctrl := task.NewController(geometry, clock)
	markers := bus.NewTopic[marker.Marker](node.MarkerTopic)
	poses := bus.NewTopic[task.Pose](node.PoseTopic)

	n, err := node.New(settings, ctrl, markers, poses, clock)
	if err != nil {
		log.Fatalf("failed to create node: %v", err)
	}

	var j *journal.Journal
	if *dbPath != "" {
		opts := journal.DefaultOptions()
		opts.PoseSpacing = cfg.GetJournalPoseSpacing()
		j, err = journal.Open(*dbPath, opts)
		if err != nil {
			log.Fatalf("failed to open journal: %v", err)
		}
		defer j.Close()
		if _, err := j.StartRun(geometry); err != nil {
			log.Fatalf("failed to start run: %v", err)
		}
		ctrl.AddObserver(j)
		n.SetRecorder(j)
	}

	srvCfg := transport.DefaultConfig()
	srvCfg.ListenAddr = *listen
	srvCfg.MaxClients = *maxClients
	srv := transport.NewServer(srvCfg, markers, poses)
	if err := srv.Start(); err != nil {
		log.Fatalf("failed to start gRPC server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	if *serialPort != "" {
		src := &odom.SerialSource{
			Path:    *serialPort,
			Options: odom.PortOptions{BaudRate: *serialBaud, Parity: *serialParity},
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := src.Run(ctx, poses); err != nil {
				log.Printf("serial odometry source failed: %v", err)
			}
		}()
	}

	if *pcapFile != "" {
		replay := odom.ReplayConfig{UDPPort: *pcapPort, SpeedMultiplier: *pcapSpeed, Clock: clock}
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats, err := odom.ReplayFile(ctx, *pcapFile, replay, poses)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("pcap replay failed: %v", err)
				return
			}
			log.Printf("pcap replay done: %+v", stats)
		}()
	}

	var debugServer *http.Server
	if *debugListen != "" {
		mux := http.NewServeMux()
		n.AttachAdminRoutes(mux)
		srv.AttachAdminRoutes(mux)
		if j != nil {
			j.AttachAdminRoutes(mux)
		}
		debugServer = &http.Server{Addr: *debugListen, Handler: mux}
		go func() {
			if err := debugServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("debug server failed: %v", err)
			}
		}()
		log.Printf("debug pages on http://%s/debug/", *debugListen)
	}

	if err := n.Run(ctx); err != nil {
		log.Printf("node stopped: %v", err)
	}

	// Stop the sources, then close the topics so open streams end before
	// the gRPC server drains.
	stop()
	markers.Close()
	poses.Close()
	srv.Stop()

	if debugServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		if err := debugServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("debug server shutdown error: %v", err)
			debugServer.Close()
		}
		cancel()
	}

	wg.Wait()

	if j != nil {
		if err := j.FinishRun(ctrl.State()); err != nil {
			log.Printf("failed to finish run: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete (state %s)", ctrl.State())
}
