// Package transport exposes the marker node over gRPC.
//
// Viewers subscribe to the marker stream; each open stream is one subscriber
// on the marker topic. Odometry producers push poses over a client stream
// onto the pose topic.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"tailscale.com/tsweb"

	"github.com/banshee-data/add-markers/internal/bus"
	"github.com/banshee-data/add-markers/internal/marker"
	"github.com/banshee-data/add-markers/internal/monitoring"
	"github.com/banshee-data/add-markers/internal/task"
	"github.com/banshee-data/add-markers/internal/transport/pb"
)

// Ensure Server implements the gRPC interface.
var _ pb.MarkerServiceServer = (*Server)(nil)

// Config holds configuration for the gRPC server.
type Config struct {
	// ListenAddr is the address to listen on (e.g., "localhost:50061")
	ListenAddr string

	// MaxClients is the maximum number of concurrent marker subscribers
	MaxClients int

	// QueueDepth is the per-subscriber marker queue length
	QueueDepth int

	// StopTimeout bounds graceful shutdown before open streams are cut
	StopTimeout time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr:  "localhost:50061",
		MaxClients:  5,
		QueueDepth:  1,
		StopTimeout: 2 * time.Second,
	}
}

// Server manages the gRPC listener and the marker service.
type Server struct {
	pb.UnimplementedMarkerServiceServer

	config   Config
	server   *grpc.Server
	listener net.Listener

	markers *bus.Topic[marker.Marker]
	poses   *bus.Topic[task.Pose]

	// Stats
	clientCount     atomic.Int32
	clientsRejected atomic.Uint64
	markersSent   atomic.Uint64
	posesReceived atomic.Uint64
	posesRejected atomic.Uint64

	// Lifecycle
	running atomic.Bool
	wg      sync.WaitGroup
}

// NewServer creates a Server that streams markers from markers and feeds
// received poses into poses.
func NewServer(cfg Config, markers *bus.Topic[marker.Marker], poses *bus.Topic[task.Pose]) *Server {
	if cfg.QueueDepth < 1 {
		cfg.QueueDepth = 1
	}
	return &Server{
		config:  cfg,
		markers: markers,
		poses:   poses,
	}
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	monitoring.Logf("[gRPC] Attempting to bind to %s...", s.config.ListenAddr)
	lis, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	monitoring.Logf("[gRPC] Successfully bound to %s", lis.Addr())
	return s.Serve(lis)
}

// Serve serves on an existing listener in the background. Tests pass an
// in-memory listener here.
func (s *Server) Serve(lis net.Listener) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("server already running")
	}
	s.listener = lis
	s.server = grpc.NewServer()
	pb.RegisterMarkerServiceServer(s.server, s)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		monitoring.Logf("[gRPC] Marker service listening on %s", lis.Addr())
		if err := s.server.Serve(lis); err != nil && s.running.Load() {
			monitoring.Logf("[gRPC] server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop stops the server, waiting up to StopTimeout for open streams to end.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(s.config.StopTimeout):
		monitoring.Logf("[gRPC] Graceful stop timed out, closing open streams")
		s.server.Stop()
		<-stopped
	}

	s.wg.Wait()
	monitoring.Logf("[gRPC] server stopped")
}

// Subscribe implements the marker stream. The stream ends when the client
// goes away or the marker topic is closed.
func (s *Server) Subscribe(_ *emptypb.Empty, stream pb.MarkerService_SubscribeServer) error {
	// The slot is taken before the limit check and released on every return.
	count := s.clientCount.Add(1)
	defer s.clientCount.Add(-1)
	if limit := s.config.MaxClients; limit > 0 && int(count) > limit {
		s.clientsRejected.Add(1)
		return status.Errorf(codes.ResourceExhausted, "too many marker subscribers (max %d)", limit)
	}

	sub, err := s.markers.Subscribe(s.config.QueueDepth)
	if err != nil {
		return status.Error(codes.Unavailable, err.Error())
	}
	defer sub.Close()
	monitoring.Logf("[gRPC] Marker subscriber connected: %s (total: %d)", sub.ID, count)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("[gRPC] Marker subscriber %s gone: %v", sub.ID, ctx.Err())
			return ctx.Err()
		case m, ok := <-sub.C():
			if !ok {
				return nil
			}
			msg, err := markerToProto(m)
			if err != nil {
				return status.Errorf(codes.Internal, "encode marker: %v", err)
			}
			if err := stream.Send(msg); err != nil {
				monitoring.Logf("[gRPC] Send error: %v", err)
				return err
			}
			s.markersSent.Add(1)
		}
	}
}

// PublishPose implements the odometry client stream. Messages that do not
// carry a position are counted and skipped.
func (s *Server) PublishPose(stream pb.MarkerService_PublishPoseServer) error {
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return stream.SendAndClose(&emptypb.Empty{})
		}
		if err != nil {
			return err
		}

		p, err := poseFromProto(msg)
		if err != nil {
			s.posesRejected.Add(1)
			monitoring.Logf("[gRPC] Skipping pose message: %v", err)
			continue
		}
		s.poses.Publish(p)
		s.posesReceived.Add(1)
	}
}

// Stats returns current server statistics.
func (s *Server) Stats() ServerStats {
	return ServerStats{
		Clients:         s.clientCount.Load(),
		ClientsRejected: s.clientsRejected.Load(),
		MarkersSent:     s.markersSent.Load(),
		PosesReceived:   s.posesReceived.Load(),
		PosesRejected:   s.posesRejected.Load(),
		Running:         s.running.Load(),
	}
}

// ServerStats contains server statistics.
type ServerStats struct {
	Clients         int32  `json:"clients"`
	ClientsRejected uint64 `json:"clients_rejected"`
	MarkersSent     uint64 `json:"markers_sent"`
	PosesReceived   uint64 `json:"poses_received"`
	PosesRejected   uint64 `json:"poses_rejected"`
	Running         bool   `json:"running"`
}

// AttachAdminRoutes mounts the server statistics on mux under /debug/.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("grpc", "Marker service statistics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.Stats()); err != nil {
			monitoring.Logf("[gRPC] failed to encode stats: %v", err)
		}
	})
}
