package transport

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/banshee-data/add-markers/internal/marker"
	"github.com/banshee-data/add-markers/internal/task"
	"github.com/banshee-data/add-markers/internal/transport/pb"
)

// Dial opens a plaintext client connection to a marker node.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return conn, nil
}

// Client calls MarkerService and converts between markers, poses and their
// wire structs.
type Client struct {
	rpc pb.MarkerServiceClient
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{rpc: pb.NewMarkerServiceClient(cc)}
}

// SubscribeMarkers streams markers to fn until the server ends the stream,
// ctx is cancelled, or fn returns an error. A server-side end of stream and
// a cancelled ctx both return nil.
func (c *Client) SubscribeMarkers(ctx context.Context, fn func(marker.Marker) error) error {
	stream, err := c.rpc.Subscribe(ctx, &emptypb.Empty{})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	for {
		msg, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("receive marker: %w", err)
		}
		m, err := markerFromProto(msg)
		if err != nil {
			return fmt.Errorf("decode marker: %w", err)
		}
		if err := fn(m); err != nil {
			return err
		}
	}
}

// PoseStream is an open PublishPose call.
type PoseStream struct {
	stream pb.MarkerService_PublishPoseClient
}

// OpenPoseStream starts a PublishPose call.
func (c *Client) OpenPoseStream(ctx context.Context) (*PoseStream, error) {
	stream, err := c.rpc.PublishPose(ctx)
	if err != nil {
		return nil, fmt.Errorf("publish pose: %w", err)
	}
	return &PoseStream{stream: stream}, nil
}

// Send pushes one pose.
func (p *PoseStream) Send(pose task.Pose) error {
	msg, err := poseToProto(pose)
	if err != nil {
		return fmt.Errorf("encode pose: %w", err)
	}
	return p.stream.Send(msg)
}

// CloseAndRecv half-closes the stream and waits for the server to accept it.
func (p *PoseStream) CloseAndRecv() error {
	_, err := p.stream.CloseAndRecv()
	return err
}

// PublishPoses sends poses in order over a single stream.
func (c *Client) PublishPoses(ctx context.Context, poses ...task.Pose) error {
	ps, err := c.OpenPoseStream(ctx)
	if err != nil {
		return err
	}
	for _, p := range poses {
		if err := ps.Send(p); err != nil {
			return fmt.Errorf("send pose: %w", err)
		}
	}
	return ps.CloseAndRecv()
}
