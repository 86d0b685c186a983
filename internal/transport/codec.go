package transport

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/add-markers/internal/marker"
	"github.com/banshee-data/add-markers/internal/odom"
	"github.com/banshee-data/add-markers/internal/task"
)

// markerToProto encodes a marker with the field names of the common
// visualization marker message.
func markerToProto(m marker.Marker) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"header": map[string]interface{}{
			"frame_id": m.FrameID,
			"stamp":    durationToMap(time.Duration(m.Stamp.UnixNano())),
		},
		"ns":     m.Namespace,
		"id":     m.ID,
		"type":   int32(m.Shape),
		"action": int32(m.Action),
		"pose": map[string]interface{}{
			"position": map[string]interface{}{
				"x": m.Position.X, "y": m.Position.Y, "z": m.Position.Z,
			},
			"orientation": map[string]interface{}{
				"x": m.Orientation.X, "y": m.Orientation.Y, "z": m.Orientation.Z, "w": m.Orientation.W,
			},
		},
		"scale": map[string]interface{}{
			"x": m.Scale.X, "y": m.Scale.Y, "z": m.Scale.Z,
		},
		"color": map[string]interface{}{
			"r": m.Color.R, "g": m.Color.G, "b": m.Color.B, "a": m.Color.A,
		},
		"lifetime": durationToMap(m.Lifetime),
	})
}

// markerFromProto decodes a marker encoded by markerToProto.
func markerFromProto(s *structpb.Struct) (marker.Marker, error) {
	if s == nil {
		return marker.Marker{}, fmt.Errorf("nil marker message")
	}
	root := s.AsMap()

	header, err := child(root, "header")
	if err != nil {
		return marker.Marker{}, err
	}
	pose, err := child(root, "pose")
	if err != nil {
		return marker.Marker{}, err
	}
	pos, err := child(pose, "position")
	if err != nil {
		return marker.Marker{}, err
	}
	orient, err := child(pose, "orientation")
	if err != nil {
		return marker.Marker{}, err
	}
	scale, err := child(root, "scale")
	if err != nil {
		return marker.Marker{}, err
	}
	color, err := child(root, "color")
	if err != nil {
		return marker.Marker{}, err
	}
	stamp, err := child(header, "stamp")
	if err != nil {
		return marker.Marker{}, err
	}
	lifetime, err := child(root, "lifetime")
	if err != nil {
		return marker.Marker{}, err
	}

	frameID, _ := header["frame_id"].(string)
	ns, _ := root["ns"].(string)

	return marker.Marker{
		FrameID:     frameID,
		Stamp:       time.Unix(0, int64(mapToDuration(stamp))),
		Namespace:   ns,
		ID:          int32(num(root, "id")),
		Shape:       marker.Shape(num(root, "type")),
		Action:      marker.Action(num(root, "action")),
		Position:    marker.Vector3{X: num(pos, "x"), Y: num(pos, "y"), Z: num(pos, "z")},
		Orientation: marker.Quaternion{X: num(orient, "x"), Y: num(orient, "y"), Z: num(orient, "z"), W: num(orient, "w")},
		Scale:       marker.Vector3{X: num(scale, "x"), Y: num(scale, "y"), Z: num(scale, "z")},
		Color: marker.ColorRGBA{
			R: float32(num(color, "r")), G: float32(num(color, "g")),
			B: float32(num(color, "b")), A: float32(num(color, "a")),
		},
		Lifetime: mapToDuration(lifetime),
	}, nil
}

// poseToProto encodes a pose as a minimal odometry message.
func poseToProto(p task.Pose) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"pose": map[string]interface{}{
			"pose": map[string]interface{}{
				"position": map[string]interface{}{"x": p.X, "y": p.Y, "z": 0.0},
			},
		},
	})
}

// poseFromProto accepts any odometry shape the line codec understands.
func poseFromProto(s *structpb.Struct) (task.Pose, error) {
	if s == nil {
		return task.Pose{}, fmt.Errorf("nil pose message")
	}
	return odom.PoseFromMap(s.AsMap())
}

func durationToMap(d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		"secs":  int64(d / time.Second),
		"nsecs": int64(d % time.Second),
	}
}

func mapToDuration(m map[string]interface{}) time.Duration {
	return time.Duration(num(m, "secs"))*time.Second + time.Duration(num(m, "nsecs"))
}

func child(m map[string]interface{}, key string) (map[string]interface{}, error) {
	v, ok := m[key].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("marker message missing %q", key)
	}
	return v, nil
}

// num reads a numeric field; structpb stores every number as float64.
func num(m map[string]interface{}, key string) float64 {
	f, _ := m[key].(float64)
	return f
}
