// Package odom decodes odometry messages into task poses and feeds them onto
// the pose topic from line-oriented sources: serial ports, recorded packet
// captures, or any io.Reader.
package odom

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/add-markers/internal/task"
)

// ErrUnrecognisedLine is returned for lines that are neither JSON nor CSV
// odometry.
var ErrUnrecognisedLine = errors.New("odom: unrecognised line")

// ParseLine decodes a single odometry line. Three shapes are accepted:
//
//	{"pose":{"pose":{"position":{"x":1.0,"y":2.0,"z":0}}}, ...}   (nav_msgs/Odometry)
//	{"x":1.0,"y":2.0}
//	1.0,2.0[,...]
func ParseLine(line string) (task.Pose, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return task.Pose{}, ErrUnrecognisedLine
	}

	if strings.HasPrefix(line, "{") {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			return task.Pose{}, fmt.Errorf("failed to unmarshal JSON: %w", err)
		}
		return PoseFromMap(m)
	}

	segments := strings.Split(line, ",")
	if len(segments) < 2 {
		return task.Pose{}, fmt.Errorf("%w: %q", ErrUnrecognisedLine, line)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(segments[0]), 64)
	if err != nil {
		return task.Pose{}, fmt.Errorf("failed to parse x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(segments[1]), 64)
	if err != nil {
		return task.Pose{}, fmt.Errorf("failed to parse y: %w", err)
	}
	return task.Pose{X: x, Y: y}, nil
}

// PoseFromMap extracts the position from a decoded odometry message. The
// nested nav_msgs layout wins over flat x/y keys.
func PoseFromMap(m map[string]interface{}) (task.Pose, error) {
	if pos, ok := dig(m, "pose", "pose", "position"); ok {
		return positionFrom(pos)
	}
	if pos, ok := dig(m, "position"); ok {
		return positionFrom(pos)
	}
	return positionFrom(m)
}

func positionFrom(m map[string]interface{}) (task.Pose, error) {
	x, okX := m["x"].(float64)
	y, okY := m["y"].(float64)
	if !okX || !okY {
		return task.Pose{}, fmt.Errorf("%w: no numeric x/y position", ErrUnrecognisedLine)
	}
	return task.Pose{X: x, Y: y}, nil
}

func dig(m map[string]interface{}, keys ...string) (map[string]interface{}, bool) {
	cur := m
	for _, k := range keys {
		next, ok := cur[k].(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}
