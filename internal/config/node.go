package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/add-markers/internal/marker"
	"github.com/banshee-data/add-markers/internal/node"
	"github.com/banshee-data/add-markers/internal/task"
)

// DefaultConfigPath is the path to the canonical node defaults file.
const DefaultConfigPath = "config/node.defaults.json"

// NodeConfig is the on-disk configuration of the marker node. Every field is
// optional; the Get* methods fall back to the built-in defaults for anything
// the file leaves out.
type NodeConfig struct {
	// Task geometry
	PickupX   *float64 `json:"pickup_x,omitempty"`
	PickupY   *float64 `json:"pickup_y,omitempty"`
	DropoffX  *float64 `json:"dropoff_x,omitempty"`
	DropoffY  *float64 `json:"dropoff_y,omitempty"`
	OffsetX   *float64 `json:"offset_x,omitempty"`
	OffsetY   *float64 `json:"offset_y,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`

	// Publisher timing
	PickupPause       *string `json:"pickup_pause,omitempty"`       // duration string like "5s"
	SubscriberBackoff *string `json:"subscriber_backoff,omitempty"` // duration string like "1s"
	PublishInterval   *string `json:"publish_interval,omitempty"`   // duration string like "20ms"

	// Marker style
	FrameID   *string  `json:"frame_id,omitempty"`
	Namespace *string  `json:"namespace,omitempty"`
	MarkerID  *int     `json:"marker_id,omitempty"`
	Scale     *float64 `json:"scale,omitempty"`
	ColorR    *float64 `json:"color_r,omitempty"`
	ColorG    *float64 `json:"color_g,omitempty"`
	ColorB    *float64 `json:"color_b,omitempty"`
	ColorA    *float64 `json:"color_a,omitempty"`

	// Journal
	JournalPoseSpacing *string `json:"journal_pose_spacing,omitempty"` // duration string like "100ms"
}

// LoadNodeConfig loads a NodeConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadNodeConfig(path string) (*NodeConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &NodeConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *NodeConfig) Validate() error {
	if c.Threshold != nil && *c.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive, got %f", *c.Threshold)
	}
	if c.Scale != nil && *c.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %f", *c.Scale)
	}
	if c.MarkerID != nil && (*c.MarkerID < -1<<31 || *c.MarkerID > 1<<31-1) {
		return fmt.Errorf("marker_id out of int32 range: %d", *c.MarkerID)
	}

	for name, v := range map[string]*float64{
		"color_r": c.ColorR, "color_g": c.ColorG, "color_b": c.ColorB, "color_a": c.ColorA,
	} {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
	}

	for name, v := range map[string]*string{
		"pickup_pause":         c.PickupPause,
		"subscriber_backoff":   c.SubscriberBackoff,
		"publish_interval":     c.PublishInterval,
		"journal_pose_spacing": c.JournalPoseSpacing,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", name, *v)
		}
	}

	if c.SubscriberBackoff != nil && *c.SubscriberBackoff != "" && c.GetSubscriberBackoff() == 0 {
		return fmt.Errorf("subscriber_backoff must be positive")
	}
	return nil
}

func float(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func duration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def // default on parse error
	}
	return d
}

// GetThreshold returns the pickup/drop-off radius or the default.
func (c *NodeConfig) GetThreshold() float64 {
	return float(c.Threshold, task.DefaultConfig().Threshold)
}

// GetPickupPause returns how long the object stays hidden after pickup.
func (c *NodeConfig) GetPickupPause() time.Duration {
	return duration(c.PickupPause, 5*time.Second)
}

// GetSubscriberBackoff returns the wait between subscriber checks.
func (c *NodeConfig) GetSubscriberBackoff() time.Duration {
	return duration(c.SubscriberBackoff, time.Second)
}

// GetPublishInterval returns the publish loop period.
func (c *NodeConfig) GetPublishInterval() time.Duration {
	return duration(c.PublishInterval, 20*time.Millisecond)
}

// GetJournalPoseSpacing returns the minimum spacing of journal trail poses.
func (c *NodeConfig) GetJournalPoseSpacing() time.Duration {
	return duration(c.JournalPoseSpacing, 100*time.Millisecond)
}

// TaskGeometry builds the controller geometry.
func (c *NodeConfig) TaskGeometry() task.Config {
	def := task.DefaultConfig()
	return task.Config{
		Pickup:    task.Point{X: float(c.PickupX, def.Pickup.X), Y: float(c.PickupY, def.Pickup.Y)},
		Dropoff:   task.Point{X: float(c.DropoffX, def.Dropoff.X), Y: float(c.DropoffY, def.Dropoff.Y)},
		Offset:    task.Point{X: float(c.OffsetX, def.Offset.X), Y: float(c.OffsetY, def.Offset.Y)},
		Threshold: c.GetThreshold(),
	}
}

// MarkerStyle builds the marker style.
func (c *NodeConfig) MarkerStyle() marker.Style {
	s := marker.DefaultStyle()
	if c.FrameID != nil {
		s.FrameID = *c.FrameID
	}
	if c.Namespace != nil {
		s.Namespace = *c.Namespace
	}
	if c.MarkerID != nil {
		s.ID = int32(*c.MarkerID)
	}
	if c.Scale != nil {
		s.Scale = *c.Scale
	}
	s.Color = marker.ColorRGBA{
		R: float32(float(c.ColorR, float64(s.Color.R))),
		G: float32(float(c.ColorG, float64(s.Color.G))),
		B: float32(float(c.ColorB, float64(s.Color.B))),
		A: float32(float(c.ColorA, float64(s.Color.A))),
	}
	return s
}

// NodeSettings builds the publisher loop configuration.
func (c *NodeConfig) NodeSettings() node.Config {
	cfg := node.DefaultConfig()
	cfg.PickupPause = c.GetPickupPause()
	cfg.SubscriberBackoff = c.GetSubscriberBackoff()
	cfg.PublishInterval = c.GetPublishInterval()
	cfg.Style = c.MarkerStyle()
	return cfg
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. It panics if the file
// cannot be loaded and is intended for test setup.
func MustLoadDefaultConfig() *NodeConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadNodeConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}
