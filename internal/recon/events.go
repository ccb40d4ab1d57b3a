package recon

import (
	"time"

	"github.com/HerbHall/zonemap/pkg/models"
)

// Event topics published during zone discovery.
const (
	TopicDeviceCompleted = "discovery.device.completed"
	TopicDeviceFailed    = "discovery.device.failed"
	TopicSweepCompleted  = "discovery.sweep.completed"
	TopicZoneCompleted   = "discovery.zone.completed"
)

// eventSource tags events emitted by this package.
const eventSource = "recon"

// DeviceEvent is the payload for TopicDeviceCompleted and TopicDeviceFailed.
type DeviceEvent struct {
	Zone    string            `json:"zone"`
	Address string            `json:"address"`
	Role    models.DeviceRole `json:"role"`
	Partial bool              `json:"partial"`
	Err     string            `json:"error,omitempty"`
}

// SweepEvent is the payload for TopicSweepCompleted.
type SweepEvent struct {
	Zone    string `json:"zone"`
	Subnets int    `json:"subnets"`
}

// ZoneEvent is the payload for TopicZoneCompleted.
type ZoneEvent struct {
	Zone     string        `json:"zone"`
	Devices  int           `json:"devices"`
	Partial  int           `json:"partial"`
	Duration time.Duration `json:"duration"`
}
