package recon

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/HerbHall/zonemap/internal/snmp"
)

// Config holds zone discovery configuration.
type Config struct {
	SNMP      SNMPConfig      `mapstructure:"snmp"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Zones     []Zone          `mapstructure:"zones"`
}

// SNMPConfig holds agent access settings shared by every zone.
type SNMPConfig struct {
	Community    string        `mapstructure:"community"`
	Port         int           `mapstructure:"port"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Retries      int           `mapstructure:"retries"`
	VLANStrategy string        `mapstructure:"vlan_strategy"`
}

// DiscoveryConfig tunes the per-zone discovery pass.
type DiscoveryConfig struct {
	Concurrency         int           `mapstructure:"concurrency"`
	DeviceTimeout       time.Duration `mapstructure:"device_timeout"`
	RoutedPrefix        string        `mapstructure:"routed_prefix"`
	BulkRepetitions     uint32        `mapstructure:"bulk_repetitions"`
	VLANBulkRepetitions uint32        `mapstructure:"vlan_bulk_repetitions"`
	HSRPActiveState     int           `mapstructure:"hsrp_active_state"`
}

// SweepConfig controls the ICMP sweep that warms gateway ARP caches.
type SweepConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Pause         time.Duration `mapstructure:"pause"`
	Rate          float64       `mapstructure:"rate"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxPrefixBits int           `mapstructure:"max_prefix_bits"`
	Privileged    bool          `mapstructure:"privileged"`
}

// ScheduleConfig enables periodic re-discovery when Interval is non-zero.
type ScheduleConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	QuietStart string        `mapstructure:"quiet_start"`
	QuietEnd   string        `mapstructure:"quiet_end"`
}

// Zone is a named group of gateways and access switches. Community
// overrides SNMPConfig.Community when set.
type Zone struct {
	Name           string   `mapstructure:"name"`
	Community      string   `mapstructure:"community"`
	Gateways       []string `mapstructure:"gateways"`
	AccessSwitches []string `mapstructure:"access_switches"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		SNMP: SNMPConfig{
			Community:    "public",
			Port:         snmp.DefaultPort,
			Timeout:      5 * time.Second,
			Retries:      1,
			VLANStrategy: "community_index",
		},
		Discovery: DiscoveryConfig{
			Concurrency:         8,
			RoutedPrefix:        "Vlan",
			BulkRepetitions:     20,
			VLANBulkRepetitions: 30,
			HSRPActiveState:     1,
		},
		Sweep: SweepConfig{
			Enabled:       true,
			Pause:         500 * time.Millisecond,
			Rate:          200,
			Timeout:       time.Second,
			MaxPrefixBits: 16,
		},
	}
}

// Validate reports every problem in the configuration at once.
func (c Config) Validate() error {
	var errs []error

	if _, err := snmp.ParseVLANStrategy(c.SNMP.VLANStrategy); err != nil {
		errs = append(errs, err)
	}
	if c.SNMP.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("snmp.timeout must be positive"))
	}
	if c.SNMP.Port < 1 || c.SNMP.Port > 65535 {
		errs = append(errs, fmt.Errorf("snmp.port must be between 1 and 65535"))
	}
	if c.SNMP.Retries < 0 {
		errs = append(errs, fmt.Errorf("snmp.retries must not be negative"))
	}
	if c.Discovery.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("discovery.concurrency must be at least 1"))
	}
	if c.Sweep.Rate <= 0 {
		errs = append(errs, fmt.Errorf("sweep.rate must be positive"))
	}
	if c.Sweep.MaxPrefixBits < 1 || c.Sweep.MaxPrefixBits > 24 {
		errs = append(errs, fmt.Errorf("sweep.max_prefix_bits must be between 1 and 24"))
	}
	if c.Schedule.Interval < 0 {
		errs = append(errs, fmt.Errorf("schedule.interval must not be negative"))
	}

	seen := make(map[string]bool, len(c.Zones))
	for i, z := range c.Zones {
		if z.Name == "" {
			errs = append(errs, fmt.Errorf("zones[%d]: name is required", i))
			continue
		}
		if seen[z.Name] {
			errs = append(errs, fmt.Errorf("zone %q: duplicate name", z.Name))
		}
		seen[z.Name] = true
		if len(z.Gateways) == 0 && len(z.AccessSwitches) == 0 {
			errs = append(errs, fmt.Errorf("zone %q: no gateways or access switches", z.Name))
		}
		for _, h := range append(append([]string{}, z.Gateways...), z.AccessSwitches...) {
			if _, err := snmp.NewDevice(h, "", time.Second, 0); err != nil {
				errs = append(errs, fmt.Errorf("zone %q: host %q: %w", z.Name, h, err))
			}
		}
	}

	return errors.Join(errs...)
}

// Zone returns the zone with the given name.
func (c Config) Zone(name string) (Zone, bool) {
	for _, z := range c.Zones {
		if z.Name == name {
			return z, true
		}
	}
	return Zone{}, false
}

// community returns the zone override or the global community.
func (z Zone) community(global string) string {
	if z.Community != "" {
		return z.Community
	}
	return global
}

// deviceTimeout is the per-device deadline. Without an explicit setting it
// allows sixteen worst-case round trips.
func (d DiscoveryConfig) deviceTimeout(dev snmp.Device) time.Duration {
	if d.DeviceTimeout > 0 {
		return d.DeviceTimeout
	}
	return 16 * dev.RoundTripBudget()
}

// isRouted reports whether an interface name marks a routed VLAN interface.
func (d DiscoveryConfig) isRouted(name string) bool {
	return d.RoutedPrefix != "" && strings.HasPrefix(name, d.RoutedPrefix)
}

// sweepable reports whether a subnet is small enough to sweep.
func (s SweepConfig) sweepable(p netip.Prefix) bool {
	return p.Addr().Is4() && 32-p.Bits() <= s.MaxPrefixBits
}
