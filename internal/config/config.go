// Package config loads zonemap configuration from file, environment and
// defaults using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/HerbHall/zonemap/internal/recon"
)

// Config is the complete zonemap configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`

	recon.Config `mapstructure:",squash"`
}

// DatabaseConfig locates the snapshot history database. An empty path
// disables history.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig controls the Prometheus textfile written after each run.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// setDefaults registers every key so environment overrides work for keys
// that are absent from the file.
func setDefaults(v *viper.Viper) {
	d := recon.DefaultConfig()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("database.path", "")
	v.SetDefault("metrics.textfile", "")

	v.SetDefault("snmp.community", d.SNMP.Community)
	v.SetDefault("snmp.port", d.SNMP.Port)
	v.SetDefault("snmp.timeout", d.SNMP.Timeout)
	v.SetDefault("snmp.retries", d.SNMP.Retries)
	v.SetDefault("snmp.vlan_strategy", d.SNMP.VLANStrategy)

	v.SetDefault("discovery.concurrency", d.Discovery.Concurrency)
	v.SetDefault("discovery.device_timeout", d.Discovery.DeviceTimeout)
	v.SetDefault("discovery.routed_prefix", d.Discovery.RoutedPrefix)
	v.SetDefault("discovery.bulk_repetitions", d.Discovery.BulkRepetitions)
	v.SetDefault("discovery.vlan_bulk_repetitions", d.Discovery.VLANBulkRepetitions)
	v.SetDefault("discovery.hsrp_active_state", d.Discovery.HSRPActiveState)

	v.SetDefault("sweep.enabled", d.Sweep.Enabled)
	v.SetDefault("sweep.pause", d.Sweep.Pause)
	v.SetDefault("sweep.rate", d.Sweep.Rate)
	v.SetDefault("sweep.timeout", d.Sweep.Timeout)
	v.SetDefault("sweep.max_prefix_bits", d.Sweep.MaxPrefixBits)
	v.SetDefault("sweep.privileged", d.Sweep.Privileged)

	v.SetDefault("schedule.interval", d.Schedule.Interval)
	v.SetDefault("schedule.quiet_start", "")
	v.SetDefault("schedule.quiet_end", "")
}

// NewViper returns a Viper instance with defaults and environment bindings
// (ZONEMAP_SNMP_COMMUNITY=private). When path is empty zonemap.yaml is
// searched for in the working directory, ./configs and /etc/zonemap.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("zonemap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/zonemap")
	}

	v.SetEnvPrefix("ZONEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from path (or the default search paths) and
// validates it. A missing config file is not an error.
func Load(path string) (*Config, *viper.Viper, error) {
	v := NewViper(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg, err := Decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// Decode unmarshals and validates the current state of v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Logging.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Watch calls fn with the re-decoded configuration whenever the config file
// changes. Changes that fail to decode are passed to onErr and otherwise
// ignored.
func Watch(v *viper.Viper, fn func(*Config), onErr func(error)) {
	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := Decode(v)
		if err != nil {
			if onErr != nil {
				onErr(err)
			}
			return
		}
		fn(cfg)
	})
	v.WatchConfig()
}
