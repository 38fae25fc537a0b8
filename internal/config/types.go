package config

import "time"

// Graph styles for the CPU history panel.
const (
	GraphBraille = "braille"
	GraphLine    = "line"
)

// History buffer bounds. A history_size of 0 means "derive from terminal width".
const (
	MinHistorySize = 10
	MaxHistorySize = 1024
)

// MinInterval is the shortest sampling interval accepted.
const MinInterval = 200 * time.Millisecond

// Config represents the rmon configuration, merged from the config file,
// RMON_* environment variables and command-line flags.
type Config struct {
	// Host is the SSH target: a hostname, IP or ~/.ssh/config alias.
	Host string `yaml:"host" mapstructure:"host"`

	// User overrides the login name. Falls back to ssh_config, then a prompt.
	User string `yaml:"user" mapstructure:"user"`

	// Port overrides the SSH port. 0 uses ~/.ssh/config, then 22.
	Port int `yaml:"port" mapstructure:"port"`

	// Interval is the sampling period in seconds (fractions allowed).
	Interval float64 `yaml:"interval" mapstructure:"interval"`

	// CommandTimeout bounds each remote inspection command. 0 disables it.
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`

	// DiskPath is the remote mount point reported by the disk gauge.
	DiskPath string `yaml:"disk_path" mapstructure:"disk_path"`

	// Graph selects the CPU graph renderer: braille or line.
	Graph string `yaml:"graph" mapstructure:"graph"`

	HistorySize int `yaml:"history_size" mapstructure:"history_size"`

	StrictHostKeyChecking bool `yaml:"strict_host_key_checking" mapstructure:"strict_host_key_checking"`

	// Keyring enables OS keyring lookup and storage of SSH passwords.
	Keyring bool `yaml:"keyring" mapstructure:"keyring"`

	LogFile string `yaml:"log_file" mapstructure:"log_file"`
	Debug   bool   `yaml:"debug" mapstructure:"debug"`
	NoColor bool   `yaml:"no_color" mapstructure:"no_color"`

	Thresholds ThresholdConfig `yaml:"thresholds" mapstructure:"thresholds"`
}

// ThresholdConfig defines warning and critical thresholds for each metric type.
type ThresholdConfig struct {
	CPU  ThresholdValues `yaml:"cpu" mapstructure:"cpu"`
	RAM  ThresholdValues `yaml:"ram" mapstructure:"ram"`
	Disk ThresholdValues `yaml:"disk" mapstructure:"disk"`
}

// ThresholdValues defines warning and critical percentage thresholds.
type ThresholdValues struct {
	Warning  int `yaml:"warning" mapstructure:"warning"`
	Critical int `yaml:"critical" mapstructure:"critical"`
}

// IntervalDuration returns the sampling interval as a time.Duration.
func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval * float64(time.Second))
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval:              1.0,
		CommandTimeout:        10 * time.Second,
		DiskPath:              "/",
		Graph:                 GraphBraille,
		StrictHostKeyChecking: true,
		Thresholds: ThresholdConfig{
			CPU:  ThresholdValues{Warning: 70, Critical: 90},
			RAM:  ThresholdValues{Warning: 70, Critical: 90},
			Disk: ThresholdValues{Warning: 80, Critical: 95},
		},
	}
}
