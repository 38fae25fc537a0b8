package config

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/rmon/internal/errors"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	if cfg.Port < 0 || cfg.Port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Port %d is out of range", cfg.Port),
			"SSH ports are 1-65535; leave it unset to use ~/.ssh/config or 22.")
	}

	if cfg.IntervalDuration() < MinInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Interval %gs is too short", cfg.Interval),
			fmt.Sprintf("Use at least %gs, e.g. -i 1.0", MinInterval.Seconds()))
	}

	if cfg.CommandTimeout < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("command_timeout can't be negative (got %s)", cfg.CommandTimeout),
			"Use 0 to disable the timeout, or something like '10s'.")
	}

	switch cfg.Graph {
	case GraphBraille, GraphLine:
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown graph style '%s'", cfg.Graph),
			"Pick one of: braille, line")
	}

	if !strings.HasPrefix(cfg.DiskPath, "/") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("disk_path '%s' must be an absolute path", cfg.DiskPath),
			"Use a remote mount point like '/' or '/home'.")
	}

	if cfg.HistorySize != 0 && (cfg.HistorySize < MinHistorySize || cfg.HistorySize > MaxHistorySize) {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("history_size %d is out of range", cfg.HistorySize),
			fmt.Sprintf("Use 0 to fit the terminal, or a value between %d and %d.", MinHistorySize, MaxHistorySize))
	}

	for _, m := range []struct {
		name   string
		thresh ThresholdValues
	}{
		{"cpu", cfg.Thresholds.CPU},
		{"ram", cfg.Thresholds.RAM},
		{"disk", cfg.Thresholds.Disk},
	} {
		if err := validateThresholds(m.name, m.thresh); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'thresholds' section in your config.yaml.")
		}
	}

	return nil
}

// RequireHost fails when no target host was configured.
func RequireHost(cfg *Config) error {
	if cfg == nil || strings.TrimSpace(cfg.Host) == "" {
		return errors.New(errors.ErrConfig,
			"No host to connect to",
			"Pass one with -H <host>, or set 'host' in ~/.config/rmon/config.yaml")
	}
	return nil
}

// validateThresholds checks a threshold configuration for a single metric type.
func validateThresholds(name string, thresh ThresholdValues) error {
	if thresh.Warning < 0 || thresh.Warning > 100 {
		return fmt.Errorf("thresholds.%s.warning needs to be 0-100 (got %d)", name, thresh.Warning)
	}
	if thresh.Critical < 0 || thresh.Critical > 100 {
		return fmt.Errorf("thresholds.%s.critical needs to be 0-100 (got %d)", name, thresh.Critical)
	}
	if thresh.Warning > 0 && thresh.Critical > 0 && thresh.Warning >= thresh.Critical {
		return fmt.Errorf("thresholds.%s.warning (%d%%) is higher than critical (%d%%) - should be the other way around", name, thresh.Warning, thresh.Critical)
	}
	return nil
}
