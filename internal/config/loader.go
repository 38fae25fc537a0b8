package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/spf13/viper"
)

const (
	// GlobalConfigDir is the directory for the user config, relative to $HOME.
	GlobalConfigDir = ".config/rmon"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes every environment override, e.g. RMON_INTERVAL.
	EnvPrefix = "RMON"
)

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. ~/.config/rmon/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", nil
	}
	global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
	if _, err := os.Stat(global); err == nil {
		return global, nil
	}
	return "", nil
}

// Load builds the effective config. Values come from, lowest first: defaults,
// the config file (if any), RMON_* environment variables, then any flags the
// caller has already bound on v. A nil v gets a fresh viper instance.
func Load(v *viper.Viper, explicit string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check "+path+" exists and is valid YAML")
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		where := "your flags and RMON_* variables"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the values in "+where)
	}

	return cfg, nil
}

// setDefaults registers every key so that env overrides are visible to Unmarshal.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("host", d.Host)
	v.SetDefault("user", d.User)
	v.SetDefault("port", d.Port)
	v.SetDefault("interval", d.Interval)
	v.SetDefault("command_timeout", d.CommandTimeout)
	v.SetDefault("disk_path", d.DiskPath)
	v.SetDefault("graph", d.Graph)
	v.SetDefault("history_size", d.HistorySize)
	v.SetDefault("strict_host_key_checking", d.StrictHostKeyChecking)
	v.SetDefault("keyring", d.Keyring)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("no_color", d.NoColor)
	v.SetDefault("thresholds.cpu.warning", d.Thresholds.CPU.Warning)
	v.SetDefault("thresholds.cpu.critical", d.Thresholds.CPU.Critical)
	v.SetDefault("thresholds.ram.warning", d.Thresholds.RAM.Warning)
	v.SetDefault("thresholds.ram.critical", d.Thresholds.RAM.Critical)
	v.SetDefault("thresholds.disk.warning", d.Thresholds.Disk.Warning)
	v.SetDefault("thresholds.disk.critical", d.Thresholds.Disk.Critical)
}
