package cli

import (
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/ui"
	"github.com/rileyhilliard/rmon/pkg/sshutil"
)

// flagKeys maps flag names to their config keys. Only flags the user set
// explicitly override the config file and environment.
var flagKeys = map[string]string{
	"host":            "host",
	"user":            "user",
	"port":            "port",
	"interval":        "interval",
	"graph":           "graph",
	"disk-path":       "disk_path",
	"history-size":    "history_size",
	"command-timeout": "command_timeout",
	"keyring":         "keyring",
	"log-file":        "log_file",
	"debug":           "debug",
	"no-color":        "no_color",
}

// addGlobalFlags registers the flags every command accepts.
func addGlobalFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("config", "", "config file (default ~/.config/rmon/config.yaml)")
	f.Bool("debug", false, "verbose logging")
	f.String("log-file", "", "write logs to this file (the dashboard discards them otherwise)")
	f.Bool("no-color", false, "disable colored output")
	f.Bool("insecure", false, "skip SSH host key verification")
	f.Bool("keyring", false, "look up and store SSH passwords in the OS keyring")
	f.Duration("command-timeout", 0, "timeout for each remote command, 0 disables (default 10s)")
}

// addTargetFlags registers the flags that pick the remote host.
func addTargetFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("host", "H", "", "host, user@host, host:port or ~/.ssh/config alias")
	f.StringP("user", "u", "", "login name (default from ~/.ssh/config, else prompted)")
	f.IntP("port", "P", 0, "SSH port (default from ~/.ssh/config, else 22)")
	f.String("disk-path", "", "remote mount point for the disk gauge (default /)")

	_ = cmd.RegisterFlagCompletionFunc("host", completeHosts)
}

// completeHosts offers the concrete aliases from ~/.ssh/config.
func completeHosts(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	entries, err := sshutil.ParseSSHConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return hostCompletions(entries), cobra.ShellCompDirectiveNoFileComp
}

func hostCompletions(entries []sshutil.SSHHostEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Alias+"\t"+e.Description())
	}
	return out
}

// loadConfig merges defaults, the config file, RMON_* variables and the
// flags set on cmd, then validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()

	names := make([]string, 0, len(flagKeys))
	for name := range flagKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(flagKeys[name], f); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't read --"+name,
				"")
		}
	}

	explicit, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, explicit)
	if err != nil {
		return nil, err
	}

	if insecure, _ := cmd.Flags().GetBool("insecure"); insecure {
		cfg.StrictHostKeyChecking = false
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	if cfg.NoColor {
		ui.DisableColors()
	}
	return cfg, nil
}
