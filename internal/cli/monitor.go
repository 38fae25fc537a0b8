package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/monitor"
	"github.com/rileyhilliard/rmon/pkg/sshutil"
)

func newMonitorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Live dashboard of CPU, memory and disk usage",
		Long: `Open a full-screen dashboard that samples the remote host every
interval and draws CPU history, memory and disk gauges.

A sample that fails keeps the last good values on screen, marked STALE,
and the dashboard keeps running. Logs are discarded unless --log-file is
set, since the dashboard owns the terminal.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  r           Sample now
  ?           Toggle full help

Examples:
  rmon monitor -H web1
  rmon monitor -H web1 -i 0.5 --graph line
  rmon monitor -H deploy@10.0.0.5 --disk-path /var --log-file /tmp/rmon.log`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMonitor(cmd)
		},
	}

	addTargetFlags(cmd)
	f := cmd.Flags()
	f.Float64P("interval", "i", 0, "seconds between samples, fractions allowed (default 1.0)")
	f.String("graph", "", "CPU graph style: braille or line (default braille)")
	f.Int("history-size", 0, "CPU history length in samples (default fits the terminal width)")
	_ = cmd.RegisterFlagCompletionFunc("graph", cobra.FixedCompletions(
		[]string{config.GraphBraille, config.GraphLine}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func (a *app) runMonitor(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cfg, "monitor", a.stderr, true)
	if err != nil {
		return err
	}
	defer closeLog()

	if len(a.programOptions) == 0 && !isTerminal(a.stdout) {
		return errors.New(errors.ErrTerminal,
			"The dashboard needs a terminal",
			"Use 'rmon status' for one-shot output in scripts and pipes")
	}

	if err := a.resolveHost(cfg); err != nil {
		return err
	}

	width, height := terminalSize(a.stdout)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dash := monitor.NewDashboard(monitor.Options{
		Host:           cfg.Host,
		Interval:       cfg.IntervalDuration(),
		CommandTimeout: cfg.CommandTimeout,
		DiskPath:       cfg.DiskPath,
		Graph:          cfg.Graph,
		HistorySize:    cfg.HistorySize,
		Width:          width,
		Height:         height,
		Thresholds:     cfg.Thresholds,
		Logger:         log,
		ProgramOptions: a.programOptions,
	}, func(ctx context.Context) (sshutil.SSHClient, monitor.Dialect, error) {
		return a.connect(ctx, cfg, log, nil)
	})

	log.Info("starting dashboard for %s every %s", cfg.Host, cfg.IntervalDuration())
	return dash.Run(ctx)
}
