package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
	"github.com/rileyhilliard/rmon/internal/monitor"
	"github.com/rileyhilliard/rmon/internal/ui"
)

// Output formats for the status command.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func newStatusCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print one CPU, memory and disk reading",
		Long: `Connect, take a single sample and print it.

A metric that can't be read is reported as n/a with a warning on stderr;
the command still exits 0. Authentication and connection failures exit
non-zero.

Examples:
  rmon status -H web1
  rmon status -H deploy@10.0.0.5 -P 2222
  rmon status -H web1 -o json | jq .data.cpu_percent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatus(cmd, output)
		},
	}

	addTargetFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	_ = cmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(
		[]string{formatTable, formatJSON, formatYAML}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// StatusReport is the machine-readable form of one sample.
// Unavailable metrics are null.
type StatusReport struct {
	Host       string         `json:"host" yaml:"host"`
	Address    string         `json:"address" yaml:"address"`
	Dialect    string         `json:"dialect" yaml:"dialect"`
	Timestamp  time.Time      `json:"timestamp" yaml:"timestamp"`
	CPUPercent *float64       `json:"cpu_percent" yaml:"cpu_percent"`
	Memory     *UsageReport   `json:"memory" yaml:"memory"`
	Disk       *UsageReport   `json:"disk" yaml:"disk"`
	Errors     []MetricReport `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// UsageReport is a used/total pair in bytes.
type UsageReport struct {
	Path       string  `json:"path,omitempty" yaml:"path,omitempty"`
	UsedBytes  int64   `json:"used_bytes" yaml:"used_bytes"`
	TotalBytes int64   `json:"total_bytes" yaml:"total_bytes"`
	Percent    float64 `json:"percent" yaml:"percent"`
}

// MetricReport explains why one metric is missing.
type MetricReport struct {
	Metric  string `json:"metric" yaml:"metric"`
	Message string `json:"message" yaml:"message"`
}

func (a *app) runStatus(cmd *cobra.Command, output string) (err error) {
	format := strings.ToLower(strings.TrimSpace(output))
	switch format {
	case formatTable, formatJSON, formatYAML:
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown output format '%s'", output),
			"Use -o table, -o json or -o yaml")
	}

	if format == formatJSON {
		defer func() {
			if err != nil {
				a.machineMode = true
				_ = WriteJSONFromError(a.stdout, err)
			}
		}()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cfg, "status", a.stderr, false)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := a.resolveHost(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	spinOut := io.Discard
	if format == formatTable {
		spinOut = a.stderr
	}
	spin := ui.NewSpinner(spinOut, "Connecting to "+cfg.Host, isTerminal(a.stderr))
	spin.Start()

	client, dialect, err := a.connect(ctx, cfg, log, spin.Stop)
	if err != nil {
		spin.Fail()
		return err
	}
	spin.Success()
	defer func() {
		if cerr := client.Close(); cerr != nil {
			log.Debug("closing session: %v", cerr)
		}
	}()

	sampler := monitor.NewSampler(client, dialect, cfg.DiskPath)
	sampler.SetTimeout(cfg.CommandTimeout)
	if cfg.Debug {
		sampler.SetLogger(log)
	}

	sample, err := sampler.Sample(ctx)
	var partial *monitor.PartialSampleError
	if err != nil {
		if !stderrors.As(err, &partial) {
			return err
		}
		if !sample.HasCPU() && !sample.HasMemory() && !sample.HasDisk() {
			return errors.WrapWithCode(err, errors.ErrExec,
				fmt.Sprintf("Couldn't read any metrics from '%s'", cfg.Host),
				"Run with --debug to see the remote commands and their output")
		}
		warnPartial(a.stderr, partial)
	}

	report := newStatusReport(cfg.Host, client.GetAddress(), cfg.DiskPath, dialect, sample, partial)
	return writeStatus(a.stdout, format, report, cfg.Thresholds, log)
}

// warnPartial prints one stderr line per metric that couldn't be read.
func warnPartial(w io.Writer, partial *monitor.PartialSampleError) {
	style := lipgloss.NewStyle().Foreground(ui.ColorWarning)
	for _, f := range partial.Failures {
		fmt.Fprintf(w, "%s %s unavailable: %s\n", style.Render(ui.SymbolWarning), f.Metric, failureMessage(f.Err))
	}
}

// failureMessage prefers the short message of a structured error.
func failureMessage(err error) string {
	var rmErr *errors.Error
	if stderrors.As(err, &rmErr) {
		return rmErr.Message
	}
	return err.Error()
}

func newStatusReport(host, address, diskPath string, dialect monitor.Dialect, s monitor.Sample, partial *monitor.PartialSampleError) StatusReport {
	r := StatusReport{
		Host:      host,
		Address:   address,
		Dialect:   string(dialect),
		Timestamp: s.Timestamp,
	}
	if s.HasCPU() {
		cpu := s.CPUPercent
		r.CPUPercent = &cpu
	}
	if s.HasMemory() {
		r.Memory = &UsageReport{
			UsedBytes:  s.MemoryUsedBytes,
			TotalBytes: s.MemoryTotalBytes,
			Percent:    s.MemoryPercent(),
		}
	}
	if s.HasDisk() {
		if diskPath == "" {
			diskPath = "/"
		}
		r.Disk = &UsageReport{
			Path:       diskPath,
			UsedBytes:  s.DiskUsedBytes,
			TotalBytes: s.DiskTotalBytes,
			Percent:    s.DiskPercent(),
		}
	}
	if partial != nil {
		for _, f := range partial.Failures {
			r.Errors = append(r.Errors, MetricReport{Metric: string(f.Metric), Message: failureMessage(f.Err)})
		}
	}
	return r
}

func writeStatus(w io.Writer, format string, r StatusReport, t config.ThresholdConfig, log logger.Logger) error {
	var err error
	switch format {
	case formatJSON:
		err = WriteJSONSuccess(w, r)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(r); err == nil {
			err = enc.Close()
		}
	default:
		_, err = io.WriteString(w, renderStatusTable(r, t))
	}
	if err != nil {
		log.Error("writing %s output: %v", format, err)
		return errors.WrapWithCode(err, errors.ErrTerminal,
			"Couldn't write the status output",
			"Check stdout is writable")
	}
	return nil
}

// renderStatusTable draws the human-readable summary.
func renderStatusTable(r StatusReport, t config.ThresholdConfig) string {
	missing := make(map[string]string, len(r.Errors))
	for _, e := range r.Errors {
		missing[e.Metric] = e.Message
	}

	rows := make([]ui.MetricRow, 0, 3)

	cpuRow := ui.MetricRow{Metric: string(monitor.MetricCPU), Value: "n/a", Status: ui.StatusUnavailable, Detail: missing[string(monitor.MetricCPU)]}
	if r.CPUPercent != nil {
		cpuRow.Value = fmt.Sprintf("%.1f%%", *r.CPUPercent)
		cpuRow.Status = ui.StatusFor(*r.CPUPercent, t.CPU.Warning, t.CPU.Critical)
		cpuRow.Detail = ""
	}
	rows = append(rows,
		cpuRow,
		usageRow(string(monitor.MetricMemory), r.Memory, t.RAM, missing),
		usageRow(string(monitor.MetricDisk), r.Disk, t.Disk, missing),
	)

	header := lipgloss.NewStyle().Bold(true).Foreground(ui.ColorInfo).Render(r.Host)
	meta := fmt.Sprintf(" (%s) %s", r.Dialect, r.Address)
	if !r.Timestamp.IsZero() {
		meta += " at " + r.Timestamp.Format("15:04:05")
	}
	header += lipgloss.NewStyle().Foreground(ui.ColorMuted).Render(meta)

	return header + "\n" + ui.RenderMetricTable(rows) + "\n"
}

func usageRow(metric string, u *UsageReport, t config.ThresholdValues, missing map[string]string) ui.MetricRow {
	if u == nil {
		return ui.MetricRow{Metric: metric, Value: "n/a", Detail: missing[metric], Status: ui.StatusUnavailable}
	}
	detail := humanize.IBytes(uint64(u.UsedBytes)) + " / " + humanize.IBytes(uint64(u.TotalBytes))
	if u.Path != "" {
		detail += " on " + u.Path
	}
	return ui.MetricRow{
		Metric: metric,
		Value:  fmt.Sprintf("%.1f%%", u.Percent),
		Detail: detail,
		Status: ui.StatusFor(u.Percent, t.Warning, t.Critical),
	}
}
