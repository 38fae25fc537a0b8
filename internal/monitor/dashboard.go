package monitor

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
	"github.com/rileyhilliard/rmon/pkg/sshutil"
)

// ConnectFunc opens the session a dashboard run will own and reports the
// remote dialect.
type ConnectFunc func(ctx context.Context) (sshutil.SSHClient, Dialect, error)

// Options configures a Dashboard.
type Options struct {
	Host           string
	Interval       time.Duration
	CommandTimeout time.Duration
	DiskPath       string
	Graph          string

	// HistorySize of zero derives capacity from Width.
	HistorySize int
	Width       int
	Height      int

	Thresholds config.ThresholdConfig
	Logger     logger.Logger

	// ProgramOptions are appended to the defaults (alt screen, context).
	ProgramOptions []tea.ProgramOption
}

// Dashboard runs one monitoring session from connect to teardown.
type Dashboard struct {
	opts    Options
	connect ConnectFunc
	state   atomic.Int32
}

// NewDashboard creates a dashboard that will connect with connect.
func NewDashboard(opts Options, connect ConnectFunc) *Dashboard {
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}
	d := &Dashboard{opts: opts, connect: connect}
	d.setState(StateConnecting)
	return d
}

// State returns the current run state. Safe to call from any goroutine.
func (d *Dashboard) State() RunState {
	return RunState(d.state.Load())
}

func (d *Dashboard) setState(s RunState) {
	d.state.Store(int32(s))
	d.opts.Logger.Debug("dashboard state: %s", s)
}

// Run connects, drives the dashboard until the user quits or ctx is
// cancelled, then closes the session.
//
// A connect failure is returned before the terminal is touched. A clean quit
// returns nil. The session is closed exactly once on every path that opened
// it, including panics.
func (d *Dashboard) Run(ctx context.Context) (err error) {
	log := d.opts.Logger

	d.setState(StateConnecting)
	client, dialect, err := d.connect(ctx)
	if err != nil {
		d.setState(StateStopped)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer func() {
		d.setState(StateStopping)
		cancel()
		if cerr := client.Close(); cerr != nil {
			log.Warn("closing session to %s: %v", client.GetHost(), cerr)
		}
		d.setState(StateStopped)
	}()

	sampler := NewSampler(client, dialect, d.opts.DiskPath)
	sampler.SetTimeout(d.opts.CommandTimeout)
	sampler.SetLogger(log)

	model := NewModel(runCtx, ModelOptions{
		Host:        d.opts.Host,
		Dialect:     dialect,
		Sample:      sampler.Sample,
		Interval:    d.opts.Interval,
		HistorySize: d.opts.HistorySize,
		Width:       d.opts.Width,
		Height:      d.opts.Height,
		Graph:       d.opts.Graph,
		Thresholds:  d.opts.Thresholds,
		Logger:      log,
	})

	programOpts := append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithContext(runCtx),
	}, d.opts.ProgramOptions...)

	d.setState(StateRunning)
	log.Info("monitoring %s (%s) every %s", client.GetAddress(), dialect, d.opts.Interval)

	final, err := tea.NewProgram(model, programOpts...).Run()
	if err != nil {
		// Cancellation from the caller (e.g. SIGTERM) is a normal stop.
		if stderrors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return errors.WrapWithCode(err, errors.ErrTerminal,
			"dashboard terminated unexpectedly",
			"Make sure rmon is attached to an interactive terminal")
	}

	if m, ok := final.(Model); ok && m.Skipped() > 0 {
		log.Info("%d ticks skipped while a sample was still running", m.Skipped())
	}
	return nil
}
