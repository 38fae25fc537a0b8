package monitor

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
)

// RunState is the lifecycle phase of a dashboard run.
type RunState int

const (
	StateConnecting RunState = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s RunState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SampleFunc takes one sample of the remote host.
type SampleFunc func(ctx context.Context) (Sample, error)

// ModelOptions configures a dashboard model.
type ModelOptions struct {
	Host     string
	Dialect  Dialect
	Sample   SampleFunc
	Interval time.Duration

	// HistorySize is the CPU history capacity. Zero derives it from Width.
	HistorySize int
	Width       int
	Height      int

	Graph      string
	Thresholds config.ThresholdConfig
	Logger     logger.Logger
}

// Model is the Bubble Tea model for the dashboard. It owns the history and
// the latest sample; all mutation happens in Update.
type Model struct {
	ctx      context.Context
	host     string
	dialect  Dialect
	sample   SampleFunc
	interval time.Duration
	log      logger.Logger

	history    *History
	latest     Sample
	stale      bool
	errText    string
	lastUpdate time.Time

	state    RunState
	inFlight bool
	skipped  int
	samples  int

	width        int
	height       int
	graph        string
	thresholds   config.ThresholdConfig
	keys         KeyMap
	showFullHelp bool
}

// tickMsg fires on every sampling interval.
type tickMsg time.Time

// sampleMsg carries the outcome of one sampling pass.
type sampleMsg struct {
	sample Sample
	err    error
}

// NewModel creates a dashboard model. ctx bounds every sample it issues.
func NewModel(ctx context.Context, opts ModelOptions) Model {
	size := opts.HistorySize
	if size <= 0 {
		size = HistorySizeForWidth(opts.Width)
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Graph == "" {
		opts.Graph = config.GraphBraille
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}
	if opts.Thresholds == (config.ThresholdConfig{}) {
		opts.Thresholds = config.DefaultConfig().Thresholds
	}

	return Model{
		ctx:        ctx,
		host:       opts.Host,
		dialect:    opts.Dialect,
		sample:     opts.Sample,
		interval:   opts.Interval,
		log:        opts.Logger,
		history:    NewHistory(size),
		latest:     EmptySample(time.Time{}),
		state:      StateRunning,
		width:      opts.Width,
		height:     opts.Height,
		graph:      opts.Graph,
		thresholds: opts.Thresholds,
		keys:       DefaultKeyMap(),
	}
}

// Init fires the first tick immediately so the first sample doesn't wait a
// full interval.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg {
		return tickMsg(time.Now())
	}
}

// Update handles key presses, ticks, sample results and resizes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.state != StateRunning {
			return m, nil
		}
		return m, tea.Batch(m.tickCmd(), m.startSample())

	case sampleMsg:
		m.inFlight = false
		if m.state != StateRunning {
			return m, nil
		}
		m.applySample(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.state = StateStopping
		return *m, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		if m.state != StateRunning {
			return *m, nil
		}
		return *m, m.startSample()

	case key.Matches(msg, m.keys.Help):
		m.showFullHelp = !m.showFullHelp
	}
	return *m, nil
}

// startSample issues a sample unless one is already pending, in which case
// the request is dropped and counted.
func (m *Model) startSample() tea.Cmd {
	if m.inFlight {
		m.skipped++
		m.log.Debug("sample still in flight, skipping tick (%d skipped)", m.skipped)
		return nil
	}
	m.inFlight = true

	ctx, sample := m.ctx, m.sample
	return func() tea.Msg {
		s, err := sample(ctx)
		return sampleMsg{sample: s, err: err}
	}
}

// applySample folds one sampling result into the model. A failure marks the
// display stale. Metrics that were still read in a partial sample replace
// their old values, and a good CPU reading still reaches history; anything
// else keeps the last good value on screen.
func (m *Model) applySample(msg sampleMsg) {
	m.samples++
	if msg.err == nil {
		m.history.Push(msg.sample.CPUPercent)
		m.latest = msg.sample
		m.stale = false
		m.errText = ""
		m.lastUpdate = msg.sample.Timestamp
		return
	}

	m.stale = true
	m.errText = errorSummary(msg.err)
	m.log.Warn("tick %d failed: %s", m.samples, m.errText)

	var partial *PartialSampleError
	if !stderrors.As(msg.err, &partial) {
		return
	}
	m.latest = msg.sample.Over(m.latest)
	if msg.sample.HasCPU() {
		m.history.Push(msg.sample.CPUPercent)
	}
}

// View renders the dashboard.
func (m Model) View() string {
	if m.state == StateStopping {
		return ""
	}
	return RenderFrame(m.Frame())
}

// Frame snapshots the model for rendering.
func (m Model) Frame() Frame {
	return Frame{
		Host:         m.host,
		Dialect:      m.dialect,
		Sample:       m.latest,
		History:      m.history.Values(),
		Stale:        m.stale,
		Err:          m.errText,
		LastUpdate:   m.lastUpdate,
		Width:        m.width,
		Height:       m.height,
		Graph:        m.graph,
		Thresholds:   m.thresholds,
		Keys:         m.keys,
		ShowFullHelp: m.showFullHelp,
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// State returns the current run state.
func (m Model) State() RunState {
	return m.state
}

// History returns the CPU history buffer.
func (m Model) History() *History {
	return m.history
}

// Latest returns the sample being displayed and whether it is stale.
func (m Model) Latest() (Sample, bool) {
	return m.latest, m.stale
}

// Skipped returns how many ticks were dropped because a sample was pending.
func (m Model) Skipped() int {
	return m.skipped
}

// errorSummary condenses a sampling error to one line for the status bar.
func errorSummary(err error) string {
	var partial *PartialSampleError
	if stderrors.As(err, &partial) {
		parts := make([]string, 0, len(partial.Failures))
		for _, f := range partial.Failures {
			parts = append(parts, string(f.Metric)+": "+errorMessage(f.Err))
		}
		return strings.Join(parts, "; ")
	}
	return errorMessage(err)
}

func errorMessage(err error) string {
	var rmErr *errors.Error
	if stderrors.As(err, &rmErr) {
		return rmErr.Message
	}
	return strings.TrimSpace(err.Error())
}
