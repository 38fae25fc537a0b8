package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// SpinnerState represents the current state of a spinner.
type SpinnerState int

const (
	SpinnerPending SpinnerState = iota
	SpinnerInProgress
	SpinnerSuccess
	SpinnerFailed
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const spinnerTick = 80 * time.Millisecond

// Spinner shows an animated "label..." line on a terminal while a blocking
// step such as the SSH handshake runs. With animation disabled only the
// final line is written, which keeps piped stderr clean.
type Spinner struct {
	mu           sync.Mutex
	label        string
	state        SpinnerState
	frame        int
	startTime    time.Time
	stopChan     chan struct{}
	doneChan     chan struct{}
	out          io.Writer
	animate      bool
	running      bool
	lastRendered string
}

// NewSpinner creates a spinner writing to out. animate should be false when
// out is not a terminal.
func NewSpinner(out io.Writer, label string, animate bool) *Spinner {
	return &Spinner{
		label:   label,
		state:   SpinnerPending,
		out:     out,
		animate: animate,
	}
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.state = SpinnerInProgress
	s.startTime = time.Now()
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	animate := s.animate
	s.mu.Unlock()

	if !animate {
		close(s.doneChan)
		return
	}

	s.render()
	go s.loop()
}

// Stop halts the animation without changing state.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	<-s.doneChan
}

// Success stops the spinner and marks it as successful.
func (s *Spinner) Success() {
	s.finish(SpinnerSuccess)
}

// Fail stops the spinner and marks it as failed.
func (s *Spinner) Fail() {
	s.finish(SpinnerFailed)
}

// State returns the current spinner state.
func (s *Spinner) State() SpinnerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Spinner) finish(state SpinnerState) {
	s.Stop()
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.renderFinal()
}

func (s *Spinner) loop() {
	ticker := time.NewTicker(spinnerTick)
	defer ticker.Stop()
	defer close(s.doneChan)

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(spinnerFrames)
			s.mu.Unlock()
			s.render()
		}
	}
}

func (s *Spinner) render() {
	s.mu.Lock()
	defer s.mu.Unlock()

	colorIndex := (s.frame / 2) % len(GradientColors)
	style := lipgloss.NewStyle().Foreground(GradientColors[colorIndex])
	line := fmt.Sprintf("%s %s...", style.Render(spinnerFrames[s.frame]), s.label)

	s.clearLine()
	fmt.Fprint(s.out, line)
	s.lastRendered = line
}

func (s *Spinner) renderFinal() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var symbol string
	var color lipgloss.Color
	switch s.state {
	case SpinnerSuccess:
		symbol, color = SymbolSuccess, ColorSuccess
	case SpinnerFailed:
		symbol, color = SymbolFail, ColorError
	default:
		symbol, color = SymbolPending, ColorMuted
	}

	var elapsed time.Duration
	if !s.startTime.IsZero() {
		elapsed = time.Since(s.startTime)
	}

	s.clearLine()
	fmt.Fprintf(s.out, "%s %s %s\n",
		lipgloss.NewStyle().Foreground(color).Render(symbol),
		s.label,
		lipgloss.NewStyle().Foreground(ColorMuted).Render(formatDuration(elapsed)),
	)
}

// clearLine erases the previous frame. Caller holds s.mu.
func (s *Spinner) clearLine() {
	if s.lastRendered == "" {
		return
	}
	fmt.Fprint(s.out, "\r"+strings.Repeat(" ", lipgloss.Width(s.lastRendered))+"\r")
	s.lastRendered = ""
}

// formatDuration formats a duration for display (e.g., "0.3s", "1.2s").
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%.1fs", secs)
}
