package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/rileyhilliard/rmon/internal/config"
)

// Frame is everything the renderer needs to draw one screen.
type Frame struct {
	Host    string
	Dialect Dialect
	Sample  Sample

	// History holds CPU percentages, oldest first.
	History []float64

	Stale      bool
	Err        string
	LastUpdate time.Time

	Width  int
	Height int

	Graph        string
	Thresholds   config.ThresholdConfig
	Keys         KeyMap
	ShowFullHelp bool
}

// Minimum terminal size for the full layout. Anything smaller gets the
// one-line summary.
const (
	MinFullWidth  = 40
	MinFullHeight = 14
)

const (
	minGraphHeight = 2
	maxGraphHeight = 12

	// header, blank, cpu borders, memory and disk panels, status, footer
	fixedRows = 1 + 1 + 2 + 3 + 3 + 1 + 1
)

const naText = "n/a"

// RenderFrame draws f. It has no side effects and never panics on small or
// zero sizes.
func RenderFrame(f Frame) string {
	if f.Width < MinFullWidth || f.Height < MinFullHeight {
		return renderSummaryLine(f)
	}

	// Expanded help takes extra rows; the graph gives them up.
	footer := renderFooter(f)
	graphRows := graphHeight(f.Height - (lipgloss.Height(footer) - 1))

	var b strings.Builder
	b.WriteString(renderHeader(f))
	b.WriteString("\n\n")
	b.WriteString(renderCPUPanel(f, graphRows))
	b.WriteString("\n")
	b.WriteString(renderGaugePanel("Memory", f.Sample.MemoryUsedBytes, f.Sample.MemoryTotalBytes,
		f.Sample.MemoryPercent(), f.Thresholds.RAM, f.Width))
	b.WriteString("\n")
	b.WriteString(renderGaugePanel("Disk", f.Sample.DiskUsedBytes, f.Sample.DiskTotalBytes,
		f.Sample.DiskPercent(), f.Thresholds.Disk, f.Width))
	b.WriteString("\n")
	b.WriteString(renderStatusLine(f))
	b.WriteString("\n")
	b.WriteString(footer)
	return b.String()
}

func renderHeader(f Frame) string {
	title := TitleStyle.Render("rmon")

	host := f.Host
	if f.Dialect != "" {
		host = fmt.Sprintf("%s (%s)", f.Host, f.Dialect)
	}

	updated := "waiting for first sample"
	if !f.LastUpdate.IsZero() {
		updated = "updated " + f.LastUpdate.Format("15:04:05")
	}

	line := title + LabelStyle.Render(" | "+host+" | "+updated)
	if f.Stale {
		line += " " + StaleStyle.Render("STALE")
	}

	hint := MutedStyle.Render("(press q to quit)")
	gap := f.Width - 2 - lipgloss.Width(line) - lipgloss.Width(hint)
	if gap >= 1 {
		line += strings.Repeat(" ", gap) + hint
	}
	return HeaderStyle.Render(line)
}

func renderCPUPanel(f Frame, height int) string {
	value := naText
	if f.Sample.HasCPU() {
		value = fmt.Sprintf("%.1f%%", f.Sample.CPUPercent)
	}

	inner := f.Width - 4

	graph := RenderGraph(f.Graph, f.History, inner, height, f.Thresholds.CPU)
	lines := strings.Split(graph, "\n")
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	for len(lines) < height {
		lines = append([]string{""}, lines...)
	}

	var b strings.Builder
	b.WriteString(SectionHeader("CPU", value, f.Width))
	for _, line := range lines {
		b.WriteString("\n")
		b.WriteString(SectionContentLine(truncate(line, inner), f.Width))
	}
	b.WriteString("\n")
	b.WriteString(SectionFooter(f.Width))
	return b.String()
}

func renderGaugePanel(title string, used, total int64, percent float64, t config.ThresholdValues, width int) string {
	value := naText
	bar := EmptyBar(width - 4)

	if used >= 0 && total >= 0 {
		value = fmt.Sprintf("%s / %s", formatBytes(used), formatBytes(total))
		label := fmt.Sprintf(" %5.1f%%", percent)
		bar = ProgressBar(width-4-len(label), percent, t) +
			lipgloss.NewStyle().Foreground(MetricColorWithThresholds(percent, t)).Render(label)
	}

	return SectionHeader(title, value, width) + "\n" +
		SectionContentLine(bar, width) + "\n" +
		SectionFooter(width)
}

func renderStatusLine(f Frame) string {
	if f.Err == "" {
		return ""
	}
	return truncate(ErrorStyle.Render("! "+f.Err), f.Width)
}

func renderFooter(f Frame) string {
	h := help.New()
	h.ShowAll = f.ShowFullHelp
	h.Width = f.Width - 2
	return FooterStyle.Render(h.View(f.Keys))
}

// renderSummaryLine is the tiny-terminal fallback.
func renderSummaryLine(f Frame) string {
	parts := []string{f.Host, "cpu " + percentText(f.Sample.CPUPercent, f.Sample.HasCPU())}
	parts = append(parts, "mem "+percentText(f.Sample.MemoryPercent(), f.Sample.HasMemory()))
	parts = append(parts, "disk "+percentText(f.Sample.DiskPercent(), f.Sample.HasDisk()))
	if f.Stale {
		parts = append(parts, "[stale]")
	}
	line := strings.Join(parts, " ")

	width := f.Width
	if width <= 0 {
		return ""
	}
	return truncate(line, width)
}

func percentText(v float64, ok bool) string {
	if !ok {
		return naText
	}
	return fmt.Sprintf("%.0f%%", v)
}

// graphHeight fits the CPU graph into whatever rows the fixed panels leave.
func graphHeight(termHeight int) int {
	h := termHeight - fixedRows
	if h < minGraphHeight {
		h = minGraphHeight
	}
	if h > maxGraphHeight {
		h = maxGraphHeight
	}
	return h
}

// formatBytes renders a byte count in binary units, e.g. "7.5 GiB".
func formatBytes(n int64) string {
	if n < 0 {
		return naText
	}
	return humanize.IBytes(uint64(n))
}

// truncate cuts s to at most width display cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}
