package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Status is the health of one table row.
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusCritical
	StatusUnavailable
)

// Symbol returns the leading indicator for a status.
func (s Status) Symbol() string {
	switch s {
	case StatusOK:
		return SymbolSuccess
	case StatusWarning:
		return SymbolWarning
	case StatusCritical:
		return SymbolFail
	default:
		return SymbolPending
	}
}

// Color returns the foreground used for the status symbol and value.
func (s Status) Color() lipgloss.Color {
	switch s {
	case StatusOK:
		return ColorSuccess
	case StatusWarning:
		return ColorWarning
	case StatusCritical:
		return ColorError
	default:
		return ColorMuted
	}
}

// StatusFor maps a percentage to a Status. Negative values are unavailable.
func StatusFor(percent float64, warning, critical int) Status {
	switch {
	case percent < 0:
		return StatusUnavailable
	case percent >= float64(critical):
		return StatusCritical
	case percent >= float64(warning):
		return StatusWarning
	default:
		return StatusOK
	}
}

// MetricRow is one line of the status table.
type MetricRow struct {
	Metric string
	Value  string // e.g. "42.5%"
	Detail string // e.g. "2.0 GiB / 8.0 GiB"
	Status Status
}

// Table column indexes.
const (
	colStatus = iota
	colMetric
	colValue
	colDetail
)

// RenderMetricTable renders rows as a bordered table for CLI output.
func RenderMetricTable(rows []MetricRow) string {
	if len(rows) == 0 {
		return ""
	}

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = []string{r.Status.Symbol(), r.Metric, r.Value, r.Detail}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorMuted)).
		Headers("", "METRIC", "VALUE", "DETAIL").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			style := cellStyle
			if row < 0 || row >= len(rows) {
				return style
			}
			switch col {
			case colStatus, colValue:
				style = style.Foreground(rows[row].Status.Color())
			case colDetail:
				style = style.Foreground(ColorMuted)
			case colMetric:
				style = style.Bold(true)
			}
			return style
		})

	return t.Render()
}
