package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/rileyhilliard/rmon/internal/config"
	"github.com/rileyhilliard/rmon/internal/monitor/parsers"
)

// Braille character rendering for high-resolution terminal graphs.
//
// Braille patterns use a 2x4 dot matrix per character:
//
//	  Col 0  Col 1
//	Row 0:   ⠁      ⠈     (dots 1, 4)
//	Row 1:   ⠂      ⠐     (dots 2, 5)
//	Row 2:   ⠄      ⠠     (dots 3, 6)
//	Row 3:   ⡀      ⢀     (dots 7, 8)
//
// Unicode braille starts at U+2800 (empty) and uses bit patterns:
// bit 0 = dot 1, bit 1 = dot 2, bit 2 = dot 3, bit 3 = dot 4,
// bit 4 = dot 5, bit 5 = dot 6, bit 6 = dot 7, bit 7 = dot 8

const brailleBase = '\u2800'

// brailleDots maps [row][col] to the bit offset within a braille rune.
var brailleDots = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// lineGraphAxisWidth is the space asciigraph takes for its offset and
// "100 ┤" labels.
const lineGraphAxisWidth = 8

// RenderGraph draws CPU history in the requested style inside a width x height box.
func RenderGraph(style string, data []float64, width, height int, t config.ThresholdValues) string {
	if style == config.GraphLine {
		return RenderLineGraph(data, width, height)
	}
	return RenderBrailleGraph(data, width, height, t)
}

// RenderBrailleGraph plots percentages with braille dots, two points per cell.
// The y axis is fixed at 0-100 and the newest value sits at the right edge.
// Each column is colored by its highest value.
func RenderBrailleGraph(data []float64, width, height int, t config.ThresholdValues) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	totalDots := height * 4
	targetPoints := width * 2

	points := data
	if len(points) > targetPoints {
		points = points[len(points)-targetPoints:]
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = make([]rune, width)
		for j := range grid[i] {
			grid[i][j] = brailleBase
		}
	}

	colMax := make([]float64, width)

	// Right-align when there is less data than display width.
	offset := targetPoints - len(points)

	for i, val := range points {
		val = parsers.ClampPercent(val)
		dotHeight := clampInt(int(val/100*float64(totalDots)+0.5), totalDots)

		charCol := (i + offset) / 2
		subCol := (i + offset) % 2
		if val > colMax[charCol] {
			colMax[charCol] = val
		}

		for dot := 0; dot < dotHeight; dot++ {
			row := height - 1 - dot/4
			subRow := 3 - dot%4
			grid[row][charCol] |= rune(1 << brailleDots[subRow][subCol])
		}
	}

	lines := make([]string, 0, height)
	for _, row := range grid {
		var b strings.Builder
		for col, char := range row {
			style := lipgloss.NewStyle().
				Foreground(MetricColorWithThresholds(colMax[col], t)).
				Background(ColorSurfaceBg)
			b.WriteString(style.Render(string(char)))
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// RenderLineGraph plots percentages as an ASCII line chart with a labelled
// 0-100 axis.
func RenderLineGraph(data []float64, width, height int) string {
	plotWidth := width - lineGraphAxisWidth
	if plotWidth < 2 || height < 2 {
		return ""
	}
	if len(data) == 0 {
		return MutedStyle.Render("waiting for data")
	}

	points := make([]float64, 0, plotWidth)
	if len(data) > plotWidth {
		data = data[len(data)-plotWidth:]
	}
	for _, v := range data {
		points = append(points, parsers.ClampPercent(v))
	}
	if len(points) == 1 {
		points = append(points, points[0])
	}

	// asciigraph draws height+1 rows.
	return asciigraph.Plot(points,
		asciigraph.Height(height-1),
		asciigraph.Width(plotWidth),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(100),
		asciigraph.Precision(0),
		asciigraph.SeriesColors(asciigraph.Aqua),
		asciigraph.LabelColor(asciigraph.Default),
	)
}

// clampInt clamps val to [0, maxVal].
func clampInt(val, maxVal int) int {
	if val < 0 {
		return 0
	}
	if val > maxVal {
		return maxVal
	}
	return val
}
