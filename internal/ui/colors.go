package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Semantic colors for status indication. ANSI codes keep them readable on
// 16-color terminals.
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// GradientColors cycles through the spinner frames.
var GradientColors = []lipgloss.Color{
	"#FF00FF",
	"#BF00FF",
	"#00FFFF",
	"#39FF14",
}

// DisableColors switches lipgloss to plain ASCII output for --no-color.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

