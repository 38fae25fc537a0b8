// Package ui provides the non-dashboard terminal output for rmon: the
// metric table printed by "rmon status", a connect spinner, and the host
// picker shown when no host was given.
//
// # Components
//
//	RenderMetricTable - lipgloss table of metric rows with status colors
//	Spinner           - Animated "Connecting..." line on stderr
//	PickHost          - Bubbles list over ~/.ssh/config aliases
//
// # Color Scheme
//
// Colors are ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - Below the warning threshold
//	ColorWarning   (yellow) - At or above warning
//	ColorError     (red)    - At or above critical, failures
//	ColorMuted     (gray)   - Secondary text, unavailable values
//
// DisableColors switches to monochrome output for --no-color.
package ui
