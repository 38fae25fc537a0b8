// Package monitor implements the live terminal dashboard for one remote host.
//
// The dashboard shows CPU, memory and disk usage sampled over a single SSH
// session, with a scrolling CPU history graph.
//
// # Architecture
//
// The package uses the Bubble Tea framework, which follows The Elm Architecture
// (Model-Update-View pattern):
//
//   - Model: latest sample, CPU history, stale flag and run state
//   - Update: processes keystrokes, ticks, sample results and resizes
//   - View: hands a Frame snapshot to the pure RenderFrame
//
// # Key Components
//
//	Dashboard  - Connects, runs the Bubble Tea program, closes the session
//	Model      - The Bubble Tea model
//	Sampler    - Runs the per-dialect inspection commands and parses them
//	History    - Fixed-capacity ring of CPU percentages
//	RenderFrame - Draws one screen from a Frame
//
// # Message Flow
//
//  1. tickMsg fires every interval (the first one immediately)
//  2. startSample issues Sampler.Sample as a tea.Cmd unless one is pending;
//     a tick that finds a sample in flight is skipped and counted
//  3. sampleMsg arrives; success pushes CPU into History, any failure keeps
//     the last good sample on screen and marks it stale
//  4. View re-renders
//
// Only one remote command runs at a time, so the SSH session is never used
// concurrently.
//
// # Keyboard Shortcuts
//
//	q, Ctrl+C   - Quit
//	r           - Sample now
//	?           - Toggle full help
package monitor
