package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/rmon/pkg/sshutil"
)

// hostItem implements list.Item for an ~/.ssh/config entry.
type hostItem struct {
	entry sshutil.SSHHostEntry
}

func (i hostItem) Title() string       { return i.entry.Alias }
func (i hostItem) Description() string { return i.entry.Description() }

func (i hostItem) FilterValue() string {
	// Allow searching by alias, hostname, and user
	values := []string{i.entry.Alias}
	if i.entry.Hostname != "" {
		values = append(values, i.entry.Hostname)
	}
	if i.entry.User != "" {
		values = append(values, i.entry.User)
	}
	return strings.Join(values, " ")
}

type hostPickerKeyMap struct {
	Enter key.Binding
	Quit  key.Binding
}

var hostPickerKeys = hostPickerKeyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "monitor"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q/esc", "cancel"),
	),
}

// HostPickerModel is a Bubble Tea model for choosing which host to monitor.
type HostPickerModel struct {
	list     list.Model
	selected string
	quitting bool
}

// NewHostPickerModel creates a picker over the given ssh_config entries.
func NewHostPickerModel(entries []sshutil.SSHHostEntry) HostPickerModel {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = hostItem{entry: e}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorPrimary).
		BorderForeground(ColorSecondary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorMuted)

	l := list.New(items, delegate, 80, 15)
	l.Title = "Select a host to monitor"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		Padding(0, 0, 1, 0)
	l.Styles.HelpStyle = lipgloss.NewStyle().Foreground(ColorMuted)

	return HostPickerModel{list: l}
}

// Init implements tea.Model.
func (m HostPickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m HostPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Don't handle keys when filtering
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, hostPickerKeys.Enter):
			if item, ok := m.list.SelectedItem().(hostItem); ok {
				m.selected = item.entry.Alias
			}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, hostPickerKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-1)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m HostPickerModel) View() string {
	if m.quitting {
		return ""
	}
	return m.list.View()
}

// Selected returns the chosen alias, or "" if the picker was cancelled.
func (m HostPickerModel) Selected() string {
	return m.selected
}

// PickHost runs the picker and returns the chosen alias. An empty result
// with a nil error means the user cancelled or there was nothing to pick.
func PickHost(entries []sshutil.SSHHostEntry, input io.Reader, output io.Writer) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	p := tea.NewProgram(
		NewHostPickerModel(entries),
		tea.WithInput(input),
		tea.WithOutput(output),
	)

	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("host picker: %w", err)
	}
	if m, ok := final.(HostPickerModel); ok {
		return m.Selected(), nil
	}
	return "", nil
}
