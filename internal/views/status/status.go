package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/meetz/fansession/internal/theme"
)

// ConnState is the stream connection as seen by the status bar.
type ConnState int

const (
	Connecting ConnState = iota
	Connected
	Reconnecting
	Offline
)

// Model holds the status bar state.
type Model struct {
	State     ConnState
	Transport string
	Failures  int
	Mode      string
	Camera    bool
	Mic       bool
	Photos    int
	Pending   bool
	Width     int
}

// New creates a status bar model.
func New() Model {
	return Model{}
}

func (m Model) connString() string {
	switch m.State {
	case Connected:
		label := "● Connected"
		if m.Transport != "" {
			label += " (" + m.Transport + ")"
		}
		return lipgloss.NewStyle().Foreground(theme.ColorConnected).Render(label)
	case Reconnecting:
		return lipgloss.NewStyle().Foreground(theme.ColorReconnecting).
			Render(fmt.Sprintf("◌ Reconnecting (%d failed)", m.Failures))
	case Offline:
		return lipgloss.NewStyle().Foreground(theme.ColorOffline).Render("✗ Offline")
	default:
		return lipgloss.NewStyle().Foreground(theme.ColorDimmed).Render("○ Connecting...")
	}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	parts := []string{m.connString()}
	if m.Mode != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.ViewColor(m.Mode)).Render(m.Mode))
	}
	parts = append(parts,
		"cam "+theme.Check(m.Camera)+"  mic "+theme.Check(m.Mic),
		fmt.Sprintf("%d photo(s) sent", m.Photos),
	)
	if m.Pending {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.ColorReconnecting).Render("1 awaiting upload"))
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(strings.Join(parts, sep))
}
