// Package loading renders the waiting room shown before the fan goes live.
package loading

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/meetz/fansession/internal/session"
	"github.com/meetz/fansession/internal/theme"
)

type Model struct {
	spinner spinner.Model
}

func New() Model {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorLoading)
	return Model{spinner: s}
}

// Tick starts the spinner animation.
func (m Model) Tick() tea.Msg {
	return m.spinner.Tick()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View renders the queue state. blocked is set when the controller held the
// fan back because setup is incomplete.
func (m Model) View(a session.Attributes, blocked bool) string {
	title := theme.StyleHeader.Render(m.spinner.View() + " Waiting room")

	var lines []string
	switch {
	case a.QueuePosition > 0:
		lines = append(lines, fmt.Sprintf("%d fan(s) ahead of you", a.QueuePosition))
	default:
		lines = append(lines, "You are next")
	}
	if a.CurrentParticipantName != "" {
		lines = append(lines, "Now meeting: "+a.CurrentParticipantName)
	}
	if a.TimerSeconds > 0 {
		lines = append(lines, "About "+FormatClock(a.TimerSeconds)+" left")
	}
	if blocked {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorDanger).
			Render("Finish camera setup (c / m) to enter the meeting"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, append([]string{title, ""}, lines...)...)
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
