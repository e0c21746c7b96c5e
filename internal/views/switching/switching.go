// Package switching renders the hand-off screen between two stars.
package switching

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/meetz/fansession/internal/session"
	"github.com/meetz/fansession/internal/theme"
)

// Delivery is the photo outcome of the most recent switch.
type Delivery struct {
	Sent bool
	Err  error // nil when nothing was captured
}

// View renders the hand-off.
func View(a session.Attributes, d Delivery) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorSwitching).Render("Switching...")

	var lines []string
	if a.CurrentParticipantName != "" {
		lines = append(lines, "Thanks for meeting "+a.CurrentParticipantName+"!")
	}
	if a.NextParticipantName != "" {
		lines = append(lines, "Getting "+a.NextParticipantName+" ready for you")
	} else {
		lines = append(lines, "That was your last meeting in this queue")
	}

	switch {
	case d.Err != nil:
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("Photo upload failed: "+d.Err.Error()))
	case d.Sent:
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("Your photo has been sent"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, append([]string{title, ""}, lines...)...)
}
