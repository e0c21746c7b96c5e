// Package setting renders the camera setup screen.
package setting

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/meetz/fansession/internal/theme"
)

const instructions = `# Before you meet your star

Your meeting starts as soon as it is your turn in the queue. Check your
devices first:

1. Allow camera access and look straight at the lens.
2. Allow microphone access and say something.
3. Keep this window open; you will be moved to the waiting room automatically.

Press **c** to confirm the camera and **m** to confirm the microphone.
`

// Model caches the rendered instructions for the current width.
type Model struct {
	style    string
	width    int
	rendered string
}

// New creates a setting view. style is a glamour standard style name such
// as "dark", "light" or "notty".
func New(style string) Model {
	if style == "" {
		style = "dark"
	}
	return Model{style: style}
}

// SetWidth re-renders the instructions when the width changes.
func (m *Model) SetWidth(width int) {
	if width == m.width && m.rendered != "" {
		return
	}
	m.width = width
	m.rendered = render(m.style, width)
}

func render(style string, width int) string {
	wrap := width - 4
	if wrap < 40 {
		wrap = 40
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return instructions
	}
	out, err := r.Render(instructions)
	if err != nil {
		return instructions
	}
	return strings.TrimRight(out, "\n")
}

// View renders the instructions and the device checklist.
func (m Model) View(camera, mic bool) string {
	body := m.rendered
	if body == "" {
		body = render(m.style, m.width)
	}

	checklist := lipgloss.JoinVertical(lipgloss.Left,
		theme.Check(camera)+" Camera",
		theme.Check(mic)+" Microphone",
	)

	status := theme.StyleDimmed.Render("Waiting for your turn...")
	if camera && mic {
		status = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("Setup complete. Waiting for your turn...")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		"",
		theme.StyleBorder.Padding(0, 2).Render(checklist),
		"",
		status,
	)
}
