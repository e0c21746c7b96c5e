// Package debug keeps a bounded log of stream and controller activity and
// renders it as an overlay.
package debug

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/meetz/fansession/internal/theme"
)

// DefaultLimit bounds the number of retained entries.
const DefaultLimit = 200

// Kind tags an entry with its origin.
type Kind string

const (
	KindConn   Kind = "conn"
	KindEvent  Kind = "evt"
	KindDecode Kind = "bad"
	KindView   Kind = "view"
	KindPhoto  Kind = "foto"
	KindAlert  Kind = "alrt"
)

type Entry struct {
	Time    time.Time
	Kind    Kind
	Message string
}

// Model holds the log and its scroll position, counted in lines from the
// newest entry.
type Model struct {
	entries []Entry
	limit   int
	offset  int
	now     func() time.Time
}

func New() Model {
	return Model{limit: DefaultLimit, now: time.Now}
}

// Addf appends a formatted entry, dropping the oldest beyond the limit, and
// scrolls back to the newest entry.
func (m *Model) Addf(kind Kind, format string, args ...any) {
	if m.now == nil {
		m.now = time.Now
	}
	if m.limit <= 0 {
		m.limit = DefaultLimit
	}
	m.entries = append(m.entries, Entry{Time: m.now(), Kind: kind, Message: fmt.Sprintf(format, args...)})
	if over := len(m.entries) - m.limit; over > 0 {
		m.entries = append(m.entries[:0:0], m.entries[over:]...)
	}
	m.offset = 0
}

func (m Model) Entries() []Entry { return m.entries }

func (m Model) Offset() int { return m.offset }

func (m *Model) ScrollUp(n int) {
	m.offset = min(m.offset+n, max(len(m.entries)-1, 0))
}

func (m *Model) ScrollDown(n int) {
	m.offset = max(m.offset-n, 0)
}

func kindColor(k Kind) lipgloss.Color {
	switch k {
	case KindConn:
		return theme.ColorConnected
	case KindEvent:
		return theme.ColorLive
	case KindDecode, KindAlert:
		return theme.ColorDanger
	case KindView:
		return theme.ColorSetting
	case KindPhoto:
		return theme.ColorSwitching
	default:
		return theme.ColorDimmed
	}
}

// View renders the overlay within width x height cells.
func (m Model) View(width, height int) string {
	innerW := max(width-4, 20)
	rows := max(height-6, 3)

	panel := lipgloss.NewStyle().
		Width(innerW).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder)

	title := theme.StyleHeader.Render(" STREAM LOG ")
	help := theme.StyleDimmed.Render(fmt.Sprintf("j/k:scroll  d:close  %d entries", len(m.entries)))

	if len(m.entries) == 0 {
		body := theme.StyleDimmed.Render("  Nothing received yet.")
		return panel.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", help))
	}

	end := len(m.entries) - m.offset
	start := max(end-rows, 0)

	lines := make([]string, 0, end-start)
	for _, e := range m.entries[start:end] {
		msg := e.Message
		if limit := innerW - 20; limit > 3 && len(msg) > limit {
			msg = msg[:limit-3] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			theme.StyleDimmed.Render(e.Time.Format("15:04:05.000")),
			lipgloss.NewStyle().Foreground(kindColor(e.Kind)).Width(4).Render(string(e.Kind)),
			msg))
	}

	more := ""
	if m.offset > 0 {
		more = theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d newer", m.offset))
	}
	return panel.Render(lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n"), more, help))
}
