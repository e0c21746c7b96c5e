// Package live renders the meeting screen: who the fan is talking to, how
// long is left and whether a photo has been requested.
package live

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/meetz/fansession/internal/session"
	"github.com/meetz/fansession/internal/theme"
	"github.com/meetz/fansession/internal/views/loading"
)

const fps = 30

// FrameMsg advances the timer bar animation by one frame.
type FrameMsg struct{}

// Model animates the remaining-time bar toward the server timer with a
// critically damped spring.
type Model struct {
	bar    progress.Model
	spring harmonica.Spring

	pos, vel float64
	target   float64

	total int
	token string

	running bool // a FrameMsg chain is in flight
}

func New() Model {
	return Model{
		bar:    progress.New(progress.WithSolidFill(string(theme.ColorTimerHigh)), progress.WithoutPercentage(), progress.WithWidth(40)),
		spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
		pos:    1,
		target: 1,
	}
}

// SetWidth sizes the bar for the terminal width.
func (m *Model) SetWidth(width int) {
	m.bar.Width = max(width-24, 10)
}

// Sync points the bar at the current attributes. A new session token or a
// timer above the known total starts a new meeting.
func (m *Model) Sync(a session.Attributes) {
	if a.SessionToken != m.token || a.TimerSeconds > m.total {
		m.token = a.SessionToken
		m.total = a.TimerSeconds
		m.pos, m.vel = 1, 0
	}
	if m.total > 0 {
		m.target = float64(a.TimerSeconds) / float64(m.total)
	} else {
		m.target = 0
	}
}

// Animating reports whether the bar has not settled on its target yet.
func (m Model) Animating() bool {
	return math.Abs(m.pos-m.target) > 0.001 || math.Abs(m.vel) > 0.001
}

func frame() tea.Cmd {
	return tea.Tick(time.Second/fps, func(time.Time) tea.Msg { return FrameMsg{} })
}

// Animate starts the frame chain if the bar has somewhere to go and no chain
// is already running.
func (m *Model) Animate() tea.Cmd {
	if m.running || !m.Animating() {
		return nil
	}
	m.running = true
	return frame()
}

// Update steps the spring on FrameMsg and keeps animating until settled.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(FrameMsg); !ok {
		return m, nil
	}
	m.pos, m.vel = m.spring.Update(m.pos, m.vel, m.target)
	if !m.Animating() {
		m.pos, m.vel = m.target, 0
		m.running = false
		return m, nil
	}
	m.running = true
	return m, frame()
}

// Fraction is the currently drawn bar fill.
func (m Model) Fraction() float64 {
	return math.Max(0, math.Min(1, m.pos))
}

func (m Model) View(a session.Attributes) string {
	star := a.CurrentParticipantName
	if star == "" {
		star = "your star"
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorLive).Render("LIVE with " + star)

	m.bar.FullColor = string(theme.TimerColor(m.target))
	timer := fmt.Sprintf("%s %s", m.bar.ViewAs(m.Fraction()), loading.FormatClock(a.TimerSeconds))

	lines := []string{title, "", timer}
	if a.NextParticipantName != "" {
		lines = append(lines, theme.StyleDimmed.Render("Up next: "+a.NextParticipantName))
	}
	if a.SessionToken != "" {
		lines = append(lines, theme.StyleDimmed.Render("Video session: "+shortToken(a.SessionToken)))
	}
	if a.PhotoRequested {
		lines = append(lines, "", lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWarning).Render("📸 Smile! A photo was taken"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func shortToken(tok string) string {
	if len(tok) <= 16 {
		return tok
	}
	return tok[:13] + "..."
}
