// Package theme provides the Lip Gloss palette and reusable styles for the
// fan session TUI. It is a leaf package with no internal imports.
package theme

import "github.com/charmbracelet/lipgloss"

// View colors.
var (
	ColorSetting   = lipgloss.Color("#7c3aed")
	ColorLoading   = lipgloss.Color("#d97706")
	ColorLive      = lipgloss.Color("#ec4899")
	ColorSwitching = lipgloss.Color("#06b6d4")
	ColorDefault   = lipgloss.Color("#9ca3af")
)

// Connection colors.
var (
	ColorConnected    = lipgloss.Color("#22c55e")
	ColorReconnecting = lipgloss.Color("#d97706")
	ColorOffline      = lipgloss.Color("#dc2626")
)

// Timer bar thresholds.
var (
	ColorTimerHigh = lipgloss.Color("#22c55e") // >50%
	ColorTimerMid  = lipgloss.Color("#d97706") // 20-50%
	ColorTimerLow  = lipgloss.Color("#dc2626") // <20%
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// ViewColor returns the accent color for a view name as produced by
// session.View.String.
func ViewColor(view string) lipgloss.Color {
	switch view {
	case "setting":
		return ColorSetting
	case "loading":
		return ColorLoading
	case "live_session":
		return ColorLive
	case "switching":
		return ColorSwitching
	default:
		return ColorDefault
	}
}

// TimerColor returns the bar color for the remaining fraction of a countdown.
func TimerColor(frac float64) lipgloss.Color {
	switch {
	case frac > 0.5:
		return ColorTimerHigh
	case frac >= 0.2:
		return ColorTimerMid
	default:
		return ColorTimerLow
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleAlert = lipgloss.NewStyle().
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(ColorDanger).
			Padding(1, 3).
			Bold(true)
)

// Check renders a checklist glyph.
func Check(ok bool) string {
	if ok {
		return lipgloss.NewStyle().Foreground(ColorHealthy).Render("✓")
	}
	return lipgloss.NewStyle().Foreground(ColorDanger).Render("✗")
}
