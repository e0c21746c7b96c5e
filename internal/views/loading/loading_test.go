package loading

import (
	"strings"
	"testing"

	"github.com/meetz/fansession/internal/session"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0:00"},
		{-4, "0:00"},
		{9, "0:09"},
		{60, "1:00"},
		{754, "12:34"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.in); got != tt.want {
			t.Errorf("FormatClock(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestView(t *testing.T) {
	m := New()

	v := m.View(session.Attributes{QueuePosition: 2, CurrentParticipantName: "Minji", TimerSeconds: 90}, false)
	for _, want := range []string{"2 fan(s) ahead", "Now meeting: Minji", "1:30"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}
	if strings.Contains(v, "Finish camera setup") {
		t.Error("unblocked view shows setup warning")
	}

	v = m.View(session.Attributes{}, true)
	if !strings.Contains(v, "You are next") || !strings.Contains(v, "Finish camera setup") {
		t.Errorf("blocked view:\n%s", v)
	}
}
