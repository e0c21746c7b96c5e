package setting

import (
	"strings"
	"testing"
)

func TestViewShowsChecklist(t *testing.T) {
	m := New("notty")
	m.SetWidth(80)

	v := m.View(false, false)
	for _, want := range []string{"Camera", "Microphone", "Waiting for your turn"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(v, "Setup complete") {
		t.Error("incomplete setup reported as complete")
	}

	if v := m.View(true, true); !strings.Contains(v, "Setup complete") {
		t.Error("complete setup not reported")
	}
}

func TestInstructionsRendered(t *testing.T) {
	m := New("notty")
	m.SetWidth(100)
	if !strings.Contains(m.rendered, "Before you meet your star") {
		t.Errorf("rendered instructions = %q", m.rendered)
	}
}
