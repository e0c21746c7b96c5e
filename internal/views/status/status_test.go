package status

import (
	"strings"
	"testing"
)

func TestView(t *testing.T) {
	tests := []struct {
		name  string
		model Model
		want  []string
	}{
		{"connecting", Model{}, []string{"Connecting..."}},
		{"connected", Model{State: Connected, Transport: "ws", Mode: "live_session"}, []string{"Connected (ws)", "live_session"}},
		{"reconnecting", Model{State: Reconnecting, Failures: 3}, []string{"Reconnecting (3 failed)"}},
		{"offline", Model{State: Offline, Photos: 2}, []string{"Offline", "2 photo(s) sent"}},
		{"pending upload", Model{State: Connected, Photos: 1, Pending: true}, []string{"1 photo(s) sent", "1 awaiting upload"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.model.Width = 120
			v := tt.model.View()
			for _, w := range tt.want {
				if !strings.Contains(v, w) {
					t.Errorf("status bar missing %q:\n%s", w, v)
				}
			}
		})
	}
}
