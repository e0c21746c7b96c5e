package switching

import (
	"errors"
	"strings"
	"testing"

	"github.com/meetz/fansession/internal/session"
)

func TestView(t *testing.T) {
	tests := []struct {
		name     string
		attrs    session.Attributes
		delivery Delivery
		want     []string
		notWant  []string
	}{
		{
			name:    "next star",
			attrs:   session.Attributes{CurrentParticipantName: "Haerin", NextParticipantName: "Minji"},
			want:    []string{"Thanks for meeting Haerin", "Getting Minji ready"},
			notWant: []string{"photo"},
		},
		{
			name:     "last star with photo",
			attrs:    session.Attributes{CurrentParticipantName: "Hanni", PhotoRequested: true},
			delivery: Delivery{Sent: true},
			want:     []string{"last meeting", "photo has been sent"},
		},
		{
			name:    "requested but nothing delivered",
			attrs:   session.Attributes{CurrentParticipantName: "Hanni", PhotoRequested: true},
			notWant: []string{"has been sent", "failed"},
		},
		{
			name:     "send failed",
			attrs:    session.Attributes{PhotoRequested: true},
			delivery: Delivery{Err: errors.New("503")},
			want:     []string{"Photo upload failed: 503"},
			notWant:  []string{"has been sent"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := View(tt.attrs, tt.delivery)
			for _, w := range tt.want {
				if !strings.Contains(v, w) {
					t.Errorf("view missing %q:\n%s", w, v)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(v, w) {
					t.Errorf("view unexpectedly contains %q", w)
				}
			}
		})
	}
}
