// Package event defines the session events pushed by the meetz server and
// their strict wire decoding.
package event

import "fmt"

// Kind is the numeric discriminant sent by the server in the "type" field.
type Kind int

const (
	KindSettingRequired  Kind = 0
	KindCountdown        Kind = 1
	KindWaitingCountdown Kind = 2
	KindPhotoRequested   Kind = 3
	KindSwitching        Kind = 4
)

var kindNames = map[Kind]string{
	KindSettingRequired:  "setting_required",
	KindCountdown:        "countdown",
	KindWaitingCountdown: "waiting_countdown",
	KindPhotoRequested:   "photo_requested",
	KindSwitching:        "switching",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// IsCountdown reports whether k carries timer and hand-off fields.
// Only the exact values 1 and 2 qualify.
func (k Kind) IsCountdown() bool {
	return k == KindCountdown || k == KindWaitingCountdown
}

// Known reports whether k is one of the discriminants the client handles.
func (k Kind) Known() bool {
	_, ok := kindNames[k]
	return ok
}

// SessionEvent is one decoded server push. The countdown fields are only
// meaningful when Kind.IsCountdown() is true.
type SessionEvent struct {
	Kind                   Kind
	TimerSeconds           int
	CurrentParticipantName string
	NextParticipantName    string
	SessionToken           string
	QueuePosition          int

	// ID is the transport-level event id, when the stream provides one.
	ID string
}

// Setting returns a SettingRequired event.
func Setting() SessionEvent { return SessionEvent{Kind: KindSettingRequired} }

// PhotoRequested returns a PhotoRequested event.
func PhotoRequested() SessionEvent { return SessionEvent{Kind: KindPhotoRequested} }

// Switching returns a Switching event.
func Switching() SessionEvent { return SessionEvent{Kind: KindSwitching} }

// Countdown builds a countdown event of kind k.
func Countdown(k Kind, timer int, current, next, token string, queue int) SessionEvent {
	return SessionEvent{
		Kind:                   k,
		TimerSeconds:           timer,
		CurrentParticipantName: current,
		NextParticipantName:    next,
		SessionToken:           token,
		QueuePosition:          queue,
	}
}
