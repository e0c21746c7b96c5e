package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrMalformed is returned for payloads that are not a single JSON object.
	ErrMalformed = errors.New("malformed event payload")
	// ErrUnknownField is returned when the payload carries a field the
	// protocol does not define.
	ErrUnknownField = errors.New("unknown event field")
	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing event field")
	// ErrInvalidField is returned for out-of-range values.
	ErrInvalidField = errors.New("invalid event field")
)

// wireEvent mirrors the JSON sent by the server. Pointers distinguish an
// absent field from a zero value.
type wireEvent struct {
	Type            *int    `json:"type"`
	Timer           *int    `json:"timer,omitempty"`
	CurrentStarName *string `json:"currentStarName,omitempty"`
	NextStarName    *string `json:"nextStarName,omitempty"`
	ViduToken       *string `json:"viduToken,omitempty"`
	WaitingNum      *int    `json:"waitingNum,omitempty"`
}

var wireFields = map[string]bool{
	"type":            true,
	"timer":           true,
	"currentStarName": true,
	"nextStarName":    true,
	"viduToken":       true,
	"waitingNum":      true,
}

// Decode parses one payload into a SessionEvent. Unknown fields, a missing
// type, and countdown events lacking any countdown field are rejected.
func Decode(data []byte) (SessionEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return SessionEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return SessionEvent{}, fmt.Errorf("%w: trailing data after object", ErrMalformed)
	}

	var unknown []string
	for name := range fields {
		if !wireFields[name] {
			unknown = append(unknown, strconv.Quote(name))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return SessionEvent{}, fmt.Errorf("%w: %s", ErrUnknownField, strings.Join(unknown, ", "))
	}

	var w wireEvent
	if len(fields) > 0 {
		if err := json.Unmarshal(data, &w); err != nil {
			return SessionEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	if w.Type == nil {
		return SessionEvent{}, fmt.Errorf("%w: type", ErrMissingField)
	}
	ev := SessionEvent{Kind: Kind(*w.Type)}
	if !ev.Kind.IsCountdown() {
		return ev, nil
	}

	var missing []string
	if w.Timer == nil {
		missing = append(missing, "timer")
	}
	if w.CurrentStarName == nil {
		missing = append(missing, "currentStarName")
	}
	if w.NextStarName == nil {
		missing = append(missing, "nextStarName")
	}
	if w.ViduToken == nil {
		missing = append(missing, "viduToken")
	}
	if w.WaitingNum == nil {
		missing = append(missing, "waitingNum")
	}
	if len(missing) > 0 {
		return SessionEvent{}, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	if *w.Timer < 0 {
		return SessionEvent{}, fmt.Errorf("%w: timer %d", ErrInvalidField, *w.Timer)
	}
	if *w.WaitingNum < 0 {
		return SessionEvent{}, fmt.Errorf("%w: waitingNum %d", ErrInvalidField, *w.WaitingNum)
	}

	ev.TimerSeconds = *w.Timer
	ev.CurrentParticipantName = *w.CurrentStarName
	ev.NextParticipantName = *w.NextStarName
	ev.SessionToken = *w.ViduToken
	ev.QueuePosition = *w.WaitingNum
	return ev, nil
}

// Encode produces the wire form of ev. Countdown fields are only written for
// countdown kinds.
func Encode(ev SessionEvent) ([]byte, error) {
	kind := int(ev.Kind)
	w := wireEvent{Type: &kind}
	if ev.Kind.IsCountdown() {
		w.Timer = &ev.TimerSeconds
		w.CurrentStarName = &ev.CurrentParticipantName
		w.NextStarName = &ev.NextParticipantName
		w.ViduToken = &ev.SessionToken
		w.WaitingNum = &ev.QueuePosition
	}
	return json.Marshal(w)
}
