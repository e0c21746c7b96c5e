package session

import (
	"encoding/json"
	"sync"

	"github.com/meetz/fansession/internal/event"
)

// View is the coarse UI mode selected by the controller.
type View int

const (
	ViewSetting View = iota
	ViewLoading
	ViewLiveSession
	ViewSwitching
)

var viewNames = map[View]string{
	ViewSetting:     "setting",
	ViewLoading:     "loading",
	ViewLiveSession: "live_session",
	ViewSwitching:   "switching",
}

var viewFromName = map[string]View{
	"setting":      ViewSetting,
	"loading":      ViewLoading,
	"live_session": ViewLiveSession,
	"switching":    ViewSwitching,
}

func (v View) String() string {
	if s, ok := viewNames[v]; ok {
		return s
	}
	return "unknown"
}

func (v View) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *View) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if parsed, ok := viewFromName[s]; ok {
		*v = parsed
	}
	return nil
}

// Attributes is the latest known session information. Countdown events
// overwrite every countdown field at once; nothing is merged.
type Attributes struct {
	TimerSeconds           int    `json:"timerSeconds"`
	CurrentParticipantName string `json:"currentParticipantName"`
	NextParticipantName    string `json:"nextParticipantName"`
	SessionToken           string `json:"sessionToken"`
	QueuePosition          int    `json:"queuePosition"`
	PhotoRequested         bool   `json:"photoRequested"`
}

// Snapshot is a consistent copy of the store.
type Snapshot struct {
	View       View       `json:"view"`
	Attributes Attributes `json:"attributes"`
	LastKind   event.Kind `json:"lastKind"`
	Dispatched uint64     `json:"dispatched"`
}

// Store holds the controller-owned session state. Only the Controller in
// this package writes to it; any number of readers may take snapshots.
type Store struct {
	mu         sync.RWMutex
	view       View
	attrs      Attributes
	lastKind   event.Kind
	dispatched uint64
}

// NewStore returns a store in the initial Setting view with zero attributes.
func NewStore() *Store {
	return &Store{view: ViewSetting}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		View:       s.view,
		Attributes: s.attrs,
		LastKind:   s.lastKind,
		Dispatched: s.dispatched,
	}
}

// View returns the current view.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Attributes returns a copy of the current attributes.
func (s *Store) Attributes() Attributes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attrs
}

func (s *Store) record(kind event.Kind) {
	s.mu.Lock()
	s.lastKind = kind
	s.dispatched++
	s.mu.Unlock()
}

func (s *Store) applyCountdown(ev event.SessionEvent) {
	s.mu.Lock()
	s.attrs.TimerSeconds = ev.TimerSeconds
	s.attrs.CurrentParticipantName = ev.CurrentParticipantName
	s.attrs.NextParticipantName = ev.NextParticipantName
	s.attrs.SessionToken = ev.SessionToken
	s.attrs.QueuePosition = ev.QueuePosition
	s.mu.Unlock()
}

func (s *Store) markPhotoRequested() {
	s.mu.Lock()
	s.attrs.PhotoRequested = true
	s.mu.Unlock()
}

func (s *Store) setView(v View) {
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
}

func (s *Store) tick() {
	s.mu.Lock()
	if s.attrs.TimerSeconds > 0 {
		s.attrs.TimerSeconds--
	}
	s.mu.Unlock()
}

func (s *Store) reset() {
	s.mu.Lock()
	s.view = ViewSetting
	s.attrs = Attributes{}
	s.lastKind = event.KindSettingRequired
	s.dispatched = 0
	s.mu.Unlock()
}
