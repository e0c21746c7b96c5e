package session

import "sync/atomic"

// Setup tracks the fan's camera and microphone confirmation. It is written
// by the setting view and read by the controller.
type Setup struct {
	camera     atomic.Bool
	microphone atomic.Bool
}

// NewSetup returns a Setup; done pre-confirms both devices.
func NewSetup(done bool) *Setup {
	s := &Setup{}
	s.camera.Store(done)
	s.microphone.Store(done)
	return s
}

func (s *Setup) ToggleCamera() bool {
	for {
		old := s.camera.Load()
		if s.camera.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

func (s *Setup) ToggleMicrophone() bool {
	for {
		old := s.microphone.Load()
		if s.microphone.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

func (s *Setup) Camera() bool     { return s.camera.Load() }
func (s *Setup) Microphone() bool { return s.microphone.Load() }

// SetupDone implements SetupGate.
func (s *Setup) SetupDone() bool {
	return s.camera.Load() && s.microphone.Load()
}
