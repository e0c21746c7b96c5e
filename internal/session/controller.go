// Package session implements the fan-side session view state machine: it
// folds pushed session events into an owned Store and selects the view to
// render, running the alert and photo side effects along the way.
package session

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/meetz/fansession/internal/event"
	pkglog "github.com/meetz/fansession/internal/log"
)

// SetupRequiredMessage is the blocking alert shown when the live session is
// entered before camera and microphone are confirmed.
const SetupRequiredMessage = "Camera setup must be completed before entering the meeting."

// SetupGate reports whether camera/microphone setup has completed.
type SetupGate interface {
	SetupDone() bool
}

// Notifier shows a blocking alert to the user.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Photographer captures a frame when the star asks for a photo and sends the
// captured frame when the session switches.
type Photographer interface {
	Capture(ctx context.Context) error
	Send(ctx context.Context) error
}

// Controller is the single writer of a Store.
type Controller struct {
	store  *Store
	gate   SetupGate
	notify Notifier
	photo  Photographer
	logger zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for transition and side-effect logs.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController wires a controller to its store and collaborators.
func NewController(store *Store, gate SetupGate, notifier Notifier, photo Photographer, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		gate:   gate,
		notify: notifier,
		photo:  photo,
		logger: pkglog.L(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the store this controller writes to.
func (c *Controller) Store() *Store {
	return c.store
}

// Dispatch applies ev and returns the resulting view. It runs to completion,
// including the photo side effects, before returning.
func (c *Controller) Dispatch(ctx context.Context, ev event.SessionEvent) View {
	c.store.record(ev.Kind)
	l := c.logger.With().Stringer(pkglog.FieldKind, ev.Kind).Logger()

	var next View
	switch {
	case ev.Kind == event.KindSettingRequired:
		next = ViewSetting

	case ev.Kind.IsCountdown():
		c.store.applyCountdown(ev)
		next = c.enterLive(l)

	case ev.Kind == event.KindPhotoRequested:
		c.store.markPhotoRequested()
		if err := c.photo.Capture(ctx); err != nil {
			l.Warn().Err(err).Msg("photo capture failed")
		}
		return c.store.View()

	case ev.Kind == event.KindSwitching:
		if err := c.photo.Send(ctx); err != nil {
			l.Warn().Err(err).Msg("photo send failed")
		}
		next = ViewSwitching

	default:
		l.Debug().Msg("unhandled event kind, falling back to setting view")
		next = ViewSetting
	}

	c.store.setView(next)
	l.Debug().Stringer(pkglog.FieldView, next).Msg("view resolved")
	return next
}

// enterLive resolves the view for a countdown. Without completed setup the
// live session is blocked and the user is alerted once for this attempt.
func (c *Controller) enterLive(l zerolog.Logger) View {
	if !c.gate.SetupDone() {
		l.Info().Msg("live session blocked until camera setup completes")
		c.notify.Notify(SetupRequiredMessage)
		return ViewLoading
	}
	return ViewLiveSession
}

// Tick counts the local timer down by one second between server pushes.
// The next countdown event overwrites it.
func (c *Controller) Tick() {
	c.store.tick()
}

// Close resets the store to its initial state.
func (c *Controller) Close() {
	c.store.reset()
}
