package app

import (
	"context"
	"errors"
	"sync"

	"github.com/meetz/fansession/internal/photo"
	"github.com/meetz/fansession/internal/session"
	"github.com/meetz/fansession/internal/views/switching"
)

// deliveryStats is implemented by *photo.Photographer.
type deliveryStats interface {
	Sent() int
	Pending() (photo.Photo, bool)
}

var _ deliveryStats = (*photo.Photographer)(nil)

// photoTracker records the outcome of the latest switch for the switching
// screen. Counts come from the wrapped photographer.
type photoTracker struct {
	inner session.Photographer

	mu   sync.Mutex
	last switching.Delivery
}

func (t *photoTracker) Capture(ctx context.Context) error {
	return t.inner.Capture(ctx)
}

func (t *photoTracker) Send(ctx context.Context) error {
	err := t.inner.Send(ctx)
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case err == nil:
		t.last = switching.Delivery{Sent: true}
	case errors.Is(err, photo.ErrNoCapture):
		t.last = switching.Delivery{}
	default:
		t.last = switching.Delivery{Err: err}
	}
	return err
}

func (t *photoTracker) lastDelivery() switching.Delivery {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// counts reports delivered photos and whether a capture awaits delivery.
func (t *photoTracker) counts() (sent int, pending bool) {
	ds, ok := t.inner.(deliveryStats)
	if !ok {
		return 0, false
	}
	_, pending = ds.Pending()
	return ds.Sent(), pending
}

// alertQueue collects blocking alerts raised by the controller during
// Dispatch. It is only touched from the Bubble Tea update loop. A message
// equal to the one already waiting is shown once.
type alertQueue struct {
	pending []string
	raised  int
}

func (q *alertQueue) Notify(message string) {
	q.raised++
	if n := len(q.pending); n > 0 && q.pending[n-1] == message {
		return
	}
	q.pending = append(q.pending, message)
}

func (q *alertQueue) current() (string, bool) {
	if len(q.pending) == 0 {
		return "", false
	}
	return q.pending[0], true
}

func (q *alertQueue) dismiss() {
	if len(q.pending) > 0 {
		q.pending = q.pending[1:]
	}
}
