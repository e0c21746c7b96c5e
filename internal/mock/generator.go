package mock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meetz/fansession/internal/event"
	pkglog "github.com/meetz/fansession/internal/log"
)

// Options shapes the scripted meeting.
type Options struct {
	Stars       []string
	QueueLength int
	LiveSeconds int
	Tick        time.Duration
}

// Step is one scripted push. Hold is the number of ticks before the next
// step is published.
type Step struct {
	Event event.SessionEvent
	Hold  int
}

const (
	settingHold   = 2
	waitingHold   = 3
	switchingHold = 2
)

// Script walks one fan through the whole queue of stars: camera setup,
// waiting countdowns while the queue drains, then for every star a live
// countdown, a photo request halfway through and a hand-off.
func Script(opts Options) []Step {
	live := opts.LiveSeconds
	if live < 2 {
		live = 2
	}
	steps := []Step{{Event: event.Setting(), Hold: settingHold}}
	if len(opts.Stars) == 0 {
		return steps
	}

	first := opts.Stars[0]
	for q := opts.QueueLength; q > 0; q-- {
		steps = append(steps, Step{
			Event: event.Countdown(event.KindWaitingCountdown, q*waitingHold, first, first, "", q),
			Hold:  waitingHold,
		})
	}

	for i, star := range opts.Stars {
		next := ""
		if i+1 < len(opts.Stars) {
			next = opts.Stars[i+1]
		}
		token := "vidu-" + uuid.NewString()
		half := live / 2
		steps = append(steps,
			Step{Event: event.Countdown(event.KindCountdown, live, star, next, token, 0), Hold: half},
			Step{Event: event.PhotoRequested(), Hold: live - half},
			Step{Event: event.Switching(), Hold: switchingHold},
		)
	}
	return steps
}

// Generator plays the script to a Broadcaster, starting over when it ends.
type Generator struct {
	broadcaster *Broadcaster
	opts        Options
	logger      zerolog.Logger
}

func NewGenerator(b *Broadcaster, opts Options) *Generator {
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	return &Generator{
		broadcaster: b,
		opts:        opts,
		logger:      pkglog.L().With().Str("component", "mock-generator").Logger(),
	}
}

// Run publishes steps until ctx is cancelled.
func (g *Generator) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.opts.Tick)
	defer ticker.Stop()

	for {
		for _, step := range Script(g.opts) {
			g.publish(step.Event)
			for i := 0; i < step.Hold; i++ {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (g *Generator) publish(ev event.SessionEvent) {
	l := g.logger.Debug().
		Str(pkglog.FieldKind, ev.Kind.String()).
		Int(pkglog.FieldClients, g.broadcaster.ClientCount())
	if ev.Kind.IsCountdown() {
		l = l.Int(pkglog.FieldTimer, ev.TimerSeconds).Int(pkglog.FieldQueue, ev.QueuePosition)
	}
	l.Msg("publishing session event")
	g.broadcaster.Publish(ev)
}
