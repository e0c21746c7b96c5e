// Package photo captures the commemorative frame a star requests during a
// session and delivers it when the session switches.
package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	pkglog "github.com/meetz/fansession/internal/log"
)

// ErrNoCapture is returned by Send when nothing has been captured since the
// last successful send.
var ErrNoCapture = errors.New("no captured photo to send")

// Source produces raw frames.
type Source interface {
	Frame(ctx context.Context) (image.Image, error)
}

// FileSource reads the frame from an image file on every capture, so an
// external webcam tool can keep refreshing it.
type FileSource struct {
	Path string
}

func (s FileSource) Frame(context.Context) (image.Image, error) {
	img, err := imaging.Open(s.Path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	return img, nil
}

// PatternSource generates a flat placeholder frame, alternating colours per
// capture. Used when no camera source is configured.
type PatternSource struct {
	mu sync.Mutex
	n  int
}

var patternColors = []color.NRGBA{
	{R: 0xa8, G: 0x55, B: 0xf7, A: 0xff},
	{R: 0x06, G: 0xb6, B: 0xd4, A: 0xff},
	{R: 0xf5, G: 0x9e, B: 0x0b, A: 0xff},
}

func (s *PatternSource) Frame(context.Context) (image.Image, error) {
	s.mu.Lock()
	c := patternColors[s.n%len(patternColors)]
	s.n++
	s.mu.Unlock()
	return imaging.New(320, 240, c), nil
}

// Photo is an encoded capture awaiting delivery.
type Photo struct {
	ID      string
	Data    []byte
	TakenAt time.Time
}

// Name is the object name used by sinks.
func (p Photo) Name() string {
	return p.TakenAt.UTC().Format("20060102-150405") + "-" + p.ID + ".jpg"
}

// Options controls frame processing.
type Options struct {
	Width       int
	Height      int
	JPEGQuality int
}

// Photographer holds at most one pending capture.
type Photographer struct {
	source Source
	sink   Sink
	opts   Options
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending *Photo
	sent    int
}

// New creates a Photographer.
func New(source Source, sink Sink, opts Options) *Photographer {
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 85
	}
	return &Photographer{
		source: source,
		sink:   sink,
		opts:   opts,
		logger: pkglog.L(),
		now:    time.Now,
	}
}

// SetLogger replaces the logger.
func (p *Photographer) SetLogger(l zerolog.Logger) {
	p.logger = l
}

// Capture grabs a frame, crops it to the configured size and keeps it as the
// pending photo, replacing any earlier unsent capture.
func (p *Photographer) Capture(ctx context.Context) error {
	img, err := p.source.Frame(ctx)
	if err != nil {
		return err
	}
	if p.opts.Width > 0 && p.opts.Height > 0 {
		img = imaging.Fill(img, p.opts.Width, p.opts.Height, imaging.Center, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.opts.JPEGQuality)); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}

	photo := &Photo{ID: uuid.NewString(), Data: buf.Bytes(), TakenAt: p.now()}
	p.mu.Lock()
	p.pending = photo
	p.mu.Unlock()

	p.logger.Info().Str(pkglog.FieldKey, photo.Name()).Int(pkglog.FieldSize, len(photo.Data)).Msg("photo captured")
	return nil
}

// Send delivers the pending capture to the sink. On failure the capture
// stays pending.
func (p *Photographer) Send(ctx context.Context) error {
	p.mu.Lock()
	photo := p.pending
	p.mu.Unlock()
	if photo == nil {
		return ErrNoCapture
	}

	if err := p.sink.Put(ctx, photo.Name(), photo.Data); err != nil {
		return fmt.Errorf("send photo via %s: %w", p.sink.Name(), err)
	}

	p.mu.Lock()
	if p.pending == photo {
		p.pending = nil
	}
	p.sent++
	p.mu.Unlock()

	p.logger.Info().Str(pkglog.FieldSink, p.sink.Name()).Str(pkglog.FieldKey, photo.Name()).Msg("photo sent")
	return nil
}

// Pending returns the capture awaiting delivery, if any.
func (p *Photographer) Pending() (Photo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return Photo{}, false
	}
	return *p.pending, true
}

// Sent returns the number of photos delivered.
func (p *Photographer) Sent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent
}

// Decode is a helper for receivers of uploaded photos.
func Decode(data []byte) (image.Image, error) {
	return imaging.Decode(bytes.NewReader(data))
}
