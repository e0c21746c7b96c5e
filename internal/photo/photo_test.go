package photo

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/meetz/fansession/internal/storage"
)

type memorySink struct {
	puts map[string][]byte
	err  error
}

func (m *memorySink) Name() string { return "memory" }

func (m *memorySink) Put(_ context.Context, name string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.puts == nil {
		m.puts = map[string][]byte{}
	}
	m.puts[name] = data
	return nil
}

type failingSource struct{}

func (failingSource) Frame(context.Context) (image.Image, error) {
	return nil, errors.New("camera busy")
}

func newTestPhotographer(src Source, sink Sink) *Photographer {
	p := New(src, sink, Options{Width: 64, Height: 48, JPEGQuality: 70})
	p.SetLogger(zerolog.Nop())
	p.now = func() time.Time { return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestCaptureThenSend(t *testing.T) {
	sink := &memorySink{}
	p := newTestPhotographer(&PatternSource{}, sink)
	ctx := context.Background()

	if err := p.Capture(ctx); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	pending, ok := p.Pending()
	if !ok {
		t.Fatal("expected pending photo")
	}
	if !strings.HasPrefix(pending.Name(), "20261017-120000-") || !strings.HasSuffix(pending.Name(), ".jpg") {
		t.Errorf("Name = %q", pending.Name())
	}

	img, err := Decode(pending.Data)
	if err != nil {
		t.Fatalf("captured data is not an image: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("size = %dx%d, want 64x48", b.Dx(), b.Dy())
	}

	if err := p.Send(ctx); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sink.puts) != 1 {
		t.Fatalf("puts = %d, want 1", len(sink.puts))
	}
	if _, ok := p.Pending(); ok {
		t.Error("pending should be cleared after send")
	}
	if p.Sent() != 1 {
		t.Errorf("Sent = %d", p.Sent())
	}

	// A second send without a new capture has nothing to deliver.
	if err := p.Send(ctx); !errors.Is(err, ErrNoCapture) {
		t.Errorf("second Send = %v, want ErrNoCapture", err)
	}
}

func TestSendFailureKeepsPending(t *testing.T) {
	sink := &memorySink{err: errors.New("offline")}
	p := newTestPhotographer(&PatternSource{}, sink)
	ctx := context.Background()

	if err := p.Capture(ctx); err != nil {
		t.Fatal(err)
	}
	err := p.Send(ctx)
	if err == nil || !strings.Contains(err.Error(), "memory") {
		t.Fatalf("Send = %v, want wrapped sink error", err)
	}
	if _, ok := p.Pending(); !ok {
		t.Error("failed send should keep the capture pending")
	}

	sink.err = nil
	if err := p.Send(ctx); err != nil {
		t.Errorf("retry Send: %v", err)
	}
}

func TestCaptureSourceError(t *testing.T) {
	p := newTestPhotographer(failingSource{}, &memorySink{})
	if err := p.Capture(context.Background()); err == nil {
		t.Fatal("expected capture error")
	}
	if _, ok := p.Pending(); ok {
		t.Error("failed capture should not leave a pending photo")
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	if err := imaging.Save(imaging.New(200, 100, color.White), path); err != nil {
		t.Fatal(err)
	}
	img, err := FileSource{Path: path}.Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if img.Bounds().Dx() != 200 {
		t.Errorf("width = %d", img.Bounds().Dx())
	}

	if _, err := (FileSource{Path: filepath.Join(t.TempDir(), "none.png")}).Frame(context.Background()); err == nil {
		t.Error("missing file should error")
	}
}

func TestStorageSink(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sink := StorageSink{Storage: st, Prefix: "photos", Label: "local"}
	if sink.Name() != "local" {
		t.Errorf("Name = %q", sink.Name())
	}
	if err := sink.Put(ctx, "a.jpg", []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ok, err := st.Exists(ctx, "photos/a.jpg")
	if err != nil || !ok {
		t.Errorf("Exists = %v, %v", ok, err)
	}
}
