package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Frame is one dispatched server-sent event.
type Frame struct {
	ID    string
	Event string
	Data  string
	Retry time.Duration
}

// IsMessage reports whether the frame targets the default "message" handler.
func (f Frame) IsMessage() bool {
	return f.Event == "" || f.Event == "message"
}

// maxFrameBytes bounds a single line and the data of a single frame.
const maxFrameBytes = 1 << 20

// ErrFrameTooLarge is returned when a line or frame exceeds the size limit.
var ErrFrameTooLarge = errors.New("event stream frame too large")

// frameReader decodes the text/event-stream format.
type frameReader struct {
	sc     *bufio.Scanner
	limit  int
	lastID string // persists across frames until replaced
}

func newFrameReader(r io.Reader) *frameReader {
	return newFrameReaderLimit(r, maxFrameBytes)
}

func newFrameReaderLimit(r io.Reader, limit int) *frameReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(4096, limit)), limit)
	return &frameReader{sc: sc, limit: limit}
}

// Next returns the next frame with a non-empty data buffer, or a frame that
// only carries a retry hint. Comment lines and data-less blocks are skipped.
// A partially received frame at EOF is discarded.
func (fr *frameReader) Next() (Frame, error) {
	var (
		f       = Frame{ID: fr.lastID}
		data    strings.Builder
		hasData bool
	)
	for {
		if !fr.sc.Scan() {
			err := fr.sc.Err()
			switch {
			case err == nil:
				return Frame{}, io.EOF
			case errors.Is(err, bufio.ErrTooLong):
				return Frame{}, fmt.Errorf("%w: line over %d bytes", ErrFrameTooLarge, fr.limit)
			default:
				return Frame{}, err
			}
		}
		line := fr.sc.Text()

		if line == "" {
			if hasData {
				f.Data = strings.TrimSuffix(data.String(), "\n")
				return f, nil
			}
			if f.Retry > 0 {
				return f, nil
			}
			f = Frame{ID: f.ID}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			if data.Len()+len(value) >= fr.limit {
				return Frame{}, fmt.Errorf("%w: data over %d bytes", ErrFrameTooLarge, fr.limit)
			}
			data.WriteString(value)
			data.WriteByte('\n')
			hasData = true
		case "event":
			f.Event = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				fr.lastID = value
				f.ID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				f.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
}

// sseDialer opens text/event-stream connections over plain HTTP.
type sseDialer struct {
	client *http.Client
}

func (d sseDialer) name() string { return "sse" }

func (d sseDialer) dial(ctx context.Context, url string, header http.Header, heartbeat time.Duration) (stream, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if err := checkStreamResponse(resp); err != nil {
		resp.Body.Close()
		cancel()
		return nil, err
	}

	s := &sseStream{
		body:      resp.Body,
		cancel:    cancel,
		heartbeat: heartbeat,
	}
	s.frames = newFrameReader(&activityReader{r: resp.Body, onRead: s.touch})
	if heartbeat > 0 {
		s.idle = time.AfterFunc(heartbeat, s.expire)
	}
	return s, nil
}

func checkStreamResponse(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, resp.Status)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("stream endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mt != "text/event-stream" {
		return fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	return nil
}

type sseStream struct {
	body      io.ReadCloser
	frames    *frameReader
	cancel    context.CancelFunc
	heartbeat time.Duration
	idle      *time.Timer
	expired   atomic.Bool
}

// touch pushes the idle deadline forward; any bytes count, comments included.
func (s *sseStream) touch() {
	if s.idle != nil {
		s.idle.Reset(s.heartbeat)
	}
}

func (s *sseStream) expire() {
	s.expired.Store(true)
	s.cancel()
}

func (s *sseStream) Next() (Frame, error) {
	f, err := s.frames.Next()
	if err != nil && s.expired.Load() {
		return Frame{}, ErrHeartbeatTimeout
	}
	return f, err
}

func (s *sseStream) Close() error {
	if s.idle != nil {
		s.idle.Stop()
	}
	s.cancel()
	return s.body.Close()
}

// activityReader reports every successful read.
type activityReader struct {
	r      io.Reader
	onRead func()
}

func (a *activityReader) Read(p []byte) (int, error) {
	n, err := a.r.Read(p)
	if n > 0 && a.onRead != nil {
		a.onRead()
	}
	return n, err
}
