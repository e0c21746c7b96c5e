// Package client connects the fan client to the meetz server: the push
// stream listener (server-sent events or WebSocket) and the REST uploader.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/meetz/fansession/internal/event"
	pkglog "github.com/meetz/fansession/internal/log"
)

var (
	// ErrGaveUp is reported once the listener stops resubscribing.
	ErrGaveUp = errors.New("stream resubscription abandoned")
	// ErrUnauthorized is returned when the server rejects the credential.
	ErrUnauthorized = errors.New("stream unauthorized")
	// ErrHeartbeatTimeout is returned when the stream stays silent too long.
	ErrHeartbeatTimeout = errors.New("stream heartbeat timeout")
)

// --- Bubble Tea messages ---

// ConnectedMsg is sent when a stream connection opens.
type ConnectedMsg struct {
	Transport string
	Attempt   int
}

// DisconnectedMsg is sent when a connection attempt fails or an open stream
// ends. The listener retries after Retry.
type DisconnectedMsg struct {
	Err      error
	Failures int
	Retry    time.Duration
}

// EventMsg delivers one decoded session event.
type EventMsg struct {
	Event event.SessionEvent
}

// DecodeErrorMsg reports a dropped payload.
type DecodeErrorMsg struct {
	Err error
	Raw string
}

// GaveUpMsg is sent once when MaxFailures consecutive attempts failed.
type GaveUpMsg struct {
	Err error
}

// ClosedMsg is returned by Next after the listener has stopped.
type ClosedMsg struct{}

// Policy controls reconnection and liveness.
type Policy struct {
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	MaxFailures      int // consecutive failures before giving up; 0 retries forever
	HeartbeatTimeout time.Duration
	Buffer           int
}

// DefaultPolicy mirrors the stream defaults of the config package.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:        time.Second,
		MaxDelay:         30 * time.Second,
		MaxFailures:      10,
		HeartbeatTimeout: 2 * time.Hour,
		Buffer:           64,
	}
}

// stream yields frames from one open connection.
type stream interface {
	Next() (Frame, error)
	Close() error
}

type dialer interface {
	name() string
	dial(ctx context.Context, url string, header http.Header, heartbeat time.Duration) (stream, error)
}

// Listener owns a single push connection at a time and resubscribes with
// exponential backoff when it drops.
type Listener struct {
	url    string
	creds  CredentialProvider
	dialer dialer
	policy Policy
	logger *zerolog.Logger // nil: taken from the Start context
	sleep  func(ctx context.Context, d time.Duration) bool

	lastEventID string
	retry       time.Duration
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithPolicy overrides the reconnection policy.
func WithPolicy(p Policy) ListenerOption {
	return func(l *Listener) { l.policy = p }
}

// WithHTTPClient sets the client used for the SSE transport.
func WithHTTPClient(c *http.Client) ListenerOption {
	return func(l *Listener) {
		if _, ok := l.dialer.(sseDialer); ok {
			l.dialer = sseDialer{client: c}
		}
	}
}

// WithListenerLogger sets the listener logger. Without it the logger
// attached to the Start context is used.
func WithListenerLogger(lg zerolog.Logger) ListenerOption {
	return func(l *Listener) { l.logger = &lg }
}

// NewListener creates a listener for url. ws:// and wss:// URLs use the
// WebSocket transport; anything else is read as text/event-stream.
func NewListener(url string, creds CredentialProvider, opts ...ListenerOption) *Listener {
	l := &Listener{
		url:    url,
		creds:  creds,
		policy: DefaultPolicy(),
		sleep:  sleepCtx,
	}
	if strings.HasPrefix(url, "ws://") || strings.HasPrefix(url, "wss://") {
		l.dialer = wsDialer{dialer: websocket.DefaultDialer}
	} else {
		// No client timeout: the stream is long-lived.
		l.dialer = sseDialer{client: &http.Client{}}
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.policy.Buffer <= 0 {
		l.policy.Buffer = 1
	}
	return l
}

// Start runs the listener until ctx is cancelled or it gives up. Messages are
// delivered in arrival order; the channel is closed when the listener stops.
func (l *Listener) Start(ctx context.Context) <-chan tea.Msg {
	out := make(chan tea.Msg, l.policy.Buffer)
	go l.run(ctx, out)
	return out
}

// Next returns a Bubble Tea command that waits for the next listener message.
// Re-issue it after handling each message.
func Next(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return ClosedMsg{}
		}
		return msg
	}
}

func (l *Listener) run(ctx context.Context, out chan<- tea.Msg) {
	defer close(out)

	base := pkglog.Ctx(ctx)
	if l.logger != nil {
		base = *l.logger
	}
	lg := base.With().Str(pkglog.FieldURL, l.url).Str(pkglog.FieldTransport, l.dialer.name()).Logger()
	failures := 0
	attempt := 0
	delay := l.policy.BaseDelay

	for ctx.Err() == nil {
		attempt++
		err := l.connectOnce(ctx, lg, attempt, out, func() {
			failures = 0
			delay = l.policy.BaseDelay
		})
		if ctx.Err() != nil {
			return
		}

		if l.retry > 0 {
			delay = l.retry
			l.retry = 0
		}

		failures++
		if l.policy.MaxFailures > 0 && failures >= l.policy.MaxFailures {
			gaveUp := fmt.Errorf("%w after %d consecutive failures: %v", ErrGaveUp, failures, err)
			lg.Error().Err(err).Int(pkglog.FieldFailures, failures).Msg("giving up on stream")
			send(ctx, out, GaveUpMsg{Err: gaveUp})
			return
		}

		lg.Info().Int(pkglog.FieldFailures, failures).Dur(pkglog.FieldDelay, delay).Msg("resubscribing")
		if !send(ctx, out, DisconnectedMsg{Err: err, Failures: failures, Retry: delay}) {
			return
		}
		if !l.sleep(ctx, delay) {
			return
		}
		delay = min(delay*2, l.policy.MaxDelay)
	}
}

// connectOnce dials, reads until the stream ends and returns the reason.
// opened is called once the connection is established.
func (l *Listener) connectOnce(ctx context.Context, lg zerolog.Logger, attempt int, out chan<- tea.Msg, opened func()) error {
	token, err := l.creds.Token(ctx)
	if err != nil {
		lg.Warn().Err(err).Msg("no credential for stream")
		return err
	}
	if exp, ok := TokenExpiry(token); ok && time.Now().After(exp) {
		lg.Warn().Time("expired_at", exp).Msg("access token has expired")
	}

	header := http.Header{}
	header.Set("Authorization", bearer(token))
	if l.lastEventID != "" {
		header.Set("Last-Event-ID", l.lastEventID)
	}

	st, err := l.dialer.dial(ctx, l.url, header, l.policy.HeartbeatTimeout)
	if err != nil {
		lg.Warn().Err(err).Int(pkglog.FieldAttempt, attempt).Msg("stream dial failed")
		return err
	}
	defer st.Close()

	opened()
	lg.Info().Int(pkglog.FieldAttempt, attempt).Msg("stream connected")
	if !send(ctx, out, ConnectedMsg{Transport: l.dialer.name(), Attempt: attempt}) {
		return ctx.Err()
	}

	err = l.consume(ctx, lg, st, out)
	switch {
	case ctx.Err() != nil:
	case errors.Is(err, io.EOF):
		lg.Info().Msg("stream closed by server")
	default:
		lg.Warn().Err(err).Msg("stream error")
	}
	return err
}

func (l *Listener) consume(ctx context.Context, lg zerolog.Logger, st stream, out chan<- tea.Msg) error {
	for {
		f, err := st.Next()
		if err != nil {
			return err
		}
		if f.ID != "" {
			l.lastEventID = f.ID
		}
		if f.Retry > 0 {
			l.retry = f.Retry
		}
		if f.Data == "" {
			continue
		}
		if !f.IsMessage() {
			lg.Debug().Str("event", f.Event).Msg("ignoring named event")
			continue
		}

		var msg tea.Msg
		ev, err := event.Decode([]byte(f.Data))
		if err != nil {
			lg.Warn().Err(err).Str("payload", truncate(f.Data, 200)).Msg("dropping malformed event")
			msg = DecodeErrorMsg{Err: err, Raw: f.Data}
		} else {
			ev.ID = f.ID
			if !ev.Kind.Known() {
				lg.Warn().Int(pkglog.FieldKind, int(ev.Kind)).Str(pkglog.FieldEventID, ev.ID).Msg("unknown event kind")
			} else {
				lg.Debug().Stringer(pkglog.FieldKind, ev.Kind).Str(pkglog.FieldEventID, ev.ID).Msg("event received")
			}
			msg = EventMsg{Event: ev}
		}
		if !send(ctx, out, msg) {
			return ctx.Err()
		}
	}
}

func send(ctx context.Context, out chan<- tea.Msg, msg tea.Msg) bool {
	select {
	case out <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
