package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/meetz/fansession/internal/event"
)

func testPolicy(maxFailures int) Policy {
	return Policy{
		BaseDelay:        5 * time.Millisecond,
		MaxDelay:         20 * time.Millisecond,
		MaxFailures:      maxFailures,
		HeartbeatTimeout: 5 * time.Second,
		Buffer:           16,
	}
}

func newTestListener(url string, creds CredentialProvider, p Policy) *Listener {
	return NewListener(url, creds, WithPolicy(p), WithListenerLogger(zerolog.Nop()))
}

// collect reads messages until pred returns true or the timeout expires.
func collect(t *testing.T, ch <-chan tea.Msg, pred func([]tea.Msg) bool) []tea.Msg {
	t.Helper()
	var msgs []tea.Msg
	deadline := time.After(5 * time.Second)
	for {
		if pred(msgs) {
			return msgs
		}
		select {
		case msg, ok := <-ch:
			if !ok {
				return msgs
			}
			msgs = append(msgs, msg)
		case <-deadline:
			t.Fatalf("timed out; got %d messages: %#v", len(msgs), msgs)
		}
	}
}

func countEvents(msgs []tea.Msg) int {
	n := 0
	for _, m := range msgs {
		if _, ok := m.(EventMsg); ok {
			n++
		}
	}
	return n
}

func sseHandler(t *testing.T, token string, body func(w http.ResponseWriter, r *http.Request, flush func())) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		flusher.Flush()
		body(w, r, flusher.Flush)
	}
}

func TestListenerDeliversEventsInOrder(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, "tok", func(w http.ResponseWriter, r *http.Request, flush func()) {
		fmt.Fprint(w, "event: connect\ndata: connected\n\n")
		fmt.Fprint(w, ": keepalive\n\n")
		fmt.Fprint(w, "data: {\"type\":0}\n\n")
		fmt.Fprint(w, "data: not json\n\n")
		fmt.Fprint(w, "id: 2\ndata: {\"type\":1,\"timer\":60,\"currentStarName\":\"A\",\"nextStarName\":\"B\",\"viduToken\":\"tok-1\",\"waitingNum\":0}\n\n")
		fmt.Fprint(w, "data: {\"type\":3}\n\n")
		flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := newTestListener(srv.URL, StaticToken("tok"), testPolicy(3)).Start(ctx)

	msgs := collect(t, ch, func(m []tea.Msg) bool { return countEvents(m) >= 3 })

	if _, ok := msgs[0].(ConnectedMsg); !ok {
		t.Fatalf("first message = %#v, want ConnectedMsg", msgs[0])
	}
	var kinds []event.Kind
	decodeErrors := 0
	for _, m := range msgs[1:] {
		switch m := m.(type) {
		case EventMsg:
			kinds = append(kinds, m.Event.Kind)
			if m.Event.Kind == event.KindCountdown {
				if m.Event.ID != "2" || m.Event.SessionToken != "tok-1" {
					t.Errorf("countdown event = %+v", m.Event)
				}
			}
		case DecodeErrorMsg:
			decodeErrors++
			if !errors.Is(m.Err, event.ErrMalformed) || m.Raw != "not json" {
				t.Errorf("decode error = %+v", m)
			}
		default:
			t.Errorf("unexpected message %#v", m)
		}
	}
	want := []event.Kind{event.KindSettingRequired, event.KindCountdown, event.KindPhotoRequested}
	if fmt.Sprint(kinds) != fmt.Sprint(want) {
		t.Errorf("kinds = %v, want %v", kinds, want)
	}
	if decodeErrors != 1 {
		t.Errorf("decode errors = %d, want 1", decodeErrors)
	}
}

func TestListenerReconnectsWithLastEventID(t *testing.T) {
	var conns atomic.Int32
	var mu sync.Mutex
	var lastIDs []string

	srv := httptest.NewServer(sseHandler(t, "tok", func(w http.ResponseWriter, r *http.Request, flush func()) {
		n := conns.Add(1)
		mu.Lock()
		lastIDs = append(lastIDs, r.Header.Get("Last-Event-ID"))
		mu.Unlock()
		fmt.Fprintf(w, "id: %d\ndata: {\"type\":0}\n\n", n)
		flush()
		if n >= 2 {
			<-r.Context().Done()
		}
		// First connection returns, closing the stream.
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := newTestListener(srv.URL, StaticToken("tok"), testPolicy(5)).Start(ctx)

	msgs := collect(t, ch, func(m []tea.Msg) bool { return countEvents(m) >= 2 })

	var disconnected *DisconnectedMsg
	connected := 0
	for _, m := range msgs {
		switch m := m.(type) {
		case ConnectedMsg:
			connected++
		case DisconnectedMsg:
			if disconnected == nil {
				disconnected = &m
			}
		}
	}
	if connected != 2 {
		t.Errorf("connected = %d, want 2", connected)
	}
	if disconnected == nil || !errors.Is(disconnected.Err, io.EOF) || disconnected.Failures != 1 {
		t.Errorf("disconnected = %+v, want EOF with 1 failure", disconnected)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(lastIDs) < 2 || lastIDs[0] != "" || lastIDs[1] != "1" {
		t.Errorf("Last-Event-ID headers = %q, want [\"\" \"1\"]", lastIDs)
	}
}

func TestListenerGivesUpAfterMaxFailures(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	ch := newTestListener(srv.URL, StaticToken("wrong"), testPolicy(3)).Start(context.Background())
	msgs := collect(t, ch, func([]tea.Msg) bool { return false })

	if len(msgs) != 3 {
		t.Fatalf("messages = %#v, want 2 disconnects and 1 give-up", msgs)
	}
	for i, m := range msgs[:2] {
		d, ok := m.(DisconnectedMsg)
		if !ok || !errors.Is(d.Err, ErrUnauthorized) || d.Failures != i+1 {
			t.Errorf("msgs[%d] = %#v", i, m)
		}
	}
	gave, ok := msgs[2].(GaveUpMsg)
	if !ok || !errors.Is(gave.Err, ErrGaveUp) {
		t.Errorf("last message = %#v, want GaveUpMsg", msgs[2])
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestListenerBackoffDoubles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	l := newTestListener(srv.URL, StaticToken("tok"), Policy{
		BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond, MaxFailures: 6, Buffer: 8,
	})
	ch := l.Start(context.Background())
	msgs := collect(t, ch, func([]tea.Msg) bool { return false })

	var delays []time.Duration
	for _, m := range msgs {
		if d, ok := m.(DisconnectedMsg); ok {
			delays = append(delays, d.Retry)
		}
	}
	want := []time.Duration{1, 2, 4, 4, 4}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v", delays)
	}
	for i := range want {
		if delays[i] != want[i]*time.Millisecond {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i]*time.Millisecond)
		}
	}
}

func TestListenerRejectsWrongContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"type":0}`)
	}))
	defer srv.Close()

	ch := newTestListener(srv.URL, StaticToken("tok"), testPolicy(1)).Start(context.Background())
	msgs := collect(t, ch, func([]tea.Msg) bool { return false })
	if len(msgs) != 1 {
		t.Fatalf("msgs = %#v", msgs)
	}
	gave, ok := msgs[0].(GaveUpMsg)
	if !ok || !strings.Contains(gave.Err.Error(), "content type") {
		t.Errorf("msg = %#v", msgs[0])
	}
}

func TestListenerHeartbeatTimeout(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, "tok", func(w http.ResponseWriter, r *http.Request, flush func()) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	p := testPolicy(1)
	p.HeartbeatTimeout = 30 * time.Millisecond
	ch := newTestListener(srv.URL, StaticToken("tok"), p).Start(context.Background())
	msgs := collect(t, ch, func([]tea.Msg) bool { return false })

	gave, ok := msgs[len(msgs)-1].(GaveUpMsg)
	if !ok || !strings.Contains(gave.Err.Error(), ErrHeartbeatTimeout.Error()) {
		t.Errorf("last msg = %#v, want heartbeat give-up", msgs[len(msgs)-1])
	}
}

func TestListenerMissingCredential(t *testing.T) {
	ch := newTestListener("http://127.0.0.1:1/sse", StaticToken(""), testPolicy(1)).Start(context.Background())
	msgs := collect(t, ch, func([]tea.Msg) bool { return false })
	gave, ok := msgs[0].(GaveUpMsg)
	if !ok || !strings.Contains(gave.Err.Error(), ErrNoToken.Error()) {
		t.Errorf("msg = %#v", msgs[0])
	}
}

func TestListenerStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, "tok", func(w http.ResponseWriter, r *http.Request, flush func()) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := newTestListener(srv.URL, StaticToken("tok"), testPolicy(0)).Start(ctx)
	collect(t, ch, func(m []tea.Msg) bool { return len(m) == 1 })
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// Drain anything already buffered.
			for range ch {
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop after cancel")
	}

	if msg := Next(ch)(); msg != (ClosedMsg{}) {
		t.Errorf("Next on closed channel = %#v, want ClosedMsg", msg)
	}
}

func TestListenerWebSocketTransport(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":4}`))
		conn.WriteMessage(websocket.BinaryMessage, []byte{0x01})
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":0,"bogus":1}`))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		conn.ReadMessage()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ch := newTestListener(url, StaticToken("tok"), testPolicy(1)).Start(context.Background())
	msgs := collect(t, ch, func([]tea.Msg) bool { return false })

	if len(msgs) != 4 {
		t.Fatalf("msgs = %#v", msgs)
	}
	if c, ok := msgs[0].(ConnectedMsg); !ok || c.Transport != "ws" {
		t.Errorf("msgs[0] = %#v", msgs[0])
	}
	if e, ok := msgs[1].(EventMsg); !ok || e.Event.Kind != event.KindSwitching {
		t.Errorf("msgs[1] = %#v", msgs[1])
	}
	if d, ok := msgs[2].(DecodeErrorMsg); !ok || !errors.Is(d.Err, event.ErrUnknownField) {
		t.Errorf("msgs[2] = %#v", msgs[2])
	}
	if g, ok := msgs[3].(GaveUpMsg); !ok || !strings.Contains(g.Err.Error(), io.EOF.Error()) {
		t.Errorf("msgs[3] = %#v", msgs[3])
	}
}
