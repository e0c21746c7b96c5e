package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// wsDialer carries the same JSON payloads as WebSocket text frames.
type wsDialer struct {
	dialer *websocket.Dialer
}

func (d wsDialer) name() string { return "ws" }

func (d wsDialer) dial(ctx context.Context, url string, header http.Header, heartbeat time.Duration) (stream, error) {
	dialer := d.dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, errors.Join(ErrUnauthorized, err)
		}
		return nil, err
	}

	conn.SetReadLimit(maxFrameBytes)
	pingCtx, cancel := context.WithCancel(ctx)
	s := &wsStream{conn: conn, heartbeat: heartbeat, cancel: cancel}
	// ReadMessage does not watch ctx; closing the conn unblocks it.
	s.unwatch = context.AfterFunc(ctx, func() { conn.Close() })
	if heartbeat > 0 {
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(heartbeat))
		})
	}
	go s.pingLoop(pingCtx)
	return s, nil
}

type wsStream struct {
	conn      *websocket.Conn
	heartbeat time.Duration
	cancel    context.CancelFunc
	unwatch   func() bool

	writeMu sync.Mutex // serialises ping and close writes
	once    sync.Once
}

func (s *wsStream) Next() (Frame, error) {
	for {
		if s.heartbeat > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.heartbeat))
		}
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return Frame{}, io.EOF
			}
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				return Frame{}, ErrHeartbeatTimeout
			}
			return Frame{}, err
		}
		if mt != websocket.TextMessage {
			continue
		}
		return Frame{Data: string(data)}, nil
	}
}

// pingLoop keeps intermediaries from idling the connection out.
func (s *wsStream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *wsStream) Close() error {
	var err error
	s.once.Do(func() {
		s.unwatch()
		s.cancel()
		s.writeMu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
