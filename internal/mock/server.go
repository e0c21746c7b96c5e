// Package mock serves a scripted meeting so the fan client can be run
// without the real meetz backend.
package mock

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	pkglog "github.com/meetz/fansession/internal/log"
	"github.com/meetz/fansession/internal/photo"
	"github.com/meetz/fansession/internal/storage"
)

const (
	maxPhotoBytes = 10 << 20
	photoPrefix   = "uploads/"
)

type Server struct {
	broadcaster *Broadcaster
	photos      storage.Storage
	authToken   string
	heartbeat   time.Duration
	logger      zerolog.Logger
	upgrader    websocket.Upgrader
}

type ServerOption func(*Server)

// WithHeartbeat sets the interval of SSE comment lines and WebSocket pings.
func WithHeartbeat(d time.Duration) ServerOption {
	return func(s *Server) { s.heartbeat = d }
}

func WithServerLogger(l zerolog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer returns a server that streams events from b. An empty token
// disables authentication.
func NewServer(b *Broadcaster, photos storage.Storage, token string, opts ...ServerOption) *Server {
	s := &Server{
		broadcaster: b,
		photos:      photos,
		authToken:   token,
		heartbeat:   15 * time.Second,
		logger:      pkglog.L(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sessions/sse", s.handleSSE)
	mux.HandleFunc("GET /api/sessions/ws", s.handleWS)
	mux.HandleFunc("POST /api/sessions/photo", s.handlePhoto)
	mux.HandleFunc("GET /api/sessions/photos", s.handlePhotos)
	mux.HandleFunc("GET /api/sessions/photos/{name}", s.handlePhotoDownload)
	mux.HandleFunc("GET /api/sessions/current", s.handleCurrent)
	return pkglog.HTTPMiddleware(s.logger)(mux)
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	if r.URL.Query().Get("token") == s.authToken {
		return true
	}
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	lg := pkglog.Ctx(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Named event; the fan client only handles unnamed messages.
	fmt.Fprint(w, "event: connect\ndata: connected\n\n")
	flusher.Flush()

	c := s.broadcaster.AddClient()
	defer s.broadcaster.RemoveClient(c)
	lg.Info().Str(pkglog.FieldEventID, r.Header.Get("Last-Event-ID")).Msg("sse client connected")

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			lg.Info().Msg("sse client disconnected")
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-c.Messages():
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "id: %s\ndata: %s\n\n", msg.ID, msg.Data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	lg := pkglog.Ctx(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		lg.Warn().Err(err).Msg("ws upgrade error")
		return
	}
	lg.Info().Msg("ws client connected")

	c := s.broadcaster.AddClient()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(s.heartbeat)
	defer func() {
		heartbeat.Stop()
		s.broadcaster.RemoveClient(c)
		conn.Close()
		lg.Info().Msg("ws client disconnected")
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case <-heartbeat.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case msg, ok := <-c.Messages():
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg.Data); err != nil {
				return
			}
		}
	}
}

func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	lg := pkglog.Ctx(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "missing image field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "read image", http.StatusBadRequest)
		return
	}
	if _, err := photo.Decode(data); err != nil {
		http.Error(w, "not an image", http.StatusUnsupportedMediaType)
		return
	}

	name := path.Base(header.Filename)
	if name == "." || name == ".." || name == "/" || name == "" {
		name = uuid.NewString() + ".jpg"
	}
	key := photoPrefix + name
	exists, err := s.photos.Exists(r.Context(), key)
	if err != nil {
		lg.Error().Err(err).Str(pkglog.FieldKey, key).Msg("check photo")
		http.Error(w, "store photo", http.StatusInternalServerError)
		return
	}
	if exists {
		key = photoPrefix + uuid.NewString() + "-" + name
	}
	if err := s.photos.Write(r.Context(), key, bytes.NewReader(data), int64(len(data)), "image/jpeg"); err != nil {
		lg.Error().Err(err).Str(pkglog.FieldKey, key).Msg("store photo")
		http.Error(w, "store photo", http.StatusInternalServerError)
		return
	}
	lg.Info().Str(pkglog.FieldKey, key).Int(pkglog.FieldSize, len(data)).Msg("photo stored")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"key": key})
}

type photoEntry struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

func (s *Server) handlePhotos(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	files, err := s.photos.List(r.Context(), photoPrefix)
	if err != nil {
		logger := pkglog.Ctx(r.Context())
		logger.Error().Err(err).Msg("list photos")
		http.Error(w, "list photos", http.StatusInternalServerError)
		return
	}
	out := make([]photoEntry, 0, len(files))
	for _, f := range files {
		out = append(out, photoEntry{Key: f.Key, Size: f.Size, LastModified: f.LastModified})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) handlePhotoDownload(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	key := photoPrefix + path.Base(r.PathValue("name"))
	rc, err := s.photos.Read(r.Context(), key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		logger := pkglog.Ctx(r.Context())
		logger.Error().Err(err).Str(pkglog.FieldKey, key).Msg("read photo")
		http.Error(w, "read photo", http.StatusInternalServerError)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "image/jpeg")
	io.Copy(w, rc)
}

// handleCurrent returns the last published event, or 204 before the first.
func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	msg, ok := s.broadcaster.Last()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Last-Event-ID", msg.ID)
	w.Write(msg.Data)
}
