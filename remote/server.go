// Package remote serves an HTTP control surface for a running player: state
// snapshots, commands, a websocket state stream and prometheus metrics.
//
// Commands are never applied here. They are validated and handed to the event
// loop, which runs them like key presses.
package remote

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/hlsplay/hlsplay/log"
	"github.com/hlsplay/hlsplay/playback"
	"github.com/hlsplay/hlsplay/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
)

type Options struct {
	Addr string

	// Send delivers a command into the event loop.
	Send func(tea.Msg)

	// Gatherer is served on /metrics when set.
	Gatherer prometheus.Gatherer

	// Token, when set, must be presented as a bearer token or a token query
	// parameter on every request.
	Token string
}

// Server is the remote control API. It is also a transport.Observer: every
// observed state is what /state returns and what websocket clients receive.
type Server struct {
	opts     Options
	validate *payloadValidator
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	state   playback.State
	clients map[*client]struct{}
}

func New(opts Options) *Server {
	return &Server{
		opts:     opts,
		validate: newValidator(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		state:   playback.Initial(),
		clients: make(map[*client]struct{}),
	}
}

// commandRequest is the body of POST /commands/{name}. Only the fields the
// command uses are read.
type commandRequest struct {
	Name   string   `json:"-" validate:"required"`
	Time   *float64 `json:"time" validate:"required_if=Name seek,omitempty,gte=0"`
	Offset float64  `json:"offset" validate:"required_if=Name skip"`
	Volume *float64 `json:"volume" validate:"required_if=Name volume,omitempty,gte=0,lte=1"`
	Rate   float64  `json:"rate" validate:"required_if=Name rate,omitempty,gte=0.25,lte=2"`

	// Index defaults to -1: automatic quality, subtitles off.
	Index *int    `json:"index" validate:"omitempty,gte=-1"`
	URL   string  `json:"url" validate:"required_if=Name open,omitempty,url"`
	Start float64 `json:"start" validate:"gte=0"`
}

func (r commandRequest) command() transport.Command {
	cmd := transport.Command{Name: r.Name, Index: lo.FromPtrOr(r.Index, -1), URL: r.URL}

	switch r.Name {
	case transport.CommandSeek:
		cmd.Value = lo.FromPtr(r.Time)
	case transport.CommandSkip:
		cmd.Value = r.Offset
	case transport.CommandVolume:
		cmd.Value = lo.FromPtr(r.Volume)
	case transport.CommandRate:
		cmd.Value = r.Rate
	case transport.CommandOpen:
		cmd.Value = r.Start
	}
	return cmd
}

// Handler returns the router of the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if s.opts.Token != "" {
		r.Use(requireToken(s.opts.Token))
	}

	r.Get("/state", s.getState)
	r.Post("/commands/{name}", s.postCommand)
	r.Get("/ws", s.serveWS)

	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// ListenAndServe serves the API on the configured address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.closeClients()
	}()

	log.Infof("remote control listening on %s", s.opts.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Observe(_ playback.Event, _, next playback.State) {
	s.mu.Lock()
	s.state = next
	hasClients := len(s.clients) > 0
	s.mu.Unlock()

	if hasClients {
		s.broadcast(next)
	}
}

func (s *Server) snapshot() playback.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Server) getState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) postCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, []ValidationError{{Code: "MALFORMED", Message: err.Error()}})
		return
	}
	req.Name = chi.URLParam(r, "name")

	status, body := s.submit(req)
	writeJSON(w, status, body)
}

// submit validates req and forwards it to the event loop.
func (s *Server) submit(req commandRequest) (int, any) {
	if !lo.Contains(transport.CommandNames, req.Name) {
		return http.StatusNotFound, []ValidationError{{Field: "name", Code: "UNKNOWN", Message: "unknown command " + req.Name}}
	}

	if errs, ok := s.validate.Validate(req); !ok {
		return http.StatusBadRequest, errs
	}

	if s.opts.Send == nil {
		return http.StatusServiceUnavailable, []ValidationError{{Code: "UNAVAILABLE", Message: "player is not running"}}
	}

	s.opts.Send(req.command())
	return http.StatusAccepted, map[string]string{"accepted": req.Name}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warnf("encode response: %v", err)
	}
}

// requireToken rejects requests without the token. Browsers cannot set headers
// on a websocket handshake, so the query parameter is accepted too.
func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			given, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				given = r.URL.Query().Get("token")
			}

			if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, []ValidationError{{Code: "UNAUTHORIZED", Message: "missing or wrong token"}})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.With(map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Debug("remote request")
	})
}
