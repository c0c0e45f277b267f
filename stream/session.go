package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hlsplay/hlsplay/constant"
	"github.com/hlsplay/hlsplay/log"
	"github.com/hlsplay/hlsplay/player"
)

// ErrSuperseded is returned by Start when a newer session has begun.
var ErrSuperseded = errors.New("session superseded")

// Options configure how a Session picks and drives its engine.
type Options struct {
	// PreferNative skips the adaptive engine even when it is available.
	PreferNative bool
	// StartLevel is the initial quality level, -1 for automatic.
	StartLevel int
	Headers    []string
	Fetch      FetchFunc

	// NewHLS and NewNative override engine construction.
	NewHLS    func() Engine
	NewNative func() Engine
}

// Session binds one manifest URL at a time to the element.
// Events from an engine that has been replaced or closed are dropped.
type Session struct {
	el      player.Element
	opts    Options
	handler func(Event)

	mu         sync.Mutex
	engine     Engine
	unsub      func()
	url        string
	generation uint64
	ready      bool
	cancel     context.CancelFunc
}

// NewSession creates a session for el. handler receives every event of the
// current generation and may be called from any goroutine.
func NewSession(el player.Element, opts Options, handler func(Event)) *Session {
	if opts.NewHLS == nil {
		opts.NewHLS = func() Engine { return NewHLSEngine(opts.Fetch, opts.Headers, opts.StartLevel) }
	}
	if opts.NewNative == nil {
		opts.NewNative = func() Engine { return NewNativeEngine() }
	}
	return &Session{el: el, opts: opts, handler: handler}
}

// selectEngine picks the decoding path: the adaptive engine if the surface can
// demux HLS, native playback if it declares the manifest type, nothing otherwise.
func (s *Session) selectEngine() (Engine, error) {
	hls := s.el.SupportsDemuxer("hls")
	native := s.el.CanPlayType(constant.MimeHLS) || s.el.CanPlayType(constant.MimeHLSLegacy)

	switch {
	case hls && !(s.opts.PreferNative && native):
		return s.opts.NewHLS(), nil
	case native:
		return s.opts.NewNative(), nil
	default:
		return nil, ErrUnsupported
	}
}

// Begin tears down the current engine synchronously and returns the generation
// the next Start must use.
func (s *Session) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	s.generation++
	return s.generation
}

// Open is Begin followed by Start.
func (s *Session) Open(ctx context.Context, url string, start float64) (uint64, error) {
	gen := s.Begin()
	return gen, s.Start(ctx, gen, url, start)
}

// Start selects an engine and loads url at start seconds. It blocks while the
// manifest is fetched and fails with ErrSuperseded if another Begin happened
// since gen was issued. Every event of the session is tagged with gen.
func (s *Session) Start(ctx context.Context, gen uint64, url string, start float64) error {
	s.mu.Lock()
	if gen != s.generation || s.engine != nil {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.url = url

	engine, err := s.selectEngine()
	if err != nil {
		s.mu.Unlock()
		e := &Error{Kind: Unsupported, Fatal: true, Err: err}
		s.deliver(gen, Event{Kind: Failed, Err: e})
		return e
	}

	engine.Attach(s.el)
	s.engine = engine
	s.unsub = engine.Subscribe(func(ev Event) { s.onEngine(gen, ev) })

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	log.With(map[string]any{"url": url, "engine": engine.Name(), "generation": gen}).Info("opening stream")

	if err := engine.Load(ctx, url, start); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}

func (s *Session) onEngine(gen uint64, ev Event) {
	if ev.Kind == FragLoaded {
		if !s.promote(gen) {
			return
		}
		ev = Event{Kind: Ready}
	}
	s.deliver(gen, ev)
}

// promote applies the ready gate: the surface must report a finite positive
// duration and at least metadata. It reports whether the session just became ready.
func (s *Session) promote(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.ready {
		return false
	}

	fields := s.el.Fields()
	if !fields.HasValidDuration() || fields.ReadyState < player.HaveMetadata {
		log.Tracef("not ready yet: duration=%v state=%s", fields.Duration, fields.ReadyState)
		return false
	}

	s.ready = true
	return true
}

func (s *Session) deliver(gen uint64, ev Event) {
	s.mu.Lock()
	current := gen == s.generation
	s.mu.Unlock()

	if !current {
		log.Debugf("dropping %s from superseded session %d", ev.Kind, gen)
		return
	}

	ev.Generation = gen
	if s.handler != nil {
		s.handler(ev)
	}
}

// Close destroys the engine and resets the session. Pending events are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	s.generation++
}

func (s *Session) closeLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	if s.engine != nil {
		s.engine.Destroy()
		s.engine = nil
	}
	s.ready = false
	s.url = ""
}

// Generation identifies the current session.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Engine returns the active engine, or nil.
func (s *Session) Engine() Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// SetLevel selects quality level i, -1 for automatic.
func (s *Session) SetLevel(ctx context.Context, i int) error {
	engine := s.Engine()
	if engine == nil {
		return fmt.Errorf("no active stream")
	}
	return engine.SetCurrentLevel(ctx, i)
}

// Recover runs the in-place recovery for kind at position.
func (s *Session) Recover(ctx context.Context, kind ErrorKind, position float64) error {
	recoverer, ok := s.Engine().(Recoverer)
	if !ok {
		return fmt.Errorf("engine cannot recover")
	}

	switch kind {
	case NetworkError:
		return recoverer.RecoverNetwork(ctx, position)
	case MediaError:
		return recoverer.RecoverMedia(ctx, position)
	default:
		return fmt.Errorf("no recovery for %s errors", kind)
	}
}
