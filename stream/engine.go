// Package stream binds a manifest URL to the media element through an engine:
// the adaptive HLS engine when the surface can demux HLS, or plain native playback.
package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hlsplay/hlsplay/log"
	"github.com/hlsplay/hlsplay/network"
	"github.com/hlsplay/hlsplay/player"
)

// ErrUnsupported is returned when no decoding path can play the manifest.
var ErrUnsupported = errors.New("unsupported format")

// ErrorKind is the coarse class of a stream error.
type ErrorKind int

const (
	NoError ErrorKind = iota
	Unsupported
	NetworkError
	MediaError
	OtherFatal
)

func (k ErrorKind) String() string {
	switch k {
	case NoError:
		return "none"
	case Unsupported:
		return "unsupported"
	case NetworkError:
		return "network"
	case MediaError:
		return "media"
	case OtherFatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Error is a classified stream error.
type Error struct {
	Kind  ErrorKind
	Fatal bool
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// EventKind identifies a stream event.
type EventKind int

const (
	// ManifestParsed carries the manifest and the level the engine starts on.
	ManifestParsed EventKind = iota
	// FragLoaded fires whenever new media data has reached the surface.
	FragLoaded
	// LevelSwitched carries the level now being played.
	LevelSwitched
	// Ready is emitted by a Session once duration and ready state are both usable.
	Ready
	// Failed carries an *Error.
	Failed
)

func (k EventKind) String() string {
	switch k {
	case ManifestParsed:
		return "manifestparsed"
	case FragLoaded:
		return "fragloaded"
	case LevelSwitched:
		return "levelswitched"
	case Ready:
		return "ready"
	case Failed:
		return "error"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a notification from an engine or session.
type Event struct {
	Kind EventKind
	// Generation identifies the session that produced the event.
	Generation uint64

	Manifest   *Manifest
	FirstLevel int
	// Auto is set on ManifestParsed when the surface picks levels itself.
	Auto  bool
	Level int
	Err   *Error
}

// Engine is the narrow interface over a decoding path.
type Engine interface {
	Name() string
	// Attach binds the engine to the surface and starts listening to it.
	Attach(el player.Element)
	// Load fetches and starts url at start seconds. Failures are also emitted as events.
	Load(ctx context.Context, url string, start float64) error
	// Destroy releases every subscription. No event is emitted afterwards.
	Destroy()
	CurrentLevel() int
	// SetCurrentLevel selects level i, or automatic selection for -1.
	SetCurrentLevel(ctx context.Context, i int) error
	Subscribe(fn func(Event)) (unsubscribe func())
}

// Recoverer is implemented by engines that can recover from fatal errors in place.
type Recoverer interface {
	RecoverNetwork(ctx context.Context, position float64) error
	RecoverMedia(ctx context.Context, position float64) error
}

// base holds what both engines share: the element subscription and the event hub.
type base struct {
	mu        sync.Mutex
	el        player.Element
	url       string
	unsubEl   func()
	subs      map[int]func(Event)
	nextSubID int
	destroyed bool
	// started is set once the surface reports loadstart for the current load,
	// so trailing events of the previous file are not taken as fragment loads.
	started bool

	onElement func(player.Event)
}

func (b *base) attach(el player.Element, onElement func(player.Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.unsubEl != nil {
		b.unsubEl()
	}
	b.el = el
	b.destroyed = false
	b.onElement = onElement
	b.unsubEl = el.Subscribe(func(ev player.Event) {
		b.mu.Lock()
		handler, destroyed := b.onElement, b.destroyed
		b.mu.Unlock()
		if !destroyed && handler != nil {
			handler(ev)
		}
	})
}

func (b *base) element() player.Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.el
}

func (b *base) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs == nil {
		b.subs = make(map[int]func(Event))
	}
	id := b.nextSubID
	b.nextSubID++
	b.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *base) emit(ev Event) {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (b *base) fail(kind ErrorKind, err error) *Error {
	e := &Error{Kind: kind, Fatal: true, Err: err}
	b.emit(Event{Kind: Failed, Err: e})
	return e
}

func (b *base) destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.unsubEl != nil {
		b.unsubEl()
		b.unsubEl = nil
	}
	b.destroyed = true
	b.subs = nil
}

// classify maps a surface or transport error onto an ErrorKind.
func classify(err error) ErrorKind {
	if err == nil {
		return NoError
	}

	if errors.Is(err, ErrUnsupported) {
		return Unsupported
	}

	var status *network.StatusError
	if errors.As(err, &status) {
		return NetworkError
	}

	var media *player.MediaError
	if errors.As(err, &media) {
		reason := strings.ToLower(media.Reason)
		switch {
		case strings.Contains(reason, "loading failed"),
			strings.Contains(reason, "network"),
			strings.Contains(reason, "http"),
			strings.Contains(reason, "timeout"):
			return NetworkError
		case strings.Contains(reason, "unrecognized file format"),
			strings.Contains(reason, "no audio or video"),
			strings.Contains(reason, "decod"):
			return MediaError
		}
		return OtherFatal
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return NetworkError
	}

	return OtherFatal
}

// onSurface translates the element events both engines react to the same way.
func (b *base) onSurface(ev player.Event) {
	switch ev.Kind {
	case player.LoadStart:
		b.mu.Lock()
		b.started = true
		b.mu.Unlock()
	case player.Restart, player.Progress:
		b.mu.Lock()
		started := b.started
		b.mu.Unlock()
		if started {
			b.emit(Event{Kind: FragLoaded})
		}
	case player.ErrorEvent:
		b.fail(classify(ev.Err), ev.Err)
	}
}

// RecoverNetwork reloads the stream at position.
func (b *base) RecoverNetwork(ctx context.Context, position float64) error {
	el, url := b.element(), b.loadedURL()
	if el == nil || url == "" {
		return fmt.Errorf("nothing to recover")
	}
	log.Infof("recovering from network error at %.1fs", position)
	b.beginLoad(url)
	return el.Load(ctx, url, position)
}

// RecoverMedia switches to software decoding and reloads at position.
func (b *base) RecoverMedia(ctx context.Context, position float64) error {
	el, url := b.element(), b.loadedURL()
	if el == nil || url == "" {
		return fmt.Errorf("nothing to recover")
	}
	log.Infof("recovering from media error at %.1fs with software decoding", position)
	if err := el.SetOption(ctx, "hwdec", "no"); err != nil {
		return err
	}
	b.beginLoad(url)
	return el.Load(ctx, url, position)
}

// beginLoad records url and waits for the surface to start it.
func (b *base) beginLoad(url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.url = url
	b.started = false
}

func (b *base) loadedURL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.url
}
