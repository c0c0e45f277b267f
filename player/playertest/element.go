// Package playertest provides an in-memory player.Element for tests.
package playertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/hlsplay/hlsplay/player"
	"github.com/samber/lo"
)

// Call is one recorded command.
type Call struct {
	Name string
	Args []any
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Name, c.Args)
}

// Element records every command and lets tests drive events by hand.
// Commands only touch the fields a real surface would report synchronously;
// everything else must be emitted explicitly.
type Element struct {
	mu     sync.Mutex
	calls  []Call
	fields player.Fields
	subs   map[int]func(player.Event)
	nextID int

	// Demuxers reports SupportsDemuxer.
	Demuxers []string
	// NativeTypes reports CanPlayType.
	NativeTypes []string
	TrackList   []player.Track

	// PlayErr, when set, is returned by Play.
	PlayErr error
	// LoadErr, when set, is returned by Load.
	LoadErr error

	Closed bool
}

// New returns a paused element at full volume.
func New() *Element {
	return &Element{
		fields: player.Fields{Volume: 1, Rate: 1, Paused: true},
		subs:   map[int]func(player.Event){},
	}
}

func (e *Element) record(name string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, Call{Name: name, Args: args})
}

// Calls returns the recorded commands in order.
func (e *Element) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Names returns the names of the recorded commands in order.
func (e *Element) Names() []string {
	return lo.Map(e.Calls(), func(c Call, _ int) string { return c.Name })
}

// Last returns the most recent call with the given name.
func (e *Element) Last(name string) (Call, bool) {
	calls := e.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Name == name {
			return calls[i], true
		}
	}
	return Call{}, false
}

// Reset forgets recorded calls.
func (e *Element) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = nil
}

// SetFields replaces the snapshot without emitting anything.
func (e *Element) SetFields(f player.Fields) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fields = f
}

// Update mutates the snapshot in place.
func (e *Element) Update(fn func(*player.Fields)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.fields)
}

// Emit delivers an event of the given kind carrying the current snapshot.
func (e *Element) Emit(kind player.EventKind) {
	e.EmitEvent(player.Event{Kind: kind})
}

// EmitEvent delivers ev to every subscriber. Fields is filled in from the snapshot.
func (e *Element) EmitEvent(ev player.Event) {
	e.mu.Lock()
	ev.Fields = e.fields
	fns := lo.Values(e.subs)
	e.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Subscribers reports how many handlers are registered.
func (e *Element) Subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

func (e *Element) Load(_ context.Context, url string, start float64) error {
	e.record("load", url, start)
	return e.LoadErr
}

func (e *Element) Play(context.Context) error {
	e.record("play")
	return e.PlayErr
}

func (e *Element) Pause(context.Context) error {
	e.record("pause")
	return nil
}

func (e *Element) Seek(_ context.Context, t float64) error {
	target, ok := player.ClampSeek(t, e.Fields())
	if !ok {
		return nil
	}
	e.record("seek", target)
	return nil
}

func (e *Element) SetVolume(_ context.Context, v float64) error {
	e.record("volume", v)
	return nil
}

func (e *Element) SetMuted(_ context.Context, muted bool) error {
	e.record("mute", muted)
	return nil
}

func (e *Element) SetPlaybackRate(_ context.Context, rate float64) error {
	e.record("rate", rate)
	return nil
}

func (e *Element) SetLoop(_ context.Context, loop bool) error {
	e.record("loop", loop)
	return nil
}

func (e *Element) SetOption(_ context.Context, name string, value any) error {
	e.record("option", name, value)
	return nil
}

func (e *Element) SelectTrack(_ context.Context, kind player.TrackKind, id int) error {
	e.record("track", kind, id)
	return nil
}

func (e *Element) AddSubtitle(_ context.Context, src, title, lang string) error {
	e.record("subadd", src, title, lang)
	return nil
}

func (e *Element) SetFullscreen(_ context.Context, on bool) error {
	e.record("fullscreen", on)
	return nil
}

func (e *Element) SetOnTop(_ context.Context, on bool) error {
	e.record("ontop", on)
	return nil
}

func (e *Element) Tracks(context.Context) ([]player.Track, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]player.Track(nil), e.TrackList...), nil
}

func (e *Element) CanPlayType(mime string) bool {
	return lo.Contains(e.NativeTypes, mime)
}

func (e *Element) SupportsDemuxer(name string) bool {
	return lo.Contains(e.Demuxers, name)
}

func (e *Element) Fields() player.Fields {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fields
}

func (e *Element) Subscribe(fn func(player.Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

func (e *Element) Close() error {
	e.record("close")
	e.mu.Lock()
	e.Closed = true
	e.mu.Unlock()
	return nil
}

var _ player.Element = (*Element)(nil)
