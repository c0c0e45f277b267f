// Package transport turns user commands into playback intents and runs the
// resulting effects against the media element and the stream session.
package transport

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hlsplay/hlsplay/log"
	"github.com/hlsplay/hlsplay/playback"
	"github.com/hlsplay/hlsplay/player"
	"github.com/hlsplay/hlsplay/stream"
)

// Rates are the selectable playback rates, in ascending order.
var Rates = []float64{0.25, 0.5, 0.75, 1, 1.25, 1.5, 1.75, 2}

const (
	DefaultSkip      = 10 * time.Second
	DefaultHideAfter = 3 * time.Second
)

// SubtitleSource is an external subtitle file attached after the stream opens.
type SubtitleSource struct {
	Label string
	Src   string
	Lang  string
}

// AudioLabel names the audio tracks of a language.
type AudioLabel struct {
	Label string
	Lang  string
}

// Observer is told about every dispatched event together with the states
// before and after it. Observers run on the event loop and must not block.
type Observer interface {
	Observe(ev playback.Event, prev, next playback.State)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev playback.Event, prev, next playback.State)

func (f ObserverFunc) Observe(ev playback.Event, prev, next playback.State) { f(ev, prev, next) }

type Options struct {
	Autoplay bool
	Loop     bool
	Volume   float64
	Rate     float64

	// Skip is the distance covered by one skip command.
	Skip time.Duration
	// HideAfter is the pointer inactivity after which the controls hide while playing.
	HideAfter time.Duration
	// PiP enables picture-in-picture. Without it TogglePiP does nothing.
	PiP bool

	Subtitles []SubtitleSource
	Audio     []AudioLabel

	Stream stream.Options

	// OnError is called once for every fatal stream error.
	OnError func(kind stream.ErrorKind, err error)

	// Run executes element and session work in submission order, off the
	// event loop. It must return without waiting for the task. Defaults to a
	// single worker goroutine.
	Run func(task func())
}

// Messages re-entering the event loop. Feed them to Handle.
type (
	// MediaMsg carries an element event.
	MediaMsg struct {
		Event player.Event
	}

	// StreamMsg carries a session event.
	StreamMsg struct {
		Event stream.Event
	}

	// PlayResult is the outcome of an asynchronous play command.
	PlayResult struct {
		Err error
	}

	// OpenResult is the outcome of opening a source.
	OpenResult struct {
		URL        string
		Generation uint64
		Err        error
	}

	// HideControls fires when the auto-hide timer expires.
	HideControls struct {
		Seq int
	}
)

// Controller owns the playback machine, the element and the session. All of its
// methods must be called from the event loop.
type Controller struct {
	ctx     context.Context
	cancel  context.CancelFunc
	el      player.Element
	session *stream.Session
	machine *playback.Machine
	opts    Options

	observers []Observer

	sendMu sync.RWMutex
	send   func(tea.Msg)

	controls     bool
	overControls bool
	hideSeq      int
	help         bool
}

// New creates a controller for el. Nothing happens until it is mounted and a
// source is opened.
func New(el player.Element, opts Options) *Controller {
	if opts.Skip <= 0 {
		opts.Skip = DefaultSkip
	}
	if opts.HideAfter <= 0 {
		opts.HideAfter = DefaultHideAfter
	}
	if opts.Volume <= 0 {
		opts.Volume = 1
	}
	if opts.Rate <= 0 {
		opts.Rate = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		ctx:      ctx,
		cancel:   cancel,
		el:       el,
		machine:  playback.NewMachine(),
		opts:     opts,
		controls: true,
	}

	if c.opts.Run == nil {
		c.opts.Run = newWorker(ctx).submit
	}

	c.session = stream.NewSession(el, opts.Stream, func(ev stream.Event) {
		c.post(StreamMsg{Event: ev})
	})
	return c
}

// Observe registers o for every subsequent dispatch.
func (c *Controller) Observe(o Observer) {
	c.observers = append(c.observers, o)
}

func (c *Controller) post(msg tea.Msg) {
	c.sendMu.RLock()
	send := c.send
	c.sendMu.RUnlock()

	if send == nil {
		log.Debugf("dropping %T: controller not mounted", msg)
		return
	}
	send(msg)
}

func (c *Controller) setSender(send func(tea.Msg)) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.send = send
}

// State returns the current playback state with audio labels applied.
func (c *Controller) State() playback.State {
	s := c.machine.State()
	if len(c.opts.Audio) == 0 {
		return s
	}

	s.AudioTracks = slices.Clone(s.AudioTracks)
	for i, t := range s.AudioTracks {
		for _, a := range c.opts.Audio {
			if a.Lang != "" && a.Lang == t.Lang {
				s.AudioTracks[i].Label = a.Label
				break
			}
		}
	}
	return s
}

func (c *Controller) Session() *stream.Session {
	return c.session
}

// ControlsVisible reports whether the control surface is shown.
func (c *Controller) ControlsVisible() bool {
	return c.controls
}

func (c *Controller) HelpVisible() bool {
	return c.help
}

// Handle applies a message produced by the controller itself. It reports
// whether msg was one of them.
func (c *Controller) Handle(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case MediaMsg:
		return c.dispatch(playback.Media{Event: msg.Event}), true
	case StreamMsg:
		return c.dispatch(playback.Stream{Event: msg.Event}), true
	case PlayResult:
		if msg.Err == nil {
			return nil, true
		}
		return c.dispatch(playback.PlayRejected{Err: msg.Err}), true
	case OpenResult:
		c.opened(msg)
		return nil, true
	case HideControls:
		if msg.Seq == c.hideSeq && c.machine.State().Intent && !c.overControls {
			c.controls = false
		}
		return nil, true
	case Command:
		return c.Exec(msg), true
	}
	return nil, false
}

func (c *Controller) opened(msg OpenResult) {
	switch {
	case errors.Is(msg.Err, stream.ErrSuperseded):
		log.Debugf("open of %s superseded", msg.URL)
		return
	case msg.Err != nil:
		// the session reports the failure as a stream event as well
		log.Warnf("open %s: %v", msg.URL, msg.Err)
		return
	}

	for _, sub := range c.opts.Subtitles {
		c.opts.Run(func() {
			if err := c.el.AddSubtitle(c.ctx, sub.Src, sub.Label, sub.Lang); err != nil {
				log.Warnf("add subtitle %s: %v", sub.Src, err)
			}
		})
	}
}

// dispatch is the single entry point into the machine.
func (c *Controller) dispatch(ev playback.Event) tea.Cmd {
	prev := c.machine.State()
	effects := c.machine.Dispatch(ev)
	next := c.machine.State()

	for _, o := range c.observers {
		o.Observe(ev, prev, next)
	}

	c.apply(effects)

	switch {
	case !next.Intent:
		c.showControls()
	case !prev.Intent:
		return c.scheduleHide()
	}
	return nil
}

func (c *Controller) apply(effects []playback.Effect) {
	for _, effect := range effects {
		switch effect := effect.(type) {
		case playback.EffectReportError:
			if c.opts.OnError != nil {
				c.opts.OnError(effect.Kind, effect.Err)
			}
		case playback.EffectTeardown:
			c.session.Close()
		default:
			c.opts.Run(func() { c.run(effect) })
		}
	}
}

// run executes one effect. Failures other than a refused play are logged only:
// the element reports whatever state it ends up in.
func (c *Controller) run(effect playback.Effect) {
	ctx := c.ctx
	var err error

	switch effect := effect.(type) {
	case playback.EffectPlay:
		c.post(PlayResult{Err: c.el.Play(ctx)})
		return
	case playback.EffectPause:
		err = c.el.Pause(ctx)
	case playback.EffectSeek:
		err = c.el.Seek(ctx, effect.Time)
	case playback.EffectSetVolume:
		err = c.el.SetVolume(ctx, effect.Volume)
	case playback.EffectSetMuted:
		err = c.el.SetMuted(ctx, effect.Muted)
	case playback.EffectSetRate:
		err = c.el.SetPlaybackRate(ctx, effect.Rate)
	case playback.EffectSetLoop:
		err = c.el.SetLoop(ctx, effect.Loop)
	case playback.EffectSetLevel:
		err = c.session.SetLevel(ctx, effect.Index)
	case playback.EffectSelectSubtitle:
		err = c.el.SelectTrack(ctx, player.SubtitleTrack, effect.ID)
	case playback.EffectSelectAudio:
		err = c.el.SelectTrack(ctx, player.AudioTrack, effect.ID)
	case playback.EffectSetFullscreen:
		err = c.el.SetFullscreen(ctx, effect.On)
	case playback.EffectSetPiP:
		err = c.el.SetOnTop(ctx, effect.On)
	case playback.EffectRecoverNetwork:
		err = c.session.Recover(ctx, stream.NetworkError, effect.Position)
	case playback.EffectRecoverMedia:
		err = c.session.Recover(ctx, stream.MediaError, effect.Position)
	default:
		log.Warnf("unhandled effect %T", effect)
		return
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warnf("%T: %v", effect, err)
	}
}

// Close stops the worker and tears the session down. The element is left to its owner.
func (c *Controller) Close() {
	c.session.Close()
	c.setSender(nil)
	c.cancel()
}

// worker runs tasks one at a time in submission order. Its queue is
// unbounded: tasks post back into the event loop, so submit must never wait.
type worker struct {
	mu     sync.Mutex
	ready  *sync.Cond
	queue  []func()
	closed bool
}

func newWorker(ctx context.Context) *worker {
	w := &worker{}
	w.ready = sync.NewCond(&w.mu)
	context.AfterFunc(ctx, w.close)
	go w.loop()
	return w
}

func (w *worker) submit(task func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.queue = append(w.queue, task)
	w.ready.Signal()
}

// close drops whatever is still queued and stops the loop.
func (w *worker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.queue = nil
	w.ready.Broadcast()
}

func (w *worker) next() (func(), bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.queue) == 0 && !w.closed {
		w.ready.Wait()
	}
	if w.closed {
		return nil, false
	}
	task := w.queue[0]
	w.queue[0] = nil
	w.queue = w.queue[1:]
	return task, true
}

func (w *worker) loop() {
	for {
		task, ok := w.next()
		if !ok {
			return
		}
		task()
	}
}
