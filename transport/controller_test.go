package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hlsplay/hlsplay/constant"
	"github.com/hlsplay/hlsplay/playback"
	"github.com/hlsplay/hlsplay/player"
	"github.com/hlsplay/hlsplay/player/playertest"
	"github.com/hlsplay/hlsplay/stream"
	. "github.com/smartystreets/goconvey/convey"
)

const source = "https://example.com/master.m3u8"

const ladder = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=2000000,RESOLUTION=1280x720
720.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=4000000,RESOLUTION=1920x1080
1080.m3u8
`

type harness struct {
	el      *playertest.Element
	c       *Controller
	binding *Binding

	mu       sync.Mutex
	pending  []tea.Msg
	reported []stream.ErrorKind
}

func newHarness(opts Options) *harness {
	h := &harness{el: playertest.New()}
	h.el.NativeTypes = []string{constant.MimeHLS}

	opts.Run = func(task func()) { task() }
	opts.OnError = func(kind stream.ErrorKind, _ error) {
		h.reported = append(h.reported, kind)
	}

	h.c = New(h.el, opts)
	h.binding = h.c.Mount(DefaultKeymap(), h.send)
	return h
}

func newHLSHarness(opts Options) *harness {
	opts.Stream.StartLevel = -1
	opts.Stream.Fetch = func(context.Context, string, []string, int64) ([]byte, error) {
		return []byte(ladder), nil
	}
	h := newHarness(opts)
	h.el.Demuxers = []string{"hls"}
	return h
}

func (h *harness) send(msg tea.Msg) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = append(h.pending, msg)
}

// pump feeds every pending message back into the controller until none is left.
func (h *harness) pump() {
	for {
		h.mu.Lock()
		msgs := h.pending
		h.pending = nil
		h.mu.Unlock()

		if len(msgs) == 0 {
			return
		}
		for _, msg := range msgs {
			h.c.Handle(msg)
		}
	}
}

// ready opens the source and walks the element up to a ready 100s stream.
func (h *harness) ready() {
	h.c.Open(source, 0)
	h.pump()

	h.el.Update(func(f *player.Fields) {
		f.ReadyState = player.HaveMetadata
		f.Duration = 100
	})
	h.el.Emit(player.LoadStart)
	h.el.Emit(player.LoadedMetadata)
	h.el.Update(func(f *player.Fields) { f.ReadyState = player.HaveCurrentData })
	h.el.Emit(player.LoadedData)
	h.el.Emit(player.Restart)
	h.pump()
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestOpen(t *testing.T) {
	Convey("Given a mounted controller", t, func() {
		h := newHarness(Options{Subtitles: []SubtitleSource{{Label: "English", Src: "/tmp/en.srt", Lang: "en"}}})

		Convey("When a source is opened and the stream becomes ready", func() {
			h.ready()
			s := h.c.State()

			Convey("Then the session is ready and the element loaded the source", func() {
				So(s.Phase, ShouldEqual, playback.Ready)
				So(s.Source, ShouldEqual, source)
				So(h.c.Session().Ready(), ShouldBeTrue)

				call, ok := h.el.Last("load")
				So(ok, ShouldBeTrue)
				So(call.Args, ShouldResemble, []any{source, 0.0})
			})

			Convey("And the configured subtitles are attached", func() {
				call, ok := h.el.Last("subadd")
				So(ok, ShouldBeTrue)
				So(call.Args, ShouldResemble, []any{"/tmp/en.srt", "English", "en"})
			})
		})

		Convey("When a second source replaces the first", func() {
			h.c.Open(source, 0)
			h.pump()
			h.c.Open("https://example.com/other.m3u8", 30)
			h.pump()

			Convey("Then only the new engine listens to the element", func() {
				// the controller itself and the active engine
				So(h.el.Subscribers(), ShouldEqual, 2)
				So(h.c.State().Source, ShouldEqual, "https://example.com/other.m3u8")

				call, _ := h.el.Last("load")
				So(call.Args, ShouldResemble, []any{"https://example.com/other.m3u8", 30.0})
			})
		})

		Convey("When the binding is released", func() {
			h.binding.Release()
			h.binding.Release()

			Convey("Then element events no longer reach the controller", func() {
				So(h.el.Subscribers(), ShouldEqual, 0)
				h.el.Emit(player.LoadStart)
				So(h.pending, ShouldBeEmpty)
			})

			Convey("And keys are ignored", func() {
				_, handled := h.binding.Dispatch(runes("k"), false)
				So(handled, ShouldBeFalse)
			})
		})
	})
}

func TestVolume(t *testing.T) {
	Convey("Given a ready stream at volume 0.5", t, func() {
		h := newHarness(Options{})
		h.ready()
		h.c.SetVolume(0.5)

		Convey("When volume up is pressed once", func() {
			h.binding.Dispatch(tea.KeyMsg{Type: tea.KeyUp}, false)

			Convey("Then the volume is 0.6", func() {
				So(h.c.State().Volume, ShouldEqual, 0.6)

				call, _ := h.el.Last("volume")
				So(call.Args, ShouldResemble, []any{0.6})
			})

			Convey("And nine more presses saturate at 1", func() {
				for range 9 {
					h.binding.Dispatch(tea.KeyMsg{Type: tea.KeyUp}, false)
					So(h.c.State().Volume, ShouldBeLessThanOrEqualTo, 1)
				}
				So(h.c.State().Volume, ShouldEqual, 1.0)
			})
		})

		Convey("When volume down is pressed below zero", func() {
			h.c.SetVolume(0.05)
			h.c.NudgeVolume(-0.1)

			Convey("Then it stops at 0", func() {
				So(h.c.State().Volume, ShouldEqual, 0.0)
			})
		})

		Convey("When muted and the volume is raised", func() {
			h.c.ToggleMute()
			So(h.c.State().Muted, ShouldBeTrue)
			h.c.NudgeVolume(0.1)

			Convey("Then mute is cleared", func() {
				So(h.c.State().Muted, ShouldBeFalse)
			})
		})
	})
}

func TestRate(t *testing.T) {
	Convey("Given a ready stream at rate 1", t, func() {
		h := newHarness(Options{})
		h.ready()

		Convey("When faster is pressed three times", func() {
			for range 3 {
				h.binding.Dispatch(runes(">"), false)
			}

			Convey("Then the rate is 1.75", func() {
				So(h.c.State().Rate, ShouldEqual, 1.75)
			})

			Convey("And a fourth press saturates at 2", func() {
				h.binding.Dispatch(runes(">"), false)
				So(h.c.State().Rate, ShouldEqual, 2.0)
				h.binding.Dispatch(runes(">"), false)
				So(h.c.State().Rate, ShouldEqual, 2.0)

				call, _ := h.el.Last("rate")
				So(call.Args, ShouldResemble, []any{2.0})
			})
		})

		Convey("When slower is pressed past the slowest rate", func() {
			for range 6 {
				h.c.StepRate(-1)
			}

			Convey("Then it stops at 0.25", func() {
				So(h.c.State().Rate, ShouldEqual, 0.25)
			})
		})

		Convey("When an unsupported rate is requested", func() {
			h.c.SetRate(3)

			Convey("Then nothing changes", func() {
				So(h.c.State().Rate, ShouldEqual, 1.0)
			})
		})
	})
}

func TestFocus(t *testing.T) {
	Convey("Given a ready stream", t, func() {
		h := newHarness(Options{})
		h.ready()
		h.el.Reset()

		Convey("When the play key is pressed while a text input has focus", func() {
			_, handled := h.binding.Dispatch(runes("k"), true)

			Convey("Then playback state is unchanged", func() {
				So(handled, ShouldBeFalse)
				So(h.c.State().Intent, ShouldBeFalse)
				So(h.el.Names(), ShouldBeEmpty)
			})
		})

		Convey("When it is pressed without focus", func() {
			_, handled := h.binding.Dispatch(runes("k"), false)
			h.pump()

			Convey("Then playback is requested", func() {
				So(handled, ShouldBeTrue)
				So(h.c.State().Intent, ShouldBeTrue)
				So(h.el.Names(), ShouldContain, "play")
			})
		})

		Convey("When the surface keys are pressed", func() {
			_, open := h.binding.Dispatch(runes("o"), false)
			_, quit := h.binding.Dispatch(runes("q"), false)

			Convey("Then they are left to the surface", func() {
				So(open, ShouldBeFalse)
				So(quit, ShouldBeFalse)
			})
		})
	})
}

func TestPlay(t *testing.T) {
	Convey("Given a ready stream", t, func() {
		h := newHarness(Options{})
		h.ready()

		Convey("When the element refuses to play", func() {
			h.el.PlayErr = errors.New("refused")
			h.c.TogglePlay()
			So(h.c.State().Intent, ShouldBeTrue)
			h.pump()

			Convey("Then the controller reverts to paused", func() {
				s := h.c.State()
				So(s.Intent, ShouldBeFalse)
				So(s.Phase, ShouldEqual, playback.Ready)
				So(s.ErrorKind, ShouldEqual, stream.NoError)
				So(h.reported, ShouldBeEmpty)
			})
		})

		Convey("When play and pause are toggled quickly", func() {
			h.c.TogglePlay()
			h.c.TogglePlay()
			h.c.TogglePlay()
			h.pump()

			Convey("Then the last request wins and reaches the element last", func() {
				So(h.c.State().Intent, ShouldBeTrue)
				names := h.el.Names()
				So(names[len(names)-1], ShouldEqual, "play")
			})
		})
	})

	Convey("Given a stream the surface paused on its own", t, func() {
		h := newHarness(Options{})
		h.ready()
		h.c.TogglePlay()
		h.el.Emit(player.PlayEvent)
		h.el.Emit(player.Playing)
		h.el.Emit(player.PauseEvent)
		h.pump()
		h.el.Reset()

		Convey("Then it shows paused", func() {
			So(h.c.State().Intent, ShouldBeFalse)
			So(h.c.State().Phase, ShouldEqual, playback.Paused)
		})

		Convey("When play is toggled once", func() {
			h.c.TogglePlay()
			h.pump()

			Convey("Then playback resumes", func() {
				So(h.c.State().Intent, ShouldBeTrue)
				So(h.el.Names(), ShouldResemble, []string{"play"})
			})
		})
	})

	Convey("Given autoplay", t, func() {
		h := newHarness(Options{Autoplay: true})
		h.ready()

		Convey("Then playback is requested once ready", func() {
			So(h.c.State().Intent, ShouldBeTrue)
			So(h.el.Names(), ShouldContain, "play")
		})
	})
}

func TestSeek(t *testing.T) {
	Convey("Given a controller without a source", t, func() {
		h := newHarness(Options{})

		Convey("Then clicks and previews do nothing", func() {
			So(h.c.SeekByClick(10, 0, 100), ShouldBeNil)
			So(h.c.HoverPreview(10, 0, 100).IsPresent(), ShouldBeFalse)
			So(h.el.Names(), ShouldNotContain, "seek")
		})
	})

	Convey("Given a ready 100s stream", t, func() {
		h := newHarness(Options{})
		h.ready()

		Convey("When the track is clicked a quarter of the way", func() {
			h.c.SeekByClick(30, 5, 100)

			Convey("Then it seeks to 25s", func() {
				call, _ := h.el.Last("seek")
				So(call.Args, ShouldResemble, []any{25.0})
			})
		})

		Convey("When the click lands past the end of the track", func() {
			h.c.SeekByClick(500, 5, 100)

			Convey("Then it seeks to the duration", func() {
				call, _ := h.el.Last("seek")
				So(call.Args, ShouldResemble, []any{100.0})
			})
		})

		Convey("When hovering over the track", func() {
			preview := h.c.HoverPreview(55, 5, 100)

			Convey("Then the preview is the time under the pointer", func() {
				So(preview.MustGet(), ShouldEqual, 50.0)
				So(h.c.HoverPreview(200, 5, 100).IsPresent(), ShouldBeFalse)
			})
		})

		Convey("When skipping backwards from the start", func() {
			h.binding.Dispatch(tea.KeyMsg{Type: tea.KeyLeft}, false)

			Convey("Then it seeks to 0", func() {
				call, _ := h.el.Last("seek")
				So(call.Args, ShouldResemble, []any{0.0})
			})
		})

		Convey("When a digit is pressed", func() {
			h.binding.Dispatch(runes("7"), false)

			Convey("Then it seeks to that tenth of the duration", func() {
				call, _ := h.el.Last("seek")
				So(call.Args, ShouldResemble, []any{70.0})
			})
		})
	})
}

func TestTracks(t *testing.T) {
	Convey("Given a ready stream with subtitle and audio tracks", t, func() {
		h := newHarness(Options{Audio: []AudioLabel{{Label: "Director's commentary", Lang: "cm"}}})
		h.ready()
		h.el.EmitEvent(player.Event{Kind: player.TrackListChange, Tracks: []player.Track{
			{ID: 1, Kind: player.VideoTrack},
			{ID: 1, Kind: player.AudioTrack, Title: "Main", Lang: "en"},
			{ID: 2, Kind: player.AudioTrack, Title: "Commentary", Lang: "cm"},
			{ID: 3, Kind: player.SubtitleTrack, Title: "English", Lang: "en"},
			{ID: 4, Kind: player.SubtitleTrack, Title: "French", Lang: "fr"},
		}})
		h.pump()

		Convey("When subtitle 1 is selected", func() {
			h.c.SetSubtitle(1)

			Convey("Then only that track is showing", func() {
				active := h.c.State().ActiveSubtitles()
				So(active, ShouldHaveLength, 1)
				So(active[0].ID, ShouldEqual, 4)

				call, _ := h.el.Last("track")
				So(call.Args, ShouldResemble, []any{player.SubtitleTrack, 4})
			})

			Convey("And selecting -1 disables all of them", func() {
				h.c.SetSubtitle(-1)
				So(h.c.State().ActiveSubtitles(), ShouldBeEmpty)

				call, _ := h.el.Last("track")
				So(call.Args, ShouldResemble, []any{player.SubtitleTrack, -1})
			})
		})

		Convey("When subtitles are cycled", func() {
			var seen []int
			for range 3 {
				h.binding.Dispatch(runes("c"), false)
				seen = append(seen, h.c.State().Subtitle)
			}

			Convey("Then they go through every track and back off", func() {
				So(seen, ShouldResemble, []int{0, 1, -1})
			})
		})

		Convey("When the second audio track is selected", func() {
			h.c.SetAudioTrack(1)

			Convey("Then the element switches audio", func() {
				So(h.c.State().Audio, ShouldEqual, 1)
				call, _ := h.el.Last("track")
				So(call.Args, ShouldResemble, []any{player.AudioTrack, 2})
			})
		})

		Convey("Then configured labels name the audio tracks", func() {
			So(h.c.State().AudioTracks[1].Label, ShouldEqual, "Director's commentary")
		})
	})

	Convey("Given a single audio track", t, func() {
		h := newHarness(Options{})
		h.ready()
		h.el.EmitEvent(player.Event{Kind: player.TrackListChange, Tracks: []player.Track{
			{ID: 1, Kind: player.AudioTrack, Lang: "en"},
		}})
		h.pump()
		h.el.Reset()

		Convey("Then audio selection is not offered", func() {
			So(h.c.SetAudioTrack(0), ShouldBeNil)
			So(h.c.CycleAudio(), ShouldBeNil)
			So(h.el.Names(), ShouldBeEmpty)
		})
	})
}

func TestQuality(t *testing.T) {
	Convey("Given a two level ladder", t, func() {
		h := newHLSHarness(Options{})
		h.el.TrackList = []player.Track{
			{ID: 1, Kind: player.VideoTrack, HLSBitrate: 4000000},
			{ID: 2, Kind: player.VideoTrack, HLSBitrate: 2000000},
		}
		h.ready()

		s := h.c.State()
		So(s.Levels, ShouldHaveLength, 2)
		So(s.Levels[0].Label(), ShouldEqual, "1080p")

		Convey("When auto is selected and the engine later switches to the top level", func() {
			h.c.SetQuality(-1)
			h.el.EmitEvent(player.Event{
				Kind:  player.VideoTrackChange,
				Track: &player.Track{ID: 1, Kind: player.VideoTrack, HLSBitrate: 4000000},
			})
			h.pump()

			Convey("Then the displayed quality follows the switch", func() {
				s := h.c.State()
				So(s.AutoLevel, ShouldBeTrue)
				So(s.CurrentLevel, ShouldEqual, 0)
				So(s.BitrateKbps(), ShouldEqual, 4000)
				So(s.QualityLabel(), ShouldEqual, "Auto (1080p)")
			})
		})

		Convey("When the 720p level is picked", func() {
			h.c.SetQuality(1)

			Convey("Then the matching video track is selected", func() {
				call, _ := h.el.Last("track")
				So(call.Args, ShouldResemble, []any{player.VideoTrack, 2})
				So(h.c.State().QualityLabel(), ShouldEqual, "720p")
			})
		})

		Convey("When quality is cycled", func() {
			var seen []int
			for range 3 {
				h.c.CycleQuality()
				s := h.c.State()
				if s.AutoLevel {
					seen = append(seen, -1)
				} else {
					seen = append(seen, s.CurrentLevel)
				}
			}

			Convey("Then it goes from the highest level down and back to auto", func() {
				So(seen, ShouldResemble, []int{0, 1, -1})
			})
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given a ready stream", t, func() {
		h := newHarness(Options{})
		h.ready()

		fail := func(kind stream.ErrorKind) {
			h.c.Handle(StreamMsg{Event: stream.Event{
				Kind:       stream.Failed,
				Generation: h.c.Session().Generation(),
				Err:        &stream.Error{Kind: kind, Fatal: true, Err: errors.New("boom")},
			}})
		}
		loads := func() int {
			n := 0
			for _, name := range h.el.Names() {
				if name == "load" {
					n++
				}
			}
			return n
		}

		Convey("When a network error occurs", func() {
			fail(stream.NetworkError)

			Convey("Then it is reported and the stream reloads once", func() {
				So(h.reported, ShouldResemble, []stream.ErrorKind{stream.NetworkError})
				So(loads(), ShouldEqual, 2)
				So(h.c.State().Phase, ShouldNotEqual, playback.Error)
			})

			Convey("And a second one shows a retryable error", func() {
				fail(stream.NetworkError)
				s := h.c.State()
				So(s.Phase, ShouldEqual, playback.Error)
				So(s.Retryable, ShouldBeTrue)
				So(h.reported, ShouldHaveLength, 2)

				Convey("Which r retries", func() {
					h.binding.Dispatch(runes("r"), false)
					So(loads(), ShouldEqual, 3)
					So(h.c.State().Phase, ShouldNotEqual, playback.Error)
				})
			})
		})

		Convey("When the source is unsupported", func() {
			fail(stream.Unsupported)

			Convey("Then the session is torn down", func() {
				So(h.c.State().Phase, ShouldEqual, playback.Error)
				So(h.c.Session().Engine(), ShouldBeNil)
				So(h.reported, ShouldResemble, []stream.ErrorKind{stream.Unsupported})
			})
		})
	})

	Convey("Given an element that can play nothing", t, func() {
		h := newHarness(Options{})
		h.el.NativeTypes = nil
		h.c.Open(source, 0)
		h.pump()

		Convey("Then the failure surfaces as an unsupported error", func() {
			s := h.c.State()
			So(s.Phase, ShouldEqual, playback.Error)
			So(s.ErrorKind, ShouldEqual, stream.Unsupported)
			So(s.ErrorMessage, ShouldEqual, playback.MessageUnsupported)
		})
	})
}

func TestControlsVisibility(t *testing.T) {
	Convey("Given a ready stream with a short hide delay", t, func() {
		h := newHarness(Options{HideAfter: time.Millisecond})
		h.ready()
		So(h.c.ControlsVisible(), ShouldBeTrue)

		Convey("When playback starts", func() {
			cmd := h.c.TogglePlay()
			So(cmd, ShouldNotBeNil)

			Convey("Then the controls hide once the timer fires", func() {
				h.c.Handle(cmd())
				So(h.c.ControlsVisible(), ShouldBeFalse)
			})

			Convey("And pointer movement shows them again", func() {
				h.c.Handle(cmd())
				next := h.c.PointerMoved(false)
				So(h.c.ControlsVisible(), ShouldBeTrue)
				So(next, ShouldNotBeNil)

				Convey("While a stale timer leaves them alone", func() {
					h.c.Handle(cmd())
					So(h.c.ControlsVisible(), ShouldBeTrue)
				})
			})

			Convey("And the pointer over the controls cancels the hide", func() {
				So(h.c.PointerMoved(true), ShouldBeNil)
				h.c.Handle(cmd())
				So(h.c.ControlsVisible(), ShouldBeTrue)
			})

			Convey("And pausing cancels the hide", func() {
				h.c.TogglePlay()
				h.c.Handle(cmd())
				So(h.c.ControlsVisible(), ShouldBeTrue)
			})

			Convey("And a pause from the surface itself cancels the hide", func() {
				h.el.Emit(player.PlayEvent)
				h.el.Emit(player.Playing)
				h.el.Emit(player.PauseEvent)
				h.pump()
				h.c.Handle(cmd())
				So(h.c.ControlsVisible(), ShouldBeTrue)
			})
		})

		Convey("When the pointer moves while paused", func() {
			Convey("Then nothing is scheduled", func() {
				So(h.c.PointerMoved(false), ShouldBeNil)
			})
		})
	})
}

func TestExec(t *testing.T) {
	Convey("Given a ready stream", t, func() {
		h := newHarness(Options{})
		h.ready()

		Convey("When commands arrive as messages", func() {
			h.c.Handle(Command{Name: CommandSeek, Value: 40})
			h.c.Handle(Command{Name: CommandSkip, Value: -15})
			h.c.Handle(Command{Name: CommandVolume, Value: 0.3})
			h.c.Handle(Command{Name: CommandRate, Value: 1.5})
			_, handled := h.c.Handle(Command{Name: "rewind"})

			Convey("Then they run like their keys", func() {
				s := h.c.State()
				So(s.CurrentTime, ShouldEqual, 25.0)
				So(s.Volume, ShouldEqual, 0.3)
				So(s.Rate, ShouldEqual, 1.5)
				So(handled, ShouldBeTrue)
			})
		})
	})
}

func TestObserver(t *testing.T) {
	Convey("Given an observer", t, func() {
		h := newHarness(Options{})
		var phases []playback.Phase
		h.c.Observe(ObserverFunc(func(_ playback.Event, prev, next playback.State) {
			if prev.Phase != next.Phase {
				phases = append(phases, next.Phase)
			}
		}))

		Convey("When the stream loads and plays", func() {
			h.ready()
			h.c.Play()
			h.pump()

			Convey("Then it sees every phase change", func() {
				So(phases, ShouldResemble, []playback.Phase{playback.Loading, playback.Ready, playback.Playing})
			})
		})
	})
}

func TestWorker(t *testing.T) {
	Convey("Given a slow manifest fetch and a loop that takes one message at a time", t, func() {
		release := make(chan struct{})
		done := make(chan struct{})
		defer close(done)

		el := playertest.New()
		el.NativeTypes = []string{constant.MimeHLS}
		el.Demuxers = []string{"hls"}

		c := New(el, Options{Stream: stream.Options{
			StartLevel: -1,
			Fetch: func(ctx context.Context, _ string, _ []string, _ int64) ([]byte, error) {
				select {
				case <-release:
					return []byte(ladder), nil
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			},
		}})
		defer c.Close()

		msgs := make(chan tea.Msg)
		c.Mount(DefaultKeymap(), func(msg tea.Msg) {
			select {
			case msgs <- msg:
			case <-done:
			}
		})

		Convey("When many commands are queued behind the fetch", func() {
			opened := make(chan OpenResult, 1)
			go func() {
				c.Open(source, 0)
				for i := range 200 {
					delta := 0.05
					if i%2 == 0 {
						delta = -0.05
					}
					c.NudgeVolume(delta)
				}

				for msg := range msgs {
					c.Handle(msg)
					if r, ok := msg.(OpenResult); ok {
						opened <- r
						return
					}
				}
			}()
			time.AfterFunc(50*time.Millisecond, func() { close(release) })

			Convey("Then the loop keeps running and the open completes", func() {
				select {
				case r := <-opened:
					So(r.Err, ShouldBeNil)
					So(c.State().Source, ShouldEqual, source)
					So(c.State().Volume, ShouldEqual, 1.0)
				case <-time.After(3 * time.Second):
					So("event loop blocked behind the worker", ShouldBeEmpty)
				}
			})
		})
	})
}
