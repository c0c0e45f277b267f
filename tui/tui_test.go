package tui

import (
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hlsplay/hlsplay/constant"
	"github.com/hlsplay/hlsplay/filesystem"
	"github.com/hlsplay/hlsplay/playback"
	"github.com/hlsplay/hlsplay/player"
	"github.com/hlsplay/hlsplay/player/playertest"
	"github.com/hlsplay/hlsplay/transport"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

const source = "https://example.com/master.m3u8"

func init() {
	filesystem.SetMemMapFs()
}

type harness struct {
	el *playertest.Element
	b  *statefulBubble

	mu      sync.Mutex
	pending []tea.Msg
}

func newHarness() *harness {
	h := &harness{el: playertest.New()}
	h.el.NativeTypes = []string{constant.MimeHLS}

	c := transport.New(h.el, transport.Options{Run: func(task func()) { task() }})
	h.b = newBubble(&Options{Controller: c})
	h.b.resize(104, 30)
	h.b.mount(h.send)
	return h
}

func (h *harness) send(msg tea.Msg) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = append(h.pending, msg)
}

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
			h.b.Update(msg)
		}
	}
}

// ready opens the source and walks the element up to a ready 100s stream.
func (h *harness) ready() {
	h.b.open(source, mo.Some(0.0))
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

func (h *harness) press(keys ...tea.KeyMsg) {
	for _, k := range keys {
		h.b.Update(k)
	}
	h.pump()
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPrompt(t *testing.T) {
	Convey("Given the player surface", t, func() {
		h := newHarness()

		Convey("When the open key is pressed", func() {
			h.press(runes("o"))

			Convey("Then the URL prompt takes the keyboard", func() {
				So(h.b.state, ShouldEqual, openState)
				So(h.b.inputC.Focused(), ShouldBeTrue)
			})

			Convey("And player keys are typed into it", func() {
				h.press(runes("q"), runes(" "))

				So(h.b.state, ShouldEqual, openState)
				So(h.b.inputC.Value(), ShouldEqual, "q ")
				So(h.el.Names(), ShouldNotContain, "play")
			})

			Convey("And escape closes it", func() {
				h.press(tea.KeyMsg{Type: tea.KeyEsc})

				So(h.b.state, ShouldEqual, playerState)
				So(h.b.inputC.Focused(), ShouldBeFalse)
			})

			Convey("And a URL is confirmed", func() {
				h.press(runes(source), tea.KeyMsg{Type: tea.KeyEnter})

				Convey("Then it is loaded", func() {
					So(h.b.state, ShouldEqual, playerState)
					call, ok := h.el.Last("load")
					So(ok, ShouldBeTrue)
					So(call.Args, ShouldResemble, []any{source, 0.0})
				})
			})
		})

		Convey("When quit is pressed", func() {
			cmd := h.b.handleKey(runes("q"))

			Convey("Then the program quits", func() {
				So(cmd, ShouldNotBeNil)
				So(cmd(), ShouldHaveSameTypeAs, tea.QuitMsg{})
			})
		})

		Convey("When jumping before anything is loaded", func() {
			h.press(runes("g"))

			Convey("Then no prompt opens", func() {
				So(h.b.state, ShouldEqual, playerState)
			})
		})
	})
}

func TestPlayerSurface(t *testing.T) {
	Convey("Given a ready 100s stream", t, func() {
		h := newHarness()
		h.ready()

		Convey("Then the surface shows it paused at the start", func() {
			view := h.b.View()
			So(view, ShouldContainSubstring, "PAUSED")
			So(view, ShouldContainSubstring, "0:00 / 1:40")
		})

		Convey("When jumping to a timestamp", func() {
			h.press(runes("g"), runes("1:30"), tea.KeyMsg{Type: tea.KeyEnter})

			Convey("Then it seeks there", func() {
				call, ok := h.el.Last("seek")
				So(ok, ShouldBeTrue)
				So(call.Args, ShouldResemble, []any{90.0})
				So(h.b.state, ShouldEqual, playerState)
			})
		})

		Convey("When the jump is not a timestamp", func() {
			h.press(runes("g"), runes("soon"), tea.KeyMsg{Type: tea.KeyEnter})

			Convey("Then the prompt stays open", func() {
				So(h.b.state, ShouldEqual, jumpState)
				So(h.el.Names(), ShouldNotContain, "seek")
			})
		})

		Convey("When the track is clicked a quarter of the way", func() {
			h.b.Update(tea.MouseMsg{X: padLeft + 25, Y: trackRow, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
			h.pump()

			Convey("Then it seeks to 25s", func() {
				call, _ := h.el.Last("seek")
				So(call.Args, ShouldResemble, []any{25.0})
			})
		})

		Convey("When the pointer hovers over the middle of the track", func() {
			h.b.Update(tea.MouseMsg{X: padLeft + 50, Y: trackRow, Action: tea.MouseActionMotion})

			Convey("Then the time under it is previewed", func() {
				So(h.b.hover.MustGet(), ShouldEqual, 50.0)
				So(h.b.View(), ShouldContainSubstring, "⇢ 0:50")
			})

			Convey("And leaves the track", func() {
				h.b.Update(tea.MouseMsg{X: padLeft + 50, Y: 0, Action: tea.MouseActionMotion})

				So(h.b.hover.IsPresent(), ShouldBeFalse)
			})
		})

		Convey("When the volume is lowered", func() {
			h.press(tea.KeyMsg{Type: tea.KeyDown})

			Convey("Then the status shows the new volume", func() {
				So(h.b.View(), ShouldContainSubstring, "90%")
			})
		})
	})
}

func TestDescribeChange(t *testing.T) {
	Convey("Given a loaded source", t, func() {
		prev := playback.Initial()
		prev.Source = source

		Convey("When the volume changes", func() {
			next := prev
			next.Volume = 0.4

			Convey("Then it is described", func() {
				So(describeChange(prev, next).MustGet(), ShouldEqual, "volume 40%")
			})
		})

		Convey("When it is muted", func() {
			next := prev
			next.Muted = true

			Convey("Then it is described", func() {
				So(describeChange(prev, next).MustGet(), ShouldEqual, "muted")
			})
		})

		Convey("When the rate changes", func() {
			next := prev
			next.Rate = 1.5

			Convey("Then it is described", func() {
				So(describeChange(prev, next).MustGet(), ShouldEqual, "speed 1.5x")
			})
		})

		Convey("When subtitles are turned off", func() {
			prev.Subtitles = []playback.SubtitleTrack{{ID: 1, Label: "English"}}
			prev.Subtitle = 0
			next := prev
			next.Subtitle = -1

			Convey("Then it is described", func() {
				So(describeChange(prev, next).MustGet(), ShouldEqual, "subtitles off")
			})
		})

		Convey("When the source changes", func() {
			next := prev
			next.Source = "https://example.com/other.m3u8"
			next.Volume = 0.4

			Convey("Then nothing is announced", func() {
				So(describeChange(prev, next).IsPresent(), ShouldBeFalse)
			})
		})
	})
}

func TestSegments(t *testing.T) {
	Convey("Given a 100 cell track", t, func() {
		Convey("When a quarter is played and half is buffered", func() {
			played, ahead, rest := segments(100, 25, 50, 100)

			Convey("Then the cells are split accordingly", func() {
				So(played, ShouldEqual, 25)
				So(ahead, ShouldEqual, 25)
				So(rest, ShouldEqual, 50)
			})
		})

		Convey("When the buffer lags behind the playhead", func() {
			played, ahead, rest := segments(100, 40, 10, 100)

			Convey("Then nothing is drawn as buffered", func() {
				So(played, ShouldEqual, 40)
				So(ahead, ShouldEqual, 0)
				So(rest, ShouldEqual, 60)
			})
		})

		Convey("When the duration is unknown", func() {
			played, ahead, rest := segments(100, 40, 50, 0)

			Convey("Then the track is empty", func() {
				So(played, ShouldEqual, 0)
				So(ahead, ShouldEqual, 0)
				So(rest, ShouldEqual, 100)
			})
		})
	})
}
