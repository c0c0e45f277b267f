package qoe

import (
	"errors"
	"testing"
	"time"

	"github.com/hlsplay/hlsplay/playback"
	"github.com/hlsplay/hlsplay/player"
	"github.com/hlsplay/hlsplay/stream"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetrics(t *testing.T) {
	Convey("Given metrics observing a freshly opened source", t, func() {
		m := New()
		clock := time.Unix(0, 0)
		m.now = func() time.Time { return clock }

		state := playback.Initial()
		apply := func(ev playback.Event, change func(*playback.State)) {
			prev := state
			change(&state)
			m.Observe(ev, prev, state)
		}

		apply(playback.SourceChanged{}, func(s *playback.State) {
			s.Generation = 1
			s.Phase = playback.Loading
		})
		So(testutil.ToFloat64(m.sources), ShouldEqual, 1)

		Convey("When the first frame is confirmed two seconds later", func() {
			clock = clock.Add(2 * time.Second)
			apply(playback.Media{}, func(s *playback.State) {
				s.Intent = true
				s.Confirmed = true
			})

			Convey("Then the startup time is recorded once", func() {
				So(testutil.CollectAndCount(m.startup), ShouldEqual, 1)
				apply(playback.Media{}, func(s *playback.State) { s.Confirmed = true })
				So(testutil.CollectAndCount(m.startup), ShouldEqual, 1)
			})

			Convey("And a stall while playing counts as a rebuffer", func() {
				apply(playback.Media{}, func(s *playback.State) { s.Buffering = true })
				So(testutil.ToFloat64(m.rebuffers), ShouldEqual, 1)
			})

			Convey("But buffering for a seek does not", func() {
				apply(playback.Media{}, func(s *playback.State) {
					s.Buffering = true
					s.Seeking = true
				})
				So(testutil.ToFloat64(m.rebuffers), ShouldEqual, 0)
			})
		})

		Convey("When the level changes", func() {
			levels := []stream.Level{{Height: 1080, Bitrate: 4000000}, {Height: 720, Bitrate: 2000000}}
			apply(playback.Stream{}, func(s *playback.State) {
				s.Levels = levels
				s.CurrentLevel = 1
			})
			apply(playback.Stream{}, func(s *playback.State) { s.CurrentLevel = 0 })

			Convey("Then the switch and the bitrate are recorded", func() {
				So(testutil.ToFloat64(m.levelSwitches), ShouldEqual, 1)
				So(testutil.ToFloat64(m.bitrate), ShouldEqual, 4000)
			})
		})

		Convey("When a fatal error arrives", func() {
			failed := playback.Stream{Event: stream.Event{
				Kind: stream.Failed,
				Err:  &stream.Error{Kind: stream.NetworkError, Fatal: true, Err: errors.New("timeout")},
			}}
			apply(failed, func(*playback.State) {})
			apply(failed, func(*playback.State) {})

			Convey("Then it is counted by kind", func() {
				So(testutil.ToFloat64(m.fatalErrors.WithLabelValues(stream.NetworkError.String())), ShouldEqual, 2)
			})
		})

		Convey("When media is buffered ahead", func() {
			apply(playback.Media{Event: player.Event{Kind: player.Progress}}, func(s *playback.State) {
				s.CurrentTime = 10
				s.BufferedEnd = 25
			})

			Convey("Then the buffer gauge follows", func() {
				So(testutil.ToFloat64(m.bufferAhead), ShouldEqual, 15)
			})
		})
	})
}
