package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/hlsplay/hlsplay/constant"
	"github.com/hlsplay/hlsplay/network"
	"github.com/hlsplay/hlsplay/player"
	"github.com/hlsplay/hlsplay/player/playertest"
	. "github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func manifestServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", constant.MimeHLS)
		_, _ = w.Write([]byte(masterPlaylist))
	})
	return httptest.NewServer(mux)
}

func TestSessionEngineSelection(t *testing.T) {
	Convey("Given an element", t, func() {
		el := playertest.New()
		rec := &recorder{}
		ctx := context.Background()

		Convey("Without HLS demuxing or native support the stream is unsupported", func() {
			s := NewSession(el, Options{StartLevel: -1}, rec.handle)
			_, err := s.Open(ctx, "https://example.com/master.m3u8", 0)

			So(errors.Is(err, ErrUnsupported), ShouldBeTrue)
			So(rec.kinds(), ShouldResemble, []EventKind{Failed})
			So(rec.last().Err.Kind, ShouldEqual, Unsupported)
			So(el.Names(), ShouldBeEmpty)
		})

		Convey("Native support alone selects native playback", func() {
			el.NativeTypes = []string{constant.MimeHLS}
			s := NewSession(el, Options{StartLevel: -1}, rec.handle)
			_, err := s.Open(ctx, "https://example.com/master.m3u8", 12)

			So(err, ShouldBeNil)
			So(s.Engine().Name(), ShouldEqual, "native")
			call, ok := el.Last("load")
			So(ok, ShouldBeTrue)
			So(call.Args, ShouldResemble, []any{"https://example.com/master.m3u8", 12.0})
		})

		Convey("HLS demuxing wins over native support", func() {
			srv := manifestServer()
			defer srv.Close()

			el.Demuxers = []string{"hls"}
			el.NativeTypes = []string{constant.MimeHLS}
			s := NewSession(el, Options{StartLevel: -1}, rec.handle)
			_, err := s.Open(ctx, srv.URL+"/master.m3u8", 0)

			So(err, ShouldBeNil)
			So(s.Engine().Name(), ShouldEqual, "hls")

			Convey("Unless native playback is preferred", func() {
				s := NewSession(el, Options{StartLevel: -1, PreferNative: true}, rec.handle)
				_, err := s.Open(ctx, srv.URL+"/master.m3u8", 0)
				So(err, ShouldBeNil)
				So(s.Engine().Name(), ShouldEqual, "native")
			})
		})
	})
}

func TestSessionReadyGate(t *testing.T) {
	Convey("Given an open native session", t, func() {
		el := playertest.New()
		el.NativeTypes = []string{constant.MimeHLS}
		rec := &recorder{}
		s := NewSession(el, Options{StartLevel: -1}, rec.handle)
		gen, err := s.Open(context.Background(), "https://example.com/a.m3u8", 0)
		So(err, ShouldBeNil)

		Convey("Events left over from the previous file are not fragment loads", func() {
			el.SetFields(player.Fields{ReadyState: player.HaveEnoughData, Duration: 300})
			el.Emit(player.Restart)
			So(s.Ready(), ShouldBeFalse)
			So(rec.kinds(), ShouldBeEmpty)
		})

		el.Emit(player.LoadStart)

		Convey("Data arriving before metadata does not make it ready", func() {
			el.SetFields(player.Fields{ReadyState: player.HaveNothing, Duration: 120})
			el.Emit(player.Restart)
			So(s.Ready(), ShouldBeFalse)
			So(rec.kinds(), ShouldBeEmpty)
		})

		Convey("Metadata without a usable duration does not make it ready", func() {
			el.SetFields(player.Fields{ReadyState: player.HaveFutureData, Duration: 0})
			el.Emit(player.Progress)
			So(s.Ready(), ShouldBeFalse)
		})

		Convey("Both conditions promote it exactly once", func() {
			el.SetFields(player.Fields{ReadyState: player.HaveMetadata, Duration: 120})
			el.Emit(player.Progress)
			el.Emit(player.Restart)

			So(s.Ready(), ShouldBeTrue)
			So(rec.kinds(), ShouldResemble, []EventKind{Ready})
			So(rec.last().Generation, ShouldEqual, gen)
		})

		Convey("Closing resets readiness and releases the element", func() {
			el.SetFields(player.Fields{ReadyState: player.HaveMetadata, Duration: 120})
			el.Emit(player.Restart)
			s.Close()

			So(s.Ready(), ShouldBeFalse)
			So(s.Engine(), ShouldBeNil)
			So(el.Subscribers(), ShouldEqual, 0)

			el.Emit(player.Restart)
			So(rec.kinds(), ShouldHaveLength, 1)
		})

		Convey("Opening another URL supersedes the first session", func() {
			next, err := s.Open(context.Background(), "https://example.com/b.m3u8", 0)
			So(err, ShouldBeNil)
			So(next, ShouldBeGreaterThan, gen)
			So(el.Subscribers(), ShouldEqual, 1)

			So(s.Start(context.Background(), gen, "https://example.com/a.m3u8", 0), ShouldEqual, ErrSuperseded)

			el.Emit(player.LoadStart)
			el.SetFields(player.Fields{ReadyState: player.HaveMetadata, Duration: 60})
			el.Emit(player.Restart)
			So(rec.kinds(), ShouldResemble, []EventKind{Ready})
			So(rec.last().Generation, ShouldEqual, next)
		})

		Convey("Surface errors are classified", func() {
			el.EmitEvent(player.Event{Kind: player.ErrorEvent, Err: &player.MediaError{Reason: "loading failed"}})
			So(rec.last().Kind, ShouldEqual, Failed)
			So(rec.last().Err.Kind, ShouldEqual, NetworkError)
			So(rec.last().Err.Fatal, ShouldBeTrue)
		})
	})
}

func TestHLSEngine(t *testing.T) {
	Convey("Given an HLS session on a two-level ladder", t, func() {
		srv := manifestServer()
		defer srv.Close()

		el := playertest.New()
		el.Demuxers = []string{"hls"}
		rec := &recorder{}
		ctx := context.Background()
		s := NewSession(el, Options{StartLevel: -1}, rec.handle)
		_, err := s.Open(ctx, srv.URL+"/master.m3u8", 0)
		So(err, ShouldBeNil)

		Convey("The manifest is announced with its starting level", func() {
			ev := rec.last()
			So(ev.Kind, ShouldEqual, ManifestParsed)
			So(ev.Manifest.Levels, ShouldHaveLength, 2)
			So(ev.FirstLevel, ShouldEqual, 1)
		})

		Convey("mpv opens the best variant when the level is automatic", func() {
			call, ok := el.Last("option")
			So(ok, ShouldBeTrue)
			So(call.Args, ShouldResemble, []any{"hls-bitrate", "max"})
		})

		Convey("A video track change with a ladder bitrate reports the level", func() {
			el.EmitEvent(player.Event{Kind: player.VideoTrackChange, Track: &player.Track{ID: 1, Kind: player.VideoTrack, HLSBitrate: 4000000}})
			So(rec.last().Kind, ShouldEqual, LevelSwitched)
			So(rec.last().Level, ShouldEqual, 0)
			So(s.Engine().CurrentLevel(), ShouldEqual, 0)
		})

		Convey("Selecting a level picks the matching video track", func() {
			el.TrackList = []player.Track{
				{ID: 1, Kind: player.VideoTrack, HLSBitrate: 4000000},
				{ID: 2, Kind: player.VideoTrack, HLSBitrate: 2000000},
				{ID: 3, Kind: player.AudioTrack},
			}
			So(s.SetLevel(ctx, 1), ShouldBeNil)
			call, _ := el.Last("track")
			So(call.Args, ShouldResemble, []any{player.VideoTrack, 2})
			So(s.Engine().(*HLSEngine).AutoLevel(), ShouldBeFalse)

			Convey("And -1 returns to automatic selection", func() {
				So(s.SetLevel(ctx, -1), ShouldBeNil)
				call, _ := el.Last("track")
				So(call.Args, ShouldResemble, []any{player.VideoTrack, -1})
				So(s.Engine().(*HLSEngine).AutoLevel(), ShouldBeTrue)
			})
		})

		Convey("Selecting a level out of range fails", func() {
			So(s.SetLevel(ctx, 5), ShouldNotBeNil)
		})

		Convey("Media recovery disables hardware decoding and reloads in place", func() {
			el.Reset()
			So(s.Recover(ctx, MediaError, 42), ShouldBeNil)
			So(el.Names(), ShouldResemble, []string{"option", "load"})
			call, _ := el.Last("load")
			So(call.Args, ShouldResemble, []any{srv.URL + "/master.m3u8", 42.0})
		})

		Convey("Network recovery reloads at the position", func() {
			el.Reset()
			So(s.Recover(ctx, NetworkError, 7), ShouldBeNil)
			So(el.Names(), ShouldResemble, []string{"load"})
		})
	})

	Convey("A missing manifest is a fatal network error", t, func() {
		srv := manifestServer()
		defer srv.Close()

		el := playertest.New()
		el.Demuxers = []string{"hls"}
		rec := &recorder{}
		s := NewSession(el, Options{StartLevel: -1}, rec.handle)
		_, err := s.Open(context.Background(), srv.URL+"/missing.m3u8", 0)

		So(err, ShouldNotBeNil)
		var status *network.StatusError
		So(errors.As(err, &status), ShouldBeTrue)
		So(rec.last().Err.Kind, ShouldEqual, NetworkError)
		_, loaded := el.Last("load")
		So(loaded, ShouldBeFalse)
	})
}

func TestClassify(t *testing.T) {
	Convey("classify", t, func() {
		So(classify(nil), ShouldEqual, NoError)
		So(classify(ErrUnsupported), ShouldEqual, Unsupported)
		So(classify(&network.StatusError{Code: 503}), ShouldEqual, NetworkError)
		So(classify(&player.MediaError{Reason: "unrecognized file format"}), ShouldEqual, MediaError)
		So(classify(&player.MediaError{Reason: "something odd"}), ShouldEqual, OtherFatal)
		So(classify(context.DeadlineExceeded), ShouldEqual, NetworkError)
		So(classify(errors.New("boom")), ShouldEqual, OtherFatal)
	})
}

const sameBandwidthLadder = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=3000000,RESOLUTION=1920x1080,CODECS="avc1.640028,mp4a.40.2"
avc-1080.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=3000000,RESOLUTION=1920x1080,CODECS="hvc1.1.6.L120.90,mp4a.40.2"
hevc-1080.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=3000000,RESOLUTION=1280x720,CODECS="avc1.64001f,mp4a.40.2"
avc-720.m3u8
`

func TestHLSEngineSameBandwidth(t *testing.T) {
	Convey("Given a ladder whose variants share one bandwidth", t, func() {
		el := playertest.New()
		el.Demuxers = []string{"hls"}
		rec := &recorder{}
		ctx := context.Background()
		s := NewSession(el, Options{
			StartLevel: -1,
			Fetch: func(context.Context, string, []string, int64) ([]byte, error) {
				return []byte(sameBandwidthLadder), nil
			},
		}, rec.handle)
		_, err := s.Open(ctx, "https://example.com/master.m3u8", 0)
		So(err, ShouldBeNil)
		So(s.Engine().(*HLSEngine).Manifest().Levels, ShouldHaveLength, 3)

		Convey("A switch to the HEVC track reports the HEVC level", func() {
			el.EmitEvent(player.Event{Kind: player.VideoTrackChange, Track: &player.Track{ID: 2, Kind: player.VideoTrack, HLSBitrate: 3000000, Height: 1080, Codec: "hevc"}})
			So(rec.last().Kind, ShouldEqual, LevelSwitched)
			So(rec.last().Level, ShouldEqual, 1)
		})

		Convey("A switch to the 720p track reports the 720p level", func() {
			el.EmitEvent(player.Event{Kind: player.VideoTrackChange, Track: &player.Track{ID: 3, Kind: player.VideoTrack, HLSBitrate: 3000000, Height: 720, Codec: "h264"}})
			So(rec.last().Level, ShouldEqual, 2)
		})

		Convey("Selecting a level picks the track with its height and codec", func() {
			el.TrackList = []player.Track{
				{ID: 1, Kind: player.VideoTrack, HLSBitrate: 3000000, Height: 1080, Codec: "h264"},
				{ID: 2, Kind: player.VideoTrack, HLSBitrate: 3000000, Height: 1080, Codec: "hevc"},
				{ID: 3, Kind: player.VideoTrack, HLSBitrate: 3000000, Height: 720, Codec: "h264"},
			}

			So(s.SetLevel(ctx, 1), ShouldBeNil)
			call, _ := el.Last("track")
			So(call.Args, ShouldResemble, []any{player.VideoTrack, 2})

			So(s.SetLevel(ctx, 2), ShouldBeNil)
			call, _ = el.Last("track")
			So(call.Args, ShouldResemble, []any{player.VideoTrack, 3})
		})
	})
}

func TestVideoCodec(t *testing.T) {
	Convey("The video codec is read from a CODECS attribute", t, func() {
		So(videoCodec("avc1.640028,mp4a.40.2"), ShouldEqual, "h264")
		So(videoCodec("mp4a.40.2, hev1.1.6.L93.B0"), ShouldEqual, "hevc")
		So(videoCodec("mp4a.40.2"), ShouldBeEmpty)
		So(videoCodec(""), ShouldBeEmpty)
	})
}
