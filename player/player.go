// Package player is the media element adapter: it issues imperative commands to the
// playable surface and exposes its instantaneous fields. The primary implementation
// drives mpv over its JSON-IPC interface.
//
// The adapter keeps no derived state of its own. Everything that happens as a result
// of a command arrives later as an Event.
package player

import (
	"context"
	"errors"
	"math"

	"github.com/hlsplay/hlsplay/log"
)

// ErrNotReady is returned by commands that require metadata the surface does not have yet.
var ErrNotReady = errors.New("media not ready")

// ReadyState is a coarse ordinal of how much media is decodable.
type ReadyState int

const (
	HaveNothing ReadyState = iota
	HaveMetadata
	HaveCurrentData
	HaveFutureData
	HaveEnoughData
)

func (r ReadyState) String() string {
	switch r {
	case HaveNothing:
		return "HAVE_NOTHING"
	case HaveMetadata:
		return "HAVE_METADATA"
	case HaveCurrentData:
		return "HAVE_CURRENT_DATA"
	case HaveFutureData:
		return "HAVE_FUTURE_DATA"
	case HaveEnoughData:
		return "HAVE_ENOUGH_DATA"
	default:
		return "UNKNOWN"
	}
}

// Fields is a snapshot of the surface's instantaneous properties.
type Fields struct {
	ReadyState  ReadyState
	Duration    float64
	CurrentTime float64
	BufferedEnd float64
	Paused      bool
	Volume      float64 // 0..1
	Muted       bool
	Rate        float64
	Loop        bool
	Fullscreen  bool
	OnTop       bool
}

// HasValidDuration reports whether Duration is finite and positive.
func (f Fields) HasValidDuration() bool {
	return f.Duration > 0 && !math.IsInf(f.Duration, 0) && !math.IsNaN(f.Duration)
}

// TrackKind distinguishes entries of the surface's track list.
type TrackKind string

const (
	VideoTrack    TrackKind = "video"
	AudioTrack    TrackKind = "audio"
	SubtitleTrack TrackKind = "sub"
)

// Track is one entry of the surface's track list.
type Track struct {
	ID         int       `json:"id"`
	Kind       TrackKind `json:"type"`
	Title      string    `json:"title,omitempty"`
	Lang       string    `json:"lang,omitempty"`
	External   bool      `json:"external"`
	Selected   bool      `json:"selected"`
	HLSBitrate int       `json:"hls-bitrate,omitempty"`
	Height     int       `json:"demux-h,omitempty"`
	Codec      string    `json:"codec,omitempty"`
}

// Element is the playable surface. Commands are fire-and-forget: the resulting
// state changes are delivered asynchronously to subscribers.
type Element interface {
	// Load replaces the current media with url, starting at start seconds.
	Load(ctx context.Context, url string, start float64) error

	// Play resumes playback. It can be refused, in which case the caller must
	// revert any optimistic playing state.
	Play(ctx context.Context) error

	Pause(ctx context.Context) error

	// Seek moves to t seconds, clamped to [0, duration]. It is a no-op before
	// metadata is available.
	Seek(ctx context.Context, t float64) error

	// SetVolume sets the volume in [0, 1]. A positive volume clears mute.
	SetVolume(ctx context.Context, v float64) error
	SetMuted(ctx context.Context, muted bool) error
	SetPlaybackRate(ctx context.Context, rate float64) error
	SetLoop(ctx context.Context, loop bool) error

	// SetOption writes a raw surface option such as hwdec or hls-bitrate.
	SetOption(ctx context.Context, name string, value any) error

	// SelectTrack selects the track with the given id. id < 0 disables the kind
	// (subtitles) or restores automatic selection (video, audio).
	SelectTrack(ctx context.Context, kind TrackKind, id int) error

	// AddSubtitle attaches an external subtitle file without selecting it.
	AddSubtitle(ctx context.Context, src, title, lang string) error

	SetFullscreen(ctx context.Context, on bool) error
	SetOnTop(ctx context.Context, on bool) error

	Tracks(ctx context.Context) ([]Track, error)

	// CanPlayType reports whether the surface can play mime natively.
	CanPlayType(mime string) bool

	// SupportsDemuxer reports whether the surface has the named container demuxer.
	SupportsDemuxer(name string) bool

	Fields() Fields

	// Subscribe registers fn for every event. The returned function removes it.
	Subscribe(fn func(Event)) (unsubscribe func())

	Close() error
}

// ClampSeek bounds t to [0, duration] for the given snapshot.
// ok is false when the surface has no metadata yet and the seek must be dropped.
func ClampSeek(t float64, f Fields) (clamped float64, ok bool) {
	if f.ReadyState < HaveMetadata {
		log.Debugf("seek to %.2f dropped: ready state %s", t, f.ReadyState)
		return 0, false
	}

	if t < 0 || math.IsNaN(t) {
		return 0, true
	}

	if f.HasValidDuration() && t > f.Duration {
		return f.Duration, true
	}

	return t, true
}
