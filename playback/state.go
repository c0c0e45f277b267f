// Package playback reconciles media element events, stream events and user
// intents into one coherent playback state.
//
// Machine is pure: Dispatch mutates the state and returns the effects the caller
// has to run against the element and the session. It never blocks and performs
// no I/O, so every precedence rule can be tested without a player.
package playback

import (
	"fmt"

	"github.com/hlsplay/hlsplay/player"
	"github.com/hlsplay/hlsplay/stream"
)

// Phase is the coarse playback phase. Buffering and Seeking are overlays on top of it.
type Phase int

const (
	Idle Phase = iota
	Loading
	Ready
	Playing
	Paused
	Error
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// TrackMode mirrors the rendering mode of a text track.
type TrackMode string

const (
	ModeShowing  TrackMode = "showing"
	ModeDisabled TrackMode = "disabled"
)

// SubtitleTrack is a selectable subtitle track.
type SubtitleTrack struct {
	ID    int       `json:"id"`
	Label string    `json:"label"`
	Lang  string    `json:"lang,omitempty"`
	Mode  TrackMode `json:"mode"`
}

// AudioTrack is a selectable audio track.
type AudioTrack struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Lang  string `json:"lang,omitempty"`
}

// State is everything the surface needs to render the player.
type State struct {
	Source     string `json:"source"`
	Generation uint64 `json:"-"`
	Phase      Phase  `json:"phase"`

	// Intent is the last play/pause the user asked for. It is what the play
	// button shows.
	Intent bool `json:"playing"`

	// Confirmed is set while the surface is actually rendering frames.
	Confirmed bool `json:"confirmed"`

	Ready     bool `json:"ready"`
	Buffering bool `json:"buffering"`
	Seeking   bool `json:"seeking"`

	ReadyState  player.ReadyState `json:"ready_state"`
	CurrentTime float64           `json:"current_time"`
	Duration    float64           `json:"duration"`
	BufferedEnd float64           `json:"buffered_end"`

	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted"`
	Rate   float64 `json:"rate"`
	Loop   bool    `json:"loop"`

	Levels       []stream.Level `json:"levels"`
	CurrentLevel int            `json:"current_level"`
	AutoLevel    bool           `json:"auto_level"`
	Live         bool           `json:"live"`

	Subtitles   []SubtitleTrack `json:"subtitles"`
	Subtitle    int             `json:"subtitle"`
	AudioTracks []AudioTrack    `json:"audio_tracks"`
	Audio       int             `json:"audio"`

	Fullscreen bool `json:"fullscreen"`
	PiP        bool `json:"pip"`

	ErrorKind    stream.ErrorKind `json:"error_kind,omitempty"`
	ErrorMessage string           `json:"error,omitempty"`
	Retryable    bool             `json:"retryable"`

	Autoplay bool `json:"autoplay"`

	networkRetries  int
	mediaRecoveries int
	loadStarted     bool
	played          bool

	// surfacePlaying is the surface's pause flag once every requested flip
	// has landed; flips counts the requested flips not yet reported.
	surfacePlaying bool
	flips          int
}

// Initial is the state before any source is set.
func Initial() State {
	return State{
		Phase:        Idle,
		Volume:       1,
		Rate:         1,
		CurrentLevel: -1,
		AutoLevel:    true,
		Subtitle:     -1,
		Audio:        -1,
	}
}

// PlayingConfirmed reports whether intent and surface agree on playback.
func (s State) PlayingConfirmed() bool {
	return s.Intent && s.Confirmed
}

// ShowPlayOverlay reports whether the big play button is visible. It hides only
// once playback is both requested and confirmed, and never competes with the
// buffering indicator.
func (s State) ShowPlayOverlay() bool {
	switch s.Phase {
	case Ready, Playing, Paused:
		return !s.Buffering && !s.PlayingConfirmed()
	}
	return false
}

// Level returns the level currently played, if known.
func (s State) Level() (stream.Level, bool) {
	if s.CurrentLevel < 0 || s.CurrentLevel >= len(s.Levels) {
		return stream.Level{}, false
	}
	return s.Levels[s.CurrentLevel], true
}

// BitrateKbps is the bitrate of the level currently played, 0 if unknown.
func (s State) BitrateKbps() int {
	level, ok := s.Level()
	if !ok {
		return 0
	}
	return level.BitrateKbps()
}

// QualityLabel is the label shown for the quality selector.
func (s State) QualityLabel() string {
	level, ok := s.Level()
	switch {
	case !ok && s.AutoLevel:
		return "Auto"
	case !ok:
		return "-"
	case s.AutoLevel:
		return "Auto (" + level.Label() + ")"
	default:
		return level.Label()
	}
}

// ActiveSubtitles returns the tracks whose mode is showing.
func (s State) ActiveSubtitles() []SubtitleTrack {
	var active []SubtitleTrack
	for _, t := range s.Subtitles {
		if t.Mode == ModeShowing {
			active = append(active, t)
		}
	}
	return active
}

// CanSelectAudio reports whether the audio track selector is offered.
func (s State) CanSelectAudio() bool {
	return len(s.AudioTracks) > 1
}
