package playback

import (
	"github.com/hlsplay/hlsplay/player"
	"github.com/hlsplay/hlsplay/stream"
)

// Event is anything Dispatch accepts.
type Event interface {
	event()
}

// SourceChanged starts a new source. Everything is reset.
type SourceChanged struct {
	URL        string
	Generation uint64
	Autoplay   bool
	Loop       bool
	Volume     float64
	Rate       float64
}

// Media wraps an event of the media element.
type Media struct {
	player.Event
}

// Stream wraps an event of the stream session.
type Stream struct {
	stream.Event
}

type (
	PlayIntent  struct{}
	PauseIntent struct{}

	// PlayRejected is the failed outcome of a play command.
	PlayRejected struct {
		Err error
	}

	SeekIntent struct {
		Time float64
	}

	VolumeIntent struct {
		Volume float64
	}

	MuteIntent struct {
		Muted bool
	}

	RateIntent struct {
		Rate float64
	}

	LoopIntent struct {
		Loop bool
	}

	// QualityIntent selects a level, -1 for automatic.
	QualityIntent struct {
		Index int
	}

	// SubtitleIntent selects a subtitle track, -1 for none.
	SubtitleIntent struct {
		Index int
	}

	AudioIntent struct {
		Index int
	}

	FullscreenIntent struct {
		On bool
	}

	PiPIntent struct {
		On bool
	}

	// RetryIntent reloads after a retryable error.
	RetryIntent struct{}
)

func (SourceChanged) event()    {}
func (Media) event()            {}
func (Stream) event()           {}
func (PlayIntent) event()       {}
func (PauseIntent) event()      {}
func (PlayRejected) event()     {}
func (SeekIntent) event()       {}
func (VolumeIntent) event()     {}
func (MuteIntent) event()       {}
func (RateIntent) event()       {}
func (LoopIntent) event()       {}
func (QualityIntent) event()    {}
func (SubtitleIntent) event()   {}
func (AudioIntent) event()      {}
func (FullscreenIntent) event() {}
func (PiPIntent) event()        {}
func (RetryIntent) event()      {}

// Effect is a command Dispatch asks the caller to run.
type Effect interface {
	effect()
}

type (
	EffectPlay  struct{}
	EffectPause struct{}

	EffectSeek struct {
		Time float64
	}

	EffectSetVolume struct {
		Volume float64
	}

	EffectSetMuted struct {
		Muted bool
	}

	EffectSetRate struct {
		Rate float64
	}

	EffectSetLoop struct {
		Loop bool
	}

	EffectSetLevel struct {
		Index int
	}

	// EffectSelectSubtitle selects the surface track ID, -1 for none.
	EffectSelectSubtitle struct {
		ID int
	}

	EffectSelectAudio struct {
		ID int
	}

	EffectSetFullscreen struct {
		On bool
	}

	EffectSetPiP struct {
		On bool
	}

	EffectRecoverNetwork struct {
		Position float64
	}

	EffectRecoverMedia struct {
		Position float64
	}

	// EffectTeardown destroys the stream session.
	EffectTeardown struct{}

	// EffectReportError invokes the external error callback.
	EffectReportError struct {
		Kind stream.ErrorKind
		Err  error
	}
)

func (EffectPlay) effect()           {}
func (EffectPause) effect()          {}
func (EffectSeek) effect()           {}
func (EffectSetVolume) effect()      {}
func (EffectSetMuted) effect()       {}
func (EffectSetRate) effect()        {}
func (EffectSetLoop) effect()        {}
func (EffectSetLevel) effect()       {}
func (EffectSelectSubtitle) effect() {}
func (EffectSelectAudio) effect()    {}
func (EffectSetFullscreen) effect()  {}
func (EffectSetPiP) effect()         {}
func (EffectRecoverNetwork) effect() {}
func (EffectRecoverMedia) effect()   {}
func (EffectTeardown) effect()       {}
func (EffectReportError) effect()    {}
