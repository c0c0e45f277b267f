package playback

import (
	"github.com/hlsplay/hlsplay/log"
	"github.com/hlsplay/hlsplay/player"
	"github.com/hlsplay/hlsplay/stream"
	"github.com/samber/lo"
)

// Error messages shown for each kind of fatal error.
const (
	MessageUnsupported = "This player does not support this video format."
	MessageNetwork     = "Network error while loading the video. Press r to retry."
	MessageMedia       = "The video could not be decoded. Try another source."
	MessageGeneric     = "Cannot load this video. Try another source."
)

// Machine holds the playback state. It is not safe for concurrent use; the
// owner serialises every Dispatch.
type Machine struct {
	state State
}

func NewMachine() *Machine {
	return &Machine{state: Initial()}
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	s := m.state
	s.Levels = append([]stream.Level(nil), s.Levels...)
	s.Subtitles = append([]SubtitleTrack(nil), s.Subtitles...)
	s.AudioTracks = append([]AudioTrack(nil), s.AudioTracks...)
	return s
}

// Dispatch applies ev and returns the effects to run, in order.
func (m *Machine) Dispatch(ev Event) []Effect {
	switch ev := ev.(type) {
	case SourceChanged:
		return m.sourceChanged(ev)
	case Media:
		return m.media(ev.Event)
	case Stream:
		return m.stream(ev.Event)
	}

	if m.state.Phase == Error {
		if _, ok := ev.(RetryIntent); ok {
			return m.retry()
		}
		log.Debugf("ignoring %T while in error", ev)
		return nil
	}

	if m.state.Phase == Idle {
		log.Debugf("ignoring %T without a source", ev)
		return nil
	}

	return m.intent(ev)
}

func (m *Machine) sourceChanged(ev SourceChanged) []Effect {
	prev := m.state

	s := Initial()
	s.Source = ev.URL
	s.Generation = ev.Generation
	s.Phase = Loading
	s.Autoplay = ev.Autoplay
	s.Loop = ev.Loop
	// user preferences survive a source change, media state does not
	s.Volume = lo.Ternary(ev.Volume > 0, ev.Volume, prev.Volume)
	s.Muted = prev.Muted
	s.Rate = lo.Ternary(ev.Rate > 0, ev.Rate, prev.Rate)
	s.Fullscreen = prev.Fullscreen
	s.PiP = prev.PiP
	s.surfacePlaying = prev.surfacePlaying
	s.flips = prev.flips

	m.state = s

	// a new source starts paused until it is ready
	if s.surfacePlaying {
		m.request(false)
		return []Effect{EffectPause{}}
	}
	return nil
}

// request records a play or pause command sent to the surface.
func (m *Machine) request(play bool) {
	s := &m.state
	s.Intent = play
	s.Confirmed = false
	if s.surfacePlaying != play {
		s.surfacePlaying = play
		s.flips++
	}
}

// surfacePaused follows the surface's pause flag. Flips we asked for are
// counted off; any other flip was made by the surface itself and becomes the
// new intent.
func (m *Machine) surfacePaused(paused bool) {
	s := &m.state
	if paused {
		s.Confirmed = false
	}

	if s.flips > 0 {
		s.flips--
		return
	}

	s.surfacePlaying = !paused
	if s.Phase == Error || s.Intent == !paused {
		return
	}

	s.Intent = !paused
	if paused && s.Ready {
		s.played = true
	}
	m.setPhase()
}

func (m *Machine) setPhase() {
	s := &m.state
	if s.Phase == Error || s.Phase == Idle || s.Phase == Loading {
		return
	}
	switch {
	case s.Intent:
		s.Phase = Playing
	case s.played:
		s.Phase = Paused
	default:
		s.Phase = Ready
	}
}

func (m *Machine) media(ev player.Event) []Effect {
	s := &m.state

	if s.Phase == Idle {
		return nil
	}

	// events before loadstart belong to the previous file
	if !s.loadStarted && ev.Kind != player.LoadStart {
		return nil
	}

	switch ev.Kind {
	case player.VolumeChange:
		s.Volume, s.Muted = ev.Fields.Volume, ev.Fields.Muted
		return nil
	case player.RateChange:
		s.Rate = ev.Fields.Rate
		return nil
	case player.FullscreenChange:
		s.Fullscreen = ev.Fields.Fullscreen
		return nil
	case player.PiPChange:
		s.PiP = ev.Fields.OnTop
		return nil
	case player.TrackListChange:
		m.tracks(ev.Tracks)
		return nil
	case player.PauseEvent, player.PlayEvent:
		// the pause flag outlives the file, so it is followed even before loadstart
		m.surfacePaused(ev.Kind == player.PauseEvent)
		return nil
	}

	if s.Phase == Error {
		return nil
	}

	s.ReadyState = ev.Fields.ReadyState

	var effects []Effect
	switch ev.Kind {
	case player.LoadStart:
		s.loadStarted = true
		s.Buffering = true

	case player.LoadedMetadata, player.DurationChange:
		s.Duration = validDuration(ev.Fields)

	case player.LoadedData, player.CanPlay, player.CanPlayThrough:
		if !s.Seeking {
			s.Buffering = false
		}

	case player.Waiting, player.Stalled:
		s.Buffering = true

	case player.Seeking:
		s.Seeking = true
		s.Buffering = true

	case player.Seeked:
		s.Seeking = false
		s.Buffering = false

	case player.Playing:
		// rendering frames settles both overlays no matter what came before
		s.Buffering = false
		s.Seeking = false
		s.Confirmed = s.Intent
		if s.Intent {
			s.played = true
			// a recovery that renders frames again has worked
			s.networkRetries, s.mediaRecoveries = 0, 0
		}

	case player.TimeUpdate:
		if ev.Fields.ReadyState < player.HaveFutureData {
			return nil
		}
		s.CurrentTime = ev.Fields.CurrentTime

	case player.Progress:
		s.BufferedEnd = ev.Fields.BufferedEnd

	case player.Ended:
		effects = m.ended()

	case player.ErrorEvent:
		// fatal surface errors reach the machine classified, through the stream session
	}

	m.setPhase()
	return effects
}

func (m *Machine) ended() []Effect {
	s := &m.state
	if s.Loop {
		s.CurrentTime = 0
		// keep-open leaves the surface paused at the end
		s.surfacePlaying = false
		m.request(true)
		return []Effect{EffectSeek{Time: 0}, EffectPlay{}}
	}

	s.Intent = false
	s.Confirmed = false
	s.Buffering = false
	s.played = true
	if s.Duration > 0 {
		s.CurrentTime = s.Duration
	}
	return nil
}

func (m *Machine) tracks(tracks []player.Track) {
	s := &m.state

	var subs []SubtitleTrack
	var audio []AudioTrack
	for _, t := range tracks {
		label := lo.CoalesceOrEmpty(t.Title, t.Lang)
		switch t.Kind {
		case player.SubtitleTrack:
			subs = append(subs, SubtitleTrack{ID: t.ID, Label: lo.CoalesceOrEmpty(label, "Subtitle"), Lang: t.Lang, Mode: ModeDisabled})
		case player.AudioTrack:
			audio = append(audio, AudioTrack{ID: t.ID, Label: lo.CoalesceOrEmpty(label, "Audio"), Lang: t.Lang})
			if t.Selected {
				s.Audio = len(audio) - 1
			}
		}
	}

	// the selection is only ever changed by the user, so keep it by track id
	selected := -1
	if s.Subtitle >= 0 && s.Subtitle < len(s.Subtitles) {
		id := s.Subtitles[s.Subtitle].ID
		_, selected, _ = lo.FindIndexOf(subs, func(t SubtitleTrack) bool { return t.ID == id })
	}
	s.Subtitles = subs
	s.Subtitle = selected
	m.applySubtitleModes()

	s.AudioTracks = audio
	if s.Audio >= len(audio) {
		s.Audio = -1
	}
}

func (m *Machine) applySubtitleModes() {
	for i := range m.state.Subtitles {
		m.state.Subtitles[i].Mode = lo.Ternary(i == m.state.Subtitle, ModeShowing, ModeDisabled)
	}
}

func (m *Machine) stream(ev stream.Event) []Effect {
	s := &m.state

	if s.Phase == Idle || ev.Generation != s.Generation {
		log.Debugf("dropping stale %s (generation %d, current %d)", ev.Kind, ev.Generation, s.Generation)
		return nil
	}

	switch ev.Kind {
	case stream.ManifestParsed:
		if ev.Manifest != nil {
			s.Levels = append([]stream.Level(nil), ev.Manifest.Levels...)
			s.Live = ev.Manifest.Live
		}
		s.CurrentLevel = ev.FirstLevel
		s.AutoLevel = ev.Auto

	case stream.LevelSwitched:
		s.CurrentLevel = ev.Level

	case stream.Ready:
		if s.Phase != Loading {
			return nil
		}
		s.Ready = true
		s.Phase = Ready
		if s.Autoplay && !s.Intent {
			m.request(true)
			m.setPhase()
			return []Effect{EffectPlay{}}
		}
		m.setPhase()

	case stream.Failed:
		return m.failed(ev.Err)
	}

	return nil
}

func (m *Machine) failed(err *stream.Error) []Effect {
	s := &m.state
	if err == nil {
		return nil
	}

	if !err.Fatal {
		log.Warnf("recoverable stream error: %v", err)
		return nil
	}

	report := EffectReportError{Kind: err.Kind, Err: err}

	switch err.Kind {
	case stream.NetworkError:
		if s.networkRetries == 0 {
			s.networkRetries++
			s.Buffering = true
			return []Effect{report, EffectRecoverNetwork{Position: s.CurrentTime}}
		}
		m.fail(err.Kind, MessageNetwork, true)
		return []Effect{report}

	case stream.MediaError:
		if s.mediaRecoveries == 0 {
			s.mediaRecoveries++
			s.Buffering = true
			return []Effect{report, EffectRecoverMedia{Position: s.CurrentTime}}
		}
		m.fail(err.Kind, MessageMedia, false)
		return []Effect{report, EffectTeardown{}}

	case stream.Unsupported:
		m.fail(err.Kind, MessageUnsupported, false)
		return []Effect{report, EffectTeardown{}}

	default:
		m.fail(err.Kind, MessageGeneric, false)
		return []Effect{report, EffectTeardown{}}
	}
}

func (m *Machine) fail(kind stream.ErrorKind, message string, retryable bool) {
	s := &m.state
	s.Phase = Error
	s.ErrorKind = kind
	s.ErrorMessage = message
	s.Retryable = retryable
	s.Intent = false
	s.Confirmed = false
	s.Buffering = false
	s.Seeking = false
}

func (m *Machine) retry() []Effect {
	s := &m.state
	if !s.Retryable {
		return nil
	}

	s.ErrorKind = stream.NoError
	s.ErrorMessage = ""
	s.Retryable = false
	s.Buffering = true
	s.Phase = lo.Ternary(s.Ready, Paused, Loading)
	if s.Phase == Paused {
		m.setPhase()
	}
	return []Effect{EffectRecoverNetwork{Position: s.CurrentTime}}
}

func (m *Machine) intent(ev Event) []Effect {
	s := &m.state

	switch ev := ev.(type) {
	case PlayIntent:
		m.request(true)
		m.setPhase()
		return []Effect{EffectPlay{}}

	case PauseIntent:
		m.request(false)
		if s.Ready {
			s.played = true
		}
		m.setPhase()
		return []Effect{EffectPause{}}

	case PlayRejected:
		log.Infof("play rejected, staying paused: %v", ev.Err)
		// the refused flip never happens; if a pause followed it, neither does that one
		if s.surfacePlaying {
			s.flips--
		} else {
			s.flips -= 2
		}
		s.flips = max(s.flips, 0)
		s.surfacePlaying = false
		s.Intent = false
		s.Confirmed = false
		m.setPhase()
		return nil

	case SeekIntent:
		target, ok := player.ClampSeek(ev.Time, player.Fields{ReadyState: s.ReadyState, Duration: s.Duration})
		if !ok {
			return nil
		}
		s.CurrentTime = target
		return []Effect{EffectSeek{Time: target}}

	case VolumeIntent:
		v := lo.Clamp(ev.Volume, 0, 1)
		s.Volume = v
		if v > 0 {
			s.Muted = false
		}
		return []Effect{EffectSetVolume{Volume: v}}

	case MuteIntent:
		s.Muted = ev.Muted
		return []Effect{EffectSetMuted{Muted: ev.Muted}}

	case RateIntent:
		s.Rate = ev.Rate
		return []Effect{EffectSetRate{Rate: ev.Rate}}

	case LoopIntent:
		s.Loop = ev.Loop
		return []Effect{EffectSetLoop{Loop: ev.Loop}}

	case QualityIntent:
		if ev.Index < -1 || ev.Index >= len(s.Levels) || len(s.Levels) == 0 {
			return nil
		}
		s.AutoLevel = ev.Index == -1
		if !s.AutoLevel {
			s.CurrentLevel = ev.Index
		}
		return []Effect{EffectSetLevel{Index: ev.Index}}

	case SubtitleIntent:
		if ev.Index < -1 || ev.Index >= len(s.Subtitles) {
			return nil
		}
		s.Subtitle = ev.Index
		m.applySubtitleModes()
		if ev.Index < 0 {
			return []Effect{EffectSelectSubtitle{ID: -1}}
		}
		return []Effect{EffectSelectSubtitle{ID: s.Subtitles[ev.Index].ID}}

	case AudioIntent:
		if !s.CanSelectAudio() || ev.Index < 0 || ev.Index >= len(s.AudioTracks) {
			return nil
		}
		s.Audio = ev.Index
		return []Effect{EffectSelectAudio{ID: s.AudioTracks[ev.Index].ID}}

	case FullscreenIntent:
		return []Effect{EffectSetFullscreen{On: ev.On}}

	case PiPIntent:
		return []Effect{EffectSetPiP{On: ev.On}}

	case RetryIntent:
		return nil
	}

	log.Warnf("unhandled playback event %T", ev)
	return nil
}

func validDuration(f player.Fields) float64 {
	if !f.HasValidDuration() {
		return 0
	}
	return f.Duration
}
