package transport

import (
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hlsplay/hlsplay/log"
	"github.com/hlsplay/hlsplay/playback"
	"github.com/hlsplay/hlsplay/player"
	"github.com/hlsplay/hlsplay/util"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Open replaces the current source with url, starting at start seconds.
// The old session is torn down before this returns; the manifest is fetched
// off the loop and the outcome arrives as an OpenResult.
func (c *Controller) Open(url string, start float64) tea.Cmd {
	prev := c.machine.State()
	first := prev.Phase == playback.Idle

	gen := c.session.Begin()
	ev := playback.SourceChanged{
		URL:        url,
		Generation: gen,
		Autoplay:   c.opts.Autoplay,
		Loop:       lo.Ternary(first, c.opts.Loop, prev.Loop),
	}
	if first {
		ev.Volume = c.opts.Volume
		ev.Rate = c.opts.Rate
	}
	c.dispatch(ev)

	s := c.machine.State()
	c.apply([]playback.Effect{
		playback.EffectSetLoop{Loop: s.Loop},
		playback.EffectSetRate{Rate: s.Rate},
	})

	c.opts.Run(func() {
		err := c.session.Start(c.ctx, gen, url, start)
		c.post(OpenResult{URL: url, Generation: gen, Err: err})
	})
	return nil
}

func (c *Controller) TogglePlay() tea.Cmd {
	if c.machine.State().Intent {
		return c.Pause()
	}
	return c.Play()
}

func (c *Controller) Play() tea.Cmd {
	return c.dispatch(playback.PlayIntent{})
}

func (c *Controller) Pause() tea.Cmd {
	return c.dispatch(playback.PauseIntent{})
}

// SeekTo moves to t seconds. It is dropped before metadata is known.
func (c *Controller) SeekTo(t float64) tea.Cmd {
	return c.dispatch(playback.SeekIntent{Time: t})
}

// seekable returns the duration if positions can be mapped onto the track.
func (c *Controller) seekable() (float64, bool) {
	s := c.machine.State()
	if s.ReadyState < player.HaveMetadata || s.Duration <= 0 {
		return 0, false
	}
	return s.Duration, true
}

// SeekByClick seeks to the position under a click at column clickX of a track
// starting at trackLeft and trackWidth cells wide.
func (c *Controller) SeekByClick(clickX, trackLeft, trackWidth int) tea.Cmd {
	duration, ok := c.seekable()
	if !ok || trackWidth <= 0 {
		return nil
	}

	ratio := lo.Clamp(float64(clickX-trackLeft)/float64(trackWidth), 0, 1)
	return c.SeekTo(ratio * duration)
}

// HoverPreview returns the time under the pointer, if it is over the track.
func (c *Controller) HoverPreview(x, trackLeft, trackWidth int) mo.Option[float64] {
	duration, ok := c.seekable()
	if !ok || trackWidth <= 0 || x < trackLeft || x >= trackLeft+trackWidth {
		return mo.None[float64]()
	}
	return mo.Some(float64(x-trackLeft) / float64(trackWidth) * duration)
}

// Skip seeks dir skip intervals from the current time.
func (c *Controller) Skip(dir int) tea.Cmd {
	s := c.machine.State()
	return c.SeekTo(s.CurrentTime + float64(dir)*c.opts.Skip.Seconds())
}

// SeekDecile seeks to d tenths of the duration.
func (c *Controller) SeekDecile(d int) tea.Cmd {
	duration, ok := c.seekable()
	if !ok || d < 0 || d > 9 {
		return nil
	}
	return c.SeekTo(float64(d) / 10 * duration)
}

func (c *Controller) SetVolume(v float64) tea.Cmd {
	return c.dispatch(playback.VolumeIntent{Volume: util.Round(lo.Clamp(v, 0, 1), 2)})
}

// NudgeVolume changes the volume by delta, saturating at 0 and 1.
func (c *Controller) NudgeVolume(delta float64) tea.Cmd {
	return c.SetVolume(c.machine.State().Volume + delta)
}

func (c *Controller) ToggleMute() tea.Cmd {
	return c.dispatch(playback.MuteIntent{Muted: !c.machine.State().Muted})
}

func (c *Controller) ToggleLoop() tea.Cmd {
	return c.dispatch(playback.LoopIntent{Loop: !c.machine.State().Loop})
}

// SetRate selects one of Rates. Other values are ignored.
func (c *Controller) SetRate(rate float64) tea.Cmd {
	if !lo.Contains(Rates, rate) {
		log.Debugf("ignoring unsupported rate %v", rate)
		return nil
	}
	return c.dispatch(playback.RateIntent{Rate: rate})
}

// StepRate moves dir steps along Rates, stopping at either end.
func (c *Controller) StepRate(dir int) tea.Cmd {
	i := nearestRate(c.machine.State().Rate)
	return c.SetRate(Rates[lo.Clamp(i+dir, 0, len(Rates)-1)])
}

func nearestRate(rate float64) int {
	best := 0
	for i, r := range Rates {
		if math.Abs(r-rate) < math.Abs(Rates[best]-rate) {
			best = i
		}
	}
	return best
}

// SetQuality selects level i, -1 for automatic.
func (c *Controller) SetQuality(i int) tea.Cmd {
	return c.dispatch(playback.QualityIntent{Index: i})
}

// CycleQuality walks auto, then every level from the highest, then back to auto.
func (c *Controller) CycleQuality() tea.Cmd {
	s := c.machine.State()
	if len(s.Levels) == 0 {
		return nil
	}

	current := lo.Ternary(s.AutoLevel, -1, s.CurrentLevel)
	return c.SetQuality(cycle(current, len(s.Levels)))
}

// SetSubtitle shows subtitle track i and disables every other, -1 disables all.
func (c *Controller) SetSubtitle(i int) tea.Cmd {
	return c.dispatch(playback.SubtitleIntent{Index: i})
}

// CycleSubtitle walks off, then every track, then off again.
func (c *Controller) CycleSubtitle() tea.Cmd {
	s := c.machine.State()
	if len(s.Subtitles) == 0 {
		return nil
	}
	return c.SetSubtitle(cycle(s.Subtitle, len(s.Subtitles)))
}

// SetAudioTrack selects audio track i. Only offered with more than one track.
func (c *Controller) SetAudioTrack(i int) tea.Cmd {
	if !c.machine.State().CanSelectAudio() {
		return nil
	}
	return c.dispatch(playback.AudioIntent{Index: i})
}

func (c *Controller) CycleAudio() tea.Cmd {
	s := c.machine.State()
	if !s.CanSelectAudio() {
		return nil
	}
	return c.SetAudioTrack((s.Audio + 1) % len(s.AudioTracks))
}

// cycle steps from -1 through n-1 and wraps back to -1.
func cycle(current, n int) int {
	next := current + 1
	if next >= n {
		return -1
	}
	return next
}

// ToggleFullscreen requests the opposite of the observed fullscreen state.
// The flag itself only changes when the element reports it.
func (c *Controller) ToggleFullscreen() tea.Cmd {
	return c.dispatch(playback.FullscreenIntent{On: !c.machine.State().Fullscreen})
}

func (c *Controller) TogglePiP() tea.Cmd {
	if !c.opts.PiP {
		log.Debug("picture-in-picture is disabled")
		return nil
	}
	return c.dispatch(playback.PiPIntent{On: !c.machine.State().PiP})
}

func (c *Controller) ToggleHelp() {
	c.help = !c.help
}

// Retry reloads after a retryable error.
func (c *Controller) Retry() tea.Cmd {
	return c.dispatch(playback.RetryIntent{})
}

// PointerMoved shows the controls. While playing and away from the controls a
// hide is scheduled; over the controls any pending hide is cancelled.
func (c *Controller) PointerMoved(overControls bool) tea.Cmd {
	c.overControls = overControls
	if overControls || !c.machine.State().Intent {
		c.showControls()
		return nil
	}
	c.controls = true
	return c.scheduleHide()
}

func (c *Controller) showControls() {
	c.controls = true
	c.hideSeq++
}

func (c *Controller) scheduleHide() tea.Cmd {
	c.hideSeq++
	seq := c.hideSeq
	return tea.Tick(c.opts.HideAfter, func(time.Time) tea.Msg {
		return HideControls{Seq: seq}
	})
}
