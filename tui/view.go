package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hlsplay/hlsplay/color"
	"github.com/hlsplay/hlsplay/icon"
	"github.com/hlsplay/hlsplay/key"
	"github.com/hlsplay/hlsplay/playback"
	"github.com/hlsplay/hlsplay/style"
	"github.com/hlsplay/hlsplay/util"
	"github.com/muesli/reflow/wrap"
	"github.com/spf13/viper"
)

var (
	listExtraPaddingStyle = lipgloss.NewStyle().Padding(1, 2, 1, 0)
	paddingStyle          = lipgloss.NewStyle().Padding(1, 2)
)

// Screen layout of the player view. Mouse handling depends on it.
const (
	padTop, padLeft = 1, 2

	trackLine  = 4
	statusLine = 7

	trackRow = padTop + trackLine

	promptWidth = 12
)

func (b *statefulBubble) track() (left, width int) {
	return padLeft, b.width
}

func (b *statefulBubble) overControls(y int) bool {
	return y >= padTop+trackLine && y <= padTop+statusLine
}

func (b *statefulBubble) View() string {
	var output string

	switch b.state {
	case historyState:
		output = b.viewHistory()
	default:
		output = b.viewPlayer()
	}

	return b.notifier.View(output)
}

func (b *statefulBubble) viewHistory() string {
	return listExtraPaddingStyle.Render(b.historyC.View())
}

func (b *statefulBubble) viewPlayer() string {
	s := b.controller.State()
	truncate := style.Truncate(b.width)

	lines := []string{
		truncate(style.Title("hlsplay") + " " + style.Faint(s.Source)),
		"",
		b.viewBadge(s),
		"",
	}

	if b.controller.ControlsVisible() {
		lines = append(lines,
			renderTrack(b.width, s),
			truncate(b.viewTimes(s)),
			"",
			truncate(b.viewStatus(s)),
		)
	} else {
		lines = append(lines, "", "", "", "")
	}

	if s.Phase == playback.Error {
		lines = append(lines, "", b.viewError(s))
	}

	if b.state.prompt() {
		lines = append(lines, "", b.viewPrompt())
	}

	return b.renderLines(true, lines)
}

func (b *statefulBubble) viewBadge(s playback.State) string {
	var badge string

	switch {
	case s.Phase == playback.Error:
		badge = style.Badge(color.Failed)(icon.Get(icon.Fail) + " ERROR")
	case s.Phase == playback.Idle:
		badge = style.Badge(color.Idle)("IDLE")
	case s.Phase == playback.Loading, s.Buffering:
		badge = style.Badge(color.Buffering)(icon.Get(icon.Buffering)+" BUFFERING") + " " + b.spinnerC.View()
	case s.Seeking:
		badge = style.Badge(color.Buffering)("SEEKING") + " " + b.spinnerC.View()
	case s.PlayingConfirmed():
		badge = style.Badge(color.Playing)(icon.Get(icon.Play) + " PLAYING")
	default:
		badge = style.Badge(color.Paused)(icon.Get(icon.Pause) + " PAUSED")
	}

	if s.Live {
		badge += " " + style.Tag(color.New("230"), color.Red)("LIVE")
	}

	if s.ShowPlayOverlay() {
		badge += "  " + style.Faint("press "+b.keymap.TogglePlay.Help().Key+" to play")
	}
	return badge
}

func (b *statefulBubble) viewTimes(s playback.State) string {
	times := util.FormatTimestamp(s.CurrentTime)
	if !s.Live {
		times += " / " + util.FormatTimestamp(s.Duration)
	}

	if t, ok := b.hover.Get(); ok {
		times += "  " + style.Fg(color.Orange)("⇢ "+util.FormatTimestamp(t))
	}
	return times
}

func (b *statefulBubble) viewStatus(s playback.State) string {
	var items []string

	if s.Muted {
		items = append(items, icon.Get(icon.Muted)+" muted")
	} else {
		items = append(items, fmt.Sprintf("%s %.0f%%", icon.Get(icon.Volume), s.Volume*100))
	}

	items = append(items, fmt.Sprintf("%gx", s.Rate))

	if len(s.Levels) > 0 {
		quality := icon.Get(icon.Quality) + " " + s.QualityLabel()
		if kbps := s.BitrateKbps(); kbps > 0 && viper.GetBool(key.TUIShowBitrate) {
			quality += style.Faint(fmt.Sprintf(" %d kbps", kbps))
		}
		items = append(items, quality)
	}

	if len(s.Subtitles) > 0 {
		items = append(items, icon.Get(icon.Subtitles)+" "+subtitleLabel(s))
	}

	if s.CanSelectAudio() {
		items = append(items, "♪ "+audioLabel(s))
	}

	if s.Loop {
		items = append(items, icon.Get(icon.Loop))
	}
	if s.Fullscreen {
		items = append(items, icon.Get(icon.Fullscreen))
	}
	if s.PiP {
		items = append(items, icon.Get(icon.PiP))
	}

	return strings.Join(items, "  ")
}

func (b *statefulBubble) viewError(s playback.State) string {
	lines := []string{
		style.ErrorTitle("Error"),
		"",
		wrap.String(style.Fg(color.Failed)(s.ErrorMessage), b.width),
	}

	if s.Retryable {
		lines = append(lines, "", style.Faint("press "+b.keymap.Retry.Help().Key+" to retry"))
	}
	return strings.Join(lines, "\n")
}

func (b *statefulBubble) viewPrompt() string {
	title := "Open URL"
	if b.state == jumpState {
		title = "Jump to"
	}

	lines := []string{style.Title(title), "", b.inputC.View()}
	if suggestion, ok := b.suggestion.Get(); ok {
		lines = append(lines, style.Faint(style.Truncate(b.width-4)(suggestion)))
	}

	return style.Overlay(b.width - 2).Render(strings.Join(lines, "\n"))
}

func (b *statefulBubble) renderLines(addHelp bool, lines []string) string {
	l := strings.Join(lines, "\n")
	if addHelp {
		h := lipgloss.Height(l)
		helpC := b.helpC
		helpC.ShowAll = b.controller.HelpVisible()
		helpView := helpC.View(b.keymap)

		if pad := b.height - h - lipgloss.Height(helpView); pad > 0 {
			l += strings.Repeat("\n", pad)
		}
		l += "\n" + helpView
	}

	return paddingStyle.Render(l)
}

// renderTrack draws the progress track: played, buffered ahead, then the rest.
func renderTrack(width int, s playback.State) string {
	played, ahead, rest := segments(width, s.CurrentTime, s.BufferedEnd, s.Duration)
	return style.Fg(color.Played)(strings.Repeat("━", played)) +
		style.Fg(color.Buffered)(strings.Repeat("━", ahead)) +
		style.Fg(color.Unplayed)(strings.Repeat("─", rest))
}

// segments splits width cells between the played part, the buffered part
// ahead of it and the remainder.
func segments(width int, current, buffered, duration float64) (played, ahead, rest int) {
	if width <= 0 {
		return 0, 0, 0
	}
	if duration <= 0 {
		return 0, 0, width
	}

	cells := func(t float64) int {
		return int(util.Clamp(t/duration, 0, 1) * float64(width))
	}

	played = cells(current)
	ahead = max(cells(buffered)-played, 0)
	rest = width - played - ahead
	return played, ahead, rest
}

func subtitleLabel(s playback.State) string {
	if s.Subtitle < 0 || s.Subtitle >= len(s.Subtitles) {
		return "off"
	}

	t := s.Subtitles[s.Subtitle]
	switch {
	case t.Label != "":
		return t.Label
	case t.Lang != "":
		return t.Lang
	default:
		return fmt.Sprintf("track %d", s.Subtitle+1)
	}
}

func audioLabel(s playback.State) string {
	if s.Audio < 0 || s.Audio >= len(s.AudioTracks) {
		return "default"
	}

	t := s.AudioTracks[s.Audio]
	switch {
	case t.Label != "":
		return t.Label
	case t.Lang != "":
		return t.Lang
	default:
		return fmt.Sprintf("track %d", s.Audio+1)
	}
}
