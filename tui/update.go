package tui

import (
	"fmt"
	"strings"

	bubblesKey "github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hlsplay/hlsplay/history"
	"github.com/hlsplay/hlsplay/internal/ui"
	"github.com/hlsplay/hlsplay/key"
	"github.com/hlsplay/hlsplay/log"
	"github.com/hlsplay/hlsplay/playback"
	"github.com/hlsplay/hlsplay/player"
	"github.com/hlsplay/hlsplay/query"
	"github.com/hlsplay/hlsplay/util"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

func (b *statefulBubble) Init() tea.Cmd {
	if b.options.URL == "" {
		return tea.Batch(b.spinnerC.Tick, b.startPrompt(openState))
	}
	return tea.Batch(b.spinnerC.Tick, b.open(b.options.URL, mo.Some(b.options.Start)))
}

func (b *statefulBubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{b.notifier.Update(msg)}

	prev := b.controller.State()
	if cmd, ok := b.controller.Handle(msg); ok {
		cmds = append(cmds, cmd, b.notifyChange(prev))
		return b, tea.Batch(cmds...)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinnerC, cmd = b.spinnerC.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		cmds = append(cmds, b.handleKey(msg), b.notifyChange(prev))
	case tea.MouseMsg:
		cmds = append(cmds, b.handleMouse(msg))
	}

	return b, tea.Batch(cmds...)
}

func (b *statefulBubble) handleKey(msg tea.KeyMsg) tea.Cmd {
	if bubblesKey.Matches(msg, b.keymap.forceQuit) {
		return tea.Quit
	}

	switch b.state {
	case openState, jumpState:
		return b.handlePromptKey(msg)
	case historyState:
		return b.handleHistoryKey(msg)
	}

	switch {
	case bubblesKey.Matches(msg, b.keymap.Quit):
		return tea.Quit
	case bubblesKey.Matches(msg, b.keymap.Open):
		return b.startPrompt(openState)
	case bubblesKey.Matches(msg, b.keymap.jump):
		if _, ok := b.seekable(); !ok {
			return nil
		}
		return b.startPrompt(jumpState)
	case bubblesKey.Matches(msg, b.keymap.history):
		return b.showHistory()
	}

	if b.binding == nil {
		return nil
	}
	cmd, _ := b.binding.Dispatch(msg, b.inputC.Focused())
	return cmd
}

func (b *statefulBubble) startPrompt(s state) tea.Cmd {
	b.setState(s)
	b.suggestion = mo.None[string]()
	b.inputC.SetValue("")

	switch s {
	case openState:
		b.inputC.Prompt = "url › "
		b.inputC.Placeholder = "https://example.com/master.m3u8"
	case jumpState:
		b.inputC.Prompt = "time › "
		b.inputC.Placeholder = "1:30"
	}

	return tea.Batch(b.inputC.Focus(), textinput.Blink)
}

func (b *statefulBubble) closePrompt() {
	b.inputC.Blur()
	b.suggestion = mo.None[string]()
	b.setState(playerState)
}

func (b *statefulBubble) handlePromptKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case bubblesKey.Matches(msg, b.keymap.back):
		b.closePrompt()
		return nil
	case bubblesKey.Matches(msg, b.keymap.acceptSuggestion):
		if suggestion, ok := b.suggestion.Get(); ok {
			b.inputC.SetValue(suggestion)
			b.inputC.CursorEnd()
		}
		return nil
	case bubblesKey.Matches(msg, b.keymap.confirm):
		return b.submitPrompt()
	}

	var cmd tea.Cmd
	b.inputC, cmd = b.inputC.Update(msg)

	if b.state == openState && b.inputC.Value() != "" {
		b.suggestion = query.Suggest(b.inputC.Value())
	} else {
		b.suggestion = mo.None[string]()
	}
	return cmd
}

func (b *statefulBubble) submitPrompt() tea.Cmd {
	value := strings.TrimSpace(b.inputC.Value())
	if value == "" {
		return nil
	}

	switch b.state {
	case openState:
		b.closePrompt()
		return b.open(value, mo.None[float64]())
	case jumpState:
		t, err := util.ParseTimestamp(value)
		if err != nil {
			return ui.Notify(err.Error())
		}
		b.closePrompt()
		return b.controller.SeekTo(t)
	}
	return nil
}

// open replaces the current source. Without an explicit start the saved
// position is resumed when player.resume is on.
func (b *statefulBubble) open(url string, start mo.Option[float64]) tea.Cmd {
	if b.recorder != nil {
		b.recorder.Flush(b.controller.State())
	}

	if err := query.Remember(url, 1); err != nil {
		log.Warnf("remember %s: %v", url, err)
	}

	var cmds []tea.Cmd
	t, ok := start.Get()
	if !ok && viper.GetBool(key.PlayerResume) {
		if t, ok = history.Resume(url).Get(); ok {
			cmds = append(cmds, ui.Notify("resuming at "+util.FormatTimestamp(t)))
		}
	}

	b.hover = mo.None[float64]()
	return tea.Batch(append(cmds, b.controller.Open(url, t))...)
}

func (b *statefulBubble) showHistory() tea.Cmd {
	saved, err := history.Get()
	if err != nil {
		log.Warnf("read history: %v", err)
		return ui.Notify("history unavailable")
	}

	b.setState(historyState)
	b.historyC.ResetSelected()
	return b.historyC.SetItems(historyItems(saved))
}

func (b *statefulBubble) handleHistoryKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case bubblesKey.Matches(msg, b.keymap.back):
		b.setState(playerState)
		return nil
	case bubblesKey.Matches(msg, b.keymap.confirm):
		item, ok := b.historyC.SelectedItem().(*listItem)
		if !ok {
			return nil
		}
		b.setState(playerState)
		return b.open(item.position.URL, mo.None[float64]())
	case bubblesKey.Matches(msg, b.keymap.remove):
		item, ok := b.historyC.SelectedItem().(*listItem)
		if !ok {
			return nil
		}
		if err := history.Remove(item.position.URL); err != nil {
			log.Warnf("remove %s from history: %v", item.position.URL, err)
			return nil
		}
		b.historyC.RemoveItem(b.historyC.Index())
		return nil
	}

	var cmd tea.Cmd
	b.historyC, cmd = b.historyC.Update(msg)
	return cmd
}

func (b *statefulBubble) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if b.state != playerState {
		return nil
	}

	left, width := b.track()
	over := b.overControls(msg.Y)

	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && msg.Y == trackRow:
		return b.controller.SeekByClick(msg.X, left, width)
	case msg.Action == tea.MouseActionMotion:
		if msg.Y == trackRow {
			b.hover = b.controller.HoverPreview(msg.X, left, width)
		} else {
			b.hover = mo.None[float64]()
		}
		return b.controller.PointerMoved(over)
	}
	return nil
}

func (b *statefulBubble) seekable() (float64, bool) {
	s := b.controller.State()
	if s.ReadyState < player.HaveMetadata || s.Duration <= 0 {
		return 0, false
	}
	return s.Duration, true
}

// notifyChange announces a setting that changed since prev.
func (b *statefulBubble) notifyChange(prev playback.State) tea.Cmd {
	if note, ok := describeChange(prev, b.controller.State()).Get(); ok {
		return ui.Notify(note)
	}
	return nil
}

func describeChange(prev, next playback.State) mo.Option[string] {
	switch {
	case prev.Source != next.Source:
		return mo.None[string]()
	case prev.Muted != next.Muted && next.Muted:
		return mo.Some("muted")
	case prev.Volume != next.Volume || prev.Muted != next.Muted:
		return mo.Some(fmt.Sprintf("volume %.0f%%", next.Volume*100))
	case prev.Rate != next.Rate:
		return mo.Some(fmt.Sprintf("speed %gx", next.Rate))
	case prev.Loop != next.Loop:
		return mo.Some("loop " + onOff(next.Loop))
	case prev.AutoLevel != next.AutoLevel || (!next.AutoLevel && prev.CurrentLevel != next.CurrentLevel):
		return mo.Some("quality " + next.QualityLabel())
	case prev.Subtitle != next.Subtitle:
		return mo.Some("subtitles " + subtitleLabel(next))
	case prev.Audio != next.Audio && next.CanSelectAudio():
		return mo.Some("audio " + audioLabel(next))
	}
	return mo.None[string]()
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
