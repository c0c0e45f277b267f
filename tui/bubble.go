// Package tui is the terminal control surface of the player.
package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/hlsplay/hlsplay/history"
	"github.com/hlsplay/hlsplay/internal/ui"
	"github.com/hlsplay/hlsplay/style"
	"github.com/hlsplay/hlsplay/transport"
	"github.com/hlsplay/hlsplay/util"
	"github.com/samber/mo"
)

// statefulBubble is the root model. Playback state lives in the controller;
// the bubble only keeps what is needed to lay the surface out.
type statefulBubble struct {
	state  state
	keymap *statefulKeymap

	controller *transport.Controller
	binding    *transport.Binding
	recorder   *history.Recorder

	// components
	spinnerC spinner.Model
	inputC   textinput.Model
	historyC list.Model
	helpC    help.Model

	width, height int
	suggestion    mo.Option[string]
	hover         mo.Option[float64]
	notifier      *ui.Model

	options *Options
}

func (b *statefulBubble) setState(s state) {
	b.state = s
	b.keymap.setState(s)
}

// resize propagates the terminal size to the components.
func (b *statefulBubble) resize(width, height int) {
	x, y := paddingStyle.GetFrameSize()
	xx, yy := listExtraPaddingStyle.GetFrameSize()

	b.width = width - x
	b.height = height - y

	b.historyC.SetSize(width-xx, height-yy)
	b.historyC.Help.Width = width - xx

	b.inputC.Width = b.width - promptWidth
	b.helpC.Width = b.width
}

func newBubble(options *Options) *statefulBubble {
	bubble := statefulBubble{
		keymap:     newStatefulKeymap(),
		controller: options.Controller,
		recorder:   options.Recorder,
		notifier:   &ui.Model{},
		options:    options,
	}

	bubble.helpC = help.New()

	bubble.spinnerC = spinner.New()
	bubble.spinnerC.Spinner = spinner.Dot
	bubble.spinnerC.Style = lipgloss.NewStyle().Foreground(style.Sky)

	bubble.inputC = textinput.New()
	bubble.inputC.CharLimit = 2048

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(style.AccentColor).
		Foreground(style.AccentColor).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedTitle

	bubble.historyC = list.New(nil, delegate, 0, 0)
	bubble.historyC.Title = "History"
	bubble.historyC.Styles.Title = lipgloss.NewStyle().Foreground(style.Surface).Background(style.Yellow).Padding(0, 1)
	bubble.historyC.Styles.NoItems = paddingStyle
	bubble.historyC.KeyMap = bubble.keymap.forList()
	bubble.historyC.AdditionalShortHelpKeys = bubble.keymap.ShortHelp
	bubble.historyC.SetFilteringEnabled(false)
	bubble.historyC.SetShowStatusBar(false)
	bubble.historyC.SetStatusBarItemName("entry", "entries")

	if w, h, err := util.TerminalSize(); err == nil {
		bubble.resize(w, h)
	}

	bubble.setState(playerState)
	return &bubble
}
