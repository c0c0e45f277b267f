package transport

import (
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hlsplay/hlsplay/color"
	"github.com/hlsplay/hlsplay/player"
	"github.com/hlsplay/hlsplay/style"
)

// Keymap is the keyboard command table.
type Keymap struct {
	TogglePlay,
	Back, Forward,
	VolumeUp, VolumeDown, Mute,
	Fullscreen, PiP, Loop,
	Subtitles, Quality, Audio,
	Slower, Faster,
	Decile,
	Retry, Help, Open, Quit key.Binding
}

func DefaultKeymap() Keymap {
	return Keymap{
		TogglePlay: key.NewBinding(
			key.WithKeys(" ", "k"),
			key.WithHelp(style.Fg(color.Orange)("space"), style.Fg(color.Orange)("play/pause")),
		),
		Back: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "back"),
		),
		Forward: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "forward"),
		),
		VolumeUp: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "volume up"),
		),
		VolumeDown: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "volume down"),
		),
		Mute: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mute"),
		),
		Fullscreen: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "fullscreen"),
		),
		PiP: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "picture in picture"),
		),
		Loop: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "loop"),
		),
		Subtitles: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "subtitles"),
		),
		Quality: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "quality"),
		),
		Audio: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "audio track"),
		),
		Slower: key.NewBinding(
			key.WithKeys("<", ","),
			key.WithHelp("<", "slower"),
		),
		Faster: key.NewBinding(
			key.WithKeys(">", "."),
			key.WithHelp(">", "faster"),
		),
		Decile: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("0-9", "jump to 0%-90%"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open url"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k Keymap) ShortHelp() []key.Binding {
	return []key.Binding{k.TogglePlay, k.Back, k.Forward, k.Mute, k.Open, k.Help, k.Quit}
}

func (k Keymap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.TogglePlay, k.Back, k.Forward, k.Decile, k.Slower, k.Faster},
		{k.VolumeUp, k.VolumeDown, k.Mute, k.Loop},
		{k.Quality, k.Subtitles, k.Audio, k.Fullscreen, k.PiP},
		{k.Retry, k.Open, k.Help, k.Quit},
	}
}

// Binding routes key presses to a mounted controller. It is acquired with
// Mount and must be released when the surface goes away.
type Binding struct {
	c        *Controller
	keys     Keymap
	unsub    func()
	once     sync.Once
	released atomic.Bool
}

// Mount connects the controller to the event loop. Element events, session
// events and asynchronous results are delivered through send until the
// returned binding is released.
func (c *Controller) Mount(keys Keymap, send func(tea.Msg)) *Binding {
	c.setSender(send)
	unsub := c.el.Subscribe(func(ev player.Event) {
		c.post(MediaMsg{Event: ev})
	})
	return &Binding{c: c, keys: keys, unsub: unsub}
}

// Release detaches the controller from the event loop. It is safe to call more than once.
func (b *Binding) Release() {
	b.once.Do(func() {
		b.released.Store(true)
		b.unsub()
		b.c.setSender(nil)
	})
}

func (b *Binding) Keymap() Keymap {
	return b.keys
}

// Dispatch runs the command bound to msg and reports whether one matched.
// Nothing runs while a text input has focus or after release. Open and Quit
// belong to the surface and are never handled here.
func (b *Binding) Dispatch(msg tea.KeyMsg, focused bool) (tea.Cmd, bool) {
	if focused || b.released.Load() {
		return nil, false
	}

	c, k := b.c, b.keys
	switch {
	case key.Matches(msg, k.TogglePlay):
		return c.TogglePlay(), true
	case key.Matches(msg, k.Back):
		return c.Skip(-1), true
	case key.Matches(msg, k.Forward):
		return c.Skip(1), true
	case key.Matches(msg, k.VolumeUp):
		return c.NudgeVolume(0.1), true
	case key.Matches(msg, k.VolumeDown):
		return c.NudgeVolume(-0.1), true
	case key.Matches(msg, k.Mute):
		return c.ToggleMute(), true
	case key.Matches(msg, k.Fullscreen):
		return c.ToggleFullscreen(), true
	case key.Matches(msg, k.PiP):
		return c.TogglePiP(), true
	case key.Matches(msg, k.Loop):
		return c.ToggleLoop(), true
	case key.Matches(msg, k.Subtitles):
		return c.CycleSubtitle(), true
	case key.Matches(msg, k.Quality):
		return c.CycleQuality(), true
	case key.Matches(msg, k.Audio):
		return c.CycleAudio(), true
	case key.Matches(msg, k.Slower):
		return c.StepRate(-1), true
	case key.Matches(msg, k.Faster):
		return c.StepRate(1), true
	case key.Matches(msg, k.Decile):
		return c.SeekDecile(int(msg.String()[0] - '0')), true
	case key.Matches(msg, k.Retry):
		return c.Retry(), true
	case key.Matches(msg, k.Help):
		c.ToggleHelp()
		return nil, true
	}
	return nil, false
}
