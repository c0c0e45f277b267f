package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/hlsplay/hlsplay/transport"
)

// statefulKeymap extends the transport commands with the keys of the prompts
// and the history list. Its help follows the current state.
type statefulKeymap struct {
	transport.Keymap
	state state

	forceQuit,
	confirm, back,
	acceptSuggestion,
	jump, history, remove,
	up, down key.Binding
}

func (k *statefulKeymap) setState(newState state) {
	k.state = newState
}

func newStatefulKeymap() *statefulKeymap {
	return &statefulKeymap{
		Keymap: transport.DefaultKeymap(),
		forceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		acceptSuggestion: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "accept suggestion"),
		),
		jump: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "jump to time"),
		),
		history: key.NewBinding(
			key.WithKeys("H"),
			key.WithHelp("H", "history"),
		),
		remove: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "remove"),
		),
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓", "down"),
		),
	}
}

func (k *statefulKeymap) ShortHelp() []key.Binding {
	switch k.state {
	case openState:
		return []key.Binding{k.confirm, k.acceptSuggestion, k.back}
	case jumpState:
		return []key.Binding{k.confirm, k.back}
	case historyState:
		return []key.Binding{k.confirm, k.remove, k.back}
	default:
		return append(k.Keymap.ShortHelp(), k.jump, k.history)
	}
}

func (k *statefulKeymap) FullHelp() [][]key.Binding {
	if k.state != playerState {
		return [][]key.Binding{k.ShortHelp()}
	}
	return append(k.Keymap.FullHelp(), []key.Binding{k.jump, k.history})
}

func (k *statefulKeymap) forList() list.KeyMap {
	return list.KeyMap{
		CursorUp:   k.up,
		CursorDown: k.down,
		ForceQuit:  k.forceQuit,
	}
}
