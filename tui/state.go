package tui

type state int

const (
	playerState state = iota
	openState
	jumpState
	historyState
)

// prompt reports whether s reads text from the keyboard.
func (s state) prompt() bool {
	return s == openState || s == jumpState
}
