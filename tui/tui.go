package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hlsplay/hlsplay/history"
	"github.com/hlsplay/hlsplay/key"
	"github.com/hlsplay/hlsplay/transport"
	"github.com/spf13/viper"
)

type Options struct {
	Controller *transport.Controller

	// URL is opened on start when set, at Start seconds.
	URL   string
	Start float64

	// Recorder, if set, is flushed before a new source replaces the current one and on exit.
	Recorder *history.Recorder

	// OnProgram is called with the program before it runs, so that other
	// goroutines can feed it messages.
	OnProgram func(*tea.Program)
}

// Run mounts the controller on a new program and blocks until the user quits.
func Run(options *Options) error {
	bubble := newBubble(options)

	programOptions := []tea.ProgramOption{tea.WithAltScreen()}
	if viper.GetBool(key.TUIMouse) {
		programOptions = append(programOptions, tea.WithMouseAllMotion())
	}

	program := tea.NewProgram(bubble, programOptions...)
	bubble.mount(program.Send)
	defer bubble.unmount()

	if options.OnProgram != nil {
		options.OnProgram(program)
	}

	_, err := program.Run()
	return err
}

func (b *statefulBubble) mount(send func(tea.Msg)) {
	b.binding = b.controller.Mount(b.keymap.Keymap, send)
}

// unmount releases the keyboard binding. The controller itself belongs to the caller.
func (b *statefulBubble) unmount() {
	if b.recorder != nil {
		b.recorder.Flush(b.controller.State())
	}
	if b.binding != nil {
		b.binding.Release()
	}
}
