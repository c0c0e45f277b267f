package transport

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hlsplay/hlsplay/log"
)

// Command names accepted by Exec.
const (
	CommandPlay       = "play"
	CommandPause      = "pause"
	CommandToggle     = "toggle"
	CommandSeek       = "seek"
	CommandSkip       = "skip"
	CommandVolume     = "volume"
	CommandMute       = "mute"
	CommandLoop       = "loop"
	CommandRate       = "rate"
	CommandQuality    = "quality"
	CommandSubtitle   = "subtitle"
	CommandAudio      = "audio"
	CommandFullscreen = "fullscreen"
	CommandPiP        = "pip"
	CommandRetry      = "retry"
	CommandOpen       = "open"
)

// CommandNames lists every command Exec understands.
var CommandNames = []string{
	CommandPlay, CommandPause, CommandToggle, CommandSeek, CommandSkip,
	CommandVolume, CommandMute, CommandLoop, CommandRate, CommandQuality,
	CommandSubtitle, CommandAudio, CommandFullscreen, CommandPiP, CommandRetry,
	CommandOpen,
}

// Command is a transport command issued from outside the keyboard, such as the
// remote control API. It is a message: send it into the event loop and let
// Handle run it.
type Command struct {
	Name string
	// Value is the time, offset, volume or rate, depending on Name.
	Value float64
	// Index is the level or track index.
	Index int
	URL   string
}

// Exec runs cmd.
func (c *Controller) Exec(cmd Command) tea.Cmd {
	switch cmd.Name {
	case CommandPlay:
		return c.Play()
	case CommandPause:
		return c.Pause()
	case CommandToggle:
		return c.TogglePlay()
	case CommandSeek:
		return c.SeekTo(cmd.Value)
	case CommandSkip:
		return c.SeekTo(c.machine.State().CurrentTime + cmd.Value)
	case CommandVolume:
		return c.SetVolume(cmd.Value)
	case CommandMute:
		return c.ToggleMute()
	case CommandLoop:
		return c.ToggleLoop()
	case CommandRate:
		return c.SetRate(cmd.Value)
	case CommandQuality:
		return c.SetQuality(cmd.Index)
	case CommandSubtitle:
		return c.SetSubtitle(cmd.Index)
	case CommandAudio:
		return c.SetAudioTrack(cmd.Index)
	case CommandFullscreen:
		return c.ToggleFullscreen()
	case CommandPiP:
		return c.TogglePiP()
	case CommandRetry:
		return c.Retry()
	case CommandOpen:
		return c.Open(cmd.URL, cmd.Value)
	}

	log.Warnf("unknown command %q", cmd.Name)
	return nil
}
