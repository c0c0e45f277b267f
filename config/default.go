package config

import (
	"strings"

	"github.com/hlsplay/hlsplay/key"
)

// Default holds every configuration field by key.
var Default = make(map[string]Field)

// EnvExposed holds the keys bound to environment variables.
var EnvExposed []string

func register(k string, v any, desc string, rule ...string) {
	if _, exists := Default[k]; exists {
		panic("duplicate config key: " + k)
	}

	Default[k] = Field{Key: k, Value: v, Description: desc, Rule: strings.Join(rule, ",")}
	EnvExposed = append(EnvExposed, k)
}

func init() {
	// player
	register(key.PlayerBinary, "mpv", "Path or name of the mpv executable", "required")
	register(key.PlayerAutoplay, true, "Start playback as soon as the stream is ready.\nA refused start is not an error, the player stays paused")
	register(key.PlayerLoop, false, "Loop the stream when it reaches the end")
	register(key.PlayerVolume, 100, "Initial volume, from 0 to 100", "gte=0", "lte=100")
	register(key.PlayerRate, "1", "Initial playback rate", "oneof=0.25 0.5 0.75 1 1.25 1.5 1.75 2")
	register(key.PlayerResume, true, "Resume a previously opened URL from its saved position")
	register(key.PlayerSkipSeconds, 10, "Seconds skipped by the left and right arrow keys", "gt=0")
	register(key.PlayerPiP, true, "Allow picture-in-picture (an always-on-top mpv window)")
	register(key.PlayerHeaders, []string{}, "Extra HTTP headers sent with manifest and segment requests.\nFormat: \"Name: value\"", "dive", "contains=:")

	// stream
	register(key.StreamPreferNative, false, "Hand the URL straight to mpv without parsing the manifest.\nQuality selection is unavailable in this mode")
	register(key.StreamStartLevel, -1, "Initial quality level index, -1 selects automatically", "gte=-1")
	register(key.StreamTimeout, 30, "Manifest request timeout in seconds, 0 disables it", "gte=0")

	// tui
	register(key.TUIHideControlsAfter, 3, "Seconds of pointer inactivity before the controls hide while playing", "gte=0")
	register(key.TUIShowBitrate, true, "Show the current bitrate next to the quality label")
	register(key.TUIMouse, true, "Click the track to seek and hover it to preview a time")

	// history
	register(key.HistorySave, true, "Save playback positions and opened URLs")
	register(key.SearchShowSuggestions, true, "Suggest previously opened URLs in the open prompt")

	// remote
	register(key.RemoteEnable, false, "Serve the remote control HTTP API while playing")
	register(key.RemoteAddr, "127.0.0.1:7789", "Listen address of the remote control HTTP API", "hostname_port")
	register(key.RemoteAuth, true, "Require the token kept in the system keyring (see `hlsplay token`)")

	// misc
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)", "oneof=emoji kaomoji plain squares nerd")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "From less to most verbose: panic, fatal, error, warn, info, debug, trace", "oneof=panic fatal error warn info debug trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Colored help output")
	register(key.CliVersionCheck, true, "Check for new releases")
}
