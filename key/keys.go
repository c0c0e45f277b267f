// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// DefinedFieldsCount is the number of keys config registers.
const DefinedFieldsCount = 26

// Media Playback - these keys govern the external mpv process and the initial session parameters.
const (
	PlayerBinary      = "player.binary"
	PlayerAutoplay    = "player.autoplay"
	PlayerLoop        = "player.loop"
	PlayerVolume      = "player.volume"
	PlayerRate        = "player.rate"
	PlayerResume      = "player.resume"
	PlayerSkipSeconds = "player.skip_seconds"
	PlayerPiP         = "player.pip"
	PlayerHeaders     = "player.headers"
)

// Adaptive Streaming - these keys tune the manifest session.
const (
	StreamPreferNative = "stream.prefer_native"
	StreamStartLevel   = "stream.start_level"
	StreamTimeout      = "stream.timeout"
)

// Terminal User Interface (TUI) - these keys define the control surface behaviour.
const (
	TUIHideControlsAfter = "tui.hide_controls_after"
	TUIShowBitrate       = "tui.show_bitrate"
	TUIMouse             = "tui.mouse"
)

// History Tracking - these keys configure resume positions and opened-URL suggestions.
const (
	HistorySave           = "history.save"
	SearchShowSuggestions = "search.show_suggestions"
)

// Remote Control - these keys manage the optional HTTP control surface.
const (
	RemoteEnable = "remote.enable"
	RemoteAddr   = "remote.addr"
	RemoteAuth   = "remote.auth"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the non-TUI application behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
