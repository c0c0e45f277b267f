// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// App is the canonical application identifier used for filesystem paths and CLI branding.
	App = "hlsplay"

	// Version is the current application semantic version string.
	Version = "0.3.1"

	// UserAgent is the HTTP User-Agent sent when fetching manifests.
	UserAgent = "hlsplay/" + Version

	Repository  = "https://github.com/hlsplay/hlsplay"
	ReleasesAPI = "https://api.github.com/repos/hlsplay/hlsplay/releases/latest"
)

// Build metadata, injected at link time with -ldflags "-X".
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)

// MIME types accepted for adaptive streaming manifests.
const (
	MimeHLS       = "application/vnd.apple.mpegurl"
	MimeHLSLegacy = "application/x-mpegurl"
)
