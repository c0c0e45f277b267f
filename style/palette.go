package style

import "github.com/charmbracelet/lipgloss"

// Palette of the control surface (catppuccin mocha).
var (
	Text    = lipgloss.Color("#cdd6f4")
	Surface = lipgloss.Color("#313244")
	Mauve   = lipgloss.Color("#cba6f7")
	Red     = lipgloss.Color("#f38ba8")
	Yellow  = lipgloss.Color("#f9e2af")
	Green   = lipgloss.Color("#a6e3a1")
	Sky     = lipgloss.Color("#89dceb")

	AccentColor       = Mauve
	HiRed             = Red
	ActiveBorderColor = AccentColor
)
