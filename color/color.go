// Package color provides a curated palette of colors.
package color

import "github.com/charmbracelet/lipgloss"

// New initializes a lipgloss.Color from a string value.
func New(value string) lipgloss.Color {
	return lipgloss.Color(value)
}

// Standard ANSI 8-color palette.
var (
	Red    = New("1")
	Green  = New("2")
	Yellow = New("3")
	Blue   = New("4")
	Purple = New("5")
	Cyan   = New("6")
	White  = New("7")
	Black  = New("8")
)

// High-intensity variants.
var (
	HiRed    = New("9")
	HiGreen  = New("10")
	HiYellow = New("11")
	HiBlue   = New("12")
	HiPurple = New("13")
	HiCyan   = New("14")
)

// Player phase colors.
var (
	Playing   = Green
	Paused    = Yellow
	Buffering = Cyan
	Failed    = HiRed
	Idle      = New("#808080")
)

// Progress track colors.
var (
	Played   = New("#cba6f7")
	Buffered = New("#6c7086")
	Unplayed = New("#313244")
	Orange   = New("#ffb703")
)
