// Package icon renders the player's status symbols in the variant chosen by icons.variant:
// emoji, nerd-font glyphs, plain ASCII, kaomoji or Unicode squares.
package icon

import (
	"github.com/hlsplay/hlsplay/key"
	"github.com/spf13/viper"
)

// Visual Variant Constants - these define the supported aesthetic styles for icon rendering.
const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	kaomoji = "kaomoji"
	squares = "squares"
)

// AvailableVariants returns a slice of all registered icon style identifiers.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, kaomoji, squares}
}

// iconDef holds one symbol in every variant.
type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	kaomoji string
	squares string
}

// Get renders the symbol in the configured variant.
func (d *iconDef) Get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	case kaomoji:
		return d.kaomoji
	case squares:
		return d.squares
	default:
		return ""
	}
}

// Get returns the rendered string for a specified Icon identifier from the global registry.
func Get(i Icon) string {
	return icons[i].Get()
}

// Icon identifies a registered symbol.
type Icon int

const (
	Success Icon = iota
	Fail
	Progress
	Play
	Pause
	Buffering
	Loop
	Muted
	Volume
	Subtitles
	Quality
	Fullscreen
	PiP
)

var icons = map[Icon]*iconDef{
	Success:    {emoji: "✅", nerd: "\uf00c", plain: "v", kaomoji: "(ᵔ◡ᵔ)", squares: "■"},
	Fail:       {emoji: "💀", nerd: "\uf00d", plain: "x", kaomoji: "(×_×)", squares: "□"},
	Progress:   {emoji: "⏳", nerd: "\uf251", plain: "~", kaomoji: "(・_・)", squares: "▣"},
	Play:       {emoji: "▶️", nerd: "\uf04b", plain: ">", kaomoji: "(ﾉ◕ヮ◕)ﾉ", squares: "▶"},
	Pause:      {emoji: "⏸️", nerd: "\uf04c", plain: "||", kaomoji: "(-_-)", squares: "⏸"},
	Buffering:  {emoji: "🌀", nerd: "\uf110", plain: "...", kaomoji: "(°ロ°)", squares: "◌"},
	Loop:       {emoji: "🔁", nerd: "\uf01e", plain: "loop", kaomoji: "(↻)", squares: "⟳"},
	Muted:      {emoji: "🔇", nerd: "\uf026", plain: "mute", kaomoji: "(＞﹏＜)", squares: "▯"},
	Volume:     {emoji: "🔊", nerd: "\uf028", plain: "vol", kaomoji: "(o^▽^o)", squares: "▮"},
	Subtitles:  {emoji: "💬", nerd: "\uf20a", plain: "cc", kaomoji: "(¬‿¬)", squares: "▤"},
	Quality:    {emoji: "📶", nerd: "\uf012", plain: "q", kaomoji: "(⌐■_■)", squares: "▥"},
	Fullscreen: {emoji: "🖥️", nerd: "\uf065", plain: "fs", kaomoji: "(⊙_⊙)", squares: "▢"},
	PiP:        {emoji: "📌", nerd: "\uf08d", plain: "pip", kaomoji: "(•̀ᴗ•́)", squares: "▪"},
}
