package tui

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/list"
	"github.com/hlsplay/hlsplay/history"
	"github.com/hlsplay/hlsplay/style"
	"github.com/hlsplay/hlsplay/util"
	"github.com/samber/lo"
)

// listItem is one saved position in the history list.
type listItem struct {
	position *history.Position
}

func (t *listItem) Title() string {
	return t.position.URL
}

func (t *listItem) Description() string {
	p := t.position
	desc := fmt.Sprintf("%s / %s", util.FormatTimestamp(p.Time), util.FormatTimestamp(p.Duration))

	switch {
	case p.Finished():
		desc += style.Fg(style.Green)(" (watched)")
	default:
		desc += style.Fg(style.Yellow)(fmt.Sprintf(" (%.0f%%)", p.Percentage()))
	}

	if p.Quality != "" {
		desc += " " + style.Faint(p.Quality)
	}
	return desc
}

func (t *listItem) FilterValue() string {
	return t.position.URL
}

// historyItems lists saved positions, most recent first.
func historyItems(saved map[string]*history.Position) []list.Item {
	positions := lo.Values(saved)
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].SavedAt.After(positions[j].SavedAt)
	})

	return lo.Map(positions, func(p *history.Position, _ int) list.Item {
		return &listItem{position: p}
	})
}
