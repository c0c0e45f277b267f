package history

import (
	"fmt"
	"time"

	"github.com/hlsplay/hlsplay/util"
)

// Position is the last playback position saved for a stream URL.
type Position struct {
	URL      string    `json:"url"`
	Time     float64   `json:"time"`
	Duration float64   `json:"duration"`
	Quality  string    `json:"quality,omitempty"`
	SavedAt  time.Time `json:"saved_at"`
}

// Percentage is how much of the stream was watched, from 0 to 100.
func (p *Position) Percentage() float64 {
	if p.Duration <= 0 {
		return 0
	}
	return util.Clamp(p.Time/p.Duration*100, 0, 100)
}

// Finished reports whether the stream was watched to (almost) the end.
func (p *Position) Finished() bool {
	return p.Duration > 0 && p.Duration-p.Time < finishedMargin
}

func (p *Position) String() string {
	return fmt.Sprintf("%s : %s / %s", p.URL, util.FormatTimestamp(p.Time), util.FormatTimestamp(p.Duration))
}
