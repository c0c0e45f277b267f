package history

import (
	"math"

	"github.com/hlsplay/hlsplay/log"
	"github.com/hlsplay/hlsplay/playback"
)

// Recorder saves the position of the current stream while it plays: every
// interval seconds of progress and whenever playback stops.
type Recorder struct {
	interval float64
	source   string
	last     float64
	save     func(url string, t, duration float64, quality string) error
}

func NewRecorder(interval float64) *Recorder {
	return &Recorder{interval: interval, save: Save}
}

func (r *Recorder) Observe(_ playback.Event, prev, next playback.State) {
	if !resumable(next) {
		return
	}

	if next.Source != r.source {
		r.source = next.Source
		r.last = next.CurrentTime
	}

	stopped := prev.Intent && !next.Intent
	if stopped || math.Abs(next.CurrentTime-r.last) >= r.interval {
		r.Flush(next)
	}
}

// Flush saves s right away.
func (r *Recorder) Flush(s playback.State) {
	if !resumable(s) {
		return
	}

	r.last = s.CurrentTime
	if err := r.save(s.Source, s.CurrentTime, s.Duration, s.QualityLabel()); err != nil {
		log.Warnf("save position of %s: %v", s.Source, err)
	}
}

// live streams and streams that never got a duration have nothing to resume
func resumable(s playback.State) bool {
	return s.Source != "" && s.Ready && !s.Live && s.Duration > 0
}
