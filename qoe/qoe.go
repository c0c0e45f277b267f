// Package qoe derives playback quality metrics from the state transitions of
// the playback controller and exposes them to prometheus.
package qoe

import (
	"time"

	"github.com/hlsplay/hlsplay/playback"
	"github.com/hlsplay/hlsplay/stream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hlsplay"

// Metrics observes playback state changes. It is not safe for concurrent use;
// the collectors themselves are.
type Metrics struct {
	Registry *prometheus.Registry

	rebuffers     prometheus.Counter
	levelSwitches prometheus.Counter
	fatalErrors   *prometheus.CounterVec
	startup       prometheus.Histogram
	bitrate       prometheus.Gauge
	bufferAhead   prometheus.Gauge
	sources       prometheus.Counter

	now        func() time.Time
	openedAt   time.Time
	started    bool
	generation uint64
}

// New registers the playback collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		rebuffers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rebuffer_total",
			Help:      "Stalls while playing, seeks excluded",
		}),
		levelSwitches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_switches_total",
			Help:      "Quality level changes within a source",
		}),
		fatalErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fatal_errors_total",
			Help:      "Fatal stream errors by kind",
		}, []string{"kind"}),
		startup: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "startup_seconds",
			Help:      "Time from opening a source to the first confirmed frame",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 20, 30},
		}),
		bitrate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bitrate_kbps",
			Help:      "Bitrate of the level currently played",
		}),
		bufferAhead: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_ahead_seconds",
			Help:      "Buffered media ahead of the playhead",
		}),
		sources: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sources_opened_total",
			Help:      "Sources opened",
		}),
		now: time.Now,
	}
}

func (m *Metrics) Observe(ev playback.Event, prev, next playback.State) {
	if next.Generation != m.generation {
		m.generation = next.Generation
		m.openedAt = m.now()
		m.started = false
		m.sources.Inc()
		m.bitrate.Set(0)
		return
	}

	if failed, ok := ev.(playback.Stream); ok && failed.Kind == stream.Failed && failed.Err != nil && failed.Err.Fatal {
		m.fatalErrors.WithLabelValues(failed.Err.Kind.String()).Inc()
	}

	if !m.started && next.Confirmed {
		m.started = true
		m.startup.Observe(m.now().Sub(m.openedAt).Seconds())
	}

	if next.Buffering && !prev.Buffering && next.Confirmed && !next.Seeking {
		m.rebuffers.Inc()
	}

	if next.CurrentLevel != prev.CurrentLevel && prev.CurrentLevel >= 0 && next.CurrentLevel >= 0 {
		m.levelSwitches.Inc()
	}

	m.bitrate.Set(float64(next.BitrateKbps()))
	m.bufferAhead.Set(max(0, next.BufferedEnd-next.CurrentTime))
}
