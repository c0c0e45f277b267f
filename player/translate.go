package player

import (
	"encoding/json"
	"sync"
)

// translator turns mpv property changes and lifecycle events into media element
// events and keeps the Fields snapshot current. It is safe for concurrent use:
// the listener goroutine writes while the UI goroutine reads snapshots.
type translator struct {
	mu sync.Mutex

	fields         Fields
	pausedForCache bool
	coreIdle       bool
	loaded         bool
}

func newTranslator() *translator {
	return &translator{
		fields: Fields{Volume: 1, Rate: 1, Paused: true},
	}
}

func (t *translator) snapshot() Fields {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fields
}

func (t *translator) event(kind EventKind) Event {
	return Event{Kind: kind, Fields: t.fields}
}

func (t *translator) raise(to ReadyState) {
	if t.fields.ReadyState < to {
		t.fields.ReadyState = to
	}
}

// lifecycle handles named mpv events such as start-file or playback-restart.
func (t *translator) lifecycle(name string) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch name {
	case "start-file":
		t.fields.ReadyState = HaveNothing
		t.fields.Duration = 0
		t.fields.CurrentTime = 0
		t.fields.BufferedEnd = 0
		t.loaded = false
		return []Event{t.event(LoadStart)}
	case "file-loaded":
		t.loaded = true
		t.raise(HaveMetadata)
		events := []Event{t.event(LoadedMetadata)}
		t.raise(HaveCurrentData)
		return append(events, t.event(LoadedData))
	case "playback-restart":
		t.raise(HaveFutureData)
		events := []Event{t.event(Restart), t.event(CanPlay)}
		if !t.fields.Paused && !t.pausedForCache {
			events = append(events, t.event(Playing))
		}
		return events
	case "seek":
		return []Event{t.event(Seeking)}
	}
	return nil
}

// endFile handles mpv's end-file event.
func (t *translator) endFile(reason, fileError string) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	// eof is reported through eof-reached since mpv runs with keep-open
	if reason != "error" {
		return nil
	}
	ev := t.event(ErrorEvent)
	ev.Err = &MediaError{Reason: fileError}
	return []Event{ev}
}

// property handles a property-change notification. Unknown or null values are ignored.
func (t *translator) property(name string, data json.RawMessage) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch name {
	case "time-pos":
		var v float64
		if !decode(data, &v) {
			return nil
		}
		t.fields.CurrentTime = v
		return []Event{t.event(TimeUpdate)}

	case "duration":
		var v float64
		if !decode(data, &v) {
			return nil
		}
		t.fields.Duration = v
		if t.loaded {
			t.raise(HaveMetadata)
		}
		return []Event{t.event(DurationChange)}

	case "pause":
		var v bool
		if !decode(data, &v) {
			return nil
		}
		t.fields.Paused = v
		if v {
			return []Event{t.event(PauseEvent)}
		}
		return []Event{t.event(PlayEvent)}

	case "core-idle":
		var v bool
		if !decode(data, &v) {
			return nil
		}
		t.coreIdle = v
		if !v && !t.fields.Paused && !t.pausedForCache && t.loaded {
			return []Event{t.event(Playing)}
		}

	case "paused-for-cache":
		var v bool
		if !decode(data, &v) || v == t.pausedForCache {
			return nil
		}
		t.pausedForCache = v
		if v {
			t.fields.ReadyState = min(t.fields.ReadyState, HaveCurrentData)
			return []Event{t.event(Waiting)}
		}
		t.raise(HaveFutureData)
		events := []Event{t.event(CanPlay)}
		if !t.fields.Paused {
			events = append(events, t.event(Playing))
		}
		return events

	case "cache-buffering-state":
		var v int
		if !decode(data, &v) {
			return nil
		}
		if v == 0 && t.pausedForCache {
			return []Event{t.event(Stalled)}
		}

	case "seeking":
		var v bool
		if !decode(data, &v) {
			return nil
		}
		if v {
			return []Event{t.event(Seeking)}
		}
		return []Event{t.event(Seeked)}

	case "eof-reached":
		var v bool
		if !decode(data, &v) || !v {
			return nil
		}
		return []Event{t.event(Ended)}

	case "demuxer-cache-time":
		var v float64
		if !decode(data, &v) {
			return nil
		}
		t.fields.BufferedEnd = v
		return []Event{t.event(Progress)}

	case "demuxer-cache-idle":
		var v bool
		if !decode(data, &v) || !v || !t.loaded {
			return nil
		}
		t.raise(HaveEnoughData)
		return []Event{t.event(CanPlayThrough)}

	case "volume":
		var v float64
		if !decode(data, &v) {
			return nil
		}
		t.fields.Volume = v / 100
		return []Event{t.event(VolumeChange)}

	case "mute":
		var v bool
		if !decode(data, &v) {
			return nil
		}
		t.fields.Muted = v
		return []Event{t.event(VolumeChange)}

	case "speed":
		var v float64
		if !decode(data, &v) {
			return nil
		}
		t.fields.Rate = v
		return []Event{t.event(RateChange)}

	case "loop-file":
		// "inf", "no" or a count
		var s string
		if decode(data, &s) {
			t.fields.Loop = s != "no"
			return nil
		}
		var b bool
		if decode(data, &b) {
			t.fields.Loop = b
		}

	case "fullscreen":
		var v bool
		if !decode(data, &v) {
			return nil
		}
		t.fields.Fullscreen = v
		return []Event{t.event(FullscreenChange)}

	case "ontop":
		var v bool
		if !decode(data, &v) {
			return nil
		}
		t.fields.OnTop = v
		return []Event{t.event(PiPChange)}

	case "current-tracks/video":
		var track Track
		if !decode(data, &track) {
			return nil
		}
		ev := t.event(VideoTrackChange)
		ev.Track = &track
		return []Event{ev}

	case "track-list":
		var tracks []Track
		if !decode(data, &tracks) {
			return nil
		}
		ev := t.event(TrackListChange)
		ev.Tracks = tracks
		return []Event{ev}
	}

	return nil
}

func decode(data json.RawMessage, v any) bool {
	if len(data) == 0 || string(data) == "null" {
		return false
	}
	return json.Unmarshal(data, v) == nil
}
