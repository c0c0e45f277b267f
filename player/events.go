package player

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/hlsplay/hlsplay/log"
)

// EventKind names a surface event. The set mirrors the HTML media element events
// the playback state machine reconciles.
type EventKind int

const (
	LoadStart EventKind = iota
	LoadedMetadata
	LoadedData
	DurationChange
	CanPlay
	CanPlayThrough
	PlayEvent
	Playing
	PauseEvent
	Waiting
	Stalled
	Seeking
	Seeked
	TimeUpdate
	Progress
	Ended
	VolumeChange
	RateChange
	FullscreenChange
	PiPChange
	VideoTrackChange
	TrackListChange
	// Restart fires when the surface has decoded the first frames after a load or seek.
	Restart
	ErrorEvent
)

var eventNames = map[EventKind]string{
	LoadStart:        "loadstart",
	LoadedMetadata:   "loadedmetadata",
	LoadedData:       "loadeddata",
	DurationChange:   "durationchange",
	CanPlay:          "canplay",
	CanPlayThrough:   "canplaythrough",
	PlayEvent:        "play",
	Playing:          "playing",
	PauseEvent:       "pause",
	Waiting:          "waiting",
	Stalled:          "stalled",
	Seeking:          "seeking",
	Seeked:           "seeked",
	TimeUpdate:       "timeupdate",
	Progress:         "progress",
	Ended:            "ended",
	VolumeChange:     "volumechange",
	RateChange:       "ratechange",
	FullscreenChange: "fullscreenchange",
	PiPChange:        "pipchange",
	VideoTrackChange: "videotrackchange",
	TrackListChange:  "tracklistchange",
	Restart:          "restart",
	ErrorEvent:       "error",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is a single notification from the surface. Fields is the snapshot taken
// right after the change was applied.
type Event struct {
	Kind   EventKind
	Fields Fields

	// Track is set for VideoTrackChange.
	Track *Track
	// Tracks is set for TrackListChange.
	Tracks []Track
	// Err is set for ErrorEvent.
	Err error
}

// MediaError is the payload of an ErrorEvent: mpv ended the file abnormally.
type MediaError struct {
	Reason string
}

func (e *MediaError) Error() string {
	return "playback failed: " + e.Reason
}

// hub fans events out to subscribers.
type hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

func (h *hub) subscribe(fn func(Event)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs == nil {
		h.subs = make(map[int]func(Event))
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

func (h *hub) publish(ev Event) {
	h.mu.Lock()
	fns := make([]func(Event), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// observed lists the mpv properties the listener subscribes to.
var observed = []string{
	"time-pos",
	"duration",
	"pause",
	"core-idle",
	"paused-for-cache",
	"cache-buffering-state",
	"seeking",
	"eof-reached",
	"demuxer-cache-time",
	"demuxer-cache-idle",
	"volume",
	"mute",
	"speed",
	"loop-file",
	"fullscreen",
	"ontop",
	"current-tracks/video",
	"track-list",
}

// EventListener keeps a dedicated IPC connection open, registers property
// observers on it and feeds every notification through the translator.
type EventListener struct {
	socketPath string
	translator *translator
	emit       func(Event)
	conn       net.Conn
	stopCh     chan struct{}
	done       chan struct{}
	mu         sync.Mutex
	listening  bool
}

// newEventListener creates a listener for socketPath that hands translated events to emit.
func newEventListener(socketPath string, t *translator, emit func(Event)) *EventListener {
	return &EventListener{
		socketPath: socketPath,
		translator: t,
		emit:       emit,
	}
}

// Start registers the observers and starts the read loop.
// Observers are per connection in mpv, so they are registered on the same
// connection the loop reads from.
func (el *EventListener) Start() error {
	el.mu.Lock()
	defer el.mu.Unlock()

	if el.listening {
		return nil
	}

	conn, err := net.Dial("unix", el.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}

	for i, name := range observed {
		payload, err := json.Marshal(ipcCommand{Command: []any{"observe_property", i + 1, name}})
		if err != nil {
			conn.Close()
			return fmt.Errorf("marshal observe %s: %w", name, err)
		}
		if _, err := conn.Write(append(payload, '\n')); err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}

	el.conn = conn
	el.stopCh = make(chan struct{})
	el.done = make(chan struct{})
	el.listening = true

	go el.readLoop()

	log.Infof("mpv event listener started on %s (%d properties)", el.socketPath, len(observed))
	return nil
}

// Stop closes the connection and waits for the read loop to exit, so no event
// is delivered after Stop returns.
func (el *EventListener) Stop() {
	el.mu.Lock()
	if !el.listening {
		el.mu.Unlock()
		return
	}
	close(el.stopCh)
	_ = el.conn.Close()
	done := el.done
	el.listening = false
	el.mu.Unlock()

	<-done
}

func (el *EventListener) readLoop() {
	defer close(el.done)

	reader := bufio.NewReaderSize(el.conn, readBufSize)
	var pending []byte
	for {
		select {
		case <-el.stopCh:
			return
		default:
		}

		if err := el.conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
			return
		}

		line, err := reader.ReadBytes('\n')
		pending = append(pending, line...)
		if err != nil {
			// a timeout can split a line; keep the partial bytes for the next read
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			select {
			case <-el.stopCh:
			default:
				log.Warnf("event listener read error: %v", err)
			}
			return
		}

		el.processLine(pending)
		pending = pending[:0]
	}
}

// rawEvent is one line received from mpv: either a command reply or an event.
type rawEvent struct {
	Event     string          `json:"event"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Reason    string          `json:"reason"`
	FileError string          `json:"file_error"`
}

func (el *EventListener) processLine(line []byte) {
	var raw rawEvent
	if err := json.Unmarshal(line, &raw); err != nil || raw.Event == "" {
		return
	}

	var events []Event
	switch raw.Event {
	case "property-change":
		events = el.translator.property(raw.Name, raw.Data)
	case "end-file":
		events = el.translator.endFile(raw.Reason, raw.FileError)
	default:
		events = el.translator.lifecycle(raw.Event)
	}

	for _, ev := range events {
		el.emit(ev)
	}
}
