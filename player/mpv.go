package player

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hlsplay/hlsplay/log"
	"github.com/hlsplay/hlsplay/where"
	"github.com/samber/lo"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	quitTimeout       = 3 * time.Second
)

// Options configure the mpv process.
type Options struct {
	Binary  string
	Title   string
	Headers []string
	Volume  float64
}

// MPV implements Element on top of an mpv process in idle mode.
type MPV struct {
	opts       Options
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{}
	mu         sync.Mutex // serialises IPC round trips

	translator *translator
	listener   *EventListener
	events     hub

	demuxers  []string
	protocols []string
}

// NewMPV creates an MPV element. Start must be called before any command.
func NewMPV(opts Options) *MPV {
	if opts.Binary == "" {
		opts.Binary = "mpv"
	}
	return &MPV{
		opts:       opts,
		exited:     make(chan struct{}),
		translator: newTranslator(),
	}
}

// Start launches mpv, waits for its IPC socket and starts the event listener.
func (m *MPV) Start(ctx context.Context) error {
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Errorf("generate socket name: %w", err)
	}
	m.socketPath = filepath.Join(where.Sockets(), fmt.Sprintf("mpv-%x.sock", randomBytes))

	m.cmd = exec.Command(m.opts.Binary, m.args()...)
	m.cmd.SysProcAttr = sysProcAttr()
	m.cmd.Stdout = nil
	m.cmd.Stderr = nil
	m.cmd.Stdin = nil

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	// reap the process so it never lingers as a zombie
	go func() {
		_ = m.cmd.Wait()
		close(m.exited)
	}()

	if err := m.waitForSocket(ctx); err != nil {
		select {
		case <-m.exited:
		default:
			log.Warnf("killing mpv: socket never became ready")
			_ = killProcess(m.cmd)
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	m.demuxers = m.stringList(ctx, "demuxer-lavf-list")
	m.protocols = m.stringList(ctx, "protocol-list")

	m.listener = newEventListener(m.socketPath, m.translator, m.events.publish)
	if err := m.listener.Start(); err != nil {
		_ = m.Close()
		return err
	}

	log.With(map[string]any{"socket": m.socketPath, "demuxers": len(m.demuxers)}).Info("mpv ready")
	return nil
}

func (m *MPV) args() []string {
	title := sanitizeTitle(m.opts.Title)
	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--input-ipc-server=" + m.socketPath,
		"--force-window=yes",
		"--idle=yes",
		"--keep-open=yes",
		"--pause=yes",
		"--input-default-bindings=no",
	}

	if title != "" {
		args = append(args, "--force-media-title="+title, "--title="+title)
	}

	if len(m.opts.Headers) > 0 {
		headers := lo.Map(m.opts.Headers, func(h string, _ int) string {
			return strings.ReplaceAll(h, ",", "%2C")
		})
		args = append(args, "--http-header-fields="+strings.Join(headers, ","))
	}

	if m.opts.Volume > 0 {
		args = append(args, fmt.Sprintf("--volume=%d", int(m.opts.Volume*100)))
	}

	return args
}

// Wait returns a channel that is closed when the mpv process exits.
func (m *MPV) Wait() <-chan struct{} {
	return m.exited
}

func (m *MPV) waitForSocket(ctx context.Context) error {
	for i := 0; i < socketWaitRetries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		case <-time.After(socketWaitDelay):
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

func (m *MPV) set(ctx context.Context, property string, value any) error {
	_, err := m.sendCommand(ctx, []any{"set_property", property, value})
	if err != nil {
		return fmt.Errorf("set %s: %w", property, err)
	}
	return nil
}

func (m *MPV) stringList(ctx context.Context, property string) []string {
	data, err := m.sendCommand(ctx, []any{"get_property", property})
	if err != nil {
		log.Debugf("get %s: %v", property, err)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil
	}
	return list
}

// Load replaces the current file. A positive start is passed as a per-file option.
func (m *MPV) Load(ctx context.Context, rawURL string, start float64) error {
	target, err := sanitizeMediaTarget(rawURL)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	command := map[string]any{
		"name":  "loadfile",
		"url":   target,
		"flags": "replace",
	}
	if start > 0 {
		command["options"] = map[string]string{"start": strconv.FormatFloat(start, 'f', 3, 64)}
	}

	if _, err := m.sendCommand(ctx, command); err != nil {
		return fmt.Errorf("loadfile: %w", err)
	}
	return nil
}

func (m *MPV) Play(ctx context.Context) error {
	return m.set(ctx, "pause", false)
}

func (m *MPV) Pause(ctx context.Context) error {
	return m.set(ctx, "pause", true)
}

func (m *MPV) Seek(ctx context.Context, t float64) error {
	target, ok := ClampSeek(t, m.Fields())
	if !ok {
		return nil
	}
	_, err := m.sendCommand(ctx, []any{"seek", target, "absolute+exact"})
	return err
}

func (m *MPV) SetVolume(ctx context.Context, v float64) error {
	v = lo.Clamp(v, 0, 1)
	if err := m.set(ctx, "volume", v*100); err != nil {
		return err
	}
	if v > 0 {
		return m.set(ctx, "mute", false)
	}
	return nil
}

func (m *MPV) SetMuted(ctx context.Context, muted bool) error {
	return m.set(ctx, "mute", muted)
}

func (m *MPV) SetPlaybackRate(ctx context.Context, rate float64) error {
	return m.set(ctx, "speed", rate)
}

func (m *MPV) SetLoop(ctx context.Context, loop bool) error {
	return m.set(ctx, "loop-file", lo.Ternary(loop, "inf", "no"))
}

func (m *MPV) SetOption(ctx context.Context, name string, value any) error {
	return m.set(ctx, "options/"+name, value)
}

func (m *MPV) SelectTrack(ctx context.Context, kind TrackKind, id int) error {
	property := map[TrackKind]string{VideoTrack: "vid", AudioTrack: "aid", SubtitleTrack: "sid"}[kind]
	if property == "" {
		return fmt.Errorf("unknown track kind %q", kind)
	}

	var value any = id
	if id < 0 {
		value = lo.Ternary(kind == SubtitleTrack, "no", "auto")
	}
	return m.set(ctx, property, value)
}

func (m *MPV) AddSubtitle(ctx context.Context, src, title, lang string) error {
	_, err := m.sendCommand(ctx, []any{"sub-add", src, "auto", title, lang})
	if err != nil {
		return fmt.Errorf("sub-add %s: %w", src, err)
	}
	return nil
}

func (m *MPV) SetFullscreen(ctx context.Context, on bool) error {
	return m.set(ctx, "fullscreen", on)
}

func (m *MPV) SetOnTop(ctx context.Context, on bool) error {
	return m.set(ctx, "ontop", on)
}

func (m *MPV) Tracks(ctx context.Context) ([]Track, error) {
	data, err := m.sendCommand(ctx, []any{"get_property", "track-list"})
	if err != nil {
		return nil, err
	}
	var tracks []Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, fmt.Errorf("decode track-list: %w", err)
	}
	return tracks, nil
}

// CanPlayType reports native support for HLS manifests: mpv fetches them itself
// when it has an HTTP protocol handler.
func (m *MPV) CanPlayType(mime string) bool {
	switch strings.ToLower(mime) {
	case "application/vnd.apple.mpegurl", "application/x-mpegurl", "audio/mpegurl":
		return lo.Contains(m.protocols, "https") || lo.Contains(m.protocols, "http")
	case "video/mp4", "video/webm", "video/x-matroska":
		return true
	}
	return false
}

func (m *MPV) SupportsDemuxer(name string) bool {
	return lo.Contains(m.demuxers, name)
}

func (m *MPV) Fields() Fields {
	return m.translator.snapshot()
}

func (m *MPV) Subscribe(fn func(Event)) func() {
	return m.events.subscribe(fn)
}

// IsRunning reports whether mpv is responding to IPC commands.
func (m *MPV) IsRunning() bool {
	if m.socketPath == "" {
		return false
	}

	select {
	case <-m.exited:
		return false
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), readDeadline)
	defer cancel()
	_, err := m.sendCommand(ctx, []any{"get_property", "pid"})
	return err == nil
}

// Close stops the listener, quits mpv and removes the socket.
func (m *MPV) Close() error {
	if m.listener != nil {
		m.listener.Stop()
	}

	if m.socketPath == "" || m.cmd == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), readDeadline)
	_, _ = m.sendCommand(ctx, []any{"quit"})
	cancel()

	select {
	case <-m.exited:
	case <-time.After(quitTimeout):
		_ = killProcess(m.cmd)
	}

	_ = os.Remove(m.socketPath)
	return nil
}

// sanitizeMediaTarget rejects targets mpv would read as flags or that use
// schemes other than http(s) and local files.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty URL")
	}

	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in URL")
	}

	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("url must not start with '-' (looks like a flag)")
	}

	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	return filepath.Clean(l), nil
}

func sanitizeTitle(title string) string {
	t := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ", "\x00", "").Replace(title)
	return strings.TrimSpace(t)
}
