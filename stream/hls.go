package stream

import (
	"context"
	"fmt"
	"strings"

	"github.com/hlsplay/hlsplay/log"
	"github.com/hlsplay/hlsplay/network"
	"github.com/hlsplay/hlsplay/player"
	"github.com/samber/lo"
)

// ManifestLimit caps the size of a downloaded playlist.
const ManifestLimit = 4 << 20

// FetchFunc downloads a URL. network.Fetch is the default.
type FetchFunc func(ctx context.Context, url string, headers []string, limit int64) ([]byte, error)

// HLSEngine plays a master playlist through mpv's hls demuxer and exposes its
// variants as a quality ladder. Level switching selects the matching video
// track by its hls-bitrate.
type HLSEngine struct {
	base

	fetch      FetchFunc
	headers    []string
	startLevel int

	manifest *Manifest
	current  int
	manual   int
}

// NewHLSEngine creates an engine. startLevel -1 lets the surface choose.
func NewHLSEngine(fetch FetchFunc, headers []string, startLevel int) *HLSEngine {
	if fetch == nil {
		fetch = network.Fetch
	}
	return &HLSEngine{
		fetch:      fetch,
		headers:    headers,
		startLevel: startLevel,
		current:    -1,
		manual:     -1,
	}
}

func (h *HLSEngine) Name() string { return "hls" }

func (h *HLSEngine) Attach(el player.Element) {
	h.attach(el, h.onElement)
}

func (h *HLSEngine) Load(ctx context.Context, url string, start float64) error {
	el := h.element()
	if el == nil {
		return fmt.Errorf("hls engine: not attached")
	}

	h.beginLoad(url)

	data, err := h.fetch(ctx, url, h.headers, ManifestLimit)
	if err != nil {
		return h.fail(classify(err), fmt.Errorf("load manifest: %w", err))
	}

	manifest, err := ParseManifest(data, url)
	if err != nil {
		return h.fail(OtherFatal, fmt.Errorf("parse manifest: %w", err))
	}

	first := manifest.FirstLevel
	if h.startLevel >= 0 && h.startLevel < len(manifest.Levels) {
		first = h.startLevel
		h.mu.Lock()
		h.manual = first
		h.mu.Unlock()
	}

	h.mu.Lock()
	h.manifest = manifest
	h.current = first
	h.mu.Unlock()

	log.With(map[string]any{
		"url":    url,
		"levels": len(manifest.Levels),
		"first":  first,
		"live":   manifest.Live,
	}).Info("manifest parsed")

	if err := el.SetOption(ctx, "hls-bitrate", h.bitrateOption(first)); err != nil {
		log.Warnf("hls-bitrate: %v", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := el.Load(ctx, url, start); err != nil {
		return h.fail(classify(err), fmt.Errorf("load media: %w", err))
	}

	h.emit(Event{Kind: ManifestParsed, Manifest: manifest, FirstLevel: first, Auto: h.AutoLevel()})
	return nil
}

// bitrateOption is the hls-bitrate value mpv opens the stream with.
// An explicit start level pins its bitrate, otherwise mpv picks the best variant.
func (h *HLSEngine) bitrateOption(level int) any {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.manual < 0 || h.manifest == nil || level >= len(h.manifest.Levels) {
		return "max"
	}
	return h.manifest.Levels[level].Bitrate
}

func (h *HLSEngine) Destroy() {
	h.destroy()
	h.mu.Lock()
	h.manifest = nil
	h.current = -1
	h.manual = -1
	h.mu.Unlock()
}

func (h *HLSEngine) Manifest() *Manifest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.manifest
}

func (h *HLSEngine) CurrentLevel() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// AutoLevel reports whether the surface chooses the level.
func (h *HLSEngine) AutoLevel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.manual < 0
}

func (h *HLSEngine) SetCurrentLevel(ctx context.Context, i int) error {
	el := h.element()
	manifest := h.Manifest()
	if el == nil || manifest == nil {
		return fmt.Errorf("hls engine: no manifest loaded")
	}

	if i < 0 {
		h.mu.Lock()
		h.manual = -1
		h.mu.Unlock()
		if err := el.SetOption(ctx, "hls-bitrate", "max"); err != nil {
			return err
		}
		return el.SelectTrack(ctx, player.VideoTrack, -1)
	}

	if i >= len(manifest.Levels) {
		return fmt.Errorf("level %d out of range [0, %d)", i, len(manifest.Levels))
	}
	level := manifest.Levels[i]

	h.mu.Lock()
	h.manual = i
	h.mu.Unlock()

	tracks, err := el.Tracks(ctx)
	if err != nil {
		return fmt.Errorf("track list: %w", err)
	}

	track, ok := lo.Find(tracks, func(t player.Track) bool {
		return t.Kind == player.VideoTrack && level.carriedBy(t)
	})
	if !ok {
		// the variant is not demuxed yet; pin the bitrate for the next reload
		log.Debugf("no video track with hls-bitrate %d, pinning option", level.Bitrate)
		return el.SetOption(ctx, "hls-bitrate", level.Bitrate)
	}

	return el.SelectTrack(ctx, player.VideoTrack, track.ID)
}

func (h *HLSEngine) onElement(ev player.Event) {
	if ev.Kind == player.VideoTrackChange && ev.Track != nil {
		h.levelSwitched(*ev.Track)
		return
	}
	h.onSurface(ev)
}

func (h *HLSEngine) levelSwitched(track player.Track) {
	h.mu.Lock()
	if h.manifest == nil || track.HLSBitrate == 0 {
		h.mu.Unlock()
		return
	}
	_, index, ok := lo.FindIndexOf(h.manifest.Levels, func(l Level) bool { return l.carriedBy(track) })
	if !ok || index == h.current {
		h.mu.Unlock()
		return
	}
	h.current = index
	h.mu.Unlock()

	h.emit(Event{Kind: LevelSwitched, Level: index})
}

// RecoverNetwork reloads at position, fetching the manifest again if it never arrived.
func (h *HLSEngine) RecoverNetwork(ctx context.Context, position float64) error {
	if h.Manifest() == nil {
		return h.Load(ctx, h.loadedURL(), position)
	}
	return h.base.RecoverNetwork(ctx, position)
}

// videoCodecs maps CODECS sample entries to the codec names mpv reports.
var videoCodecs = map[string]string{
	"avc1": "h264",
	"avc3": "h264",
	"hvc1": "hevc",
	"hev1": "hevc",
	"dvh1": "hevc",
	"dvhe": "hevc",
	"av01": "av1",
	"vp09": "vp9",
}

// videoCodec returns the mpv name of the first video codec in a CODECS attribute.
func videoCodec(codecs string) string {
	for _, c := range strings.Split(codecs, ",") {
		entry, _, _ := strings.Cut(strings.TrimSpace(c), ".")
		if name, ok := videoCodecs[strings.ToLower(entry)]; ok {
			return name
		}
	}
	return ""
}

// carriedBy reports whether t is the video track of l. Variants sharing a
// bandwidth are told apart by height and codec when the track reports them.
func (l Level) carriedBy(t player.Track) bool {
	if t.HLSBitrate != l.Bitrate {
		return false
	}
	if l.Height > 0 && t.Height > 0 && l.Height != t.Height {
		return false
	}
	codec := videoCodec(l.Codecs)
	return codec == "" || t.Codec == "" || codec == t.Codec
}
