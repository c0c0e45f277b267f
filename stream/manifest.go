package stream

import (
	"bytes"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/grafov/m3u8"
	"github.com/samber/lo"
)

// Level is one tier of the quality ladder.
type Level struct {
	Height  int    `json:"height,omitempty"`
	Width   int    `json:"width,omitempty"`
	Bitrate int    `json:"bitrate"` // bits per second
	Codecs  string `json:"codecs,omitempty"`
	URI     string `json:"uri"`
}

// Label is the conventional height label such as "1080p". Levels without a
// resolution fall back to their bitrate.
func (l Level) Label() string {
	if l.Height > 0 {
		return strconv.Itoa(l.Height) + "p"
	}
	if l.Bitrate > 0 {
		return strconv.Itoa(l.BitrateKbps()) + "kbps"
	}
	return "source"
}

// BitrateKbps is the advertised bandwidth in kilobits per second.
func (l Level) BitrateKbps() int {
	return l.Bitrate / 1000
}

// AudioRendition is an alternative audio track declared by the master playlist.
type AudioRendition struct {
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
	URI      string `json:"uri,omitempty"`
	Default  bool   `json:"default"`
}

// SubtitleRendition is a subtitle track declared by the master playlist.
type SubtitleRendition struct {
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
	URI      string `json:"uri,omitempty"`
	Default  bool   `json:"default"`
	Forced   bool   `json:"forced"`
}

// Manifest is the parsed form of a playlist.
type Manifest struct {
	URL string `json:"url"`
	// Levels is ordered from the highest bitrate to the lowest.
	Levels []Level `json:"levels"`
	// FirstLevel is the index in Levels of the first variant the playlist lists,
	// which is where an adaptive engine starts.
	FirstLevel int                 `json:"first_level"`
	Audio      []AudioRendition    `json:"audio"`
	Subtitles  []SubtitleRendition `json:"subtitles"`
	// Live is set for media playlists without an end tag.
	Live bool `json:"live"`
}

// ParseManifest decodes an HLS master or media playlist fetched from base.
// Relative URIs are resolved against base.
func ParseManifest(data []byte, base string) (*Manifest, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse manifest url: %w", err)
	}

	if !bytes.HasPrefix(bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), []byte("#EXTM3U")) {
		return nil, fmt.Errorf("not an HLS playlist: missing #EXTM3U")
	}

	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(data), false)
	if err != nil {
		return nil, fmt.Errorf("decode playlist: %w", err)
	}

	manifest := &Manifest{URL: base}

	switch listType {
	case m3u8.MASTER:
		master := playlist.(*m3u8.MasterPlaylist)
		parseMaster(manifest, master, baseURL)
	case m3u8.MEDIA:
		media := playlist.(*m3u8.MediaPlaylist)
		manifest.Levels = []Level{{URI: base}}
		manifest.Live = !media.Closed
	default:
		return nil, fmt.Errorf("unknown playlist type")
	}

	if len(manifest.Levels) == 0 {
		return nil, fmt.Errorf("playlist declares no playable variants")
	}

	return manifest, nil
}

func parseMaster(manifest *Manifest, master *m3u8.MasterPlaylist, base *url.URL) {
	var levels []Level
	seenAudio := map[string]bool{}
	seenSubs := map[string]bool{}

	for _, variant := range master.Variants {
		if variant == nil || variant.Iframe {
			continue
		}

		width, height := parseResolution(variant.Resolution)
		levels = append(levels, Level{
			Height:  height,
			Width:   width,
			Bitrate: int(variant.Bandwidth),
			Codecs:  variant.Codecs,
			URI:     resolve(base, variant.URI),
		})

		for _, alt := range variant.Alternatives {
			if alt == nil {
				continue
			}
			id := alt.GroupId + "/" + alt.Name + "/" + alt.Language
			switch strings.ToUpper(alt.Type) {
			case "AUDIO":
				if seenAudio[id] {
					continue
				}
				seenAudio[id] = true
				manifest.Audio = append(manifest.Audio, AudioRendition{
					Name:     alt.Name,
					Language: alt.Language,
					URI:      resolve(base, alt.URI),
					Default:  alt.Default,
				})
			case "SUBTITLES":
				if seenSubs[id] {
					continue
				}
				seenSubs[id] = true
				manifest.Subtitles = append(manifest.Subtitles, SubtitleRendition{
					Name:     alt.Name,
					Language: alt.Language,
					URI:      resolve(base, alt.URI),
					Default:  alt.Default,
					Forced:   strings.EqualFold(alt.Forced, "YES"),
				})
			}
		}
	}

	if len(levels) == 0 {
		return
	}

	first := levels[0]
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Bitrate > levels[j].Bitrate
	})
	manifest.Levels = levels
	_, manifest.FirstLevel, _ = lo.FindIndexOf(levels, func(l Level) bool { return l == first })
}

func parseResolution(resolution string) (width, height int) {
	w, h, ok := strings.Cut(strings.ToLower(resolution), "x")
	if !ok {
		return 0, 0
	}
	width, _ = strconv.Atoi(w)
	height, _ = strconv.Atoi(h)
	return width, height
}

func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
