package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hlsplay/hlsplay/auth"
	"github.com/hlsplay/hlsplay/constant"
	"github.com/hlsplay/hlsplay/history"
	"github.com/hlsplay/hlsplay/internal/ui"
	"github.com/hlsplay/hlsplay/key"
	"github.com/hlsplay/hlsplay/log"
	"github.com/hlsplay/hlsplay/network"
	"github.com/hlsplay/hlsplay/player"
	"github.com/hlsplay/hlsplay/qoe"
	"github.com/hlsplay/hlsplay/remote"
	"github.com/hlsplay/hlsplay/stream"
	"github.com/hlsplay/hlsplay/transport"
	"github.com/hlsplay/hlsplay/tui"
	"github.com/hlsplay/hlsplay/util"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// recordInterval is how many seconds of playback pass between two saved positions.
const recordInterval = 5

// play runs mpv, the controller and the terminal surface until the user quits.
func play(url string, start float64, subtitles []transport.SubtitleSource, audio []transport.AudioLabel) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mpv := player.NewMPV(player.Options{
		Binary:  viper.GetString(key.PlayerBinary),
		Title:   constant.App,
		Headers: viper.GetStringSlice(key.PlayerHeaders),
		Volume:  util.Clamp(viper.GetFloat64(key.PlayerVolume), 0, 100) / 100,
	})
	if err := mpv.Start(ctx); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}
	defer util.Ignore(mpv.Close)

	options, err := controllerOptions(subtitles, audio)
	if err != nil {
		return err
	}

	controller := transport.New(mpv, options)
	defer controller.Close()

	metrics := qoe.New()
	controller.Observe(metrics)

	var recorder *history.Recorder
	if viper.GetBool(key.HistorySave) {
		recorder = history.NewRecorder(recordInterval)
		controller.Observe(recorder)
	}

	tuiOptions := &tui.Options{
		Controller: controller,
		URL:        url,
		Start:      start,
		Recorder:   recorder,
	}

	if viper.GetBool(key.RemoteEnable) {
		var token string
		if viper.GetBool(key.RemoteAuth) {
			if token, err = auth.Token(); err != nil {
				return fmt.Errorf("remote control token: %w", err)
			}
		}

		tuiOptions.OnProgram = func(program *tea.Program) {
			server := remote.New(remote.Options{
				Addr:     viper.GetString(key.RemoteAddr),
				Send:     program.Send,
				Gatherer: metrics.Registry,
				Token:    token,
			})
			controller.Observe(server)

			go func() {
				if err := server.ListenAndServe(ctx); err != nil {
					log.Errorf("remote control: %v", err)
					program.Send(ui.Notification("remote control: " + err.Error()))
				}
			}()
		}
	}

	return tui.Run(tuiOptions)
}

func controllerOptions(subtitles []transport.SubtitleSource, audio []transport.AudioLabel) (transport.Options, error) {
	rate, err := strconv.ParseFloat(viper.GetString(key.PlayerRate), 64)
	if err != nil || !lo.Contains(transport.Rates, rate) {
		return transport.Options{}, fmt.Errorf("invalid %s %q, expected one of %v", key.PlayerRate, viper.GetString(key.PlayerRate), transport.Rates)
	}

	timeout := time.Duration(viper.GetInt(key.StreamTimeout)) * time.Second

	return transport.Options{
		Autoplay:  viper.GetBool(key.PlayerAutoplay),
		Loop:      viper.GetBool(key.PlayerLoop),
		Volume:    util.Clamp(viper.GetFloat64(key.PlayerVolume), 0, 100) / 100,
		Rate:      rate,
		Skip:      time.Duration(viper.GetInt(key.PlayerSkipSeconds)) * time.Second,
		HideAfter: time.Duration(viper.GetInt(key.TUIHideControlsAfter)) * time.Second,
		PiP:       viper.GetBool(key.PlayerPiP),
		Subtitles: subtitles,
		Audio:     audio,
		Stream: stream.Options{
			PreferNative: viper.GetBool(key.StreamPreferNative),
			StartLevel:   viper.GetInt(key.StreamStartLevel),
			Headers:      viper.GetStringSlice(key.PlayerHeaders),
			Fetch:        fetchWithTimeout(timeout),
		},
		OnError: func(kind stream.ErrorKind, err error) {
			log.With(map[string]any{"kind": kind.String()}).Error(err)
		},
	}, nil
}

func fetchWithTimeout(timeout time.Duration) stream.FetchFunc {
	return func(ctx context.Context, url string, headers []string, limit int64) ([]byte, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return network.Fetch(ctx, url, headers, limit)
	}
}

// parseSubtitles reads --sub values: a path, or lang=path.
func parseSubtitles(values []string) ([]transport.SubtitleSource, error) {
	subtitles := make([]transport.SubtitleSource, 0, len(values))
	for _, v := range values {
		lang, src, ok := strings.Cut(v, "=")
		if !ok {
			src, lang = v, ""
		}

		if src == "" {
			return nil, fmt.Errorf("invalid subtitle %q: empty path", v)
		}

		label := lang
		if label == "" {
			label = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		}

		subtitles = append(subtitles, transport.SubtitleSource{Label: label, Src: src, Lang: lang})
	}
	return subtitles, nil
}

// parseAudioLabels reads --audio-label values of the form lang=label.
func parseAudioLabels(values []string) ([]transport.AudioLabel, error) {
	labels := make([]transport.AudioLabel, 0, len(values))
	for _, v := range values {
		lang, label, ok := strings.Cut(v, "=")
		if !ok || lang == "" || label == "" {
			return nil, fmt.Errorf("invalid audio label %q, expected lang=label", v)
		}
		labels = append(labels, transport.AudioLabel{Label: label, Lang: lang})
	}
	return labels, nil
}
