package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/hlsplay/hlsplay/color"
	"github.com/hlsplay/hlsplay/icon"
	"github.com/hlsplay/hlsplay/key"
	"github.com/hlsplay/hlsplay/stream"
	"github.com/hlsplay/hlsplay/style"
	"github.com/hlsplay/hlsplay/util"
	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	probeCmd.SetOut(os.Stdout)

	probeCmd.AddCommand(probeSchemaCmd)
}

var probeCmd = &cobra.Command{
	Use:     "probe <url>",
	Short:   "Print the quality ladder and tracks of a playlist",
	Args:    cobra.ExactArgs(1),
	Example: "  hlsplay probe https://example.com/master.m3u8",
	Run: func(cmd *cobra.Command, args []string) {
		url := args[0]

		timeout := time.Duration(viper.GetInt(key.StreamTimeout)) * time.Second
		fetch := fetchWithTimeout(timeout)

		erase := util.PrintErasable(fmt.Sprintf("%s Fetching %s...", icon.Get(icon.Progress), url))
		data, err := fetch(context.Background(), url, viper.GetStringSlice(key.PlayerHeaders), stream.ManifestLimit)
		erase()
		handleErr(err)

		manifest, err := stream.ParseManifest(data, url)
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(manifest))
			return
		}

		printManifest(cmd, manifest)
	},
}

func printManifest(cmd *cobra.Command, m *stream.Manifest) {
	header := style.New().Bold(true).Foreground(color.HiPurple).Render

	kind := "VOD"
	if m.Live {
		kind = "LIVE"
	}
	cmd.Printf("%s %s\n\n", header(m.URL), style.Faint(kind))

	if len(m.Levels) == 1 && m.Levels[0].URI == m.URL {
		cmd.Println(style.Faint("media playlist, no quality ladder"))
		return
	}

	for i, level := range m.Levels {
		marker := " "
		if i == m.FirstLevel {
			marker = style.Fg(color.Green)("*")
		}

		cmd.Printf("%s %2d  %-8s %6d kbps  %s\n",
			marker,
			i,
			level.Label(),
			level.BitrateKbps(),
			style.Faint(level.Codecs),
		)
	}

	if len(m.Audio) > 0 {
		cmd.Println()
		cmd.Println(header("Audio"))
		for _, a := range m.Audio {
			cmd.Printf("  %s %s\n", a.Name, style.Faint(a.Language))
		}
	}

	if len(m.Subtitles) > 0 {
		cmd.Println()
		cmd.Println(header("Subtitles"))
		for _, s := range m.Subtitles {
			cmd.Printf("  %s %s\n", s.Name, style.Faint(s.Language))
		}
	}
}

var probeSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the probe output",
	Run: func(cmd *cobra.Command, args []string) {
		reflector := new(jsonschema.Reflector)
		reflector.Anonymous = true
		reflector.Namer = func(t reflect.Type) string {
			return "stream." + t.Name()
		}

		handleErr(json.NewEncoder(os.Stdout).Encode(reflector.Reflect(&stream.Manifest{})))
	},
}
