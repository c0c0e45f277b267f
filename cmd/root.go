// Package cmd implements the command-line interface of hlsplay.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/hlsplay/hlsplay/color"
	"github.com/hlsplay/hlsplay/constant"
	"github.com/hlsplay/hlsplay/history"
	"github.com/hlsplay/hlsplay/icon"
	"github.com/hlsplay/hlsplay/key"
	"github.com/hlsplay/hlsplay/log"
	"github.com/hlsplay/hlsplay/query"
	"github.com/hlsplay/hlsplay/style"
	"github.com/hlsplay/hlsplay/transport"
	"github.com/hlsplay/hlsplay/util"
	"github.com/hlsplay/hlsplay/version"
	"github.com/hlsplay/hlsplay/where"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Icons variant")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.Flags().BoolP("continue", "c", false, "Open the most recently played URL")
	rootCmd.Flags().StringP("start", "s", "", "Start position, e.g. 90 or 1:30. Overrides the saved position")

	rootCmd.Flags().Bool("autoplay", true, "Start playback as soon as the stream is ready")
	lo.Must0(viper.BindPFlag(key.PlayerAutoplay, rootCmd.Flags().Lookup("autoplay")))

	rootCmd.Flags().BoolP("loop", "l", false, "Loop the stream")
	lo.Must0(viper.BindPFlag(key.PlayerLoop, rootCmd.Flags().Lookup("loop")))

	rootCmd.Flags().Int("volume", 100, "Initial volume, from 0 to 100")
	lo.Must0(viper.BindPFlag(key.PlayerVolume, rootCmd.Flags().Lookup("volume")))

	rootCmd.Flags().String("rate", "1", "Initial playback rate")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("rate", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return lo.Map(transport.Rates, func(r float64, _ int) string { return fmt.Sprint(r) }), cobra.ShellCompDirectiveNoFileComp
	}))
	lo.Must0(viper.BindPFlag(key.PlayerRate, rootCmd.Flags().Lookup("rate")))

	rootCmd.Flags().StringArrayP("header", "H", nil, `Extra HTTP header, "Name: value". Repeatable`)
	lo.Must0(viper.BindPFlag(key.PlayerHeaders, rootCmd.Flags().Lookup("header")))

	rootCmd.Flags().StringArray("sub", nil, "External subtitle file, as path or lang=path. Repeatable")
	rootCmd.Flags().StringArray("audio-label", nil, "Audio track label, as lang=label. Repeatable")

	rootCmd.Flags().Bool("native", false, "Hand the URL straight to mpv without parsing the manifest")
	lo.Must0(viper.BindPFlag(key.StreamPreferNative, rootCmd.Flags().Lookup("native")))

	rootCmd.Flags().Int("level", -1, "Initial quality level, -1 for automatic")
	lo.Must0(viper.BindPFlag(key.StreamStartLevel, rootCmd.Flags().Lookup("level")))

	rootCmd.Flags().BoolP("remote", "r", false, "Serve the remote control API")
	lo.Must0(viper.BindPFlag(key.RemoteEnable, rootCmd.Flags().Lookup("remote")))

	rootCmd.Flags().String("remote-addr", "", "Listen address of the remote control API")
	lo.Must0(viper.BindPFlag(key.RemoteAddr, rootCmd.Flags().Lookup("remote-addr")))

	rootCmd.MarkFlagsMutuallyExclusive("continue", "start")

	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)
		version.Notify()
	})

	go func() {
		_ = util.Delete(where.Temp())
	}()
}

var rootCmd = &cobra.Command{
	Use:   constant.App + " [url]",
	Short: "Terminal player for HLS streams",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(color.HiPurple).Render("    - Terminal player for HLS streams, powered by mpv"),
	Args: cobra.MaximumNArgs(1),
	Example: `  hlsplay https://example.com/master.m3u8
  hlsplay -s 1:30 --sub en=./en.vtt https://example.com/master.m3u8
  hlsplay --continue`,
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		CheckDependencies()

		url, start, err := resolveSource(cmd, args)
		handleErr(err)

		subtitles, err := parseSubtitles(lo.Must(cmd.Flags().GetStringArray("sub")))
		handleErr(err)

		audio, err := parseAudioLabels(lo.Must(cmd.Flags().GetStringArray("audio-label")))
		handleErr(err)

		handleErr(play(url, start, subtitles, audio))
	},
}

// resolveSource picks the URL to open and where to start: the argument, the
// last played URL with --continue, or a prompt.
func resolveSource(cmd *cobra.Command, args []string) (url string, start float64, err error) {
	switch {
	case len(args) == 1:
		url = args[0]
	case lo.Must(cmd.Flags().GetBool("continue")):
		url, err = lastPlayed()
	default:
		url, err = promptURL()
	}

	if err != nil {
		return "", 0, err
	}

	url = strings.TrimSpace(url)
	if url == "" {
		return "", 0, fmt.Errorf("no url given")
	}

	if s := lo.Must(cmd.Flags().GetString("start")); s != "" {
		start, err = util.ParseTimestamp(s)
		if err != nil {
			return "", 0, err
		}
		return url, start, nil
	}

	if viper.GetBool(key.PlayerResume) {
		start = history.Resume(url).OrEmpty()
	}
	return url, start, nil
}

func lastPlayed() (string, error) {
	saved, err := history.Get()
	if err != nil {
		return "", err
	}

	if len(saved) == 0 {
		return "", fmt.Errorf("history is empty")
	}

	last := lo.MaxBy(lo.Values(saved), func(a, b *history.Position) bool {
		return a.SavedAt.After(b.SavedAt)
	})
	return last.URL, nil
}

func promptURL() (string, error) {
	input := survey.Input{
		Message: "Stream URL:",
		Suggest: query.SuggestMany,
	}

	var response string
	err := survey.AskOne(&input, &response, survey.WithValidator(survey.Required))
	return response, err
}

// Execute runs the root command.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
