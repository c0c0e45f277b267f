package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/hlsplay/hlsplay/color"
	"github.com/hlsplay/hlsplay/history"
	"github.com/hlsplay/hlsplay/icon"
	"github.com/hlsplay/hlsplay/style"
	"github.com/hlsplay/hlsplay/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	historyCmd.Flags().StringP("remove", "r", "", "Forget the saved position of a url")
	historyCmd.SetOut(os.Stdout)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved playback positions",
	Run: func(cmd *cobra.Command, args []string) {
		if url := lo.Must(cmd.Flags().GetString("remove")); url != "" {
			handleErr(history.Remove(url))
			cmd.Printf("%s forgot %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), url)
			return
		}

		saved, err := history.Get()
		handleErr(err)

		positions := lo.Values(saved)
		sort.Slice(positions, func(i, j int) bool {
			return positions[i].SavedAt.After(positions[j].SavedAt)
		})

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(positions))
			return
		}

		if len(positions) == 0 {
			cmd.Println(style.Faint("nothing saved yet"))
			return
		}

		for _, p := range positions {
			progress := fmt.Sprintf("%s / %s", util.FormatTimestamp(p.Time), util.FormatTimestamp(p.Duration))
			if p.Finished() {
				progress += style.Fg(color.Green)(" watched")
			} else {
				progress += style.Fg(color.Yellow)(fmt.Sprintf(" %.0f%%", p.Percentage()))
			}

			cmd.Println(style.Bold(p.URL))
			cmd.Printf("  %s  %s\n", progress, style.Faint(p.SavedAt.Format(time.DateTime)))
		}
	},
}
