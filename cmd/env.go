package cmd

import (
	"os"
	"strings"

	"github.com/hlsplay/hlsplay/color"
	"github.com/hlsplay/hlsplay/config"
	"github.com/hlsplay/hlsplay/style"
	"github.com/hlsplay/hlsplay/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.Flags().BoolP("set-only", "s", false, "Only variables that are set")
	envCmd.Flags().BoolP("unset-only", "u", false, "Only variables that are not set")
	envCmd.MarkFlagsMutuallyExclusive("set-only", "unset-only")
}

type envVar struct {
	name, key string
}

// envVars lists every variable hlsplay reads, sorted by name.
func envVars() []envVar {
	vars := lo.Map(config.EnvExposed, func(k string, _ int) envVar {
		field := config.Default[k]
		return envVar{name: field.Env(), key: k}
	})
	vars = append(vars, envVar{name: where.EnvConfigPath})

	slices.SortFunc(vars, func(a, b envVar) int {
		return strings.Compare(a.name, b.name)
	})
	return vars
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "List the environment variables hlsplay reads",
	Long:  "List the environment variables hlsplay reads, their values and the setting each one overrides.",
	Run: func(cmd *cobra.Command, args []string) {
		setOnly := lo.Must(cmd.Flags().GetBool("set-only"))
		unsetOnly := lo.Must(cmd.Flags().GetBool("unset-only"))

		for _, v := range envVars() {
			value, present := os.LookupEnv(v.name)
			if (setOnly && !present) || (unsetOnly && present) {
				continue
			}

			line := style.New().Bold(true).Foreground(color.Purple).Render(v.name) + "="
			if present {
				line += style.Fg(color.Green)(value)
			} else {
				line += style.Fg(color.Red)("unset")
			}

			if v.key != "" {
				line += "  " + style.Faint(v.key)
			}
			cmd.Println(line)
		}
	},
}
