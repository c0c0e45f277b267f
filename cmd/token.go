package cmd

import (
	"fmt"

	"github.com/hlsplay/hlsplay/auth"
	"github.com/hlsplay/hlsplay/icon"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Bool("rotate", false, "Replace the token with a new one")
	tokenCmd.Flags().Bool("delete", false, "Remove the token from the system keyring")
	tokenCmd.MarkFlagsMutuallyExclusive("rotate", "delete")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the remote control token",
	Long: `Print the token remote control clients must send, either as
"Authorization: Bearer <token>" or as the token query parameter.
It is kept in the system keyring and created on first use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if lo.Must(cmd.Flags().GetBool("delete")) {
			if err := auth.Delete(); err != nil {
				return err
			}
			fmt.Printf("%s Token removed from the system keyring\n", icon.Get(icon.Success))
			return nil
		}

		get := auth.Token
		if lo.Must(cmd.Flags().GetBool("rotate")) {
			get = auth.Rotate
		}

		token, err := get()
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}
