package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unified-report/apps/api/internal/auth"
)

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token [token]",
	Short: "Print an API_TOKEN_HASH value, generating a token when none is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var token string
		if len(args) == 1 {
			token = args[0]
		} else {
			generated, err := auth.GenerateToken()
			if err != nil {
				return err
			}
			token = generated
			fmt.Fprintf(cmd.OutOrStdout(), "token: %s\n", token)
		}
		hash, err := auth.HashToken(token)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "API_TOKEN_HASH=%s\n", hash)
		return nil
	},
}
