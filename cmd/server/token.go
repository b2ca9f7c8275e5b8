package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkeye/Chatter/internal/auth"
	"github.com/dkeye/Chatter/internal/domain"
)

// tokenCmd mints a bearer token for local testing against the configured secret.
var tokenCmd = &cobra.Command{
	Use:   "token <member>",
	Short: "Issue an access token for a member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		member, err := domain.ParseMemberID(args[0])
		if err != nil {
			return err
		}
		token, err := auth.NewManager(cfg.Secret, cfg.TokenTTL).Issue(member)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
