package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fairway/backend/internal/authz"
	"fairway/backend/internal/config"
)

// newTokenCommand issues a bearer token for operators and service accounts.
func newTokenCommand() *cobra.Command {
	var (
		subject string
		roles   []string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for the scheduling API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AuthJWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured")
			}
			token, err := authz.IssueToken([]byte(cfg.AuthJWTSecret), authz.Actor{Subject: subject, Roles: roles}, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role granted to the subject (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
