package main

import (
	"fmt"
	"time"

	"learning-portal/internal/auth"

	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token>",
		Short: "Decode a token's claims locally without verifying its signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			c, ok := auth.DecodeClaims(args[0], time.Now())
			if !ok {
				fmt.Fprintln(out, "no claims: token is malformed, has no subject, or is expired")
				return fmt.Errorf("token not decodable")
			}
			fmt.Fprintf(out, "subject:  %s\n", c.Subject)
			if c.Email != "" {
				fmt.Fprintf(out, "email:    %s\n", c.Email)
			}
			if c.Role != "" {
				fmt.Fprintf(out, "role:     %s\n", c.Role)
			}
			if c.ExpiresAt.IsZero() {
				fmt.Fprintln(out, "expires:  never")
			} else {
				fmt.Fprintf(out, "expires:  %s\n", c.ExpiresAt.UTC().Format(time.RFC3339))
			}
			fmt.Fprintln(out, "signature: not checked")
			return nil
		},
	}
}
