package main

import (
	"errors"
	"fmt"
	"time"

	"learning-portal/internal/auth"

	"github.com/spf13/cobra"
)

func newResolveCmd(f *rootFlags) *cobra.Command {
	var (
		optional bool
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "resolve <token>",
		Short: "Resolve a token against the identity provider",
		Long: `Resolve runs the same policy as the API gate. Required mode exits non-zero
on missing_credential / invalid_credential; optional mode never fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := auth.NewHTTPVerifier(auth.HTTPVerifierConfig{
				BaseURL:  f.identityURL,
				UserPath: f.userPath,
				APIKey:   f.apiKey,
			})
			if err != nil {
				return err
			}
			res, err := auth.NewResolver(v, auth.ResolverOptions{})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if optional {
				id := res.ResolveOptionalWithin(cmd.Context(), args[0], timeout)
				if id == nil {
					fmt.Fprintln(out, "anonymous")
					return nil
				}
				fmt.Fprintf(out, "%s (%s)\n", id.Subject, id.Tier)
				return nil
			}

			id, err := res.ResolveRequiredWithin(cmd.Context(), args[0], timeout)
			if err != nil {
				if errors.Is(err, auth.ErrMissingCredential) || errors.Is(err, auth.ErrInvalidCredential) {
					fmt.Fprintln(out, err.Error())
				}
				return err
			}
			fmt.Fprintf(out, "%s (%s)\n", id.Subject, id.Tier)
			return nil
		},
	}

	cmd.Flags().BoolVar(&optional, "optional", false, "Use optional mode (never fails, may print anonymous)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Verification deadline (default 5s required, 3s optional)")
	return cmd
}
