package main

import (
	"os"

	"github.com/spf13/cobra"
)

// flags shared by subcommands
type rootFlags struct {
	identityURL string
	userPath    string
	apiKey      string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	root := &cobra.Command{
		Use:   "authctl",
		Short: "Inspect and resolve portal bearer tokens",
		Long: `authctl runs the portal's token resolver from a terminal.
It decodes tokens locally and resolves them against the identity provider
with the same deadlines and fallbacks the API uses.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&f.identityURL, "identity-url", os.Getenv("IDENTITY_URL"),
		"Base URL of the identity provider (default $IDENTITY_URL)")
	root.PersistentFlags().StringVar(&f.userPath, "user-path", os.Getenv("IDENTITY_USER_PATH"),
		"User endpoint path on the identity provider (default $IDENTITY_USER_PATH or /auth/v1/user)")
	root.PersistentFlags().StringVar(&f.apiKey, "api-key", os.Getenv("IDENTITY_API_KEY"),
		"API key sent to the identity provider (default $IDENTITY_API_KEY)")

	root.AddCommand(newDecodeCmd())
	root.AddCommand(newResolveCmd(f))
	return root
}
