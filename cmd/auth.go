package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the account secret",
	}

	cmd.AddCommand(newAuthSetCmd(app), newAuthRemoveCmd(app))

	return cmd
}

func newAuthSetCmd(app *app) *cobra.Command {
	var secretKey string
	var secretValue string
	var move bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the account secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configured := app.credentials.SecretRef()
			key := strings.TrimSpace(secretKey)
			if key == "" {
				key = configured
			}

			previous := ""
			if move {
				previous = configured
			}

			if err := app.credentials.SetSecret(cmd.Context(), key, previous, secretValue); err != nil {
				return err
			}

			if key != configured {
				_, err := fmt.Fprintf(cmd.ErrOrStderr(), "stored %s; set account.secret_ref = %q to use it\n", key, key)
				return err
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&secretKey, "secret-key", "", "Secret-store key (defaults to account.secret_ref)")
	cmd.Flags().StringVar(&secretValue, "secret-value", "", "Secret value")
	cmd.Flags().BoolVar(&move, "move", false, "Delete the secret at account.secret_ref after storing under --secret-key")
	_ = cmd.MarkFlagRequired("secret-value")

	return cmd
}

func newAuthRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Remove the account secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.credentials.RemoveSecret(cmd.Context())
		},
	}
}
