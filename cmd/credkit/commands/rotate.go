package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func NewRotateCommand(rt *Runtime) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "rotate <user-id>",
		Short: "Rotate a user's token",
		Long: `Generate a new token for a user, persist it to the identity table,
and invalidate the old one everywhere at once.

The new token is printed to stdout exactly once. It cannot be recovered
afterwards: only its Argon2id digest is retained.

Examples:
  # Rotate and capture the new token
  NEW_TOKEN=$(credkit rotate alice)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]
			ctx := context.Background()

			service, err := rt.buildService(ctx)
			if err != nil {
				return err
			}

			newToken, err := service.RotateToken(ctx, userID)
			if err != nil {
				return err
			}

			if jsonOutput {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(map[string]string{
					"user_id": userID,
					"token":   newToken,
				})
			}

			// The one and only time the plaintext leaves the process.
			fmt.Fprintln(cmd.OutOrStdout(), newToken)
			rt.Logger.Info("rotated token for %s; the previous token is no longer valid", userID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
