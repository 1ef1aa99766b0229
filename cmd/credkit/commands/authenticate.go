package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// errAuthFailed is deliberately uninformative: a rejected token must look
// the same whether it was never issued or rotated away.
var errAuthFailed = errors.New("authentication failed")

func NewAuthenticateCommand(rt *Runtime) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "authenticate",
		Short: "Authenticate a token read from stdin",
		Long: `Read a token from stdin and resolve it to a user identity.

The token is read from stdin rather than an argument so it never appears
in shell history or process listings. On success the user ID and role are
printed; on rejection the command exits non-zero with no further detail.

Examples:
  # Authenticate interactively
  credkit authenticate < token.txt

  # Pipe from another tool
  vault-tool fetch | credkit authenticate --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read token from stdin: %w", err)
			}
			token := strings.TrimSpace(line)
			if token == "" {
				return errors.New("no token on stdin")
			}

			ctx := context.Background()
			service, err := rt.buildService(ctx)
			if err != nil {
				return err
			}

			identity, err := service.Authenticate(ctx, token)
			if err != nil {
				return err
			}
			if identity == nil {
				return errAuthFailed
			}

			if jsonOutput {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(map[string]string{
					"user_id": identity.UserID,
					"role":    identity.Role,
				})
			}

			rt.Logger.Info("authenticated as %s (role: %s)", identity.UserID, identity.Role)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the identity in JSON format")

	return cmd
}
