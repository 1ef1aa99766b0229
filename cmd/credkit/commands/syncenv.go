package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/credkit/internal/envexport"
	"github.com/systmms/credkit/pkg/credential"
)

func NewSyncEnvCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync-env",
		Short: "Print storage settings as shell export statements",
		Long: `Print the non-token storage settings as export statements for shell
evaluation. Tokens and the service key are never exported.

Examples:
  # Load storage settings into the current shell
  eval "$(credkit sync-env)"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			service, err := rt.buildService(ctx)
			if err != nil {
				return err
			}

			pairs := []struct {
				envVar string
				key    string
			}{
				{envexport.EnvEndpoint, credential.KeyStorageEndpoint},
				{envexport.EnvBucket, credential.KeyStorageBucket},
				{envexport.EnvAccessKey, credential.KeyStorageAccessKey},
				{envexport.EnvSecretKey, credential.KeyStorageSecretKey},
			}
			for _, p := range pairs {
				value, err := service.GetSecret(ctx, p.key)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "export %s=%q\n", p.envVar, value)
			}
			return nil
		},
	}

	return cmd
}
