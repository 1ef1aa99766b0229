package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func NewGetCommand(rt *Runtime) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a single non-token secret value",
		Long: `Retrieve one secret by key and print it to stdout.

Valid keys are service_key, storage.endpoint, storage.bucket,
storage.access_key, and storage.secret_key. Tokens are not retrievable:
once resolved they exist only as Argon2id digests.

Examples:
  # Get the storage endpoint
  credkit get storage.endpoint

  # Use in scripts
  export BUCKET=$(credkit get storage.bucket)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			service, err := rt.buildService(ctx)
			if err != nil {
				return err
			}

			value, err := service.GetSecret(ctx, args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				output := map[string]interface{}{
					"key":    args[0],
					"value":  value,
					"source": service.SourceName(),
				}
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(output)
			}

			fmt.Fprint(cmd.OutOrStdout(), value)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format with metadata")

	return cmd
}
