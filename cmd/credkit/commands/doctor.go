package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/systmms/credkit/internal/config"
	"github.com/systmms/credkit/internal/resolve"
	"github.com/systmms/credkit/pkg/credential"
)

func NewDoctorCommand(rt *Runtime) *cobra.Command {
	var resolveBundle bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check credential source availability and configuration",
		Long: `Report the configured source chain in trust order and whether each
source is usable on this host.

With --resolve the chain is actually run and the winning source reported.
Resolution only reads; nothing is rotated or written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			chainCfg, err := config.LoadChainConfig(rt.Config)
			if err != nil {
				rt.Logger.Error("chain configuration error: %v", err)
				return err
			}
			rt.Logger.Info("✓ Chain configuration loaded (%d sources)", len(chainCfg.Sources))

			srcs, err := credential.BuildSources(ctx, rt.Config, chainCfg, rt.Logger)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ORDER\tSOURCE\tAVAILABLE")
			for i, src := range srcs {
				available := "no"
				if src.Available(ctx) {
					available = "yes"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, src.Name(), available)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if !resolveBundle {
				return nil
			}

			service, err := rt.buildService(ctx)
			if err != nil {
				return err
			}
			if _, err := service.GetSecret(ctx, credential.KeyStorageBucket); err != nil {
				var exhausted *resolve.ExhaustedError
				if errors.As(err, &exhausted) {
					rt.Logger.Error("no source produced a valid bundle")
					for _, attempt := range exhausted.Attempts {
						rt.Logger.Warn("  %s: %v", attempt.Source, attempt.Err)
					}
				}
				return err
			}
			rt.Logger.Info("✓ Bundle resolved from source %s", service.SourceName())
			return nil
		},
	}

	cmd.Flags().BoolVar(&resolveBundle, "resolve", false, "Run the chain and report the winning source")

	return cmd
}
