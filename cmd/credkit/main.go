package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/credkit/cmd/credkit/commands"
	"github.com/systmms/credkit/internal/config"
	"github.com/systmms/credkit/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		noColor bool
		debug   bool
	)

	rt := &commands.Runtime{}

	rootCmd := &cobra.Command{
		Use:   "credkit",
		Short: "Credential resolution and token authentication",
		Long: `credkit resolves a secret bundle from an ordered chain of sources
(OS keychain, encrypted file, local file, environment) and authenticates
tokens against Argon2id digests of it. Plaintext tokens are never stored
and never logged.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			if debug {
				cfg.Debug = true
			}
			if noColor {
				cfg.NoColor = true
			}
			rt.Config = cfg
			rt.Logger = logging.New(cfg.Debug, cfg.NoColor)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewGetCommand(rt),
		commands.NewAuthenticateCommand(rt),
		commands.NewRotateCommand(rt),
		commands.NewSyncEnvCommand(rt),
		commands.NewDoctorCommand(rt),
	)

	return rootCmd.Execute()
}
