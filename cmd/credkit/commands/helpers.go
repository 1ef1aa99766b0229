package commands

import (
	"context"

	"github.com/systmms/credkit/internal/config"
	"github.com/systmms/credkit/internal/logging"
	"github.com/systmms/credkit/pkg/credential"
)

// Runtime carries the configuration and logger shared by every command.
// Populated by the root command's PersistentPreRun after flags are parsed.
type Runtime struct {
	Config *config.Config
	Logger *logging.Logger
}

// buildService assembles the credential service from the runtime config.
func (rt *Runtime) buildService(ctx context.Context) (*credential.Service, error) {
	return credential.Build(ctx, rt.Config, rt.Logger)
}
