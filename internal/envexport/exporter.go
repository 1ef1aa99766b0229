// Package envexport mirrors the non-token storage settings into process
// environment variables for tools that read configuration from the
// environment. Tokens, the service key, and anything derived from them are
// deliberately outside its reach: the exporter only ever sees the storage
// block.
package envexport

import (
	"fmt"
	"os"

	"github.com/systmms/credkit/internal/logging"
	"github.com/systmms/credkit/pkg/secrets"
)

// Environment variable names written by Sync.
const (
	EnvEndpoint  = "CREDKIT_SERVICE_ENDPOINT"
	EnvBucket    = "CREDKIT_STORAGE_BUCKET"
	EnvAccessKey = "CREDKIT_STORAGE_ACCESS_KEY"
	EnvSecretKey = "CREDKIT_STORAGE_SECRET_KEY"
)

// Exporter writes storage settings into the environment.
type Exporter struct {
	setenv func(key, value string) error
	logger *logging.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithSetenv replaces the environment writer, for tests.
func WithSetenv(setenv func(key, value string) error) Option {
	return func(e *Exporter) { e.setenv = setenv }
}

// New creates an exporter backed by os.Setenv.
func New(logger *logging.Logger, opts ...Option) *Exporter {
	e := &Exporter{setenv: os.Setenv, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sync writes the four storage settings to the environment. The bundle's
// tokens are never consulted.
func (e *Exporter) Sync(storage secrets.Storage) error {
	vars := []struct {
		key   string
		value string
	}{
		{EnvEndpoint, storage.Endpoint},
		{EnvBucket, storage.Bucket},
		{EnvAccessKey, storage.AccessKey},
		{EnvSecretKey, storage.SecretKey},
	}

	for _, v := range vars {
		if err := e.setenv(v.key, v.value); err != nil {
			return fmt.Errorf("failed to set %s: %w", v.key, err)
		}
	}

	e.logger.Debug("exported storage settings to environment (%s, %s, %s, %s)",
		EnvEndpoint, EnvBucket, EnvAccessKey, EnvSecretKey)
	return nil
}
