package sources

import (
	"context"
	"fmt"
	"os"

	"github.com/systmms/credkit/pkg/secrets"
)

// BundleEnvVar is the process environment variable holding a complete
// JSON-encoded bundle, typically injected by a CI runner or a container
// orchestrator.
const BundleEnvVar = "CREDKIT_SECRET_BUNDLE"

// Env loads the bundle from the process environment.
type Env struct {
	lookup func(string) (string, bool)
}

// NewEnv creates the environment source.
func NewEnv() *Env {
	return &Env{lookup: os.LookupEnv}
}

// NewEnvWithLookup creates an environment source with a custom lookup
// function, for tests.
func NewEnvWithLookup(lookup func(string) (string, bool)) *Env {
	return &Env{lookup: lookup}
}

// Name returns the source identifier.
func (e *Env) Name() string {
	return "env"
}

// Available reports whether the bundle variable is set.
func (e *Env) Available(ctx context.Context) bool {
	value, ok := e.lookup(BundleEnvVar)
	return ok && value != ""
}

// Load returns the raw candidate from the environment.
func (e *Env) Load(ctx context.Context) ([]byte, error) {
	value, ok := e.lookup(BundleEnvVar)
	if !ok || value == "" {
		return nil, fmt.Errorf("%s is not set: %w", BundleEnvVar, secrets.ErrNotFound)
	}
	return []byte(value), nil
}
