// Package resolve implements the secret resolution chain: an ordered walk
// over the configured sources, highest trust first, returning the first
// candidate bundle that passes schema validation.
//
// The chain runs at most once per process. Concurrent callers of Resolve
// block on the same execution and observe the same bundle, so N requests
// arriving during startup cause exactly one walk over the sources.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/systmms/credkit/internal/logging"
	"github.com/systmms/credkit/internal/metrics"
	"github.com/systmms/credkit/internal/schema"
	"github.com/systmms/credkit/pkg/secrets"
)

// Attempt records the outcome of one source during a failed resolution.
type Attempt struct {
	Source string
	Err    error
}

// ExhaustedError is returned when every source in the chain failed to
// produce a schema-valid bundle. It is fatal to startup unless the chain
// includes the insecure development fallback.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Source, a.Err))
	}
	return fmt.Sprintf("all secret sources exhausted: %s", strings.Join(parts, "; "))
}

// Chain resolves a bundle from an ordered list of sources.
type Chain struct {
	sources   []secrets.Source
	validator *schema.Validator
	logger    *logging.Logger

	once       sync.Once
	bundle     *secrets.Bundle
	sourceName string
	err        error
}

// NewChain creates a chain over the given sources, in trust order from
// highest to lowest.
func NewChain(validator *schema.Validator, logger *logging.Logger, srcs ...secrets.Source) *Chain {
	return &Chain{sources: srcs, validator: validator, logger: logger}
}

// Resolve runs the chain, memoized. Every caller after the first (including
// concurrent ones) receives the original result without re-running sources.
func (c *Chain) Resolve(ctx context.Context) (*secrets.Bundle, error) {
	c.once.Do(func() {
		c.bundle, c.sourceName, c.err = c.run(ctx)
	})
	return c.bundle, c.err
}

// SourceName reports which source produced the resolved bundle. Empty until
// Resolve has succeeded.
func (c *Chain) SourceName() string {
	return c.sourceName
}

func (c *Chain) run(ctx context.Context) (*secrets.Bundle, string, error) {
	var attempts []Attempt

	for _, src := range c.sources {
		name := src.Name()

		if !src.Available(ctx) {
			c.logger.Debug("source %s not usable on this host, skipping", name)
			attempts = append(attempts, Attempt{Source: name, Err: errors.New("not available")})
			continue
		}

		raw, err := src.Load(ctx)
		if err != nil {
			switch {
			case errors.Is(err, secrets.ErrNotFound):
				c.logger.Debug("source %s holds no bundle", name)
				metrics.RecordResolutionAttempt(name, "not_found")
			default:
				// True I/O faults are logged but never fatal per source;
				// the chain falls through.
				c.logger.Warn("source %s failed: %v", name, err)
				metrics.RecordResolutionAttempt(name, "unavailable")
			}
			attempts = append(attempts, Attempt{Source: name, Err: err})
			continue
		}

		bundle, err := c.validator.Validate(raw)
		if err != nil {
			c.logger.Warn("candidate from source %s rejected: %v", name, err)
			metrics.RecordResolutionAttempt(name, "invalid")
			attempts = append(attempts, Attempt{Source: name, Err: err})
			continue
		}

		c.logger.Info("resolved secret bundle from source %s (%d identities)", name, len(bundle.Tokens))
		metrics.RecordResolutionAttempt(name, "ok")
		return bundle, name, nil
	}

	return nil, "", &ExhaustedError{Attempts: attempts}
}
