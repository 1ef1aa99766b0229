// Package rotation replaces one user's token and invalidates every piece of
// state derived from the old one. The coordinator owns the in-memory bundle
// and serializes all rotations through a single mutex: the hash store is
// rebuilt from the whole bundle, so two interleaved rotations would corrupt
// each other's rebuild.
//
// A rotation is effectively atomic. The replacement hash store is prepared
// fully off to the side, the durable identity table is rewritten, and only
// then are the new bundle, hash store, and cleared cache published. Any
// failure before the durable write leaves every structure untouched; a
// crash before the write leaves the previous token authoritative.
package rotation

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/systmms/credkit/internal/authcache"
	"github.com/systmms/credkit/internal/hashstore"
	"github.com/systmms/credkit/internal/identity"
	"github.com/systmms/credkit/internal/logging"
	"github.com/systmms/credkit/internal/metrics"
	"github.com/systmms/credkit/pkg/secrets"
)

// ErrNotInstalled indicates Rotate was called before a resolved bundle was
// installed.
var ErrNotInstalled = errors.New("no secret bundle installed")

// Coordinator owns the bundle and coordinates rotations against the hash
// store, auth cache, and durable identity table.
type Coordinator struct {
	mu     sync.RWMutex
	bundle *secrets.Bundle

	table  *identity.Table
	store  *hashstore.Store
	cache  *authcache.Cache
	logger *logging.Logger
}

// NewCoordinator wires a coordinator over the shared credential state.
func NewCoordinator(table *identity.Table, store *hashstore.Store, cache *authcache.Cache, logger *logging.Logger) *Coordinator {
	return &Coordinator{table: table, store: store, cache: cache, logger: logger}
}

// Install publishes a freshly resolved bundle and builds the hash store
// from it. Called once after resolution and never again; rotations go
// through Rotate.
func (c *Coordinator) Install(bundle *secrets.Bundle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Rebuild(bundle); err != nil {
		return fmt.Errorf("failed to build token hash store: %w", err)
	}
	c.bundle = bundle
	c.cache.Clear()
	return nil
}

// Bundle returns the bundle currently in effect.
func (c *Coordinator) Bundle() *secrets.Bundle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bundle
}

// Rotate generates a new token for userID, persists it to the identity
// table, and publishes the rebuilt in-memory state. The plaintext token is
// returned exactly once and is never retrievable again.
func (c *Coordinator) Rotate(ctx context.Context, userID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.bundle == nil {
		return "", ErrNotInstalled
	}

	// The identity table is the authority on who can be rotated; fail
	// before any expensive work when the user is unknown.
	users, err := c.table.Load()
	if err != nil {
		metrics.RecordRotation("failed")
		return "", err
	}
	if _, ok := users[userID]; !ok {
		metrics.RecordRotation("failed")
		return "", fmt.Errorf("%w: %s", identity.ErrUnknownUser, userID)
	}

	oldToken := c.bundle.Tokens[userID]
	newToken, err := generateToken(oldToken)
	if err != nil {
		metrics.RecordRotation("failed")
		return "", fmt.Errorf("failed to generate replacement token: %w", err)
	}

	next := c.bundle.Clone()
	next.Tokens[userID] = newToken

	// Build the replacement hash store before touching durable state so a
	// hashing fault cannot strand a half-rotated system.
	prepared, err := c.store.Prepare(next)
	if err != nil {
		metrics.RecordRotation("failed")
		return "", err
	}

	if err := c.table.UpdateToken(userID, newToken); err != nil {
		// Durable write failed: nothing has been published, the previous
		// token stays authoritative. Surface the cause to the caller.
		metrics.RecordRotation("failed")
		return "", err
	}

	c.bundle = next
	c.store.Commit(prepared)
	c.cache.Clear()

	rotationID := uuid.NewString()
	c.logger.Info("rotation %s: replaced token for %s, hash store rebuilt (%d identities), auth cache cleared",
		rotationID, userID, c.store.Size())
	metrics.RecordRotation("ok")

	return newToken, nil
}

// generateToken returns a fresh 256-bit URL-safe token distinct from old.
func generateToken(old string) (string, error) {
	for {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		token := base64.URLEncoding.EncodeToString(buf)
		if token != old {
			return token, nil
		}
	}
}
