// Package credential is the public face of the subsystem: resolve a secret
// bundle once, authenticate presented tokens against it, rotate tokens, and
// expose the non-token storage settings. Callers construct a Service
// explicitly; there is no package-level singleton.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/systmms/credkit/internal/authcache"
	"github.com/systmms/credkit/internal/envexport"
	"github.com/systmms/credkit/internal/hashstore"
	"github.com/systmms/credkit/internal/identity"
	"github.com/systmms/credkit/internal/logging"
	"github.com/systmms/credkit/internal/metrics"
	"github.com/systmms/credkit/internal/resolve"
	"github.com/systmms/credkit/internal/rotation"
)

// Secret keys accepted by GetSecret. Tokens are not on this list and never
// will be: once hashed they are not retrievable.
const (
	KeyServiceKey       = "service_key"
	KeyStorageEndpoint  = "storage.endpoint"
	KeyStorageBucket    = "storage.bucket"
	KeyStorageAccessKey = "storage.access_key"
	KeyStorageSecretKey = "storage.secret_key"
)

// ErrUnknownKey is returned by GetSecret for a key outside the known set.
var ErrUnknownKey = errors.New("unknown secret key")

// ErrTokenNotRetrievable is returned when a caller asks GetSecret for a
// token. Plaintext tokens exist only inside the resolved bundle and in the
// one-time return value of RotateToken.
var ErrTokenNotRetrievable = errors.New("tokens cannot be read back")

// Identity is the result of a successful authentication.
type Identity struct {
	UserID string
	Role   string
}

// Service ties the resolution chain, hash store, auth cache, and rotation
// coordinator into one API.
type Service struct {
	chain    *resolve.Chain
	coord    *rotation.Coordinator
	store    *hashstore.Store
	cache    *authcache.Cache
	table    *identity.Table
	exporter *envexport.Exporter
	logger   *logging.Logger

	initOnce sync.Once
	initErr  error
	roles    map[string]string
}

// New wires a service from explicitly constructed components. Most callers
// want Build, which assembles the components from configuration.
func New(chain *resolve.Chain, coord *rotation.Coordinator, store *hashstore.Store,
	cache *authcache.Cache, table *identity.Table, exporter *envexport.Exporter,
	logger *logging.Logger) *Service {
	return &Service{
		chain:    chain,
		coord:    coord,
		store:    store,
		cache:    cache,
		table:    table,
		exporter: exporter,
		logger:   logger,
	}
}

// ensureResolved runs the resolution chain and installs its bundle, exactly
// once per Service. Concurrent callers block on the same execution; the
// outcome, success or failure, is memoized.
func (s *Service) ensureResolved(ctx context.Context) error {
	s.initOnce.Do(func() {
		bundle, err := s.chain.Resolve(ctx)
		if err != nil {
			s.initErr = err
			return
		}
		if err := s.coord.Install(bundle); err != nil {
			s.initErr = err
			return
		}

		users, err := s.table.Load()
		if err != nil {
			// Roles are advisory; authentication still works, identities
			// just come back without a role.
			s.logger.Warn("identity table unreadable, roles will be empty: %v", err)
			users = nil
		}
		s.roles = make(map[string]string, len(users))
		for id, record := range users {
			s.roles[id] = record.Role
		}
	})
	return s.initErr
}

// Authenticate resolves a presented token to an identity. A token that
// matches no user returns (nil, nil): the caller cannot distinguish a
// never-issued token from a rotated-away one, and neither outcome logs the
// token itself. Errors are reserved for system faults.
func (s *Service) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if err := s.ensureResolved(ctx); err != nil {
		return nil, err
	}

	if cached, ok := s.cache.Get(token); ok {
		metrics.RecordCacheHit()
		metrics.RecordAuthentication("ok")
		return &Identity{UserID: cached.UserID, Role: cached.Role}, nil
	}
	metrics.RecordCacheMiss()

	userID, ok, err := s.store.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if !ok {
		metrics.RecordAuthentication("rejected")
		return nil, nil
	}

	id := Identity{UserID: userID, Role: s.roles[userID]}
	s.cache.Set(token, authcache.Identity{UserID: id.UserID, Role: id.Role})
	metrics.RecordAuthentication("ok")
	return &id, nil
}

// GetSecret returns one non-token secret by key.
func (s *Service) GetSecret(ctx context.Context, key string) (string, error) {
	if err := s.ensureResolved(ctx); err != nil {
		return "", err
	}

	bundle := s.coord.Bundle()
	switch key {
	case KeyServiceKey:
		return bundle.ServiceKey, nil
	case KeyStorageEndpoint:
		return bundle.Storage.Endpoint, nil
	case KeyStorageBucket:
		return bundle.Storage.Bucket, nil
	case KeyStorageAccessKey:
		return bundle.Storage.AccessKey, nil
	case KeyStorageSecretKey:
		return bundle.Storage.SecretKey, nil
	}
	if strings.HasPrefix(key, "tokens") {
		return "", ErrTokenNotRetrievable
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// RotateToken replaces the token for userID and returns the new plaintext
// exactly once.
func (s *Service) RotateToken(ctx context.Context, userID string) (string, error) {
	if err := s.ensureResolved(ctx); err != nil {
		return "", err
	}
	return s.coord.Rotate(ctx, userID)
}

// SyncToEnv exports the storage settings to the process environment.
func (s *Service) SyncToEnv(ctx context.Context) error {
	if err := s.ensureResolved(ctx); err != nil {
		return err
	}
	return s.exporter.Sync(s.coord.Bundle().Storage)
}

// SourceName reports which chain source produced the bundle in use. Empty
// until the first successful resolution.
func (s *Service) SourceName() string {
	return s.chain.SourceName()
}
