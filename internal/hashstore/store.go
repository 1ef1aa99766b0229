// Package hashstore converts plaintext tokens into Argon2id digests and
// verifies presented tokens against them. Plaintext is never retained after
// hashing; the only plaintext copy lives in the bundle that fed the build.
//
// Rebuilds are two-phase: Prepare hashes the whole bundle off to the side,
// Commit publishes the finished map in one swap. Readers see either the old
// complete store or the new complete store, never a mix.
package hashstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/allisson/go-pwdhash"
	"golang.org/x/sync/singleflight"

	"github.com/systmms/credkit/pkg/secrets"
)

// Store holds one Argon2id digest per user.
type Store struct {
	hasher *pwdhash.PasswordHasher

	mu      sync.RWMutex
	digests map[string]string // userID -> digest
	gen     uint64            // bumped on every Commit

	// group collapses concurrent verifications of the same candidate into
	// a single Argon2id sweep; the hash work dominates everything else.
	group singleflight.Group
}

// Option configures a Store.
type Option func(*options)

type options struct {
	policy pwdhash.Policy
}

// WithPolicy overrides the Argon2id cost policy. Tests use the interactive
// policy to keep hashing fast.
func WithPolicy(policy pwdhash.Policy) Option {
	return func(o *options) { o.policy = policy }
}

// New creates an empty store. The moderate policy balances verification
// latency against brute-force cost on a leaked digest.
func New(opts ...Option) (*Store, error) {
	o := options{policy: pwdhash.PolicyModerate}
	for _, opt := range opts {
		opt(&o)
	}

	hasher, err := pwdhash.New(pwdhash.WithPolicy(o.policy))
	if err != nil {
		return nil, fmt.Errorf("failed to create password hasher: %w", err)
	}
	return &Store{hasher: hasher, digests: make(map[string]string)}, nil
}

// Prepared is a fully-built digest map waiting to be published.
type Prepared struct {
	digests map[string]string
}

// Prepare hashes every token in the bundle into a fresh digest map without
// touching the published store. If any hash fails the store is unchanged.
func (s *Store) Prepare(bundle *secrets.Bundle) (*Prepared, error) {
	digests := make(map[string]string, len(bundle.Tokens))
	for user, token := range bundle.Tokens {
		digest, err := s.hasher.Hash([]byte(token))
		if err != nil {
			return nil, fmt.Errorf("failed to hash token for %s: %w", user, err)
		}
		digests[user] = digest
	}
	return &Prepared{digests: digests}, nil
}

// Commit publishes a prepared digest map, replacing the store contents in
// one swap.
func (s *Store) Commit(p *Prepared) {
	s.mu.Lock()
	s.digests = p.digests
	s.gen++
	s.mu.Unlock()
}

// Rebuild replaces the store contents from the bundle in one step.
func (s *Store) Rebuild(bundle *secrets.Bundle) error {
	prepared, err := s.Prepare(bundle)
	if err != nil {
		return err
	}
	s.Commit(prepared)
	return nil
}

// Size reports the number of identities in the published store.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.digests)
}

type verdict struct {
	user string
	ok   bool
}

// Verify checks a presented token against every digest in the store and
// returns the matching user ID. The sweep always visits every entry so the
// cost is uniform whether or not the candidate matches anything.
func (s *Store) Verify(ctx context.Context, candidate string) (string, bool, error) {
	// The key folds in the store generation so a verification that starts
	// after a Commit can never join a sweep still running against the
	// replaced digests and report a stale match. The candidate part is a
	// fast digest so plaintext never sits in the group's internal map.
	sum := sha256.Sum256([]byte(candidate))
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()
	key := fmt.Sprintf("%d:%s", gen, hex.EncodeToString(sum[:]))

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.sweep(ctx, candidate)
	})
	if err != nil {
		return "", false, err
	}

	v := result.(verdict)
	return v.user, v.ok, nil
}

func (s *Store) sweep(ctx context.Context, candidate string) (verdict, error) {
	s.mu.RLock()
	digests := s.digests
	s.mu.RUnlock()

	var matched string
	var found bool
	for user, digest := range digests {
		if err := ctx.Err(); err != nil {
			return verdict{}, err
		}

		ok, err := s.hasher.Verify([]byte(candidate), digest)
		if err != nil {
			return verdict{}, fmt.Errorf("digest for %s is malformed: %w", user, err)
		}
		if ok {
			// Record the match but finish the sweep; bailing out early
			// would make matches observably cheaper than misses.
			matched = user
			found = true
		}
	}

	return verdict{user: matched, ok: found}, nil
}
