package hashstore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/allisson/go-pwdhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/credkit/internal/hashstore"
	"github.com/systmms/credkit/pkg/secrets"
)

func newStore(t *testing.T) *hashstore.Store {
	t.Helper()
	store, err := hashstore.New(hashstore.WithPolicy(pwdhash.PolicyInteractive))
	require.NoError(t, err)
	return store
}

func testBundle() *secrets.Bundle {
	return &secrets.Bundle{
		Tokens: map[string]string{
			"alice": "sk_live_abcdef0123456789",
			"bob":   "sk_live_fedcba9876543210",
		},
		Storage: secrets.Storage{Endpoint: "https://objects.example.com", Bucket: "uploads"},
	}
}

func TestVerifyKnownTokens(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	require.NoError(t, store.Rebuild(testBundle()))
	assert.Equal(t, 2, store.Size())

	user, ok, err := store.Verify(context.Background(), "sk_live_abcdef0123456789")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", user)

	user, ok, err = store.Verify(context.Background(), "sk_live_fedcba9876543210")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bob", user)
}

func TestVerifyUnknownToken(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	require.NoError(t, store.Rebuild(testBundle()))

	user, ok, err := store.Verify(context.Background(), "not-a-real-token-at-all")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, user)
}

func TestVerifyEmptyStore(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	_, ok, err := store.Verify(context.Background(), "anything-goes-here")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrepareDoesNotPublish(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	require.NoError(t, store.Rebuild(testBundle()))

	next := testBundle()
	next.Tokens["alice"] = "sk_live_rotated0123456789"
	prepared, err := store.Prepare(next)
	require.NoError(t, err)

	// Old token still verifies until Commit.
	_, ok, err := store.Verify(context.Background(), "sk_live_abcdef0123456789")
	require.NoError(t, err)
	assert.True(t, ok)

	store.Commit(prepared)

	_, ok, err = store.Verify(context.Background(), "sk_live_abcdef0123456789")
	require.NoError(t, err)
	assert.False(t, ok)

	user, ok, err := store.Verify(context.Background(), "sk_live_rotated0123456789")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", user)
}

func TestRebuildSurvivesColdRestart(t *testing.T) {
	t.Parallel()

	// A fresh store built from the same bundle must verify the same tokens:
	// digests are derived, never carried over.
	bundle := testBundle()

	first := newStore(t)
	require.NoError(t, first.Rebuild(bundle))

	second := newStore(t)
	require.NoError(t, second.Rebuild(bundle))

	user, ok, err := second.Verify(context.Background(), "sk_live_abcdef0123456789")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", user)
}

func TestConcurrentVerification(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	require.NoError(t, store.Rebuild(testBundle()))

	const callers = 16
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			user, ok, err := store.Verify(context.Background(), "sk_live_abcdef0123456789")
			assert.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "alice", user)
		}()
	}
	wg.Wait()
}

func TestVerifyAfterCommitIgnoresInFlightSweep(t *testing.T) {
	t.Parallel()

	// A wide store keeps the first sweep busy long enough for the commit to
	// land while it is still running.
	const oldToken = "sk_live_abcdef0123456789"
	bundle := &secrets.Bundle{Tokens: map[string]string{"alice": oldToken}}
	for i := 0; i < 32; i++ {
		bundle.Tokens[fmt.Sprintf("user-%02d", i)] = fmt.Sprintf("sk_live_user%02d_123456789", i)
	}

	store := newStore(t)
	require.NoError(t, store.Rebuild(bundle))

	next := bundle.Clone()
	next.Tokens["alice"] = "sk_live_rotated0123456789"
	prepared, err := store.Prepare(next)
	require.NoError(t, err)

	entered := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		close(entered)
		// Sweeps the pre-commit digests; its result belongs to that
		// generation only.
		_, _, _ = store.Verify(context.Background(), oldToken)
	}()
	<-entered

	store.Commit(prepared)

	// Starts strictly after the commit: it must not join the sweep above
	// and report the rotated-away token as valid.
	user, ok, err := store.Verify(context.Background(), oldToken)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, user)

	<-done
}

func TestVerifyCancelled(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	require.NoError(t, store.Rebuild(testBundle()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := store.Verify(ctx, "sk_live_abcdef0123456789")
	assert.ErrorIs(t, err, context.Canceled)
}
