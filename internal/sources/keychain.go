// Package sources implements the secret bundle origins the resolution chain
// iterates: the OS keychain, the encrypted-at-rest store, the permission-
// restricted local file, the process environment, an optional remote secret
// manager, and the clearly-marked insecure development default.
//
// Sources return raw JSON candidates; the chain validates them, so none of
// the implementations here decide what a well-formed bundle looks like.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/zalando/go-keyring"

	"github.com/systmms/credkit/pkg/secrets"
)

// Keychain field names under the configured service. Values are JSON-encoded
// strings, one field per top-level bundle key.
const (
	fieldTokens     = "tokens"
	fieldStorage    = "storage"
	fieldServiceKey = "service_key"
)

// KeyringClient is the narrow surface of the OS secure store the keychain
// source needs. The production implementation delegates to zalando/go-keyring;
// tests inject a fake.
type KeyringClient interface {
	Get(service, account string) (string, error)
}

type systemKeyring struct{}

func (systemKeyring) Get(service, account string) (string, error) {
	return keyring.Get(service, account)
}

// Keychain loads the bundle from the OS-native secure store (macOS Keychain,
// Linux Secret Service, Windows Credential Manager), keyed by
// (service, fieldName).
type Keychain struct {
	service   string
	client    KeyringClient
	available func() bool
}

// KeychainOption configures a Keychain source.
type KeychainOption func(*Keychain)

// WithKeyringClient injects a custom keyring client, primarily for tests.
func WithKeyringClient(client KeyringClient) KeychainOption {
	return func(k *Keychain) { k.client = client }
}

// WithKeychainAvailability overrides platform capability detection, for tests.
func WithKeychainAvailability(fn func() bool) KeychainOption {
	return func(k *Keychain) { k.available = fn }
}

// NewKeychain creates the keychain source for the given service name.
func NewKeychain(service string, opts ...KeychainOption) *Keychain {
	k := &Keychain{
		service:   service,
		client:    systemKeyring{},
		available: platformKeychainUsable,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Name returns the source identifier.
func (k *Keychain) Name() string {
	return "keychain"
}

// Available reports whether the OS secure store can be attempted on this
// host. Headless sessions cannot unlock a keychain, so they are skipped
// rather than failed.
func (k *Keychain) Available(ctx context.Context) bool {
	return k.available()
}

// Load assembles a raw candidate bundle from the per-field keychain entries.
func (k *Keychain) Load(ctx context.Context) ([]byte, error) {
	doc := make(map[string]json.RawMessage, 3)

	for _, field := range []string{fieldTokens, fieldStorage} {
		value, err := k.client.Get(k.service, field)
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return nil, fmt.Errorf("keychain entry %s/%s: %w", k.service, field, secrets.ErrNotFound)
			}
			return nil, &secrets.UnavailableError{
				Source: k.Name(),
				Reason: fmt.Sprintf("querying %s/%s", k.service, field),
				Err:    err,
			}
		}
		doc[field] = json.RawMessage(value)
	}

	// The service key is optional; absence is not an error.
	if value, err := k.client.Get(k.service, fieldServiceKey); err == nil {
		doc[fieldServiceKey] = json.RawMessage(value)
	} else if !errors.Is(err, keyring.ErrNotFound) {
		return nil, &secrets.UnavailableError{
			Source: k.Name(),
			Reason: fmt.Sprintf("querying %s/%s", k.service, fieldServiceKey),
			Err:    err,
		}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		// A field held something that is not valid JSON; the schema error
		// downstream would be opaque, so surface the assembly fault here.
		return nil, &secrets.UnavailableError{
			Source: k.Name(),
			Reason: "assembling candidate from keychain fields",
			Err:    err,
		}
	}
	return raw, nil
}

// platformKeychainUsable reports whether the OS secure store is worth
// attempting. Headless Linux sessions and CI runners have no Secret Service
// to talk to.
func platformKeychainUsable() bool {
	if os.Getenv("CI") != "" {
		return false
	}
	if os.Getenv("SSH_TTY") != "" {
		return false
	}
	// On Linux the Secret Service needs a display session; macOS and Windows
	// expose their stores regardless.
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return false
	}
	return true
}
