package sources

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/systmms/credkit/internal/logging"
	"github.com/systmms/credkit/pkg/secrets"
)

// InsecureDefault generates a development-only bundle when every real source
// is exhausted. It must be enabled explicitly, and every Load emits a loud
// warning: the generated tokens are random but nothing about the resulting
// configuration is production-safe.
type InsecureDefault struct {
	users   []string
	enabled bool
	logger  *logging.Logger
}

// NewInsecureDefault creates the fallback source. users names the identities
// to generate tokens for; when empty a single "dev" user is created.
func NewInsecureDefault(enabled bool, users []string, logger *logging.Logger) *InsecureDefault {
	return &InsecureDefault{users: users, enabled: enabled, logger: logger}
}

// Name returns the source identifier.
func (i *InsecureDefault) Name() string {
	return "insecure-default"
}

// Available reports whether the fallback was explicitly enabled.
func (i *InsecureDefault) Available(ctx context.Context) bool {
	return i.enabled
}

// Load generates a fresh development bundle.
func (i *InsecureDefault) Load(ctx context.Context) ([]byte, error) {
	i.logger.Warn("all secret sources exhausted, generating an INSECURE development bundle; do not use outside local development")

	users := i.users
	if len(users) == 0 {
		users = []string{"dev"}
	}

	tokens := make(map[string]string, len(users))
	for _, user := range users {
		token, err := randomToken()
		if err != nil {
			return nil, &secrets.UnavailableError{Source: i.Name(), Reason: "generating development token", Err: err}
		}
		tokens[user] = token
		// Printed once so local tooling can actually authenticate.
		i.logger.Warn("development token for %s: %s", user, token)
	}

	bundle := secrets.Bundle{
		Tokens:     tokens,
		ServiceKey: "insecure-dev-service-key",
		Storage: secrets.Storage{
			AccessKey: "dev-access",
			SecretKey: "dev-secret",
			Endpoint:  "http://localhost:9000",
			Bucket:    "credkit-dev",
		},
	}

	raw, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("encoding development bundle: %w", err)
	}
	return raw, nil
}

// randomToken returns a 32-character URL-safe token from 24 random bytes.
func randomToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}
