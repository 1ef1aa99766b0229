package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/credkit/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, "credkit", cfg.KeychainService)
	assert.Equal(t, time.Hour, cfg.AuthCacheTTL)
	assert.False(t, cfg.AllowInsecureFallback)
	assert.Empty(t, cfg.AWSSecretName)
	assert.NotEmpty(t, cfg.SecretsFilePath)
	assert.NotEmpty(t, cfg.IdentityTablePath)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CREDKIT_KEYCHAIN_SERVICE", "credkit-staging")
	t.Setenv("CREDKIT_AUTH_CACHE_TTL_SECONDS", "120")
	t.Setenv("CREDKIT_ALLOW_INSECURE_FALLBACK", "true")
	t.Setenv("CREDKIT_AWS_SECRET_NAME", "staging/bundle")

	cfg := config.Load()
	assert.Equal(t, "credkit-staging", cfg.KeychainService)
	assert.Equal(t, 2*time.Minute, cfg.AuthCacheTTL)
	assert.True(t, cfg.AllowInsecureFallback)
	assert.Equal(t, "staging/bundle", cfg.AWSSecretName)
}

func TestDefaultChainOrder(t *testing.T) {
	cfg := &config.Config{
		KeychainService:   "credkit",
		EncryptedFilePath: "/etc/credkit/secrets.age",
		SecretsFilePath:   "/etc/credkit/secrets.json",
	}

	chain := config.DefaultChain(cfg)
	require.Len(t, chain.Sources, 4)
	assert.Equal(t, config.SourceKeychain, chain.Sources[0].Type)
	assert.Equal(t, config.SourceEncryptedFile, chain.Sources[1].Type)
	assert.Equal(t, config.SourceLocalFile, chain.Sources[2].Type)
	assert.Equal(t, config.SourceEnv, chain.Sources[3].Type)
}

func TestDefaultChainOptionalSources(t *testing.T) {
	cfg := &config.Config{
		AWSSecretName:         "prod/bundle",
		AllowInsecureFallback: true,
	}

	// The remote manager outranks the keychain; the insecure fallback is
	// always last.
	chain := config.DefaultChain(cfg)
	require.Len(t, chain.Sources, 6)
	assert.Equal(t, config.SourceAWSSecrets, chain.Sources[0].Type)
	assert.Equal(t, "prod/bundle", chain.Sources[0].SecretID)
	assert.Equal(t, config.SourceKeychain, chain.Sources[1].Type)
	assert.Equal(t, config.SourceInsecureDefault, chain.Sources[5].Type)
}

func TestLoadChainConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`sources:
  - type: local-file
    path: /srv/credkit/secrets.json
  - type: env
`), 0o600))

	chain, err := config.LoadChainConfig(&config.Config{ChainConfigPath: path})
	require.NoError(t, err)
	require.Len(t, chain.Sources, 2)
	assert.Equal(t, config.SourceLocalFile, chain.Sources[0].Type)
	assert.Equal(t, "/srv/credkit/secrets.json", chain.Sources[0].Path)
	assert.Equal(t, config.SourceEnv, chain.Sources[1].Type)
}

func TestLoadChainConfigMissingFileUsesDefault(t *testing.T) {
	cfg := &config.Config{
		KeychainService: "credkit",
		ChainConfigPath: filepath.Join(t.TempDir(), "absent.yaml"),
	}

	chain, err := config.LoadChainConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultChain(cfg), chain)
}

func TestLoadChainConfigRejectsUnknownType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`sources:
  - type: carrier-pigeon
`), 0o600))

	_, err := config.LoadChainConfig(&config.Config{ChainConfigPath: path})
	assert.ErrorContains(t, err, "carrier-pigeon")
}

func TestLoadChainConfigRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources: []\n"), 0o600))

	_, err := config.LoadChainConfig(&config.Config{ChainConfigPath: path})
	assert.ErrorContains(t, err, "no sources")
}
