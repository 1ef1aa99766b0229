// Package config provides application configuration through environment
// variables and an optional YAML file describing the credential source
// chain.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PassphraseEnvVar names the variable holding the passphrase for the
// encrypted secrets file. It is read once and locked into guarded memory;
// the Config struct itself never carries it.
const PassphraseEnvVar = "CREDKIT_VAULT_PASSPHRASE"

// Config holds all application configuration.
type Config struct {
	// KeychainService is the service name used for OS keychain entries.
	KeychainService string

	// EncryptedFilePath is the location of the age-encrypted secrets file.
	EncryptedFilePath string
	// SecretsFilePath is the location of the plaintext, owner-only secrets file.
	SecretsFilePath string
	// IdentityTablePath is the location of the durable identity table.
	IdentityTablePath string
	// ChainConfigPath is the location of the optional YAML chain definition.
	ChainConfigPath string

	// AllowInsecureFallback enables the loud development-only credential
	// source when every real source fails.
	AllowInsecureFallback bool

	// AuthCacheTTL bounds how long a cached authentication stays valid.
	AuthCacheTTL time.Duration

	// AWSSecretName is the Secrets Manager secret holding a bundle; empty
	// disables the AWS source.
	AWSSecretName string
	// AWSRegion overrides the SDK's default region resolution.
	AWSRegion string
	// AWSEndpoint overrides the Secrets Manager endpoint, for localstack.
	AWSEndpoint string

	// Debug enables debug logging.
	Debug bool
	// NoColor disables colored terminal output.
	NoColor bool
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	loadDotEnv()

	return &Config{
		KeychainService: env.GetString("CREDKIT_KEYCHAIN_SERVICE", "credkit"),

		EncryptedFilePath: env.GetString("CREDKIT_ENCRYPTED_FILE", defaultPath("secrets.age")),
		SecretsFilePath:   env.GetString("CREDKIT_SECRETS_FILE", defaultPath("secrets.json")),
		IdentityTablePath: env.GetString("CREDKIT_IDENTITY_TABLE", defaultPath("identities.json")),
		ChainConfigPath:   env.GetString("CREDKIT_CHAIN_CONFIG", defaultPath("chain.yaml")),

		AllowInsecureFallback: env.GetBool("CREDKIT_ALLOW_INSECURE_FALLBACK", false),

		AuthCacheTTL: env.GetDuration("CREDKIT_AUTH_CACHE_TTL_SECONDS", 3600, time.Second),

		AWSSecretName: env.GetString("CREDKIT_AWS_SECRET_NAME", ""),
		AWSRegion:     env.GetString("CREDKIT_AWS_REGION", ""),
		AWSEndpoint:   env.GetString("CREDKIT_AWS_ENDPOINT", ""),

		Debug:   env.GetBool("CREDKIT_DEBUG", false),
		NoColor: env.GetBool("NO_COLOR", false),
	}
}

// defaultPath places a file under the user's config directory, falling back
// to the working directory when the home cannot be determined.
func defaultPath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, "credkit", name)
}

// loadDotEnv searches for a .env file from the current directory up to the
// root directory and loads it if found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}

// Source types accepted in a chain definition.
const (
	SourceKeychain        = "keychain"
	SourceEncryptedFile   = "encrypted-file"
	SourceLocalFile       = "local-file"
	SourceEnv             = "env"
	SourceAWSSecrets      = "aws-secretsmanager"
	SourceInsecureDefault = "insecure-default"
)

// SourceSpec is one entry of a chain definition.
type SourceSpec struct {
	// Type selects the source implementation.
	Type string `yaml:"type"`
	// Path overrides the file location for file-backed sources.
	Path string `yaml:"path,omitempty"`
	// Service overrides the keychain service name.
	Service string `yaml:"service,omitempty"`
	// SecretID overrides the AWS Secrets Manager secret for the AWS source.
	SecretID string `yaml:"secret_id,omitempty"`
}

// ChainConfig is the parsed YAML chain definition.
type ChainConfig struct {
	Sources []SourceSpec `yaml:"sources"`
}

// DefaultChain returns the built-in source order used when no chain file
// exists: most secure first, development fallback last. A configured AWS
// secret sits above the OS keychain, since the remote manager is the
// provisioned authority when a deployment opts into it.
func DefaultChain(cfg *Config) *ChainConfig {
	chain := &ChainConfig{}
	if cfg.AWSSecretName != "" {
		chain.Sources = append(chain.Sources, SourceSpec{Type: SourceAWSSecrets, SecretID: cfg.AWSSecretName})
	}
	chain.Sources = append(chain.Sources,
		SourceSpec{Type: SourceKeychain, Service: cfg.KeychainService},
		SourceSpec{Type: SourceEncryptedFile, Path: cfg.EncryptedFilePath},
		SourceSpec{Type: SourceLocalFile, Path: cfg.SecretsFilePath},
		SourceSpec{Type: SourceEnv},
	)
	if cfg.AllowInsecureFallback {
		chain.Sources = append(chain.Sources, SourceSpec{Type: SourceInsecureDefault})
	}
	return chain
}

// LoadChainConfig parses a YAML chain definition. A missing file yields the
// default chain; a present but malformed file is an error.
func LoadChainConfig(cfg *Config) (*ChainConfig, error) {
	raw, err := os.ReadFile(cfg.ChainConfigPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultChain(cfg), nil
		}
		return nil, fmt.Errorf("failed to read chain config %s: %w", cfg.ChainConfigPath, err)
	}

	var chain ChainConfig
	if err := yaml.Unmarshal(raw, &chain); err != nil {
		return nil, fmt.Errorf("chain config %s is malformed: %w", cfg.ChainConfigPath, err)
	}
	if len(chain.Sources) == 0 {
		return nil, fmt.Errorf("chain config %s defines no sources", cfg.ChainConfigPath)
	}

	for i, spec := range chain.Sources {
		switch spec.Type {
		case SourceKeychain, SourceEncryptedFile, SourceLocalFile, SourceEnv,
			SourceAWSSecrets, SourceInsecureDefault:
		default:
			return nil, fmt.Errorf("chain config %s: source %d has unknown type %q",
				cfg.ChainConfigPath, i, spec.Type)
		}
	}
	return &chain, nil
}
