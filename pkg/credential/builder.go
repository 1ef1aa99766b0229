package credential

import (
	"context"
	"fmt"
	"os"

	"github.com/systmms/credkit/internal/authcache"
	"github.com/systmms/credkit/internal/config"
	"github.com/systmms/credkit/internal/envexport"
	"github.com/systmms/credkit/internal/hashstore"
	"github.com/systmms/credkit/internal/identity"
	"github.com/systmms/credkit/internal/logging"
	"github.com/systmms/credkit/internal/metrics"
	"github.com/systmms/credkit/internal/resolve"
	"github.com/systmms/credkit/internal/rotation"
	"github.com/systmms/credkit/internal/schema"
	"github.com/systmms/credkit/internal/secure"
	"github.com/systmms/credkit/internal/sources"
	"github.com/systmms/credkit/pkg/secrets"
)

// Build assembles a Service from configuration: the chain definition is
// loaded (or defaulted), each source is constructed, and the supporting
// stores are wired together. Resolution itself is deferred until the first
// operation that needs a bundle.
func Build(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Service, error) {
	metrics.Init()

	validator, err := schema.New()
	if err != nil {
		return nil, fmt.Errorf("failed to compile bundle schema: %w", err)
	}

	chainCfg, err := config.LoadChainConfig(cfg)
	if err != nil {
		return nil, err
	}

	srcs, err := BuildSources(ctx, cfg, chainCfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := hashstore.New()
	if err != nil {
		return nil, err
	}

	cache := authcache.New(cfg.AuthCacheTTL)
	table := identity.NewTable(cfg.IdentityTablePath)
	coord := rotation.NewCoordinator(table, store, cache, logger)
	exporter := envexport.New(logger)
	chain := resolve.NewChain(validator, logger, srcs...)

	return New(chain, coord, store, cache, table, exporter, logger), nil
}

// BuildSources constructs the source list described by a chain definition.
// Exposed so diagnostic tooling can probe each source individually.
func BuildSources(ctx context.Context, cfg *config.Config, chainCfg *config.ChainConfig, logger *logging.Logger) ([]secrets.Source, error) {
	srcs := make([]secrets.Source, 0, len(chainCfg.Sources))
	for _, spec := range chainCfg.Sources {
		switch spec.Type {
		case config.SourceKeychain:
			service := spec.Service
			if service == "" {
				service = cfg.KeychainService
			}
			srcs = append(srcs, sources.NewKeychain(service))

		case config.SourceEncryptedFile:
			path := spec.Path
			if path == "" {
				path = cfg.EncryptedFilePath
			}
			srcs = append(srcs, sources.NewEncryptedFile(path, loadPassphrase()))

		case config.SourceLocalFile:
			path := spec.Path
			if path == "" {
				path = cfg.SecretsFilePath
			}
			srcs = append(srcs, sources.NewLocalFile(path))

		case config.SourceEnv:
			srcs = append(srcs, sources.NewEnv())

		case config.SourceAWSSecrets:
			secretID := spec.SecretID
			if secretID == "" {
				secretID = cfg.AWSSecretName
			}
			opts := []sources.AWSOption{}
			if cfg.AWSRegion != "" {
				opts = append(opts, sources.WithAWSRegion(cfg.AWSRegion))
			}
			if cfg.AWSEndpoint != "" {
				opts = append(opts, sources.WithAWSEndpoint(cfg.AWSEndpoint))
			}
			src, err := sources.NewAWSSecretsManager(ctx, secretID, opts...)
			if err != nil {
				return nil, fmt.Errorf("failed to configure AWS source: %w", err)
			}
			srcs = append(srcs, src)

		case config.SourceInsecureDefault:
			srcs = append(srcs, sources.NewInsecureDefault(cfg.AllowInsecureFallback, nil, logger))

		default:
			return nil, fmt.Errorf("unknown source type %q", spec.Type)
		}
	}
	return srcs, nil
}

// loadPassphrase moves the vault passphrase from the environment into
// guarded memory. The variable is unset afterwards so child processes never
// inherit it. Returns nil when unset, which leaves the encrypted-file
// source unavailable rather than erroring.
func loadPassphrase() *secure.Passphrase {
	raw, ok := os.LookupEnv(config.PassphraseEnvVar)
	if !ok || raw == "" {
		return nil
	}
	os.Unsetenv(config.PassphraseEnvVar)
	return secure.NewPassphrase([]byte(raw))
}
