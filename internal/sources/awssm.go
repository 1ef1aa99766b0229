package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/systmms/credkit/pkg/secrets"
)

// SecretsManagerAPI is the slice of the AWS Secrets Manager client the
// source needs. Tests inject a fake.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsManager loads the bundle from a single AWS Secrets Manager
// secret whose value is the complete JSON bundle document. It is an
// optional source, placed above the OS keychain in trust when configured.
type AWSSecretsManager struct {
	secretID string
	client   SecretsManagerAPI
}

// AWSOption configures the AWS Secrets Manager source.
type AWSOption func(*awsConfig)

type awsConfig struct {
	region    string
	endpoint  string
	accessKey string
	secretKey string
	client    SecretsManagerAPI
}

// WithAWSRegion sets the region (default us-east-1).
func WithAWSRegion(region string) AWSOption {
	return func(c *awsConfig) { c.region = region }
}

// WithAWSEndpoint sets a custom endpoint, for LocalStack or testing.
func WithAWSEndpoint(endpoint string) AWSOption {
	return func(c *awsConfig) { c.endpoint = endpoint }
}

// WithAWSStaticCredentials sets static credentials, for LocalStack or testing.
func WithAWSStaticCredentials(accessKey, secretKey string) AWSOption {
	return func(c *awsConfig) {
		c.accessKey = accessKey
		c.secretKey = secretKey
	}
}

// WithSecretsManagerClient injects a custom client, for tests.
func WithSecretsManagerClient(client SecretsManagerAPI) AWSOption {
	return func(c *awsConfig) { c.client = client }
}

// NewAWSSecretsManager creates the remote store source for the named secret.
func NewAWSSecretsManager(ctx context.Context, secretID string, opts ...AWSOption) (*AWSSecretsManager, error) {
	cfg := awsConfig{region: "us-east-1"}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.client == nil {
		loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.region)}
		if cfg.accessKey != "" && cfg.secretKey != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.accessKey, cfg.secretKey, ""),
			))
		}

		awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		var clientOpts []func(*secretsmanager.Options)
		if cfg.endpoint != "" {
			endpoint := cfg.endpoint
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		cfg.client = secretsmanager.NewFromConfig(awsCfg, clientOpts...)
	}

	return &AWSSecretsManager{secretID: secretID, client: cfg.client}, nil
}

// Name returns the source identifier.
func (a *AWSSecretsManager) Name() string {
	return "aws-secretsmanager"
}

// Available reports whether a secret ID was configured.
func (a *AWSSecretsManager) Available(ctx context.Context) bool {
	return a.secretID != "" && a.client != nil
}

// Load fetches the bundle document from Secrets Manager.
func (a *AWSSecretsManager) Load(ctx context.Context) ([]byte, error) {
	out, err := a.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &a.secretID,
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("secret %s: %w", a.secretID, secrets.ErrNotFound)
		}
		return nil, &secrets.UnavailableError{Source: a.Name(), Reason: "fetching secret value", Err: err}
	}

	if out.SecretString != nil {
		return []byte(*out.SecretString), nil
	}
	if len(out.SecretBinary) > 0 {
		return out.SecretBinary, nil
	}
	return nil, fmt.Errorf("secret %s has no value: %w", a.secretID, secrets.ErrNotFound)
}
