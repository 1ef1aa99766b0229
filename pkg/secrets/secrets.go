// Package secrets defines the core types shared between the credential
// subsystem and the sources that can load secret material for it.
//
// A Bundle is the in-memory, validated collection of secret material in
// effect for the process: per-user authentication tokens, the service key,
// and the object-storage credentials consumed by collaborator tooling.
// Bundles are created by the resolution chain, replaced wholesale on
// rotation, and never written to disk by this subsystem: the Source that
// produced a bundle owns its persistence.
//
// A Source is one possible origin for a bundle (OS keychain, encrypted file,
// local secrets file, process environment, remote secret manager, or the
// clearly-marked insecure development default). Sources return the raw
// JSON-encoded candidate; schema validation happens in the resolution chain
// so every origin is held to the same structural invariants.
//
// Implementations must be safe for concurrent use. Sources must never log
// secret values; use logging.Secret for anything derived from a candidate.
package secrets

// Storage holds the object-storage credentials carried inside a bundle.
// These are the only bundle fields the env exporter is allowed to project
// into process configuration.
type Storage struct {
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
}

// Bundle is the validated secret material currently in effect.
type Bundle struct {
	// Tokens maps user IDs to their plaintext authentication tokens.
	// Plaintext is retained only here; the hash store keeps digests.
	Tokens map[string]string `json:"tokens"`

	// ServiceKey is the shared key for the surrounding service, if any.
	ServiceKey string `json:"service_key,omitempty"`

	// Storage holds the object-storage credentials.
	Storage Storage `json:"storage"`
}

// Clone returns a deep copy of the bundle. Rotation mutates a clone and
// publishes it, so concurrent readers never observe a half-updated bundle.
func (b *Bundle) Clone() *Bundle {
	tokens := make(map[string]string, len(b.Tokens))
	for user, token := range b.Tokens {
		tokens[user] = token
	}
	return &Bundle{
		Tokens:     tokens,
		ServiceKey: b.ServiceKey,
		Storage:    b.Storage,
	}
}
