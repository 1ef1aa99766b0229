package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"filippo.io/age"

	"github.com/systmms/credkit/internal/secure"
	"github.com/systmms/credkit/pkg/secrets"
)

// EncryptedFile loads the bundle from a locally encrypted-at-rest store:
// an age file sealed with a scrypt passphrase. The passphrase lives in a
// memguard enclave and is decrypted only for the duration of a Load.
type EncryptedFile struct {
	path       string
	passphrase *secure.Passphrase
}

// NewEncryptedFile creates the encrypted store source. A nil passphrase
// makes the source unavailable rather than erroring, so hosts without the
// unlock secret simply fall through the chain.
func NewEncryptedFile(path string, passphrase *secure.Passphrase) *EncryptedFile {
	return &EncryptedFile{path: path, passphrase: passphrase}
}

// Name returns the source identifier.
func (e *EncryptedFile) Name() string {
	return "encrypted-file"
}

// Available reports whether the store file exists and an unlock passphrase
// was provided.
func (e *EncryptedFile) Available(ctx context.Context) bool {
	if e.passphrase == nil || e.path == "" {
		return false
	}
	info, err := os.Stat(e.path)
	return err == nil && info.Mode().IsRegular()
}

// Load decrypts the store file and returns the raw candidate bundle.
func (e *EncryptedFile) Load(ctx context.Context) ([]byte, error) {
	ciphertext, err := os.ReadFile(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("encrypted store %s: %w", e.path, secrets.ErrNotFound)
		}
		return nil, &secrets.UnavailableError{Source: e.Name(), Reason: "reading store file", Err: err}
	}

	var raw []byte
	err = e.passphrase.Use(func(plaintext []byte) error {
		identity, err := age.NewScryptIdentity(string(plaintext))
		if err != nil {
			return err
		}
		reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
		if err != nil {
			return err
		}
		raw, err = io.ReadAll(reader)
		return err
	})
	if err != nil {
		// A wrong passphrase or corrupted file both mean this store cannot
		// serve a bundle right now; the chain decides whether that is fatal.
		return nil, &secrets.UnavailableError{Source: e.Name(), Reason: "decrypting store file", Err: err}
	}

	return raw, nil
}

// Seal encrypts a raw bundle document with a scrypt passphrase in the format
// Load expects. Used by provisioning tooling and tests.
func Seal(raw []byte, passphrase string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	writer, err := age.Encrypt(&out, recipient)
	if err != nil {
		return nil, err
	}
	if _, err := writer.Write(raw); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
