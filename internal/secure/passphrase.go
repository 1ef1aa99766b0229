// Package secure wraps memguard for the few secrets the subsystem must hold
// between startup and first use, most importantly the passphrase that
// unlocks the encrypted-at-rest bundle store. The enclave keeps the value
// encrypted in memory and mlocked against swapping; plaintext exists only
// inside the short window of an Open call.
package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrDestroyed is returned when a passphrase is used after Destroy.
var ErrDestroyed = errors.New("passphrase already destroyed")

// Passphrase holds a secret string in a memguard enclave.
type Passphrase struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	destroyed bool
}

// NewPassphrase seals the given bytes into a protected enclave. The caller
// should zero or discard its own copy afterwards.
func NewPassphrase(data []byte) *Passphrase {
	return &Passphrase{enclave: memguard.NewEnclave(data)}
}

// Use decrypts the passphrase and hands it to fn. The plaintext buffer is
// wiped when fn returns; fn must not retain the slice.
func (p *Passphrase) Use(fn func(plaintext []byte) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.destroyed {
		return ErrDestroyed
	}

	buf, err := p.enclave.Open()
	if err != nil {
		return err
	}
	defer buf.Destroy()

	return fn(buf.Bytes())
}

// Destroy marks the passphrase as unusable. Idempotent. The enclave's
// contents stay encrypted at rest until garbage collected; call
// memguard.Purge at process exit for full cleanup.
func (p *Passphrase) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return
	}
	p.enclave = nil
	p.destroyed = true
}
