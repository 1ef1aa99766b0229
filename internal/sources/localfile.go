package sources

import (
	"context"
	"fmt"
	"os"

	"github.com/systmms/credkit/internal/permissions"
	"github.com/systmms/credkit/pkg/secrets"
)

// LocalFile loads the bundle from a permission-restricted plaintext JSON
// file. The file must be readable by the owner only; anything broader is
// treated as a compromised store and skipped, never silently read.
type LocalFile struct {
	path string
}

// NewLocalFile creates the local secrets file source.
func NewLocalFile(path string) *LocalFile {
	return &LocalFile{path: path}
}

// Name returns the source identifier.
func (l *LocalFile) Name() string {
	return "local-file"
}

// Available reports whether the secrets file exists.
func (l *LocalFile) Available(ctx context.Context) bool {
	if l.path == "" {
		return false
	}
	info, err := os.Stat(l.path)
	return err == nil && info.Mode().IsRegular()
}

// Load enforces owner-only permissions and returns the file contents.
func (l *LocalFile) Load(ctx context.Context) ([]byte, error) {
	if err := permissions.CheckOwnerOnly(l.path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("secrets file %s: %w", l.path, secrets.ErrNotFound)
		}
		return nil, &secrets.UnavailableError{Source: l.Name(), Reason: "permission check", Err: err}
	}

	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, &secrets.UnavailableError{Source: l.Name(), Reason: "reading secrets file", Err: err}
	}
	return raw, nil
}
