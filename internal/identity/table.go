// Package identity reads and rewrites the durable identity table: the JSON
// file mapping user IDs to their role and current token. The table is
// created by administrator tooling; this subsystem only ever replaces the
// token field of a single user, preserving everything else.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrUnknownUser indicates a rotation was requested for a user the table
// does not contain.
var ErrUnknownUser = errors.New("user not present in identity table")

// PersistenceError indicates the durable rewrite failed. Rotation treats it
// as fatal to that call; in-memory state stays untouched.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist identity table %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Record is one user's entry in the table.
type Record struct {
	Role  string `json:"role"`
	Token string `json:"token"`
}

type tableFile struct {
	Users map[string]Record `json:"users"`
}

// Table provides serialized access to the identity table file.
type Table struct {
	mu   sync.Mutex
	path string
}

// NewTable creates a table handle for the given file path.
func NewTable(path string) *Table {
	return &Table{path: path}
}

// Path returns the table file location.
func (t *Table) Path() string {
	return t.path
}

// Load reads every record. A missing file yields an empty table, not an
// error: hosts without administrator-provisioned identities still resolve
// bundles (roles just come up empty).
func (t *Table) Load() (map[string]Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load()
}

func (t *Table) load() (map[string]Record, error) {
	raw, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Record{}, nil
		}
		return nil, fmt.Errorf("failed to read identity table %s: %w", t.path, err)
	}

	var file tableFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("identity table %s is malformed: %w", t.path, err)
	}
	if file.Users == nil {
		file.Users = map[string]Record{}
	}
	return file.Users, nil
}

// Role returns the role recorded for a user, or "" when the user is absent.
func (t *Table) Role(userID string) (string, error) {
	users, err := t.Load()
	if err != nil {
		return "", err
	}
	return users[userID].Role, nil
}

// UpdateToken rewrites the table with a new token for one user, preserving
// every other record. The write is atomic: a temp file in the same
// directory is fsynced and renamed over the original, so a crash mid-write
// leaves the previous table authoritative.
func (t *Table) UpdateToken(userID, newToken string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	users, err := t.load()
	if err != nil {
		return err
	}

	record, ok := users[userID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}
	record.Token = newToken
	users[userID] = record

	raw, err := json.MarshalIndent(tableFile{Users: users}, "", "  ")
	if err != nil {
		return &PersistenceError{Path: t.path, Err: err}
	}
	raw = append(raw, '\n')

	if err := t.writeAtomic(raw); err != nil {
		return &PersistenceError{Path: t.path, Err: err}
	}
	return nil
}

func (t *Table) writeAtomic(raw []byte) error {
	dir := filepath.Dir(t.path)
	tmp, err := os.CreateTemp(dir, ".identity-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, t.path)
}
