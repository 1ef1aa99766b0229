package permissions_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/credkit/internal/permissions"
)

func writeFile(t *testing.T, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), mode))
	// umask may have stripped bits; force the exact mode.
	require.NoError(t, os.Chmod(path, mode))
	return path
}

func TestCheckOwnerOnlyAccepts0600(t *testing.T) {
	t.Parallel()

	path := writeFile(t, 0o600)
	assert.NoError(t, permissions.CheckOwnerOnly(path))
}

func TestCheckOwnerOnlyRejectsGroupReadable(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("mode bits are not meaningful on windows")
	}

	path := writeFile(t, 0o640)
	err := permissions.CheckOwnerOnly(path)

	var permErr *permissions.Error
	require.ErrorAs(t, err, &permErr)
	assert.Equal(t, path, permErr.Path)
}

func TestCheckOwnerOnlyRejectsWorldReadable(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("mode bits are not meaningful on windows")
	}

	path := writeFile(t, 0o644)
	assert.Error(t, permissions.CheckOwnerOnly(path))
}

func TestCheckOwnerOnlyMissingFile(t *testing.T) {
	t.Parallel()

	err := permissions.CheckOwnerOnly(filepath.Join(t.TempDir(), "absent.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestCheckOwnerOnlyRejectsDirectory(t *testing.T) {
	t.Parallel()

	assert.Error(t, permissions.CheckOwnerOnly(t.TempDir()))
}
