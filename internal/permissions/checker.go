// Package permissions enforces filesystem permission requirements on the
// files that hold secret material. A secrets file readable by group or
// other is treated as compromised and refused, not repaired.
package permissions

import (
	"fmt"
	"os"
	"runtime"
)

// Error reports a file whose permissions are too broad for secret material.
type Error struct {
	Path string
	Mode os.FileMode
}

func (e *Error) Error() string {
	return fmt.Sprintf("refusing to read %s: mode %04o allows access beyond the owner (want 0600)", e.Path, e.Mode.Perm())
}

// CheckOwnerOnly verifies that path exists, is a regular file, and is not
// readable or writable by group or other. On Windows the mode bits carry no
// useful information, so only existence is checked.
func CheckOwnerOnly(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}

	if runtime.GOOS == "windows" {
		return nil
	}

	if info.Mode().Perm()&0o077 != 0 {
		return &Error{Path: path, Mode: info.Mode()}
	}

	return nil
}
