//go:build !windows

package action

import "os"

// createSymlink creates a symlink at createAt pointing to target. On Unix a
// single primitive handles both file and directory targets.
func createSymlink(target, createAt string, targetIsDir bool) error {
	return os.Symlink(target, createAt)
}

// removeAny unlinks path. Unlike Windows, a Unix symlink — broken or not —
// is always removable via unlink regardless of what its target would be.
func removeAny(path string) error {
	return os.Remove(path)
}
