//go:build windows

package action

import "os"

// createSymlink creates a symlink at createAt pointing to target. os.Symlink
// itself picks the file or directory symlink primitive by inspecting the
// target on disk, so targetIsDir does not change which call is made. This
// may require an elevated process or Developer Mode — see symcap.CanSymlink.
func createSymlink(target, createAt string, targetIsDir bool) error {
	if targetIsDir {
		return os.Symlink(target, createAt) // os.Symlink dispatches correctly on Windows via CreateSymbolicLink flags
	}
	return os.Symlink(target, createAt)
}

// removeAny removes path. There is no reliable way to tell whether a broken
// symlink on Windows was meant to point at a file or a directory, so unlink
// is tried first and a recursive directory removal is used as a fallback.
func removeAny(path string) error {
	if err := os.Remove(path); err != nil {
		return os.RemoveAll(path)
	}
	return nil
}
