package action

import (
	"os"
	"path/filepath"

	fsotype "github.com/reedmace/tendril/internal/fso"
)

// Symlink creates a symlink at createAt pointing at target (of observed type
// targetType, which drives the pre-checks and, where the platform cares, the
// symlink kind). See
// spec §4.4 for the full type×force×dry_run decision matrix this implements.
func Symlink(target string, targetType *fsotype.Type, createAt string, createAtType *fsotype.Type, dryRun, force bool) (Success, error) {
	createAtExisted := createAtType != nil

	if err := checkSymlinkTypes(targetType, createAtType, force); err != nil {
		return 0, err
	}

	if dryRun {
		if createAtExisted {
			return OverwriteSkipped, nil
		}
		return NewSkipped, nil
	}

	if err := removeExisting(createAt, createAtType); err != nil {
		return 0, ioErrorFrom(err, Dest)
	}

	if err := os.MkdirAll(filepath.Dir(createAt), 0o755); err != nil {
		return 0, ioErrorFrom(err, Dest)
	}

	targetIsDir := targetType != nil && targetType.IsDir()
	if err := createSymlink(target, createAt, targetIsDir); err != nil {
		return 0, ioErrorFrom(err, Dest)
	}

	if createAtExisted {
		return Overwrite, nil
	}
	return New, nil
}

// checkSymlinkTypes rejects a missing target, a symlink target (unless
// forced), and overwriting a real file or directory at createAt (unless
// forced). A symlink (broken or not) already at createAt is always
// replaceable: it's the engine's own prior link, not foreign state.
func checkSymlinkTypes(targetType, createAtType *fsotype.Type, force bool) error {
	if targetType == nil {
		return newIOError(NotFound, Source)
	}
	if force {
		return nil
	}
	if targetType.IsSymlink() {
		return newTypeMismatch(*targetType, Source)
	}
	if createAtType != nil && !createAtType.IsSymlink() {
		return newTypeMismatch(*createAtType, Dest)
	}
	return nil
}

// removeExisting clears createAt ahead of a symlink creation, per the
// type-dependent removal spec §4.4 step 1 describes: a broken symlink goes
// through the platform-specific fallback, anything else (file, symlink,
// directory) is unlinked/removed directly. os.RemoveAll on a symlink target
// never follows it — Lstat sees the link itself, not a directory — so a
// single call safely covers both plain directories and dir-symlinks.
func removeExisting(path string, pathType *fsotype.Type) error {
	if pathType == nil {
		return nil
	}
	if *pathType == fsotype.BrokenSym {
		return removeAny(path)
	}
	if pathType.IsDir() {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}
