package action

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	fsotype "github.com/reedmace/tendril/internal/fso"
)

// CopyFSO copies from (of observed type fromType) onto to (of observed type
// toType), respecting dirMerge, dryRun and force. See spec §4.3 for the full
// type×force×dir_merge×dry_run decision matrix this implements.
func CopyFSO(from string, fromType *fsotype.Type, to string, toType *fsotype.Type, dirMerge, dryRun, force bool) (Success, error) {
	toExisted := toType != nil

	if err := checkCopyTypes(fromType, toType, force); err != nil {
		return 0, err
	}

	if dryRun {
		if toExisted {
			return OverwriteSkipped, nil
		}
		return NewSkipped, nil
	}

	switch {
	case fromType.IsDir():
		if err := prepareDest(to, toType, dirMerge); err != nil {
			return 0, err
		}
		if err := copyDirContents(from, to); err != nil {
			return 0, mapCopyErr(err, to)
		}
	default: // file or symlink-to-file
		if err := prepareDest(to, toType, false); err != nil {
			return 0, err
		}
		if err := copyFileContents(from, to); err != nil {
			return 0, mapCopyErr(err, to)
		}
	}

	if toExisted {
		return Overwrite, nil
	}
	return New, nil
}

// checkCopyTypes returns TypeMismatch if the source/destination FSO types
// are incompatible with a copy, or IoError{NotFound, Source} if there is no
// source. force=true skips every check but the missing-source one.
func checkCopyTypes(fromType, toType *fsotype.Type, force bool) error {
	if fromType == nil || *fromType == fsotype.BrokenSym {
		return newIOError(NotFound, Source)
	}
	if force {
		return nil
	}
	if fromType.IsSymlink() {
		return newTypeMismatch(*fromType, Source)
	}
	// A broken-symlink destination is never a type mismatch: it is always
	// removed and the copy proceeds as if the destination were absent,
	// regardless of force (spec §4.3, §8 "Broken symlink as destination").
	if toType != nil && *toType != fsotype.BrokenSym {
		fromIsDir, toIsDir := fromType.IsDir(), toType.IsDir()
		if fromIsDir != toIsDir {
			return newTypeMismatch(*toType, Dest)
		}
	}
	return nil
}

// prepareDest clears the destination so a copy may land cleanly: removes an
// incompatible existing object (a directory only when !dirMerge, a file
// unconditionally, a broken symlink always), then ensures the parent chain
// exists.
func prepareDest(dest string, destType *fsotype.Type, dirMerge bool) error {
	if destType != nil {
		switch {
		case destType.IsDir() && !dirMerge:
			if err := os.RemoveAll(dest); err != nil {
				return ioErrorFrom(err, Dest)
			}
		case destType.IsFile():
			if err := os.Remove(dest); err != nil {
				return ioErrorFrom(err, Dest)
			}
		case *destType == fsotype.BrokenSym:
			if err := removeSymlink(dest); err != nil {
				return ioErrorFrom(err, Dest)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return ioErrorFrom(err, Dest)
	}
	return nil
}

// removeSymlink removes a (possibly broken) symlink, never following it.
func removeSymlink(path string) error {
	return removeAny(path)
}

// whichCopyPermFailed decides which side a PermissionDenied copy error
// belongs to: if the destination's parent directory is read-only, it's a
// Dest-side failure; if the parent cannot be stat'ed at all, the side is
// Unknown; otherwise the source is assumed to be the culprit.
func whichCopyPermFailed(to string) Location {
	parent := filepath.Dir(to)
	info, err := os.Stat(parent)
	if err != nil {
		return Unknown
	}
	if info.Mode().Perm()&0o200 == 0 {
		return Dest
	}
	return Source
}

// mapCopyErr classifies a raw copy I/O error per §4.3: PermissionDenied
// resolves via whichCopyPermFailed; a read-only-filesystem kind is always
// Dest; anything else is Unknown unless the caller already knows better.
func mapCopyErr(err error, to string) error {
	kind := classifyIOErr(err)
	switch kind {
	case PermissionDenied:
		return newIOError(PermissionDenied, whichCopyPermFailed(to))
	case ReadOnlyFS:
		return newIOError(ReadOnlyFS, Dest)
	default:
		return newIOError(kind, Unknown)
	}
}

// copyFileContents performs a byte copy of src onto dst (dst is created or
// truncated).
func copyFileContents(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// copyDirContents recursively copies the contents of src into dst,
// preserving file contents only (no permission bits, timestamps, or
// symlinks — every entry walked is followed and its bytes copied, matching
// spec §9's noted behaviour for a force-overwritten symlink destination).
func copyDirContents(src, dst string) error {
	src = filepath.Clean(src)
	// When src is itself a directory symlink, WalkDir would Lstat the root
	// and see a non-directory, visiting it once and bailing out instead of
	// descending. Resolve it first so force-copying a symlinked directory
	// walks its real tree (spec §9: force copies the target's contents, not
	// the symlink itself).
	if resolved, err := filepath.EvalSymlinks(src); err == nil {
		src = resolved
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFileContents(path, target)
	})
}
