// Package tendril holds the declarative tendril data model: the raw,
// authored form read from tendrils.json, and its resolution into a concrete,
// always-valid Tendril with absolute local/remote paths.
package tendril

import (
	"path/filepath"
	"strings"

	"github.com/reedmace/tendril/internal/fso"
)

// Mode selects the behaviour of a tendril.
type Mode int

const (
	// DirOverwrite completely replaces the destination directory's
	// contents with the source's on a directory tendril (no-op distinction
	// for file tendrils).
	DirOverwrite Mode = iota
	// DirMerge overwrites files present in both source and destination but
	// preserves destination-only files, for directory tendrils.
	DirMerge
	// Link replaces the remote object with a symlink into the repo.
	Link
)

func (m Mode) String() string {
	switch m {
	case DirMerge:
		return "dir-merge"
	case Link:
		return "link"
	default:
		return "dir-overwrite"
	}
}

// RawTendril is the authored form of a single tendril, as it appears (after
// config expansion — see tdconfig) in tendrils.json.
type RawTendril struct {
	// Local is the repo-relative path segment (e.g. "SomeApp/file.txt").
	Local string
	// Remote is the destination path; may contain "~" or "<VAR>" and may be
	// relative.
	Remote string
	Mode   Mode
	// Profiles is the set of profiles this tendril applies to. An empty set
	// matches every profile.
	Profiles []string
}

// Tendril is a fully resolved tendril: always valid, with absolute paths.
type Tendril struct {
	LocalAbs  string
	RemoteAbs string
	Mode      Mode
}

// InvalidTendrilErrorKind discriminates the reason resolution failed.
type InvalidTendrilErrorKind int

const (
	// InvalidLocal indicates Local was empty, absolute, reduced to "." (the
	// repo root itself), or escaped the repo via ".." after reduction.
	InvalidLocal InvalidTendrilErrorKind = iota
	// Recursion indicates the resolved remote would create or destroy the
	// repo itself (equal to, an ancestor of, or a descendant of repoRoot).
	Recursion
)

func (k InvalidTendrilErrorKind) String() string {
	if k == Recursion {
		return "recursion"
	}
	return "invalid-local"
}

// InvalidTendrilError reports why a RawTendril could not be resolved.
type InvalidTendrilError struct {
	Kind InvalidTendrilErrorKind
}

func (e *InvalidTendrilError) Error() string {
	switch e.Kind {
	case Recursion:
		return "remote path is the repo, an ancestor of it, or nested inside it"
	default:
		return "local path is empty, absolute, or escapes the repo via \"..\""
	}
}

// Resolve validates raw and computes its concrete Tendril against repoRoot,
// an absolute path to the repository root, and cwd, the process's actual
// working directory. The two are distinct: Local is always repo-relative, so
// LocalAbs is prefixed with repoRoot, while Remote is resolved against cwd —
// a relative remote names a path next to the invocation, not inside the
// repo. Validation order:
//
//  1. Local must be non-empty, relative, not reduce to ".", and contain no
//     ".." segments after lexical reduction — otherwise InvalidLocal.
//  2. LocalAbs = repoRoot / Local.
//  3. RemoteAbs = fso.Resolve(raw.Remote, cwd).
//  4. Reject (Recursion) if RemoteAbs equals repoRoot, or repoRoot is a
//     prefix of RemoteAbs, or RemoteAbs is a prefix of repoRoot.
func Resolve(raw RawTendril, repoRoot, cwd string) (Tendril, error) {
	if !isValidLocal(raw.Local) {
		return Tendril{}, &InvalidTendrilError{Kind: InvalidLocal}
	}

	localAbs := filepath.Join(repoRoot, raw.Local)
	remoteAbs := fso.Resolve(raw.Remote, cwd)

	if isRecursive(repoRoot, remoteAbs) {
		return Tendril{}, &InvalidTendrilError{Kind: Recursion}
	}

	return Tendril{
		LocalAbs:  localAbs,
		RemoteAbs: remoteAbs,
		Mode:      raw.Mode,
	}, nil
}

func isValidLocal(local string) bool {
	if local == "" {
		return false
	}
	if filepath.IsAbs(local) {
		return false
	}
	cleaned := filepath.Clean(local)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return false
	}
	if cleaned == "." {
		return false
	}
	return true
}

// isRecursive reports whether remoteAbs equals, contains, or is contained by
// repoRoot (both already absolute and clean).
func isRecursive(repoRoot, remoteAbs string) bool {
	repoRoot = filepath.Clean(repoRoot)
	remoteAbs = filepath.Clean(remoteAbs)

	if repoRoot == remoteAbs {
		return true
	}
	return isAncestor(repoRoot, remoteAbs) || isAncestor(remoteAbs, repoRoot)
}

// isAncestor reports whether ancestor is a strict path prefix of descendant.
func isAncestor(ancestor, descendant string) bool {
	rel, err := filepath.Rel(ancestor, descendant)
	if err != nil {
		return false
	}
	if rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
