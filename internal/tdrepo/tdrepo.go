// Package tdrepo discovers the tendrils repository a batch run should act
// against: either a path the caller gave explicitly, or the default
// configured in the user's global config (spec §4.9).
package tdrepo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/reedmace/tendril/internal/fso"
	"github.com/reedmace/tendril/internal/tdconfig"
)

// ErrorKind discriminates why repository discovery failed.
type ErrorKind int

const (
	// GivenInvalid: the caller-supplied path is not a tendrils repo.
	GivenInvalid ErrorKind = iota
	// DefaultInvalid: the global config names a default repo path, but it is
	// not a tendrils repo.
	DefaultInvalid
	// DefaultNotSet: no path was given and the global config names none.
	DefaultNotSet
)

// Error reports why a repository could not be resolved. Path is the
// post-expansion path that was checked, so the operator can see what was
// actually looked for; it is empty for DefaultNotSet.
type Error struct {
	Kind ErrorKind
	Path string
}

func (e *Error) Error() string {
	switch e.Kind {
	case GivenInvalid:
		return fmt.Sprintf("%q is not a tendrils repository", e.Path)
	case DefaultInvalid:
		return fmt.Sprintf("default repo path %q is not a tendrils repository", e.Path)
	default:
		return "no repository given and no default repo path is configured"
	}
}

// IsTendrilsRepo reports whether dir contains .tendrils/tendrils.json.
func IsTendrilsRepo(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".tendrils", "tendrils.json"))
	return err == nil && !info.IsDir()
}

// Discover resolves the repository to act against. given, if non-empty, is
// used as-is (expanded and validated); otherwise the global config's
// default-repo-path is consulted via lazyGlobal, which the caller should
// reuse across a single batch invocation.
func Discover(given string, lazyGlobal *tdconfig.LazyGlobal) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	if given != "" {
		abs := fso.Resolve(given, cwd)
		if !IsTendrilsRepo(abs) {
			return "", &Error{Kind: GivenInvalid, Path: abs}
		}
		return abs, nil
	}

	global, err := lazyGlobal.Get()
	if err != nil {
		return "", err
	}
	if global.DefaultRepoPath == "" {
		return "", &Error{Kind: DefaultNotSet}
	}

	abs := fso.Resolve(global.DefaultRepoPath, cwd)
	if !IsTendrilsRepo(abs) {
		return "", &Error{Kind: DefaultInvalid, Path: abs}
	}
	return abs, nil
}
