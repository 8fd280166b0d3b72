// Package action implements the per-tendril operations: the copy and
// symlink primitives (copy_fso / symlink, §4.3-§4.4), the pull/push/link
// direction wrappers (§4.5), and their shared error taxonomy (§3, §7).
package action

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/reedmace/tendril/internal/fso"
)

// Location identifies which side of a transaction an error occurred on.
type Location int

const (
	Source Location = iota
	Dest
	Unknown
)

func (l Location) String() string {
	switch l {
	case Source:
		return "source"
	case Dest:
		return "destination"
	default:
		return "unknown"
	}
}

// IOErrorKind mirrors the small set of OS error categories the engine
// distinguishes in its taxonomy.
type IOErrorKind int

const (
	NotFound IOErrorKind = iota
	PermissionDenied
	AlreadyExists
	ReadOnlyFS
	OtherIOError
)

func (k IOErrorKind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case PermissionDenied:
		return "permission denied"
	case AlreadyExists:
		return "already exists"
	case ReadOnlyFS:
		return "read-only filesystem"
	default:
		return "IO error"
	}
}

// classifyIOErr maps a raw OS error to the engine's IOErrorKind taxonomy.
func classifyIOErr(err error) IOErrorKind {
	switch {
	case err == nil:
		return OtherIOError
	case errors.Is(err, fs.ErrNotExist):
		return NotFound
	case errors.Is(err, fs.ErrPermission):
		return PermissionDenied
	case errors.Is(err, fs.ErrExist):
		return AlreadyExists
	case isReadOnlyFSErr(err):
		return ReadOnlyFS
	default:
		return OtherIOError
	}
}

// isReadOnlyFSErr detects a read-only-filesystem error by its message, since
// Go (like Rust's std at the time this engine was modelled on) has no
// first-class ErrorKind for it on every platform.
func isReadOnlyFSErr(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "read-only file system")
}

// ErrorKind discriminates the variant of an Error.
type ErrorKind int

const (
	IoError ErrorKind = iota
	ModeMismatchKind
	TypeMismatchKind
)

// Error is the action-error taxonomy from spec §3/§7: IoError{Kind, Loc},
// ModeMismatch, and TypeMismatch{Mistype, Loc}.
type Error struct {
	Kind    ErrorKind
	IOKind  IOErrorKind // meaningful when Kind == IoError
	Loc     Location    // meaningful when Kind == IoError or TypeMismatchKind
	Mistype fso.Type    // meaningful when Kind == TypeMismatchKind
}

// ErrModeMismatch is returned when the requested direction disagrees with
// the tendril's mode (e.g. pulling a Link tendril, or linking a copy one).
var ErrModeMismatch = &Error{Kind: ModeMismatchKind}

func newIOError(kind IOErrorKind, loc Location) *Error {
	return &Error{Kind: IoError, IOKind: kind, Loc: loc}
}

// NewIOError builds an IoError{kind, loc}, for callers outside this package
// that need to fabricate one directly (e.g. the orchestrator's
// cannot-symlink fallback in spec §4.7 step 2d).
func NewIOError(kind IOErrorKind, loc Location) *Error {
	return newIOError(kind, loc)
}

func ioErrorFrom(err error, loc Location) *Error {
	return newIOError(classifyIOErr(err), loc)
}

func newTypeMismatch(mistype fso.Type, loc Location) *Error {
	return &Error{Kind: TypeMismatchKind, Mistype: mistype, Loc: loc}
}

// Is lets callers use errors.Is(err, action.ErrModeMismatch) and structural
// comparisons of IoError/TypeMismatch variants.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	switch e.Kind {
	case IoError:
		return e.IOKind == t.IOKind && e.Loc == t.Loc
	case TypeMismatchKind:
		return e.Mistype == t.Mistype && e.Loc == t.Loc
	default:
		return true
	}
}

func (e *Error) Error() string {
	switch e.Kind {
	case ModeMismatchKind:
		return "wrong tendril mode for this action"
	case TypeMismatchKind:
		switch {
		case e.Mistype.IsSymlink():
			return fmt.Sprintf("unexpected symlink at %s", e.Loc)
		case e.Mistype == fso.File:
			return fmt.Sprintf("unexpected file at %s", e.Loc)
		default:
			return fmt.Sprintf("unexpected directory at %s", e.Loc)
		}
	default: // IoError
		if e.IOKind == NotFound {
			switch e.Loc {
			case Source:
				return "source not found"
			case Dest:
				return "destination not found"
			default:
				return "not found"
			}
		}
		if e.Loc == Unknown {
			return e.IOKind.String()
		}
		return fmt.Sprintf("%s at %s", e.IOKind, e.Loc)
	}
}
