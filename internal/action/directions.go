package action

import (
	fsotype "github.com/reedmace/tendril/internal/fso"
	"github.com/reedmace/tendril/internal/tendril"
)

// Log is the per-action record (spec's ActionLog): the types observed before
// any mutation, the absolute remote path acted upon, and the eventual
// outcome. Success/Err are written exactly once, after the operation runs.
type Log struct {
	LocalType    *fsotype.Type
	RemoteType   *fsotype.Type
	ResolvedPath string
	Success      Success
	Err          error
}

// Pull copies remote onto local. Valid for DirMerge/DirOverwrite tendrils
// only; a Link tendril yields ModeMismatch.
func Pull(t tendril.Tendril, dryRun, force bool) Log {
	log := Log{
		RemoteType:   fsotype.GetType(t.RemoteAbs),
		LocalType:    fsotype.GetType(t.LocalAbs),
		ResolvedPath: t.RemoteAbs,
	}
	if t.Mode == tendril.Link {
		log.Err = ErrModeMismatch
		return log
	}
	dirMerge := t.Mode == tendril.DirMerge
	log.Success, log.Err = CopyFSO(t.RemoteAbs, log.RemoteType, t.LocalAbs, log.LocalType, dirMerge, dryRun, force)
	return log
}

// Push copies local onto remote. Valid for DirMerge/DirOverwrite tendrils
// only; a Link tendril yields ModeMismatch.
func Push(t tendril.Tendril, dryRun, force bool) Log {
	log := Log{
		RemoteType:   fsotype.GetType(t.RemoteAbs),
		LocalType:    fsotype.GetType(t.LocalAbs),
		ResolvedPath: t.RemoteAbs,
	}
	if t.Mode == tendril.Link {
		log.Err = ErrModeMismatch
		return log
	}
	dirMerge := t.Mode == tendril.DirMerge
	log.Success, log.Err = CopyFSO(t.LocalAbs, log.LocalType, t.RemoteAbs, log.RemoteType, dirMerge, dryRun, force)
	return log
}

// Link creates a symlink at remote pointing at local. Valid only for Link
// tendrils; any other mode yields ModeMismatch.
//
// If the local (inside-repo) side has nothing to point at yet, it is
// prepared first: a broken symlink there is removed (forced, or rejected if
// !force), and a missing local is populated by copying remote -> local
// before the link is made, so the repo ends up holding a real copy of what
// it now also points at.
func Link(t tendril.Tendril, dryRun, force bool) Log {
	log := Log{
		RemoteType:   fsotype.GetType(t.RemoteAbs),
		LocalType:    fsotype.GetType(t.LocalAbs),
		ResolvedPath: t.RemoteAbs,
	}
	if t.Mode != tendril.Link {
		log.Err = ErrModeMismatch
		return log
	}

	effectiveForce := force
	localType := log.LocalType
	if log.LocalType == nil || *log.LocalType == fsotype.BrokenSym {
		if log.LocalType != nil { // BrokenSym
			if !force {
				log.Err = newTypeMismatch(fsotype.BrokenSym, Source)
				return log
			}
			if !dryRun {
				if err := removeAny(t.LocalAbs); err != nil {
					log.Err = ioErrorFrom(err, Source)
					return log
				}
			}
		}

		// Local is absent now (either originally, or just cleared above) -
		// copy remote onto it so the link has a real target once created.
		if _, err := CopyFSO(t.RemoteAbs, log.RemoteType, t.LocalAbs, nil, false, dryRun, false); err != nil {
			log.Err = err
			return log
		}
		localType = log.RemoteType
		effectiveForce = true
	}

	log.Success, log.Err = Symlink(t.LocalAbs, localType, t.RemoteAbs, log.RemoteType, dryRun, effectiveForce)
	return log
}
