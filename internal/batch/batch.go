// Package batch is the top-level engine entry point: it discovers the
// repository, loads and filters its configuration, probes symlink
// capability, and drives the per-tendril pull/push/link operations through
// an UpdateHandler (spec §4.7, §4.9, §4.10).
package batch

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/reedmace/tendril/internal/action"
	"github.com/reedmace/tendril/internal/filter"
	"github.com/reedmace/tendril/internal/fso"
	"github.com/reedmace/tendril/internal/report"
	"github.com/reedmace/tendril/internal/symcap"
	"github.com/reedmace/tendril/internal/tdconfig"
	"github.com/reedmace/tendril/internal/tdrepo"
	"github.com/reedmace/tendril/internal/tendril"
)

// SetupErrorKind discriminates the reason a batch could not even begin.
type SetupErrorKind int

const (
	CannotSymlink SetupErrorKind = iota
	ConfigErrorKind
	NoValidTendrilsRepoKind
)

// SetupError aborts an entire batch before any tendril is attempted: the
// process lacks symlink capability, a configuration file failed to load, or
// no valid tendrils repository could be found.
type SetupError struct {
	Kind   SetupErrorKind
	Config *tdconfig.Error
	Repo   *tdrepo.Error
}

func (e *SetupError) Error() string {
	switch e.Kind {
	case CannotSymlink:
		return "this process cannot create symlinks in the current environment"
	case ConfigErrorKind:
		return e.Config.Error()
	default:
		return e.Repo.Error()
	}
}

func (e *SetupError) Unwrap() error {
	switch e.Kind {
	case ConfigErrorKind:
		return e.Config
	case NoValidTendrilsRepoKind:
		return e.Repo
	default:
		return nil
	}
}

// resolveRepoAndTendrils discovers the repo, loads its config, and filters
// the resulting tendrils per spec. Shared by Run and List.
func resolveRepoAndTendrils(given string, spec filter.Spec) ([]tendril.RawTendril, string, error) {
	var lazyGlobal tdconfig.LazyGlobal

	repoRoot, err := tdrepo.Discover(given, &lazyGlobal)
	if err != nil {
		switch e := err.(type) {
		case *tdrepo.Error:
			return nil, "", &SetupError{Kind: NoValidTendrilsRepoKind, Repo: e}
		case *tdconfig.Error:
			return nil, "", &SetupError{Kind: ConfigErrorKind, Config: e}
		default:
			return nil, "", &SetupError{Kind: ConfigErrorKind, Config: &tdconfig.Error{CfgType: tdconfig.Global, ParseMsg: err.Error(), IsParse: true}}
		}
	}

	raws, err := tdconfig.LoadRepo(repoRoot)
	if err != nil {
		cfgErr, _ := err.(*tdconfig.Error)
		return nil, "", &SetupError{Kind: ConfigErrorKind, Config: cfgErr}
	}

	return filter.Apply(raws, spec), repoRoot, nil
}

// Run discovers the repo, loads and filters its tendrils, and drives one
// pull/push/link/out action per surviving tendril through updater, in
// strict input order. A SetupError aborts before any before/after event is
// emitted; per-tendril failures are reported but never abort the run.
func Run(updater report.UpdateHandler, mode filter.ActionMode, given string, spec filter.Spec, dryRun, force bool) error {
	return RunLogged(updater, nil, mode, given, spec, dryRun, force)
}

// RunLogged behaves exactly like Run, additionally emitting one structured
// logrus event per tendril action through logger. logger may be nil, in
// which case no logging occurs; this is the split spec §6.4 describes
// between the programmatic UpdateHandler contract and operator diagnostics.
func RunLogged(updater report.UpdateHandler, logger *logrus.Entry, mode filter.ActionMode, given string, spec filter.Spec, dryRun, force bool) error {
	spec.Mode = mode
	raws, repoRoot, err := resolveRepoAndTendrils(given, spec)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return &SetupError{Kind: ConfigErrorKind, Config: &tdconfig.Error{CfgType: tdconfig.Global, ParseMsg: err.Error(), IsParse: true}}
	}

	// Only a pure Link run is gated at setup: Out mixes push and link work,
	// and should still push what it can even without symlink capability.
	if mode == filter.Link && len(raws) > 0 && !symcap.CanSymlink() {
		return &SetupError{Kind: CannotSymlink}
	}

	runBatch(updater, logger, mode, repoRoot, cwd, raws, dryRun, force)
	return nil
}

func runBatch(updater report.UpdateHandler, logger *logrus.Entry, mode filter.ActionMode, repoRoot, cwd string, raws []tendril.RawTendril, dryRun, force bool) {
	canSymlink := (mode == filter.Link || mode == filter.Out) && symcap.CanSymlink()

	updater.Count(len(raws))

	for _, raw := range raws {
		updater.Before(raw)

		resolved, resolveErr := tendril.Resolve(raw, repoRoot, cwd)
		var rep report.ActionReport
		rep.Raw = raw

		switch {
		case resolveErr != nil:
			rep.Err = resolveErr
		case mode == filter.Pull:
			rep.Log = action.Pull(resolved, dryRun, force)
		case mode == filter.Push:
			rep.Log = action.Push(resolved, dryRun, force)
		case mode == filter.Out && resolved.Mode != tendril.Link:
			rep.Log = action.Push(resolved, dryRun, force)
		case (mode == filter.Out || mode == filter.Link) && canSymlink:
			rep.Log = action.Link(resolved, dryRun, force)
		default: // Out or Link requested but this process cannot symlink
			rep.Log = fabricateCannotSymlinkLog(resolved)
		}

		logTendril(logger, mode, raw, rep)
		updater.After(rep)
	}
}

func logTendril(logger *logrus.Entry, mode filter.ActionMode, raw tendril.RawTendril, rep report.ActionReport) {
	if logger == nil {
		return
	}
	fields := logrus.Fields{
		"mode":          mode.String(),
		"local":         raw.Local,
		"remote":        raw.Remote,
		"resolved_path": rep.Log.ResolvedPath,
	}
	err := rep.Err
	if err == nil {
		err = rep.Log.Err
	}
	if err != nil {
		logger.WithFields(fields).WithError(err).Warn("tendril action failed")
		return
	}
	fields["outcome"] = rep.Log.Success.String()
	logger.WithFields(fields).Info("tendril action completed")
}

// List discovers the repo, loads and filters its tendrils, and returns a
// ListReport per surviving tendril describing the observed local/remote
// types without performing any action (spec §4.9's read-only counterpart).
func List(given string, spec filter.Spec) ([]report.ListReport, error) {
	raws, repoRoot, err := resolveRepoAndTendrils(given, spec)
	if err != nil {
		return nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, &SetupError{Kind: ConfigErrorKind, Config: &tdconfig.Error{CfgType: tdconfig.Global, ParseMsg: err.Error(), IsParse: true}}
	}

	reports := make([]report.ListReport, 0, len(raws))
	for _, raw := range raws {
		rep := report.ListReport{Raw: raw}

		resolved, resolveErr := tendril.Resolve(raw, repoRoot, cwd)
		if resolveErr != nil {
			rep.Err = resolveErr
			reports = append(reports, rep)
			continue
		}

		rep.Log = report.ListLog{
			LocalType:    fso.GetType(resolved.LocalAbs),
			RemoteType:   fso.GetType(resolved.RemoteAbs),
			ResolvedPath: resolved.RemoteAbs,
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// fabricateCannotSymlinkLog reports a failure without touching the
// filesystem, so an unlinkable process never deletes the remote out from
// under the operator while attempting (and failing) to replace it.
func fabricateCannotSymlinkLog(t tendril.Tendril) action.Log {
	return action.Log{
		LocalType:    fso.GetType(t.LocalAbs),
		RemoteType:   fso.GetType(t.RemoteAbs),
		ResolvedPath: t.RemoteAbs,
		Err:          action.NewIOError(action.PermissionDenied, action.Dest),
	}
}
