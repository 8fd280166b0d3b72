package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reedmace/tendril/internal/batch"
	"github.com/reedmace/tendril/internal/color"
	"github.com/reedmace/tendril/internal/filter"
	"github.com/reedmace/tendril/internal/fso"
	"github.com/reedmace/tendril/internal/report"
	"github.com/reedmace/tendril/internal/symcap"
	"github.com/reedmace/tendril/internal/tdconfig"
	"github.com/reedmace/tendril/internal/tdinit"
	"github.com/reedmace/tendril/internal/tdrepo"
	"github.com/reedmace/tendril/internal/tendril"
	"github.com/reedmace/tendril/internal/tlog"
)

var (
	repoPath    string
	localGlobs  []string
	remoteGlobs []string
	profiles    []string
	dryRun      bool
	force       bool
	logDir      string
)

func main() {
	color.Init()
	root := buildRoot()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.Red(err.Error()))
		os.Exit(exitCodeFor(err))
	}
}

func buildRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "tendril",
		Short:         "Synchronize files and directories between a repo and scattered machine locations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&repoPath, "repo", "", "tendrils repo path (defaults to the configured default-repo-path)")
	root.PersistentFlags().StringSliceVar(&localGlobs, "local-glob", nil, "only act on tendrils whose local path matches this glob (repeatable)")
	root.PersistentFlags().StringSliceVar(&remoteGlobs, "remote-glob", nil, "only act on tendrils whose remote path matches this glob (repeatable)")
	root.PersistentFlags().StringSliceVar(&profiles, "profile", nil, "only act on tendrils matching this profile (repeatable)")
	root.PersistentFlags().StringVar(&logDir, "log-dir", "", "directory for structured JSON logs (enabled via DEBUG=TRUE or LOG_LEVEL)")

	root.AddCommand(
		actionCmd("pull", filter.Pull, "Pull remote files into the repo"),
		actionCmd("push", filter.Push, "Push repo files out to their remote locations"),
		actionCmd("link", filter.Link, "Replace remote locations with symlinks into the repo"),
		actionCmd("out", filter.Out, "Push copy tendrils and link symlink tendrils in one pass"),
		listCmd(),
		initCmd(),
		statusCmd(),
	)

	return root
}

func currentSpec() filter.Spec {
	return filter.Spec{
		LocalGlobs:  localGlobs,
		RemoteGlobs: remoteGlobs,
		Profiles:    profiles,
	}
}

// --- pull / push / link / out ------------------------------------------------

// cliUpdater adapts printed progress lines to the report.UpdateHandler
// contract, tracking whether any per-tendril action failed so the process
// can exit non-zero without aborting the batch itself.
type cliUpdater struct {
	name    string
	anyFail bool
}

func (u *cliUpdater) Count(n int) {
	fmt.Printf("%s: %d tendril(s)\n", u.name, n)
}

func (u *cliUpdater) Before(raw tendril.RawTendril) {}

func (u *cliUpdater) After(r report.ActionReport) {
	// A tendril can fail to even resolve (r.Err) or resolve but fail its
	// action (r.Log.Err) — either means this tendril did not complete.
	if err := actionReportErr(r); err != nil {
		u.anyFail = true
		fmt.Printf("%s  %s -> %s\n", color.BoldRed("FAIL"), r.Raw.Local, r.Raw.Remote)
		fmt.Printf("       %v\n", err)
		return
	}
	fmt.Printf("%s    %s -> %s (%s)\n", color.Green("OK"), r.Raw.Local, r.Raw.Remote, r.Log.Success)
}

func actionReportErr(r report.ActionReport) error {
	if r.Err != nil {
		return r.Err
	}
	return r.Log.Err
}

func actionCmd(name string, mode filter.ActionMode, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := tlog.New(logDirOrDefault())
			u := &cliUpdater{name: name}

			if err := batch.RunLogged(u, logger, mode, repoPath, currentSpec(), dryRun, force); err != nil {
				return err
			}
			if u.anyFail {
				return errActionFailures
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would happen without modifying anything")
	cmd.Flags().BoolVar(&force, "force", false, "ignore type mismatches and overwrite regardless")
	return cmd
}

// --- list --------------------------------------------------------------------

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tendrils and their resolved state without acting on them",
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := batch.List(repoPath, currentSpec())
			if err != nil {
				return err
			}
			for _, r := range reports {
				if r.Err != nil {
					fmt.Printf("%s  %s -> %s: %v\n", color.BoldRed("INVALID"), r.Raw.Local, r.Raw.Remote, r.Err)
					continue
				}
				fmt.Printf("%s -> %s\n", r.Raw.Local, r.Log.ResolvedPath)
				fmt.Printf("    local:  %s\n", typeLabel(r.Log.LocalType))
				fmt.Printf("    remote: %s\n", typeLabel(r.Log.RemoteType))
			}
			return nil
		},
	}
}

func typeLabel(t *fso.Type) string {
	if t == nil {
		return "none"
	}
	return t.String()
}

// --- init --------------------------------------------------------------------

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Initialize a new, empty tendrils repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if err := tdinit.Init(dir, force); err != nil {
				return err
			}
			fmt.Printf("initialized tendrils repo in %s\n", dir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "initialize even if the directory is not empty")
	return cmd
}

// --- status ------------------------------------------------------------------

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report symlink capability and the repo that would be used",
		RunE: func(cmd *cobra.Command, args []string) error {
			var lazy tdconfig.LazyGlobal
			repo, err := tdrepo.Discover(repoPath, &lazy)
			if err != nil {
				fmt.Printf("repo: %v\n", err)
			} else {
				fmt.Printf("repo: %s\n", repo)
			}

			if symcap.CanSymlink() {
				fmt.Println("symlinks: available")
			} else {
				fmt.Println("symlinks: unavailable")
			}
			return nil
		},
	}
}

// --- exit codes ---------------------------------------------------------------

var errActionFailures = errors.New("one or more tendril actions failed")

func exitCodeFor(err error) int {
	var setupErr *batch.SetupError
	var initErr *tdinit.Error
	switch {
	case errors.Is(err, errActionFailures):
		return exitActionFailures
	case errors.As(err, &setupErr):
		if setupErr.Kind == batch.ConfigErrorKind {
			return exitConfigError
		}
		return exitSetupError
	case errors.As(err, &initErr):
		return exitConfigError
	default:
		return exitUsageError
	}
}

func logDirOrDefault() string {
	if logDir != "" {
		return logDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home + "/.tendrils/logs"
}
