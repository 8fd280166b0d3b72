package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reedmace/tendril/internal/action"
	"github.com/reedmace/tendril/internal/filter"
	"github.com/reedmace/tendril/internal/report"
	"github.com/reedmace/tendril/internal/tendril"
)

func makeRepo(t *testing.T, tendrilsJSON string) string {
	t.Helper()
	dir := t.TempDir()
	tdd := filepath.Join(dir, ".tendrils")
	if err := os.MkdirAll(tdd, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tdd, "tendrils.json"), []byte(tendrilsJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

type recordingUpdater struct {
	counted int
	before  []tendril.RawTendril
	after   []report.ActionReport
}

func (u *recordingUpdater) Count(n int)                   { u.counted = n }
func (u *recordingUpdater) Before(raw tendril.RawTendril) { u.before = append(u.before, raw) }
func (u *recordingUpdater) After(r report.ActionReport)   { u.after = append(u.after, r) }

func TestRunCallbackOrderAndCount(t *testing.T) {
	remote := t.TempDir()
	remoteFile := filepath.Join(remote, "a.txt")
	if err := os.WriteFile(remoteFile, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := makeRepo(t, `{"tendrils":{"App/a.txt":{"remotes":"`+remoteFile+`"}}}`)

	var u recordingUpdater
	err := Run(&u, filter.Pull, repo, filter.Spec{}, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.counted != 1 {
		t.Fatalf("counted = %d, want 1", u.counted)
	}
	if len(u.before) != 1 || len(u.after) != 1 {
		t.Fatalf("before/after calls = %d/%d, want 1/1", len(u.before), len(u.after))
	}
	if u.after[0].Err != nil {
		t.Fatalf("unexpected per-tendril error: %v", u.after[0].Err)
	}
	local := filepath.Join(repo, "App/a.txt")
	got, err := os.ReadFile(local)
	if err != nil || string(got) != "hi" {
		t.Fatalf("pull did not create local file: %v %q", err, got)
	}
}

func TestRunPullCreatesLocal(t *testing.T) {
	remote := t.TempDir()
	remoteFile := filepath.Join(remote, "f.txt")
	os.WriteFile(remoteFile, []byte("content"), 0o644)

	repo := makeRepo(t, `{"tendrils":{"App/f.txt":{"remotes":"`+remoteFile+`"}}}`)

	var u recordingUpdater
	if err := Run(&u, filter.Pull, repo, filter.Spec{}, false, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(repo, "App/f.txt")); err != nil {
		t.Fatalf("local not created: %v", err)
	}
}

func TestRunPushOverwritesMatchingDirs(t *testing.T) {
	remote := t.TempDir()
	remoteDir := filepath.Join(remote, "d")
	os.MkdirAll(remoteDir, 0o755)

	repo := makeRepo(t, `{"tendrils":{"App/d":{"remotes":"`+remoteDir+`"}}}`)
	localDir := filepath.Join(repo, "App/d")
	os.MkdirAll(localDir, 0o755)
	os.WriteFile(filepath.Join(localDir, "x.txt"), []byte("x"), 0o644)
	// remote is a dir, local is a dir, so no mismatch; overwrite should succeed.

	var u recordingUpdater
	if err := Run(&u, filter.Push, repo, filter.Spec{}, false, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.after) != 1 || u.after[0].Log.Err != nil {
		t.Fatalf("push failed: %+v", u.after)
	}
	if _, err := os.Stat(filepath.Join(remoteDir, "x.txt")); err != nil {
		t.Fatalf("remote not updated: %v", err)
	}
}

func TestRunPushTypeMismatchReportedOnActionLogNotReportErr(t *testing.T) {
	remote := t.TempDir()
	remoteFile := filepath.Join(remote, "f")
	os.WriteFile(remoteFile, []byte("remote-is-a-file"), 0o644)

	repo := makeRepo(t, `{"tendrils":{"App/f":{"remotes":"`+remoteFile+`"}}}`)
	localDir := filepath.Join(repo, "App/f")
	os.MkdirAll(localDir, 0o755) // local is a directory, remote is a file: mismatch

	var u recordingUpdater
	if err := Run(&u, filter.Push, repo, filter.Spec{}, false, false); err != nil {
		t.Fatalf("unexpected setup error: %v", err)
	}
	if len(u.after) != 1 {
		t.Fatalf("after calls = %d, want 1", len(u.after))
	}
	rep := u.after[0]
	// Resolution itself succeeded; the failure belongs on the action log, not
	// the report-level Err (which is reserved for resolve failures).
	if rep.Err != nil {
		t.Fatalf("report.Err = %v, want nil (mismatch is an action-level error)", rep.Err)
	}
	if rep.Log.Err == nil {
		t.Fatalf("expected a TypeMismatch action error, got nil")
	}
}

func TestRunLinkModeWithExistingLocal(t *testing.T) {
	remote := t.TempDir()
	remoteFile := filepath.Join(remote, "r.txt")
	// The remote is absent: linking over an existing regular file without
	// force is a TypeMismatch, so only a missing remote links cleanly here.

	repo := makeRepo(t, `{"tendrils":{"App/r.txt":{"remotes":"`+remoteFile+`","link":true}}}`)
	localFile := filepath.Join(repo, "App/r.txt")
	os.MkdirAll(filepath.Dir(localFile), 0o755)
	os.WriteFile(localFile, []byte("local-data"), 0o644)

	var u recordingUpdater
	if err := Run(&u, filter.Link, repo, filter.Spec{}, false, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.after) != 1 {
		t.Fatalf("after calls = %d, want 1", len(u.after))
	}
	if u.after[0].Err != nil {
		t.Fatalf("unexpected error: %v", u.after[0].Err)
	}
	target, err := os.Readlink(remoteFile)
	if err != nil {
		t.Fatalf("remote is not a symlink: %v", err)
	}
	if target != localFile {
		t.Errorf("link target = %q, want %q", target, localFile)
	}
}

func TestRunModeFilterExcludesNonMatchingTendrils(t *testing.T) {
	remote := t.TempDir()
	linkRemote := filepath.Join(remote, "link.txt")
	pushRemote := filepath.Join(remote, "push.txt")
	os.WriteFile(linkRemote, []byte("a"), 0o644)
	os.WriteFile(pushRemote, []byte("b"), 0o644)

	repo := makeRepo(t, `{"tendrils":{
		"App/link.txt": {"remotes":"`+linkRemote+`","link":true},
		"App/push.txt": {"remotes":"`+pushRemote+`"}
	}}`)
	os.MkdirAll(filepath.Join(repo, "App"), 0o755)
	os.WriteFile(filepath.Join(repo, "App/push.txt"), []byte("local-push"), 0o644)

	var u recordingUpdater
	if err := Run(&u, filter.Push, repo, filter.Spec{}, false, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.counted != 1 {
		t.Fatalf("counted = %d, want 1 (link tendril should be excluded from push)", u.counted)
	}
	if u.after[0].Raw.Local != "App/push.txt" {
		t.Errorf("wrong tendril survived filter: %+v", u.after[0].Raw)
	}
}

func TestRunSetupErrorNoValidRepo(t *testing.T) {
	dir := t.TempDir()
	var u recordingUpdater
	err := Run(&u, filter.Pull, dir, filter.Spec{}, false, false)
	setupErr, ok := err.(*SetupError)
	if !ok || setupErr.Kind != NoValidTendrilsRepoKind {
		t.Fatalf("got %#v, want NoValidTendrilsRepoKind", err)
	}
	if u.counted != 0 || len(u.before) != 0 || len(u.after) != 0 {
		t.Errorf("no callbacks should fire on setup error, got count=%d before=%d after=%d", u.counted, len(u.before), len(u.after))
	}
}

func TestRunResolveErrorDoesNotAbortBatch(t *testing.T) {
	remote := t.TempDir()
	goodRemote := filepath.Join(remote, "good.txt")
	os.WriteFile(goodRemote, []byte("ok"), 0o644)

	repo := makeRepo(t, `{"tendrils":{
		"../escape": {"remotes":"`+goodRemote+`"},
		"App/good.txt": {"remotes":"`+goodRemote+`"}
	}}`)

	var u recordingUpdater
	if err := Run(&u, filter.Pull, repo, filter.Spec{}, false, false); err != nil {
		t.Fatalf("unexpected setup error: %v", err)
	}
	if u.counted != 2 {
		t.Fatalf("counted = %d, want 2", u.counted)
	}
	if len(u.after) != 2 {
		t.Fatalf("after calls = %d, want 2", len(u.after))
	}
	var invalidErr *tendril.InvalidTendrilError
	if u.after[0].Err == nil {
		t.Fatalf("expected InvalidTendrilError for escaping local")
	}
	if ite, ok := u.after[0].Err.(*tendril.InvalidTendrilError); !ok {
		t.Fatalf("got %T, want *tendril.InvalidTendrilError", u.after[0].Err)
	} else {
		invalidErr = ite
		if invalidErr.Kind != tendril.InvalidLocal {
			t.Errorf("kind = %v, want InvalidLocal", invalidErr.Kind)
		}
	}
	if u.after[1].Err != nil {
		t.Errorf("second tendril should succeed, got %v", u.after[1].Err)
	}
}

func TestRunDryRunMakesNoChanges(t *testing.T) {
	remote := t.TempDir()
	remoteFile := filepath.Join(remote, "f.txt")
	os.WriteFile(remoteFile, []byte("content"), 0o644)

	repo := makeRepo(t, `{"tendrils":{"App/f.txt":{"remotes":"`+remoteFile+`"}}}`)

	var u recordingUpdater
	if err := Run(&u, filter.Pull, repo, filter.Spec{}, true, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.after[0].Log.Success != action.NewSkipped {
		t.Errorf("success = %v, want NewSkipped", u.after[0].Log.Success)
	}
	if _, err := os.Stat(filepath.Join(repo, "App/f.txt")); err == nil {
		t.Error("dry run should not have created the local file")
	}
}
