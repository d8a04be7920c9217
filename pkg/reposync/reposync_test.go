package reposync

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/matzehuels/kitchen/pkg/config"
	"github.com/matzehuels/kitchen/pkg/errors"
	"github.com/matzehuels/kitchen/pkg/observability"
	"github.com/matzehuels/kitchen/pkg/store"
)

// upstream is a local git repository holding a kitchen.
type upstream struct {
	t    *testing.T
	dir  string
	repo *git.Repository
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is required for the local file transport")
	}
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	u := &upstream{t: t, dir: dir, repo: repo}
	u.commit("initial kitchen", map[string]string{
		"nodes/web1.json":          `{"name": "web1"}`,
		"roles/webserver.json":     `{"name": "webserver"}`,
		"cookbooks/.keep":          ``,
		"data_bags/node/web1.json": `{"name": "web1", "chef_environment": "production"}`,
	})
	return u
}

func (u *upstream) commit(msg string, files map[string]string) {
	u.t.Helper()
	wt, err := u.repo.Worktree()
	if err != nil {
		u.t.Fatal(err)
	}
	for name, content := range files {
		path := filepath.Join(u.dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			u.t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			u.t.Fatal(err)
		}
		if _, err := wt.Add(name); err != nil {
			u.t.Fatal(err)
		}
	}
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		u.t.Fatal(err)
	}
}

func newTestSyncer(t *testing.T, url string) *Syncer {
	t.Helper()
	base := t.TempDir()
	repo := config.Repo{Name: "kitchen", URL: url, BasePath: base}
	s := New(repo, filepath.Join(base, "syncdate"), nil, log.New(io.Discard))
	s.Attempts = 1
	return s
}

func TestSync_CloneThenPull(t *testing.T) {
	ctx := context.Background()
	up := newUpstream(t)
	s := newTestSyncer(t, up.dir)
	s.Depth = 0

	logger := log.New(io.Discard)
	s.Snapshots = store.NewSnapshots(store.NewKitchen(s.Repo.KitchenDir(), logger), logger)

	res, err := s.Sync(ctx)
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if res.Action != ActionClone || !res.Updated || len(res.Head) != 40 {
		t.Errorf("clone result = %+v", res)
	}
	if _, err := os.Stat(s.SyncdateFile); err != nil {
		t.Errorf("syncdate not written: %v", err)
	}

	snap, err := s.Snapshots.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Nodes) != 1 {
		t.Fatalf("nodes after clone = %d", len(snap.Nodes))
	}

	res, err = s.Sync(ctx)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if res.Action != ActionPull || res.Updated {
		t.Errorf("up-to-date pull result = %+v", res)
	}

	up.commit("add db1", map[string]string{
		"nodes/db1.json":          `{"name": "db1"}`,
		"data_bags/node/db1.json": `{"name": "db1"}`,
	})
	res, err = s.Sync(ctx)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if !res.Updated {
		t.Errorf("pull after new commit = %+v", res)
	}

	snap, err = s.Snapshots.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Nodes) != 2 {
		t.Errorf("snapshot not refreshed after pull: %d nodes", len(snap.Nodes))
	}
}

func TestSync_ShallowClone(t *testing.T) {
	up := newUpstream(t)
	up.commit("second", map[string]string{"nodes/db1.json": `{"name": "db1"}`})
	s := newTestSyncer(t, up.dir)

	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatalf("clone: %v", err)
	}
	repo, err := git.PlainOpen(s.Repo.Dir())
	if err != nil {
		t.Fatal(err)
	}
	iter, err := repo.Log(&git.LogOptions{})
	if err != nil {
		t.Fatal(err)
	}
	commits := 0
	_ = iter.ForEach(func(*object.Commit) error {
		commits++
		return nil
	})
	if commits != 1 {
		t.Errorf("shallow clone has %d commits, want 1", commits)
	}
}

func TestSync_PostSyncCommand(t *testing.T) {
	up := newUpstream(t)

	s := newTestSyncer(t, up.dir)
	s.Repo.PostSyncCommand = []string{"sh", "-c", "touch built"}
	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Repo.KitchenDir(), "built")); err != nil {
		t.Errorf("post-sync command did not run in the kitchen: %v", err)
	}

	s = newTestSyncer(t, up.dir)
	s.Repo.PostSyncCommand = []string{"sh", "-c", "echo bag broken >&2; exit 3"}
	_, err := s.Sync(context.Background())
	if !errors.Is(err, errors.ErrCodeSyncFailure) {
		t.Fatalf("err = %v, want SYNC_FAILURE", err)
	}
	if !strings.Contains(errors.UserMessage(err), "bag broken") {
		t.Errorf("message = %q", errors.UserMessage(err))
	}
	if _, err := os.Stat(s.SyncdateFile); !os.IsNotExist(err) {
		t.Error("syncdate written for a failed sync")
	}
}

func TestSync_NoURL(t *testing.T) {
	s := newTestSyncer(t, "")
	_, err := s.Sync(context.Background())
	if !errors.Is(err, errors.ErrCodeSyncFailure) {
		t.Fatalf("err = %v, want SYNC_FAILURE", err)
	}
	if !strings.Contains(errors.UserMessage(err), "no repository url") {
		t.Errorf("message = %q", errors.UserMessage(err))
	}
}

func TestSync_BadRemoteLeavesNoCheckout(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is required for the local file transport")
	}
	s := newTestSyncer(t, filepath.Join(t.TempDir(), "missing.git"))
	if _, err := s.Sync(context.Background()); !errors.Is(err, errors.ErrCodeSyncFailure) {
		t.Fatalf("err = %v, want SYNC_FAILURE", err)
	}
	if _, err := os.Stat(s.Repo.Dir()); !os.IsNotExist(err) {
		t.Error("partial checkout left behind")
	}
}

func TestRun(t *testing.T) {
	up := newUpstream(t)
	s := newTestSyncer(t, up.dir)
	s.Depth = 0
	s.Repo.SyncPeriod = config.Duration{Duration: 20 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Run(ctx); err != context.DeadlineExceeded {
		t.Errorf("Run() = %v, want deadline exceeded", err)
	}
	if _, err := os.Stat(filepath.Join(s.Repo.Dir(), "nodes", "web1.json")); err != nil {
		t.Errorf("Run() did not sync: %v", err)
	}
}

func TestRun_Disabled(t *testing.T) {
	s := newTestSyncer(t, "")
	if err := s.Run(context.Background()); err != nil {
		t.Errorf("Run() = %v", err)
	}
}

type syncRecorder struct {
	observability.NoopSyncHooks
	calls int
}

func (r *syncRecorder) OnSync(context.Context, string, time.Duration, error) { r.calls++ }

func TestTick_SkipsWhileBusy(t *testing.T) {
	rec := &syncRecorder{}
	observability.SetSyncHooks(rec)
	t.Cleanup(observability.Reset)

	s := newTestSyncer(t, "")
	s.mu.Lock()
	s.tick(context.Background())
	s.mu.Unlock()
	if rec.calls != 0 {
		t.Errorf("tick ran while a sync held the lock")
	}

	s.tick(context.Background())
	if rec.calls != 1 {
		t.Errorf("tick did not run once the lock was free")
	}
}

func TestTouch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "syncdate")
	if err := touch(path); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}
	if err := touch(path); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(fi.ModTime()) > time.Minute {
		t.Errorf("mtime not updated: %v", fi.ModTime())
	}
	if touch("") != nil {
		t.Error("touch(\"\") should be a no-op")
	}
}
