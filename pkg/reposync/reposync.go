// Package reposync keeps the local kitchen checkout in step with its git
// remote.
//
// A sync clones the repository when the checkout is missing and pulls
// otherwise. After a successful sync the configured post-sync command runs
// inside the kitchen (typically LittleChef's "fix node_data_bag"), the
// syncdate file is touched and the kitchen snapshot is invalidated.
package reposync

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/matzehuels/kitchen/pkg/cache"
	"github.com/matzehuels/kitchen/pkg/config"
	"github.com/matzehuels/kitchen/pkg/errors"
	"github.com/matzehuels/kitchen/pkg/observability"
	"github.com/matzehuels/kitchen/pkg/store"
)

// Sync actions.
const (
	ActionClone = "clone"
	ActionPull  = "pull"
)

// Result describes a completed sync.
type Result struct {
	Action   string
	Updated  bool   // false when a pull found nothing new
	Head     string // commit checked out after the sync
	Duration time.Duration
}

// Syncer synchronizes one repository. Syncs never overlap.
type Syncer struct {
	Repo         config.Repo
	SyncdateFile string
	Snapshots    *store.Snapshots // invalidated after each sync, may be nil
	Logger       *log.Logger

	// Depth limits the history fetched on clone; 0 fetches everything.
	Depth int

	// Attempts and RetryDelay control retries of transient network errors.
	Attempts   int
	RetryDelay time.Duration

	mu sync.Mutex
}

// New returns a Syncer for repo with a shallow clone and three attempts per
// network operation.
func New(repo config.Repo, syncdateFile string, snaps *store.Snapshots, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.Default()
	}
	return &Syncer{
		Repo:         repo,
		SyncdateFile: syncdateFile,
		Snapshots:    snaps,
		Logger:       logger,
		Depth:        1,
		Attempts:     3,
		RetryDelay:   2 * time.Second,
	}
}

// Sync runs one sync, waiting for a running one to finish first.
func (s *Syncer) Sync(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync(ctx)
}

// Run syncs once immediately and then every Repo.SyncPeriod until ctx is
// done. Failures are logged and never stop the loop. A tick that arrives
// while a sync is still running is skipped.
func (s *Syncer) Run(ctx context.Context) error {
	period := s.Repo.SyncPeriod.Duration
	if period <= 0 {
		s.Logger.Info("periodic repository sync disabled")
		return nil
	}

	s.tick(ctx)
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Syncer) tick(ctx context.Context) {
	if !s.mu.TryLock() {
		s.Logger.Warn("previous repository sync still running, skipping")
		return
	}
	defer s.mu.Unlock()
	if _, err := s.sync(ctx); err != nil {
		s.Logger.Error("repository sync failed", "code", errors.GetCode(err), "err", err)
	}
}

func (s *Syncer) sync(ctx context.Context) (res *Result, err error) {
	start := time.Now()
	res = &Result{}
	defer func() {
		res.Duration = time.Since(start)
		observability.Sync().OnSync(ctx, res.Action, res.Duration, err)
	}()

	dir := s.Repo.Dir()
	var repo *git.Repository
	if _, statErr := os.Stat(dir); os.IsNotExist(statErr) {
		res.Action = ActionClone
		repo, err = s.clone(ctx, dir)
		res.Updated = err == nil
	} else {
		res.Action = ActionPull
		repo, res.Updated, err = s.pull(ctx, dir)
	}
	if err != nil {
		return res, err
	}

	if head, herr := repo.Head(); herr == nil {
		res.Head = head.Hash().String()
	}
	s.Logger.Info("repository synced",
		"action", res.Action,
		"updated", res.Updated,
		"head", shortHash(res.Head),
		"duration", time.Since(start))

	if err := s.postSync(ctx); err != nil {
		return res, err
	}
	if err := touch(s.SyncdateFile); err != nil {
		s.Logger.Warn("cannot update syncdate file", "path", s.SyncdateFile, "err", err)
	}
	if s.Snapshots != nil {
		s.Snapshots.Invalidate(ctx, "repository "+res.Action)
	}
	return res, nil
}

func (s *Syncer) clone(ctx context.Context, dir string) (*git.Repository, error) {
	if s.Repo.URL == "" {
		return nil, errors.New(errors.ErrCodeSyncFailure,
			"Repo dir doesn't exist at '%s' and no repository url is configured", dir)
	}
	if err := os.MkdirAll(s.Repo.BasePath, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSyncFailure, err, "cannot create %s", s.Repo.BasePath)
	}

	s.Logger.Info("cloning git repo", "url", s.Repo.URL, "dir", dir)
	var repo *git.Repository
	err := s.retry(ctx, func() error {
		var err error
		repo, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
			URL:          s.Repo.URL,
			Depth:        s.Depth,
			SingleBranch: true,
		})
		if err != nil {
			// Remove the partial checkout so the next run clones again.
			os.RemoveAll(dir)
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSyncFailure, err, "git clone of %s failed", s.Repo.URL)
	}
	return repo, nil
}

func (s *Syncer) pull(ctx context.Context, dir string) (*git.Repository, bool, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeSyncFailure, err, "%s is not a git repository", dir)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeSyncFailure, err, "cannot open worktree of %s", dir)
	}

	s.Logger.Debug("updating repo", "dir", dir)
	updated := true
	err = s.retry(ctx, func() error {
		err := wt.PullContext(ctx, &git.PullOptions{RemoteName: git.DefaultRemoteName, SingleBranch: true})
		if stderrors.Is(err, git.NoErrAlreadyUpToDate) {
			updated = false
			return nil
		}
		return err
	})
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeSyncFailure, err, "git pull in %s failed", dir)
	}
	return repo, updated, nil
}

// retry runs fn, retrying errors that may go away on their own.
func (s *Syncer) retry(ctx context.Context, fn func() error) error {
	return cache.RetryWithBackoff(ctx, s.Attempts, s.RetryDelay, func() error {
		err := fn()
		if err == nil || permanent(err) || ctx.Err() != nil {
			return err
		}
		s.Logger.Debug("git operation failed, retrying", "err", err)
		return cache.Retryable(err)
	})
}

func permanent(err error) bool {
	for _, target := range []error{
		transport.ErrRepositoryNotFound,
		transport.ErrEmptyRemoteRepository,
		transport.ErrAuthenticationRequired,
		transport.ErrAuthorizationFailed,
		transport.ErrInvalidAuthMethod,
		git.ErrRepositoryNotExists,
		git.ErrNonFastForwardUpdate,
		git.ErrUnstagedChanges,
	} {
		if stderrors.Is(err, target) {
			return true
		}
	}
	return false
}

// postSync runs the configured command inside the kitchen.
func (s *Syncer) postSync(ctx context.Context) error {
	argv := s.Repo.PostSyncCommand
	if len(argv) == 0 {
		return nil
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = s.Repo.KitchenDir()
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	s.Logger.Debug("running post-sync command", "cmd", strings.Join(argv, " "), "dir", cmd.Dir)
	if err := cmd.Run(); err != nil {
		return errors.Wrap(errors.ErrCodeSyncFailure, err,
			"%s returned an error: %s", strings.Join(argv, " "), strings.TrimSpace(out.String()))
	}
	return nil
}

// touch sets the modification time of path to now, creating it if needed.
func touch(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	now := time.Now()
	return os.Chtimes(path, now, now)
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
