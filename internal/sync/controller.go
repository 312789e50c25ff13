// Package sync runs one synchronization cycle against a repository:
// commit local changes, pull with rebase, resolve conflicts, push.
//
// The cycle is a small state machine. Its state is never stored; every
// cycle starts by classifying the repository from git's own markers, so a
// cycle interrupted mid-rebase is picked up by the next one.
//
//	CHECK_STATE ─┬─ in progress ─────────────────────────┐
//	             └─ clean/dirty ─ COMMIT ─ PULL ─┬─ clean │
//	                                             └─ conflict ─ RESOLVE ─┬─ PUSH
//	                                                                   └─ ABORT
package sync

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/mschirtzinger/git-ai-sync/internal/resolver"
	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

// maxPulledCommits bounds the upstream commits recorded in a Report.
const maxPulledCommits = 20

// Config tunes a Controller.
type Config struct {
	// CommitPrefix starts every auto-commit subject.
	CommitPrefix string

	// Logger receives one record per non-success outcome plus progress
	// at debug level. Nil discards them.
	Logger *slog.Logger

	// Now is the clock. Nil selects time.Now.
	Now func() time.Time
}

// Controller drives sync cycles. Concurrent RunCycle calls queue behind
// each other.
type Controller struct {
	repo     vcs.Repository
	resolver *resolver.Resolver
	cfg      Config
	logger   *slog.Logger
	mu       gosync.Mutex
}

// New creates a Controller. res may be nil, in which case every conflict
// is aborted and reported as unresolved.
func New(repo vcs.Repository, res *resolver.Resolver, cfg Config) *Controller {
	if cfg.CommitPrefix == "" {
		cfg.CommitPrefix = DefaultCommitPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		repo:     repo,
		resolver: res,
		cfg:      cfg,
		logger:   logger.With("component", "sync"),
	}
}

// Repository returns the repository the controller drives.
func (c *Controller) Repository() vcs.Repository {
	return c.repo
}

// RunCycle performs one cycle and reports what happened. Errors are
// reported as outcomes, never returned; the repository is never left
// mid-rebase or mid-merge by a failed cycle unless the abort itself fails.
//
// Git commands are not interrupted by ctx. Cancelling ctx only fails an
// ongoing conflict resolution request.
func (c *Controller) RunCycle(ctx context.Context) Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	rep := Report{Started: c.cfg.Now()}
	c.runCycle(ctx, &rep)
	if len(rep.Outcomes) == 0 {
		rep.add(NoOp)
	}
	rep.Finished = c.cfg.Now()

	c.logger.Debug("sync cycle finished", "outcomes", rep.Summary(), "duration", rep.Duration())
	return rep
}

func (c *Controller) runCycle(ctx context.Context, rep *Report) {
	gitCtx := context.WithoutCancel(ctx)

	state, err := resolver.Classify(gitCtx, c.repo)
	if err != nil {
		c.fail(rep, "classify", err)
		return
	}
	rep.State = state

	if mode, ok := state.Mode(); ok {
		// Resume an operation an earlier cycle (or the user) left behind
		c.logger.Info("resuming interrupted operation", "mode", mode.String(), "state", state.String())
		if !c.resolve(ctx, rep, mode) {
			return
		}
	} else {
		committed := false
		if state == resolver.StateDirty {
			if committed, err = c.commit(gitCtx, rep); err != nil {
				c.fail(rep, "commit", err)
				return
			}
		}

		pull, err := c.repo.PullRebase(gitCtx)
		if err != nil {
			c.fail(rep, "pull", err)
			return
		}

		switch pull.Status {
		case vcs.PullConflict:
			mode, ok, err := resolver.DetectMode(c.repo)
			if err != nil {
				c.fail(rep, "pull", err)
				return
			}
			if !ok {
				mode = resolver.Rebase
			}
			if !c.resolve(ctx, rep, mode) {
				return
			}
		case vcs.PullUpdated:
			rep.add(PulledClean)
			c.recordPulled(gitCtx, rep, pull)
		case vcs.PullUpToDate:
			if committed {
				rep.add(PulledClean)
			}
		}
	}

	c.push(gitCtx, rep)
}

// commit stages everything and records an auto-commit. It returns false
// when git found nothing to commit.
func (c *Controller) commit(ctx context.Context, rep *Report) (bool, error) {
	changes, err := c.repo.Status(ctx)
	if err != nil {
		return false, err
	}
	if changes.Empty() {
		return false, nil
	}

	if err := c.repo.StageAll(ctx); err != nil {
		return false, err
	}

	msg := CommitMessage(c.cfg.CommitPrefix, changes)
	res, err := c.repo.Commit(ctx, msg)
	if err != nil {
		return false, err
	}
	if res.NothingToCommit {
		return false, nil
	}

	rep.Commit = res.Hash
	rep.Changes = changes.Paths()
	rep.add(Committed)
	c.logger.Debug("committed local changes", "commit", res.Hash, "files", len(changes))
	return true, nil
}

// recordPulled lists the commits a clean pull brought in. Failure only
// costs the display.
func (c *Controller) recordPulled(ctx context.Context, rep *Report, pull vcs.PullResult) {
	if pull.Before == "" || pull.After == "" {
		return
	}
	commits, err := c.repo.CommitLog(ctx, vcs.LogRange{
		Revisions: pull.Before + ".." + pull.After,
		Limit:     maxPulledCommits,
	})
	if err != nil {
		c.logger.Debug("failed to list pulled commits", "error", err)
		return
	}
	rep.Pulled = commits
}

// resolve runs a conflict episode and aborts the operation if it fails.
// It returns true when the cycle may continue to push.
func (c *Controller) resolve(ctx context.Context, rep *Report, mode resolver.Mode) bool {
	var (
		ep  *resolver.Episode
		err error
	)
	if c.resolver == nil {
		err = &resolver.UnresolvedError{Mode: mode, Reason: "no resolution service configured"}
	} else {
		ep, err = c.resolver.Resolve(ctx, mode)
	}

	if err == nil {
		rep.Episode = ep
		rep.add(ConflictResolved)
		c.logger.Info("conflict resolved", "mode", mode.String(), "rounds", ep.Rounds, "files", ep.Files)
		return true
	}

	gitCtx := context.WithoutCancel(ctx)
	abortErr := resolver.Abort(gitCtx, c.repo, mode)

	rep.addErr(ConflictUnresolved, err)
	attrs := []any{"mode", mode.String(), "kind", string(KindOf(err)), "error", err, "aborted", abortErr == nil}
	if files, ferr := c.repo.ConflictedFiles(gitCtx); ferr == nil && len(files) > 0 {
		attrs = append(attrs, "files", files)
	}
	c.logger.Error("conflict unresolved", attrs...)

	if abortErr != nil {
		c.fail(rep, "abort", abortErr)
	}
	return false
}

// push publishes local commits when the branch is ahead of its upstream.
func (c *Controller) push(ctx context.Context, rep *Report) {
	head, err := c.repo.HeadCommit(ctx)
	if err != nil {
		c.fail(rep, "push", err)
		return
	}
	if head == "" {
		// Unborn branch, nothing to publish
		return
	}

	div, err := c.repo.AheadBehind(ctx)
	if err != nil {
		c.fail(rep, "push", err)
		return
	}
	if !div.NeedsPush() {
		return
	}

	if err := c.repo.Push(ctx); err != nil {
		c.fail(rep, "push", err)
		return
	}
	rep.add(Pushed)
}

// fail records an Error outcome and writes its single log record.
func (c *Controller) fail(rep *Report, step string, err error) {
	rep.addErr(Error, err)

	attrs := []any{"step", step, "kind", string(KindOf(err)), "error", err}
	if gitErr, ok := vcs.AsGitError(err); ok {
		attrs = append(attrs,
			"command", gitErr.Command,
			"exit_code", gitErr.ExitCode,
			"stderr", gitErr.Stderr,
		)
	}
	c.logger.Error("sync cycle failed", attrs...)
}
