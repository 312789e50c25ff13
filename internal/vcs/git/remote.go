package git

import (
	"context"
	"strings"

	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

// remoteBranchExists asks the remote whether it has the branch. Used only
// before the first push of a branch, when no upstream is configured yet.
func (g *Git) remoteBranchExists(ctx context.Context, remote, branch string) (bool, error) {
	args := []string{"ls-remote", "--exit-code", "--heads", remote, branch}
	out, err := g.run(ctx, args...)
	if err != nil {
		return false, err
	}
	switch out.ExitCode {
	case 0:
		return true, nil
	case 2:
		return false, nil
	default:
		return false, vcs.NewGitError(args, out)
	}
}

// PullRebase fetches and rebases the current branch onto its upstream.
// A rebase that stops on conflicts is reported as vcs.PullConflict, not
// as an error; the repository is then mid-rebase.
func (g *Git) PullRebase(ctx context.Context) (vcs.PullResult, error) {
	before, err := g.HeadCommit(ctx)
	if err != nil {
		return vcs.PullResult{}, err
	}

	t, err := g.tracking(ctx)
	if err != nil {
		return vcs.PullResult{}, err
	}

	args := []string{"pull", "--rebase", "--no-autostash"}
	if !t.configured {
		exists, err := g.remoteBranchExists(ctx, t.remote, t.branch)
		if err != nil {
			return vcs.PullResult{}, err
		}
		if !exists {
			// Nothing published yet; the first push creates the branch
			return vcs.PullResult{Status: vcs.PullUpToDate, Before: before, After: before}, nil
		}
		args = append(args, t.remote, t.branch)
	}

	out, err := g.run(ctx, args...)
	if err != nil {
		return vcs.PullResult{}, err
	}
	if out.ExitCode != 0 {
		if g.IsInRebase() || g.IsInMerge() {
			return vcs.PullResult{Status: vcs.PullConflict, Before: before}, nil
		}
		return vcs.PullResult{}, vcs.NewGitError(args, out)
	}

	after, err := g.HeadCommit(ctx)
	if err != nil {
		return vcs.PullResult{}, err
	}

	status := vcs.PullUpdated
	if after == before {
		status = vcs.PullUpToDate
	}
	return vcs.PullResult{Status: status, Before: before, After: after}, nil
}

// Push publishes the current branch. The first push of a branch sets its
// upstream.
func (g *Git) Push(ctx context.Context) error {
	t, err := g.tracking(ctx)
	if err != nil {
		return err
	}

	args := []string{"push"}
	if !t.configured {
		args = append(args, "--set-upstream", t.remote, t.branch)
	}

	out, err := g.run(ctx, args...)
	if err != nil {
		return err
	}
	if out.ExitCode != 0 {
		gitErr := vcs.NewGitError(args, out)

		// Check for push rejection
		combined := out.Combined()
		if strings.Contains(combined, "rejected") || strings.Contains(combined, "non-fast-forward") {
			gitErr.Err = vcs.ErrPushRejected
		}
		return gitErr
	}

	return nil
}
