package git

import (
	"context"
	"strings"

	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

// emptyAfterResolution matches the messages rebase prints when the
// resolved commit no longer changes anything.
func emptyAfterResolution(output string) bool {
	return strings.Contains(output, "No changes - did you forget") ||
		strings.Contains(output, "nothing to commit") ||
		strings.Contains(output, "The previous cherry-pick is now empty")
}

// ContinueRebase resumes a stopped rebase. When replaying the next commit
// stops on conflicts, the new unmerged paths are returned in the result.
// A commit emptied by the resolution is skipped.
func (g *Git) ContinueRebase(ctx context.Context) (vcs.ContinueResult, error) {
	args := []string{"rebase", "--continue"}
	out, err := g.run(ctx, args...)
	if err != nil {
		return vcs.ContinueResult{}, err
	}

	if out.ExitCode != 0 && g.IsInRebase() {
		conflicts, err := g.ConflictedFiles(ctx)
		if err != nil {
			return vcs.ContinueResult{}, err
		}
		if len(conflicts) > 0 {
			return vcs.ContinueResult{Conflicts: conflicts}, nil
		}
		if !emptyAfterResolution(out.Combined()) {
			return vcs.ContinueResult{}, vcs.NewGitError(args, out)
		}

		args = []string{"rebase", "--skip"}
		out, err = g.run(ctx, args...)
		if err != nil {
			return vcs.ContinueResult{}, err
		}
		if out.ExitCode != 0 && g.IsInRebase() {
			conflicts, err := g.ConflictedFiles(ctx)
			if err != nil {
				return vcs.ContinueResult{}, err
			}
			if len(conflicts) > 0 {
				return vcs.ContinueResult{Conflicts: conflicts}, nil
			}
		}
	}

	if out.ExitCode != 0 {
		return vcs.ContinueResult{}, vcs.NewGitError(args, out)
	}

	return vcs.ContinueResult{Done: !g.IsInRebase()}, nil
}

// ContinueMerge concludes a stopped merge with the prepared message.
func (g *Git) ContinueMerge(ctx context.Context) (vcs.ContinueResult, error) {
	args := []string{"merge", "--continue"}
	out, err := g.run(ctx, args...)
	if err != nil {
		return vcs.ContinueResult{}, err
	}
	if out.ExitCode != 0 {
		conflicts, cerr := g.ConflictedFiles(ctx)
		if cerr == nil && len(conflicts) > 0 {
			return vcs.ContinueResult{Conflicts: conflicts}, nil
		}
		return vcs.ContinueResult{}, vcs.NewGitError(args, out)
	}
	return vcs.ContinueResult{Done: !g.IsInMerge()}, nil
}

// AbortRebase restores the branch to its state before the rebase started
func (g *Git) AbortRebase(ctx context.Context) error {
	_, err := g.exec(ctx, "rebase", "--abort")
	return err
}

// AbortMerge restores the branch to its state before the merge started
func (g *Git) AbortMerge(ctx context.Context) error {
	_, err := g.exec(ctx, "merge", "--abort")
	return err
}
