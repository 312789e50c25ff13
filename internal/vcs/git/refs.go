package git

import (
	"context"
	"strconv"
	"strings"

	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

// CurrentBranch returns the current branch name
// Returns empty string if in detached HEAD state
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	args := []string{"symbolic-ref", "--short", "-q", "HEAD"}
	out, err := g.run(ctx, args...)
	if err != nil {
		return "", err
	}
	switch out.ExitCode {
	case 0:
		return vcs.TrimOutput(out.Stdout), nil
	case 1:
		return "", nil // Detached HEAD
	default:
		return "", vcs.NewGitError(args, out)
	}
}

// configValue reads a single git config key, returning "" when unset.
func (g *Git) configValue(ctx context.Context, key string) (string, error) {
	args := []string{"config", "--get", key}
	out, err := g.run(ctx, args...)
	if err != nil {
		return "", err
	}
	switch out.ExitCode {
	case 0:
		return vcs.TrimOutput(out.Stdout), nil
	case 1:
		return "", nil
	default:
		return "", vcs.NewGitError(args, out)
	}
}

// tracking describes where the current branch pulls from and pushes to.
type tracking struct {
	branch string
	remote string

	// configured is true when branch.<name>.remote and .merge are both
	// set, so plain `git pull`/`git push` know their target.
	configured bool
}

// tracking resolves the remote for the current branch. It uses the
// configured branch.<name>.remote, falling back to origin and then to the
// first remote listed.
func (g *Git) tracking(ctx context.Context) (tracking, error) {
	branch, err := g.CurrentBranch(ctx)
	if err != nil {
		return tracking{}, err
	}
	if branch == "" {
		return tracking{}, vcs.ErrDetached
	}

	t := tracking{branch: branch}

	remote, err := g.configValue(ctx, "branch."+branch+".remote")
	if err != nil {
		return tracking{}, err
	}
	merge, err := g.configValue(ctx, "branch."+branch+".merge")
	if err != nil {
		return tracking{}, err
	}
	if remote != "" && merge != "" {
		t.remote = remote
		t.configured = true
		return t, nil
	}

	remotes, err := g.remotes(ctx)
	if err != nil {
		return tracking{}, err
	}
	if len(remotes) == 0 {
		return tracking{}, vcs.ErrNoRemote
	}

	// Default to origin if not configured
	t.remote = remotes[0]
	for _, r := range remotes {
		if r == "origin" {
			t.remote = r
			break
		}
	}

	return t, nil
}

// AheadBehind counts commits unique to HEAD and to its upstream
func (g *Git) AheadBehind(ctx context.Context) (vcs.Divergence, error) {
	head, err := g.HeadCommit(ctx)
	if err != nil {
		return vcs.Divergence{}, err
	}
	if head == "" {
		return vcs.Divergence{}, nil
	}

	upArgs := []string{"rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{upstream}"}
	up, err := g.run(ctx, upArgs...)
	if err != nil {
		return vcs.Divergence{}, err
	}
	if up.ExitCode != 0 {
		// No upstream configured, or the upstream ref is gone
		return vcs.Divergence{}, nil
	}

	out, err := g.exec(ctx, "rev-list", "--left-right", "--count", "HEAD...@{upstream}")
	if err != nil {
		return vcs.Divergence{}, err
	}

	fields := strings.Fields(vcs.TrimOutput(out))
	d := vcs.Divergence{HasUpstream: true}
	if len(fields) == 2 {
		d.Ahead, _ = strconv.Atoi(fields[0])
		d.Behind, _ = strconv.Atoi(fields[1])
	}
	return d, nil
}
