// Package git implements vcs.Repository by running the git binary.
//
// Every method is a thin wrapper over one git subcommand. Exit codes that
// signal expected states (nothing to commit, a pull stopping on conflicts,
// a continue stopping on the next commit) are translated into result values;
// every other nonzero exit becomes *vcs.GitError carrying the command, exit
// code and stderr.
package git

import (
	"context"
	"errors"
	"fmt"

	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

// Git implements vcs.Repository for a single working tree.
type Git struct {
	// repoRoot is the working tree root
	repoRoot string

	// gitDir is the .git directory path (per-worktree for linked worktrees)
	gitDir string

	// env is appended to the environment of every git invocation
	env []string
}

var _ vcs.Repository = (*Git)(nil)

// baseEnv keeps git from blocking on prompts when running unattended.
var baseEnv = []string{
	"GIT_TERMINAL_PROMPT=0",
	"GIT_EDITOR=true",
	"GIT_MERGE_AUTOEDIT=no",
}

// Open returns an adapter for the repository containing path.
// Returns vcs.ErrGitNotFound when git is not installed and vcs.ErrNotInVCS
// when path is not inside a repository.
func Open(path string) (*Git, error) {
	if _, err := vcs.LookPath(); err != nil {
		return nil, err
	}

	root, err := vcs.FindRepoRoot(path)
	if err != nil {
		return nil, err
	}

	g := &Git{env: baseEnv}
	if err := g.detect(root); err != nil {
		return nil, err
	}

	return g, nil
}

// Root returns the working tree root
func (g *Git) Root() string {
	return g.repoRoot
}

// GitDir returns the .git directory path
func (g *Git) GitDir() string {
	return g.gitDir
}

// run executes git and returns the raw result. Nonzero exits are left for
// the caller to interpret.
func (g *Git) run(ctx context.Context, args ...string) (vcs.Output, error) {
	return vcs.Exec(ctx, g.repoRoot, g.env, args...)
}

// exec executes git and converts a nonzero exit into *vcs.GitError.
func (g *Git) exec(ctx context.Context, args ...string) ([]byte, error) {
	out, err := g.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if out.ExitCode != 0 {
		return nil, vcs.NewGitError(args, out)
	}
	return out.Stdout, nil
}

// Version returns the git version in semver form
func (g *Git) Version(ctx context.Context) (string, error) {
	v, err := vcs.GitVersion(ctx)
	if err != nil {
		if errors.Is(err, vcs.ErrGitNotFound) {
			return "", err
		}
		return "", fmt.Errorf("failed to get git version: %w", err)
	}
	return v, nil
}
