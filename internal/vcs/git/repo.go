package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

// detect populates git repository information
func (g *Git) detect(path string) error {
	// Use git rev-parse to get all info in one call
	out, err := vcs.Exec(context.Background(), path, nil, "rev-parse", "--git-dir", "--show-toplevel")
	if err != nil {
		return err
	}
	if out.ExitCode != 0 {
		return vcs.ErrNotInVCS
	}

	lines := vcs.ParseLines(out.Stdout)
	if len(lines) < 2 {
		return fmt.Errorf("unexpected git rev-parse output: got %d lines, expected 2", len(lines))
	}

	gitDir := strings.TrimSpace(lines[0])
	repoRoot := strings.TrimSpace(lines[1])

	// Convert to absolute paths
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(path, gitDir)
	}

	g.gitDir = normalizePath(gitDir)
	g.repoRoot = normalizePath(repoRoot)

	return nil
}

// normalizePath resolves symlinks so that paths reported by fsnotify and
// by git compare equal (macOS /var vs /private/var, for instance).
func normalizePath(path string) string {
	path = filepath.FromSlash(path)

	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}

	return path
}

// HasRemote returns true if any remote is configured
func (g *Git) HasRemote(ctx context.Context) bool {
	remotes, err := g.remotes(ctx)
	return err == nil && len(remotes) > 0
}

func (g *Git) remotes(ctx context.Context) ([]string, error) {
	out, err := g.exec(ctx, "remote")
	if err != nil {
		return nil, err
	}
	return vcs.ParseLines(out), nil
}

// IsInRebase returns true while a rebase is stopped
func (g *Git) IsInRebase() bool {
	// rebase-merge is the merge backend (the default), rebase-apply the
	// legacy apply backend
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		if _, err := os.Stat(filepath.Join(g.gitDir, dir)); err == nil {
			return true
		}
	}
	return false
}

// IsInMerge returns true while a merge is stopped
func (g *Git) IsInMerge() bool {
	_, err := os.Stat(filepath.Join(g.gitDir, "MERGE_HEAD"))
	return err == nil
}

// isUnmerged reports whether a porcelain XY pair marks an unmerged path.
func isUnmerged(xy string) bool {
	switch xy {
	case "DD", "AU", "UD", "UA", "DU", "AA", "UU":
		return true
	}
	return false
}

// ConflictedFiles returns the list of files with conflicts
func (g *Git) ConflictedFiles(ctx context.Context) ([]string, error) {
	entries, err := g.porcelain(ctx)
	if err != nil {
		return nil, err
	}

	var conflicts []string
	for _, e := range entries {
		if isUnmerged(e.xy) {
			conflicts = append(conflicts, e.path)
		}
	}

	return conflicts, nil
}
