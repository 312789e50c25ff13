package git

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

type porcelainEntry struct {
	xy   string
	path string
}

// porcelain runs `status --porcelain -z` and splits the NUL separated
// records. Renames and copies carry the original path as an extra record,
// which is skipped.
func (g *Git) porcelain(ctx context.Context) ([]porcelainEntry, error) {
	out, err := g.exec(ctx, "status", "--porcelain", "-z", "--untracked-files=all")
	if err != nil {
		return nil, err
	}

	var entries []porcelainEntry
	records := strings.Split(string(out), "\x00")
	for i := 0; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 4 {
			continue
		}

		// Parse status format: XY filename
		// X = staged status, Y = unstaged status
		xy := rec[:2]
		entries = append(entries, porcelainEntry{xy: xy, path: rec[3:]})

		if xy[0] == 'R' || xy[0] == 'C' {
			i++
		}
	}

	return entries, nil
}

// Status returns the status of files in the working directory
func (g *Git) Status(ctx context.Context) (vcs.ChangeSet, error) {
	entries, err := g.porcelain(ctx)
	if err != nil {
		return nil, err
	}

	changes := make(vcs.ChangeSet, 0, len(entries))
	for _, e := range entries {
		if e.xy == "!!" {
			continue
		}
		changes = append(changes, vcs.FileStatus{
			Path:       e.path,
			Status:     parseStatusCode(e.xy[1:2]),
			StagedCode: parseStatusCode(e.xy[0:1]),
		})
	}

	return changes, nil
}

// parseStatusCode converts git status code to vcs.StatusCode
func parseStatusCode(code string) vcs.StatusCode {
	switch code {
	case " ":
		return vcs.StatusUnmodified
	case "M", "T":
		return vcs.StatusModified
	case "A":
		return vcs.StatusAdded
	case "D":
		return vcs.StatusDeleted
	case "R":
		return vcs.StatusRenamed
	case "C":
		return vcs.StatusCopied
	case "?":
		return vcs.StatusUntracked
	case "!":
		return vcs.StatusIgnored
	case "U":
		return vcs.StatusConflict
	default:
		return vcs.StatusUnmodified
	}
}

// ChangedFilesShort returns `git status --short` lines
func (g *Git) ChangedFilesShort(ctx context.Context) ([]string, error) {
	out, err := g.exec(ctx, "status", "--short")
	if err != nil {
		return nil, err
	}
	return vcs.ParseLines(out), nil
}

// StageAll stages every change in the working tree
func (g *Git) StageAll(ctx context.Context) error {
	_, err := g.exec(ctx, "add", "-A")
	return err
}

// StageFile stages a single path, including its deletion
func (g *Git) StageFile(ctx context.Context, path string) error {
	_, err := g.exec(ctx, "add", "-A", "--", path)
	return err
}

// RestoreWorktree resets paths to their index content
func (g *Git) RestoreWorktree(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	args := []string{"checkout", "--"}
	for _, p := range paths {
		args = append(args, ":(literal)"+p)
	}
	_, err := g.exec(ctx, args...)
	return err
}

// nothingToCommit matches the messages git prints when a commit has no
// staged content.
func nothingToCommit(output string) bool {
	return strings.Contains(output, "nothing to commit") ||
		strings.Contains(output, "nothing added to commit") ||
		strings.Contains(output, "no changes added to commit")
}

// Commit records the staged changes
func (g *Git) Commit(ctx context.Context, message string) (vcs.CommitResult, error) {
	if message == "" {
		return vcs.CommitResult{}, fmt.Errorf("commit message is required")
	}

	args := []string{"commit", "-m", message}
	out, err := g.run(ctx, args...)
	if err != nil {
		return vcs.CommitResult{}, err
	}
	if out.ExitCode != 0 {
		if nothingToCommit(out.Combined()) {
			return vcs.CommitResult{NothingToCommit: true}, nil
		}
		return vcs.CommitResult{}, vcs.NewGitError(args, out)
	}

	hash, err := g.HeadCommit(ctx)
	if err != nil {
		return vcs.CommitResult{}, err
	}
	return vcs.CommitResult{Hash: hash}, nil
}

// HeadCommit returns the full hash of HEAD, or "" on an unborn branch
func (g *Git) HeadCommit(ctx context.Context) (string, error) {
	args := []string{"rev-parse", "--verify", "-q", "HEAD"}
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

// logFormat separates fields with the ASCII unit separator so subjects
// can contain anything.
const logFormat = "--format=%H%x1f%an%x1f%at%x1f%s"

// CommitLog lists commits in the range, newest first
func (g *Git) CommitLog(ctx context.Context, r vcs.LogRange) ([]vcs.CommitInfo, error) {
	if r.Revisions == "" {
		head, err := g.HeadCommit(ctx)
		if err != nil {
			return nil, err
		}
		if head == "" {
			return nil, nil
		}
	}

	args := []string{"log", logFormat}
	if r.Limit > 0 {
		args = append(args, "-n", strconv.Itoa(r.Limit))
	}
	if !r.Since.IsZero() {
		args = append(args, fmt.Sprintf("--since=%d", r.Since.Unix()))
	}
	if r.Revisions != "" {
		args = append(args, r.Revisions)
	}
	args = append(args, "--")

	out, err := g.exec(ctx, args...)
	if err != nil {
		return nil, err
	}

	var commits []vcs.CommitInfo
	for _, line := range vcs.ParseLines(out) {
		parts := strings.SplitN(line, "\x1f", 4)
		if len(parts) < 4 {
			continue
		}
		ts, _ := strconv.ParseInt(parts[2], 10, 64)
		commits = append(commits, vcs.CommitInfo{
			Hash:    parts[0],
			Author:  parts[1],
			When:    time.Unix(ts, 0),
			Subject: parts[3],
		})
	}

	return commits, nil
}

// ===================
// Working Tree Files
// ===================

// resolve maps a repository relative path to an absolute one and refuses
// anything that escapes the working tree or points into .git.
func (g *Git) resolve(path string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return "", fmt.Errorf("invalid repository path %q", path)
	}
	abs := filepath.Join(g.repoRoot, filepath.FromSlash(path))
	if !vcs.IsSubPath(g.repoRoot, abs) || abs == g.repoRoot {
		return "", fmt.Errorf("path %q is outside the working tree", path)
	}
	if vcs.IsSubPath(g.gitDir, abs) {
		return "", fmt.Errorf("path %q is inside the git directory", path)
	}
	return abs, nil
}

// ReadFile returns the working tree content of path
func (g *Git) ReadFile(path string) ([]byte, bool, error) {
	abs, err := g.resolve(path)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// WriteFile replaces the working tree content of path, keeping the
// existing file mode when there is one
func (g *Git) WriteFile(path string, content []byte) error {
	abs, err := g.resolve(path)
	if err != nil {
		return err
	}
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(abs); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	return os.WriteFile(abs, content, mode)
}

// RemoveFile deletes path from the working tree
func (g *Git) RemoveFile(path string) error {
	abs, err := g.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
