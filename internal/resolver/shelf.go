package resolver

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

// shelvedFile is the working tree content of a path set aside while git
// continues or aborts an operation.
type shelvedFile struct {
	path    string
	content []byte
	exists  bool
}

// shelf holds unstaged edits to tracked files outside the conflict set.
// git refuses to continue while such edits exist and an abort resets them,
// so they are kept in memory for the duration of that one git call.
type shelf []shelvedFile

func (s shelf) paths() []string {
	paths := make([]string, 0, len(s))
	for _, f := range s {
		paths = append(paths, f.path)
	}
	return paths
}

// shelve snapshots unstaged edits to tracked, non-conflicted files and
// resets those files to their index content. Untracked files are left
// alone.
func shelve(ctx context.Context, repo vcs.Repository) (shelf, error) {
	changes, err := repo.Status(ctx)
	if err != nil {
		return nil, err
	}
	conflicts, err := repo.ConflictedFiles(ctx)
	if err != nil {
		return nil, err
	}

	var s shelf
	for _, c := range changes {
		if c.Status != vcs.StatusModified && c.Status != vcs.StatusDeleted {
			continue
		}
		if c.StagedCode == vcs.StatusConflict || slices.Contains(conflicts, c.Path) {
			continue
		}
		data, ok, err := repo.ReadFile(c.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", c.Path, err)
		}
		s = append(s, shelvedFile{path: c.Path, content: data, exists: ok})
	}
	if len(s) == 0 {
		return nil, nil
	}

	if err := repo.RestoreWorktree(ctx, s.paths()); err != nil {
		// Put back whatever checkout already reset
		return nil, errors.Join(err, s.restore(repo))
	}
	return s, nil
}

// restore writes the shelved content back, overwriting whatever git left
// in those paths.
func (s shelf) restore(repo vcs.Repository) error {
	var errs []error
	for _, f := range s {
		var err error
		if f.exists {
			err = repo.WriteFile(f.path, f.content)
		} else {
			err = repo.RemoveFile(f.path)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to restore local edit to %s: %w", f.path, err))
		}
	}
	return errors.Join(errs...)
}

// shelved runs op with local edits set aside and restores them afterwards,
// whatever op returns.
func shelved[T any](ctx context.Context, repo vcs.Repository, op func() (T, error)) (T, []string, error) {
	var zero T
	s, err := shelve(ctx, repo)
	if err != nil {
		return zero, nil, fmt.Errorf("failed to set aside local edits: %w", err)
	}

	res, opErr := op()
	if err := s.restore(repo); err != nil {
		return res, s.paths(), errors.Join(opErr, err)
	}
	return res, s.paths(), opErr
}
