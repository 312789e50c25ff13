// Package vcstest provides an in-memory vcs.Repository for unit tests.
package vcstest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

// Fake is a scriptable vcs.Repository. Zero values describe a clean
// repository on branch main that is in sync with its upstream.
//
// Every call is recorded in Calls; mutating calls are also recorded in
// Mutations so tests can assert that nothing was touched.
type Fake struct {
	mu sync.Mutex

	RootDir    string
	Branch     string
	NoRemote   bool
	Head       string
	Changes    vcs.ChangeSet
	Files      map[string][]byte
	Log        []vcs.CommitInfo
	Divergence vcs.Divergence
	InRebase   bool
	InMerge    bool
	Conflicts  []string
	Staged     []string

	// Index holds the staged content RestoreWorktree resets files to.
	// Paths missing from it are removed from Files.
	Index map[string][]byte

	// Errs makes the named operation fail ("Commit", "PullRebase", ...).
	Errs map[string]error

	// PullFunc overrides PullRebase. It runs with the fake locked, so it
	// must mutate fields directly rather than call methods.
	PullFunc func(f *Fake) (vcs.PullResult, error)

	// ContinueFunc overrides ContinueRebase and ContinueMerge under the
	// same locking rule. The default clears the in-progress marker and
	// reports Done.
	ContinueFunc func(f *Fake) (vcs.ContinueResult, error)

	Calls     []string
	Mutations []string

	commits int
}

var _ vcs.Repository = (*Fake)(nil)

// New returns a Fake with an initialized file map and an upstream.
func New() *Fake {
	return &Fake{
		RootDir:    "/fake/repo",
		Branch:     "main",
		Head:       "0000000000000000000000000000000000000000",
		Files:      map[string][]byte{},
		Divergence: vcs.Divergence{HasUpstream: true},
	}
}

func (f *Fake) record(name string, mutating bool) error {
	f.Calls = append(f.Calls, name)
	if mutating {
		f.Mutations = append(f.Mutations, name)
	}
	if err, ok := f.Errs[name]; ok {
		return err
	}
	return nil
}

// Called reports whether the named call was made.
func (f *Fake) Called(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.Calls, name)
}

// MutationLog returns a copy of the mutating calls made so far.
func (f *Fake) MutationLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Mutations)
}

// SetConflict puts the fake mid-operation with the given files conflicted.
func (f *Fake) SetConflict(rebase bool, files map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.InRebase = rebase
	f.InMerge = !rebase
	f.Conflicts = f.Conflicts[:0]
	for path, content := range files {
		f.Conflicts = append(f.Conflicts, path)
		f.Files[path] = []byte(content)
	}
	slices.Sort(f.Conflicts)
}

func (f *Fake) Root() string   { return f.RootDir }
func (f *Fake) GitDir() string { return f.RootDir + "/.git" }

func (f *Fake) CurrentBranch(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CurrentBranch", false); err != nil {
		return "", err
	}
	if f.InRebase {
		return "", nil
	}
	return f.Branch, nil
}

func (f *Fake) HasRemote(ctx context.Context) bool {
	return !f.NoRemote
}

func (f *Fake) Status(ctx context.Context) (vcs.ChangeSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Status", false); err != nil {
		return nil, err
	}
	return slices.Clone(f.Changes), nil
}

func (f *Fake) ChangedFilesShort(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ChangedFilesShort", false); err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(f.Changes))
	for _, c := range f.Changes {
		lines = append(lines, fmt.Sprintf("%s%s %s", c.StagedCode, c.Status, c.Path))
	}
	return lines, nil
}

func (f *Fake) StageAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("StageAll", true); err != nil {
		return err
	}
	f.Staged = append(f.Staged, f.Changes.Paths()...)
	return nil
}

func (f *Fake) StageFile(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("StageFile:"+path, true); err != nil {
		return err
	}
	f.Staged = append(f.Staged, path)
	f.Conflicts = slices.DeleteFunc(f.Conflicts, func(p string) bool { return p == path })
	return nil
}

func (f *Fake) ReadFile(path string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ReadFile:"+path, false); err != nil {
		return nil, false, err
	}
	data, ok := f.Files[path]
	return slices.Clone(data), ok, nil
}

func (f *Fake) WriteFile(path string, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("WriteFile:"+path, true); err != nil {
		return err
	}
	f.Files[path] = slices.Clone(content)
	return nil
}

func (f *Fake) RemoveFile(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RemoveFile:"+path, true); err != nil {
		return err
	}
	delete(f.Files, path)
	return nil
}

func (f *Fake) RestoreWorktree(ctx context.Context, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RestoreWorktree", true); err != nil {
		return err
	}
	for _, path := range paths {
		if data, ok := f.Index[path]; ok {
			f.Files[path] = slices.Clone(data)
		} else {
			delete(f.Files, path)
		}
	}
	f.Changes = slices.DeleteFunc(f.Changes, func(c vcs.FileStatus) bool {
		return slices.Contains(paths, c.Path) && c.StagedCode == vcs.StatusUnmodified
	})
	for i, c := range f.Changes {
		if slices.Contains(paths, c.Path) {
			f.Changes[i].Status = vcs.StatusUnmodified
		}
	}
	return nil
}

func (f *Fake) Commit(ctx context.Context, message string) (vcs.CommitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Commit", true); err != nil {
		return vcs.CommitResult{}, err
	}
	if len(f.Staged) == 0 {
		return vcs.CommitResult{NothingToCommit: true}, nil
	}
	f.commits++
	f.Head = fmt.Sprintf("%040d", f.commits)
	f.Log = append([]vcs.CommitInfo{{Hash: f.Head, Subject: message}}, f.Log...)
	f.Staged = nil
	f.Changes = nil
	f.Divergence.Ahead++
	return vcs.CommitResult{Hash: f.Head}, nil
}

func (f *Fake) HeadCommit(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("HeadCommit", false); err != nil {
		return "", err
	}
	return f.Head, nil
}

func (f *Fake) CommitLog(ctx context.Context, r vcs.LogRange) ([]vcs.CommitInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CommitLog", false); err != nil {
		return nil, err
	}
	log := slices.Clone(f.Log)
	if r.Limit > 0 && len(log) > r.Limit {
		log = log[:r.Limit]
	}
	return log, nil
}

func (f *Fake) AheadBehind(ctx context.Context) (vcs.Divergence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AheadBehind", false); err != nil {
		return vcs.Divergence{}, err
	}
	return f.Divergence, nil
}

func (f *Fake) PullRebase(ctx context.Context) (vcs.PullResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PullRebase", true); err != nil {
		return vcs.PullResult{}, err
	}
	if f.PullFunc != nil {
		return f.PullFunc(f)
	}
	return vcs.PullResult{Status: vcs.PullUpToDate, Before: f.Head, After: f.Head}, nil
}

func (f *Fake) Push(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Push", true); err != nil {
		return err
	}
	f.Divergence = vcs.Divergence{HasUpstream: true}
	return nil
}

func (f *Fake) IsInRebase() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.InRebase
}

func (f *Fake) IsInMerge() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.InMerge
}

func (f *Fake) ConflictedFiles(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ConflictedFiles", false); err != nil {
		return nil, err
	}
	return slices.Clone(f.Conflicts), nil
}

func (f *Fake) continueOp(name string) (vcs.ContinueResult, error) {
	if err := f.record(name, true); err != nil {
		return vcs.ContinueResult{}, err
	}
	if f.ContinueFunc != nil {
		return f.ContinueFunc(f)
	}
	f.InRebase = false
	f.InMerge = false
	f.Conflicts = nil
	f.Staged = nil
	return vcs.ContinueResult{Done: true}, nil
}

func (f *Fake) ContinueRebase(ctx context.Context) (vcs.ContinueResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.continueOp("ContinueRebase")
}

func (f *Fake) ContinueMerge(ctx context.Context) (vcs.ContinueResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.continueOp("ContinueMerge")
}

func (f *Fake) AbortRebase(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AbortRebase", true); err != nil {
		return err
	}
	f.InRebase = false
	f.Conflicts = nil
	f.Staged = nil
	return nil
}

func (f *Fake) AbortMerge(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AbortMerge", true); err != nil {
		return err
	}
	f.InMerge = false
	f.Conflicts = nil
	f.Staged = nil
	return nil
}
