// Package vcs defines the repository operations git-ai-sync needs from
// version control.
//
// The synchronization engine never shells out directly. Everything goes
// through the Repository interface, which keeps the state machine testable
// against a fake (see internal/vcs/vcstest) and the subprocess details in one
// place (internal/vcs/git).
//
// # Usage
//
//	repo, err := git.Open(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	changes, err := repo.Status(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !changes.Empty() {
//	    _ = repo.StageAll(ctx)
//	}
//
// # Implementations
//
//   - internal/vcs/git: git subprocess adapter
//   - internal/vcs/vcstest: in-memory fake for unit tests
package vcs

import (
	"context"
	"time"
)

// Repository is the capability set the sync engine uses. Each method maps
// to a single git invocation (or a single on-disk check) and either returns
// a typed result or fails with *GitError.
//
// Expected outcomes that git reports through a nonzero exit code are NOT
// errors: "nothing to commit", a pull that stops on conflicts and a
// continue that stops on the next conflicting commit all come back as
// distinguishable result values.
type Repository interface {
	// ===================
	// Identity
	// ===================

	// Root returns the working tree root.
	Root() string

	// GitDir returns the metadata directory (.git or the worktree git dir).
	GitDir() string

	// CurrentBranch returns the checked out branch, or "" when HEAD is
	// detached (which is the case in the middle of a rebase).
	CurrentBranch(ctx context.Context) (string, error)

	// HasRemote returns true if at least one remote is configured.
	HasRemote(ctx context.Context) bool

	// ===================
	// Working Tree
	// ===================

	// Status returns the changed paths as reported by porcelain status.
	Status(ctx context.Context) (ChangeSet, error)

	// ChangedFilesShort returns `status --short` lines for display.
	ChangedFilesShort(ctx context.Context) ([]string, error)

	// StageAll stages every change including deletions and untracked files.
	StageAll(ctx context.Context) error

	// StageFile stages a single path. Staging a path that no longer exists
	// records its deletion.
	StageFile(ctx context.Context, path string) error

	// ReadFile returns the working tree content of path. ok is false when
	// the file does not exist.
	ReadFile(path string) (content []byte, ok bool, err error)

	// WriteFile replaces the working tree content of path.
	WriteFile(path string, content []byte) error

	// RemoveFile deletes path from the working tree. Missing files are not
	// an error.
	RemoveFile(path string) error

	// RestoreWorktree discards unstaged changes to paths, resetting them to
	// their index content.
	RestoreWorktree(ctx context.Context, paths []string) error

	// ===================
	// History
	// ===================

	// Commit records the staged changes.
	Commit(ctx context.Context, message string) (CommitResult, error)

	// HeadCommit returns the full hash of HEAD, or "" on an unborn branch.
	HeadCommit(ctx context.Context) (string, error)

	// CommitLog lists commits in the given range, newest first.
	CommitLog(ctx context.Context, r LogRange) ([]CommitInfo, error)

	// AheadBehind counts commits unique to HEAD and to its upstream.
	// HasUpstream is false when the branch does not track anything yet.
	AheadBehind(ctx context.Context) (Divergence, error)

	// ===================
	// Remote
	// ===================

	// PullRebase fetches and rebases the current branch onto its upstream.
	PullRebase(ctx context.Context) (PullResult, error)

	// Push publishes the current branch, setting the upstream on first push.
	Push(ctx context.Context) error

	// ===================
	// In-Progress Operations
	// ===================

	// IsInRebase reports whether rebase-merge/ or rebase-apply/ exists.
	IsInRebase() bool

	// IsInMerge reports whether MERGE_HEAD exists.
	IsInMerge() bool

	// ConflictedFiles returns the unmerged paths.
	ConflictedFiles(ctx context.Context) ([]string, error)

	ContinueRebase(ctx context.Context) (ContinueResult, error)
	ContinueMerge(ctx context.Context) (ContinueResult, error)
	AbortRebase(ctx context.Context) error
	AbortMerge(ctx context.Context) error
}

// ===================
// Supporting Types
// ===================

// FileStatus represents the status of a file in the working directory
type FileStatus struct {
	// Path is the file path relative to repository root
	Path string

	// Status is the working directory status
	Status StatusCode

	// StagedCode is the staging area status
	StagedCode StatusCode
}

// Code returns the most significant of the two status codes, preferring
// the staged one.
func (f FileStatus) Code() StatusCode {
	if f.StagedCode == StatusConflict || f.Status == StatusConflict {
		return StatusConflict
	}
	if f.StagedCode != StatusUnmodified {
		return f.StagedCode
	}
	return f.Status
}

// StatusCode represents file status codes
type StatusCode string

const (
	StatusUnmodified StatusCode = " " // No changes
	StatusModified   StatusCode = "M" // Modified
	StatusAdded      StatusCode = "A" // Added/new file
	StatusDeleted    StatusCode = "D" // Deleted
	StatusRenamed    StatusCode = "R" // Renamed
	StatusCopied     StatusCode = "C" // Copied
	StatusUntracked  StatusCode = "?" // Untracked
	StatusIgnored    StatusCode = "!" // Ignored
	StatusConflict   StatusCode = "U" // Unmerged/conflict
)

// ChangeSet is the set of paths git reports as changed. It is recomputed
// on every cycle and never stored.
type ChangeSet []FileStatus

// Empty reports whether there is nothing to stage.
func (c ChangeSet) Empty() bool {
	return len(c) == 0
}

// Paths returns the changed paths in status order.
func (c ChangeSet) Paths() []string {
	paths := make([]string, 0, len(c))
	for _, f := range c {
		paths = append(paths, f.Path)
	}
	return paths
}

// CommitResult describes the outcome of Commit.
type CommitResult struct {
	// Hash is the new HEAD. Empty when NothingToCommit is set.
	Hash string

	// NothingToCommit is set when git found no staged changes.
	NothingToCommit bool
}

// PullStatus classifies a completed PullRebase call.
type PullStatus int

const (
	// PullUpToDate means HEAD did not move.
	PullUpToDate PullStatus = iota

	// PullUpdated means upstream commits were fast-forwarded or local
	// commits were replayed on top of them.
	PullUpdated

	// PullConflict means the rebase stopped with unmerged paths and the
	// repository is now mid-rebase.
	PullConflict
)

func (s PullStatus) String() string {
	switch s {
	case PullUpToDate:
		return "up-to-date"
	case PullUpdated:
		return "updated"
	case PullConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// PullResult is returned by PullRebase.
type PullResult struct {
	Status PullStatus

	// Before and After are HEAD hashes around the pull. After is empty
	// when Status is PullConflict.
	Before string
	After  string
}

// ContinueResult is returned by ContinueRebase and ContinueMerge.
type ContinueResult struct {
	// Done is set when the operation completed and no marker remains.
	Done bool

	// Conflicts lists the unmerged paths of the next commit when the
	// continue stopped again.
	Conflicts []string
}

// LogRange selects commits for CommitLog.
type LogRange struct {
	// Revisions is a git revision range such as "abc123..HEAD". Empty
	// means HEAD.
	Revisions string

	// Limit caps the number of commits. Zero means no cap.
	Limit int

	// Since drops commits older than this time when non-zero.
	Since time.Time
}

// CommitInfo is a single log entry.
type CommitInfo struct {
	Hash    string
	Author  string
	When    time.Time
	Subject string
}

// ShortHash returns the first seven characters of the hash.
func (c CommitInfo) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// Divergence describes how the current branch relates to its upstream.
type Divergence struct {
	// HasUpstream is false when the branch tracks nothing.
	HasUpstream bool

	// Ahead is the number of local commits not on the upstream.
	Ahead int

	// Behind is the number of upstream commits not on the local branch.
	Behind int
}

// NeedsPush reports whether a push would publish anything.
func (d Divergence) NeedsPush() bool {
	return !d.HasUpstream || d.Ahead > 0
}
