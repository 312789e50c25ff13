package resolver

import (
	"context"

	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

// Mode identifies which git operation stopped on conflicts. It is decided
// once at the start of an episode and selects the continue and abort
// commands used for the rest of it.
type Mode int

const (
	Rebase Mode = iota + 1
	Merge
)

func (m Mode) String() string {
	switch m {
	case Rebase:
		return "rebase"
	case Merge:
		return "merge"
	default:
		return "unknown"
	}
}

// State is the repository condition derived from git's on-disk markers and
// porcelain status. It is recomputed on every use and never cached.
type State int

const (
	StateClean State = iota
	StateDirty
	StateRebaseConflict
	StateMergeConflict
	StateRebaseClean
	StateMergeClean
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateRebaseConflict:
		return "rebase_conflict"
	case StateMergeConflict:
		return "merge_conflict"
	case StateRebaseClean:
		return "rebase_clean"
	case StateMergeClean:
		return "merge_clean"
	default:
		return "unknown"
	}
}

// InProgress reports whether a rebase or merge is stopped.
func (s State) InProgress() bool {
	_, ok := s.Mode()
	return ok
}

// Mode returns the in-progress operation, if any.
func (s State) Mode() (Mode, bool) {
	switch s {
	case StateRebaseConflict, StateRebaseClean:
		return Rebase, true
	case StateMergeConflict, StateMergeClean:
		return Merge, true
	default:
		return 0, false
	}
}

// DetectMode reads the rebase and merge markers. Both present is an
// IntegrityError; neither present returns ok == false.
func DetectMode(repo vcs.Repository) (mode Mode, ok bool, err error) {
	rebase, merge := repo.IsInRebase(), repo.IsInMerge()
	switch {
	case rebase && merge:
		return 0, false, &IntegrityError{Detail: "both rebase and merge are in progress"}
	case rebase:
		return Rebase, true, nil
	case merge:
		return Merge, true, nil
	default:
		return 0, false, nil
	}
}

// Classify derives the repository state.
func Classify(ctx context.Context, repo vcs.Repository) (State, error) {
	mode, inProgress, err := DetectMode(repo)
	if err != nil {
		return 0, err
	}

	if inProgress {
		conflicts, err := repo.ConflictedFiles(ctx)
		if err != nil {
			return 0, err
		}
		switch {
		case mode == Rebase && len(conflicts) > 0:
			return StateRebaseConflict, nil
		case mode == Rebase:
			return StateRebaseClean, nil
		case len(conflicts) > 0:
			return StateMergeConflict, nil
		default:
			return StateMergeClean, nil
		}
	}

	changes, err := repo.Status(ctx)
	if err != nil {
		return 0, err
	}
	if changes.Empty() {
		return StateClean, nil
	}
	return StateDirty, nil
}

// Abort restores the repository to its state before the operation began.
// Unstaged edits to tracked files outside the conflict set survive the
// abort; when they cannot be set aside the operation is left in progress.
func Abort(ctx context.Context, repo vcs.Repository, mode Mode) error {
	_, _, err := shelved(ctx, repo, func() (struct{}, error) {
		if mode == Merge {
			return struct{}{}, repo.AbortMerge(ctx)
		}
		return struct{}{}, repo.AbortRebase(ctx)
	})
	return err
}

func continueOp(ctx context.Context, repo vcs.Repository, mode Mode) (vcs.ContinueResult, error) {
	if mode == Merge {
		return repo.ContinueMerge(ctx)
	}
	return repo.ContinueRebase(ctx)
}
