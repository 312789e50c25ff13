package vcs

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by repository operations.
//
// These errors can be checked using errors.Is() for proper error handling:
//
//	if errors.Is(err, vcs.ErrNotInVCS) {
//	    // Handle case where we're outside any git repository
//	}
var (
	// ErrNotInVCS is returned when the operation requires being inside
	// a git repository but none was found.
	ErrNotInVCS = errors.New("not in a git repository")

	// ErrGitNotFound is returned when the git binary is not in PATH.
	ErrGitNotFound = errors.New("git binary not found in PATH")

	// ErrGitTooOld is returned when the installed git predates the
	// commands the adapter relies on.
	ErrGitTooOld = errors.New("git version too old")

	// ErrNoRemote is returned when an operation requires a remote
	// but none is configured.
	ErrNoRemote = errors.New("no remote configured")

	// ErrDetached is returned when an operation requires being on
	// a branch but HEAD is detached.
	ErrDetached = errors.New("not on a branch")

	// ErrPushRejected is returned when a push is rejected by the remote,
	// typically due to non-fast-forward updates.
	ErrPushRejected = errors.New("push rejected by remote")
)

// GitError is returned when a git subprocess exits nonzero in a way the
// adapter does not map to a result value.
type GitError struct {
	// Command is the git subcommand and its arguments.
	Command []string

	// ExitCode is the process exit status, or -1 if git never ran.
	ExitCode int

	// Stderr is the captured error output.
	Stderr string

	// Err is the underlying error, if any (for instance ErrPushRejected).
	Err error
}

func (e *GitError) Error() string {
	msg := fmt.Sprintf("git %s: exit status %d", strings.Join(e.Command, " "), e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + firstLine(stderr)
	}
	return msg
}

func (e *GitError) Unwrap() error {
	return e.Err
}

// Subcommand returns the git subcommand name ("pull", "push", ...).
func (e *GitError) Subcommand() string {
	for _, arg := range e.Command {
		if !strings.HasPrefix(arg, "-") && !strings.Contains(arg, "=") {
			return arg
		}
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// AsGitError extracts a *GitError from the chain.
func AsGitError(err error) (*GitError, bool) {
	var gitErr *GitError
	if errors.As(err, &gitErr) {
		return gitErr, true
	}
	return nil, false
}

// IsRetryable returns true if the error is likely to succeed on the next
// sync cycle. Network failures and rejected pushes usually are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Push rejections succeed after the next pull
	if errors.Is(err, ErrPushRejected) {
		return true
	}

	// Any other git failure is retried by the next tick
	if _, ok := AsGitError(err); ok {
		return true
	}

	return false
}

// IsFatal returns true if the error indicates the process cannot do any
// useful work without user intervention.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	// Not in a repository means we can't do anything
	if errors.Is(err, ErrNotInVCS) {
		return true
	}

	// Binary not available means we can't execute commands
	if errors.Is(err, ErrGitNotFound) || errors.Is(err, ErrGitTooOld) {
		return true
	}

	// Nothing to sync against
	if errors.Is(err, ErrNoRemote) {
		return true
	}

	return false
}
