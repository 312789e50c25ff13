package resolver

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnresolved is matched by every *UnresolvedError.
	ErrUnresolved = errors.New("conflict unresolved")

	// ErrIntegrity is matched by every *IntegrityError.
	ErrIntegrity = errors.New("repository integrity violation")
)

// ServiceError wraps a failure of the external resolution service:
// transport errors, timeouts, cancellation and malformed replies.
type ServiceError struct {
	// Op describes what was being attempted ("request", "parse", ...).
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("resolution service %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// UnresolvedError reports a conflict episode that ended without a usable
// resolution. Nothing from the failing round was written or staged.
type UnresolvedError struct {
	Mode Mode

	// Round is the 1-based round that failed.
	Round int

	// Files is the conflict set of the failing round.
	Files []string

	// Missing lists conflicted paths the service left out of its reply.
	Missing []string

	Reason string
	Err    error
}

func (e *UnresolvedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s conflict unresolved (round %d): %s", e.Mode, e.Round, e.Reason)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, " (missing: %s)", strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *UnresolvedError) Unwrap() error {
	return e.Err
}

func (e *UnresolvedError) Is(target error) bool {
	return target == ErrUnresolved
}

// IntegrityError reports on-disk git state that should be impossible, such
// as a rebase and a merge in progress at the same time. No git mutation is
// attempted when it is raised.
type IntegrityError struct {
	Detail string
}

func (e *IntegrityError) Error() string {
	return "repository integrity violation: " + e.Detail
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}
