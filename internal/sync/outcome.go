package sync

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mschirtzinger/git-ai-sync/internal/config"
	"github.com/mschirtzinger/git-ai-sync/internal/resolver"
	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

// Kind is the type of a cycle outcome.
type Kind int

const (
	NoOp Kind = iota
	Committed
	PulledClean
	ConflictResolved
	ConflictUnresolved
	Pushed
	Error
)

func (k Kind) String() string {
	switch k {
	case NoOp:
		return "no_op"
	case Committed:
		return "committed"
	case PulledClean:
		return "pulled_clean"
	case ConflictResolved:
		return "conflict_resolved"
	case ConflictUnresolved:
		return "conflict_unresolved"
	case Pushed:
		return "pushed"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorKind classifies the error behind an Error or ConflictUnresolved
// outcome.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindGit               ErrorKind = "git"
	KindResolutionService ErrorKind = "resolution_service"
	KindUnresolved        ErrorKind = "conflict_unresolved"
	KindIntegrity         ErrorKind = "integrity"
	KindConfig            ErrorKind = "config"
	KindInternal          ErrorKind = "internal"
)

// KindOf maps an error onto the taxonomy.
func KindOf(err error) ErrorKind {
	var svcErr *resolver.ServiceError
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, resolver.ErrIntegrity):
		return KindIntegrity
	case errors.Is(err, config.ErrInvalid):
		return KindConfig
	case errors.As(err, &svcErr):
		return KindResolutionService
	case errors.Is(err, resolver.ErrUnresolved):
		return KindUnresolved
	}
	if _, ok := vcs.AsGitError(err); ok {
		return KindGit
	}
	if errors.Is(err, vcs.ErrDetached) || errors.Is(err, vcs.ErrNoRemote) || errors.Is(err, vcs.ErrGitNotFound) {
		return KindGit
	}
	return KindInternal
}

// Outcome is one step result of a cycle.
type Outcome struct {
	Kind Kind

	// ErrorKind and Err are set for Error and ConflictUnresolved.
	ErrorKind ErrorKind
	Err       error
}

func (o Outcome) String() string {
	if o.Kind == Error {
		return fmt.Sprintf("error(%s)", o.ErrorKind)
	}
	return o.Kind.String()
}

// Report describes one sync cycle. Reports are logged and broadcast but
// never persisted.
type Report struct {
	Started  time.Time
	Finished time.Time

	// State is the repository state at the start of the cycle.
	State resolver.State

	Outcomes []Outcome

	// Commit is the hash of the auto-commit, if one was made.
	Commit string

	// Changes are the paths included in the auto-commit.
	Changes []string

	// Pulled lists the upstream commits brought in by a clean pull.
	Pulled []vcs.CommitInfo

	// Episode is set when a conflict was resolved.
	Episode *resolver.Episode
}

func (r *Report) add(kind Kind) {
	r.Outcomes = append(r.Outcomes, Outcome{Kind: kind})
}

func (r *Report) addErr(kind Kind, err error) {
	r.Outcomes = append(r.Outcomes, Outcome{Kind: kind, ErrorKind: KindOf(err), Err: err})
}

// Kinds returns the outcome kinds in order.
func (r Report) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		kinds = append(kinds, o.Kind)
	}
	return kinds
}

// Has reports whether the cycle produced an outcome of the given kind.
func (r Report) Has(kind Kind) bool {
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			return true
		}
	}
	return false
}

// Err returns the first error of the cycle, or nil.
func (r Report) Err() error {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}

// Failed reports whether any outcome is an error or an unresolved
// conflict.
func (r Report) Failed() bool {
	return r.Has(Error) || r.Has(ConflictUnresolved)
}

// Fatal reports whether the cycle failed in a way retrying cannot fix
// without user intervention.
func (r Report) Fatal() bool {
	for _, o := range r.Outcomes {
		if o.ErrorKind == KindIntegrity || o.ErrorKind == KindConfig {
			return true
		}
	}
	return false
}

// Duration is how long the cycle ran.
func (r Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Summary renders the outcome list, e.g. "committed, pulled_clean, pushed".
func (r Report) Summary() string {
	parts := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		parts = append(parts, o.String())
	}
	return strings.Join(parts, ", ")
}
