// Package resolver classifies in-progress rebase and merge states and drives
// conflict episodes to completion through an external resolution service.
//
// An episode is all-or-nothing per round: every conflicted file must come
// back resolved before any file is written or staged. When a continue stops
// on the next conflicting commit, the next round starts with the new
// conflict set. The caller aborts the operation when Resolve fails.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

const (
	// DefaultMaxRounds bounds the conflict rounds of one episode. A rebase
	// replays one commit per round, so this is also the number of
	// conflicting local commits an episode can get through.
	DefaultMaxRounds = 10

	// DefaultTimeout bounds a single service request.
	DefaultTimeout = 2 * time.Minute

	// DefaultHistoryDepth is how many recent commits go with each request.
	DefaultHistoryDepth = 10
)

// ConflictFile is one entry of the conflict set sent to the service.
type ConflictFile struct {
	Path string

	// Content is the working tree content with conflict markers.
	Content string

	// Missing is set when the file does not exist in the working tree,
	// which happens when one side deleted it.
	Missing bool

	Hunks []Hunk
}

// ConflictSet is the ordered list of files of one round.
type ConflictSet []ConflictFile

// Paths returns the conflicted paths in order.
func (c ConflictSet) Paths() []string {
	paths := make([]string, 0, len(c))
	for _, f := range c {
		paths = append(paths, f.Path)
	}
	return paths
}

// Request is sent to the service once per round.
type Request struct {
	Mode          Mode
	Files         ConflictSet
	RecentCommits []vcs.CommitInfo
}

// ResolvedFile is the service's answer for one path.
type ResolvedFile struct {
	Path    string
	Content string

	// Delete resolves the conflict by removing the file.
	Delete bool
}

// Response is the service's answer for a whole round.
type Response struct {
	Files []ResolvedFile
}

// Service resolves a conflict set. Implementations must honour ctx.
type Service interface {
	Resolve(ctx context.Context, req Request) (Response, error)
}

// Config tunes a Resolver.
type Config struct {
	// Timeout bounds each service request. Zero selects DefaultTimeout.
	Timeout time.Duration

	// MaxRounds bounds the rounds per episode. Zero selects
	// DefaultMaxRounds.
	MaxRounds int

	// HistoryDepth is the number of recent commits sent as context. Zero
	// selects DefaultHistoryDepth.
	HistoryDepth int

	// Logger receives progress records. Nil discards them.
	Logger *slog.Logger
}

// Episode summarizes a successful resolution.
type Episode struct {
	Mode   Mode
	Rounds int

	// Files lists every path resolved across all rounds.
	Files []string
}

// Resolver drives conflict episodes on one repository.
type Resolver struct {
	repo    vcs.Repository
	service Service
	cfg     Config
	logger  *slog.Logger
}

// New creates a Resolver.
func New(repo vcs.Repository, service Service, cfg Config) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.HistoryDepth <= 0 {
		cfg.HistoryDepth = DefaultHistoryDepth
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		repo:    repo,
		service: service,
		cfg:     cfg,
		logger:  logger.With("component", "resolver"),
	}
}

// Resolve runs one episode for the in-progress operation of the given mode
// until the operation completes. It never aborts; on error the repository
// is left mid-operation for the caller to abort.
//
// Git commands run to completion even if ctx is cancelled. Only the
// service call observes ctx, and a cancelled call fails the episode.
func (r *Resolver) Resolve(ctx context.Context, mode Mode) (*Episode, error) {
	gitCtx := context.WithoutCancel(ctx)
	ep := &Episode{Mode: mode}

	for round := 1; ; round++ {
		if round > r.cfg.MaxRounds {
			return nil, &UnresolvedError{
				Mode:   mode,
				Round:  round - 1,
				Reason: fmt.Sprintf("still conflicted after %d rounds", r.cfg.MaxRounds),
			}
		}
		ep.Rounds = round

		paths, err := r.repo.ConflictedFiles(gitCtx)
		if err != nil {
			return nil, err
		}

		if len(paths) > 0 {
			if err := r.resolveRound(ctx, mode, round, paths); err != nil {
				return nil, err
			}
			for _, p := range paths {
				if !slices.Contains(ep.Files, p) {
					ep.Files = append(ep.Files, p)
				}
			}
		}

		res, kept, err := shelved(gitCtx, r.repo, func() (vcs.ContinueResult, error) {
			return continueOp(gitCtx, r.repo, mode)
		})
		if len(kept) > 0 {
			r.logger.Debug("kept local edits across continue", "mode", mode.String(), "files", kept)
		}
		if err != nil {
			return nil, err
		}
		if len(res.Conflicts) > 0 {
			r.logger.Info("continue stopped on further conflicts",
				"mode", mode.String(), "round", round, "files", res.Conflicts)
			continue
		}
		if !res.Done {
			// The continue moved on without finishing and without new
			// conflicts; go around and look again.
			continue
		}

		return ep, nil
	}
}

// resolveRound collects, resolves, validates, writes and stages one
// conflict set.
func (r *Resolver) resolveRound(ctx context.Context, mode Mode, round int, paths []string) error {
	gitCtx := context.WithoutCancel(ctx)

	set, err := r.collect(paths)
	if err != nil {
		return err
	}

	history, err := r.repo.CommitLog(gitCtx, vcs.LogRange{Limit: r.cfg.HistoryDepth})
	if err != nil {
		// History is context only
		r.logger.Warn("failed to read recent commits", "error", err)
		history = nil
	}

	r.logger.Info("requesting conflict resolution",
		"mode", mode.String(), "round", round, "files", paths)

	resp, err := r.callService(ctx, Request{Mode: mode, Files: set, RecentCommits: history})
	if err != nil {
		return &UnresolvedError{
			Mode:   mode,
			Round:  round,
			Files:  paths,
			Reason: "resolution service failed",
			Err:    err,
		}
	}

	resolved, verr := validate(paths, resp)
	if verr != nil {
		verr.Mode, verr.Round, verr.Files = mode, round, paths
		return verr
	}

	// Every path is accounted for; apply them all, then stage them all
	for _, path := range paths {
		f := resolved[path]
		if f.Delete {
			err = r.repo.RemoveFile(path)
		} else {
			err = r.repo.WriteFile(path, []byte(f.Content))
		}
		if err != nil {
			return fmt.Errorf("failed to apply resolution for %s: %w", path, err)
		}
	}
	for _, path := range paths {
		if err := r.repo.StageFile(gitCtx, path); err != nil {
			return err
		}
	}

	r.logger.Info("applied conflict resolution", "mode", mode.String(), "round", round, "files", paths)
	return nil
}

// collect reads the conflicted content of every path.
func (r *Resolver) collect(paths []string) (ConflictSet, error) {
	set := make(ConflictSet, 0, len(paths))
	for _, path := range paths {
		data, ok, err := r.repo.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read conflicted file %s: %w", path, err)
		}
		content := string(data)
		set = append(set, ConflictFile{
			Path:    path,
			Content: content,
			Missing: !ok,
			Hunks:   ParseHunks(content),
		})
	}
	return set, nil
}

// callService runs the request under the configured timeout. Any failure,
// including cancellation of ctx, comes back as *ServiceError.
func (r *Resolver) callService(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, &ServiceError{Op: "request", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := r.service.Resolve(ctx, req)
	if err != nil {
		var svcErr *ServiceError
		if errors.As(err, &svcErr) {
			return Response{}, err
		}
		return Response{}, &ServiceError{Op: "request", Err: err}
	}

	r.logger.Debug("resolution service replied", "elapsed", time.Since(start), "files", len(resp.Files))
	return resp, nil
}

// validate checks that resp covers exactly the requested paths and that no
// resolved content still carries conflict markers.
func validate(paths []string, resp Response) (map[string]ResolvedFile, *UnresolvedError) {
	byPath := make(map[string]ResolvedFile, len(resp.Files))
	for _, f := range resp.Files {
		if _, dup := byPath[f.Path]; dup {
			return nil, &UnresolvedError{Reason: fmt.Sprintf("duplicate resolution for %s", f.Path)}
		}
		byPath[f.Path] = f
	}

	var missing []string
	for _, p := range paths {
		if _, ok := byPath[p]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return nil, &UnresolvedError{Reason: "incomplete resolution", Missing: missing}
	}

	for _, f := range resp.Files {
		if !slices.Contains(paths, f.Path) {
			return nil, &UnresolvedError{Reason: fmt.Sprintf("resolution for unexpected path %s", f.Path)}
		}
		if !f.Delete && HasMarkers(f.Content) {
			return nil, &UnresolvedError{Reason: fmt.Sprintf("resolution for %s still contains conflict markers", f.Path)}
		}
	}

	return byPath, nil
}
