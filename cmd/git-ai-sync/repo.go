package main

import (
	"context"
	"fmt"

	"github.com/mschirtzinger/git-ai-sync/internal/ai"
	"github.com/mschirtzinger/git-ai-sync/internal/lock"
	"github.com/mschirtzinger/git-ai-sync/internal/resolver"
	reposync "github.com/mschirtzinger/git-ai-sync/internal/sync"
	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
	"github.com/mschirtzinger/git-ai-sync/internal/vcs/git"
)

// pathArg returns the optional repository path argument.
func pathArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// openRepo checks the git installation and opens the repository at or
// above path.
func openRepo(ctx context.Context, path string) (*git.Git, error) {
	if _, err := vcs.LookPath(); err != nil {
		return nil, err
	}
	v, err := vcs.GitVersion(ctx)
	if err != nil {
		return nil, err
	}
	if err := vcs.CheckGitVersion(v); err != nil {
		return nil, err
	}
	return git.Open(path)
}

// session is an opened repository holding the process lock, with a sync
// controller wired to it.
type session struct {
	repo       *git.Git
	lock       *lock.Locker
	resolver   *resolver.Resolver
	controller *reposync.Controller
}

// openSession opens the repository, requires a remote, takes the
// per-repository lock and builds the controller. The resolver is nil when
// no API key is configured.
func openSession(ctx context.Context, path string) (*session, error) {
	repo, err := openRepo(ctx, path)
	if err != nil {
		return nil, err
	}
	if !repo.HasRemote(ctx) {
		return nil, fmt.Errorf("%w: add one with 'git remote add origin <url>'", vcs.ErrNoRemote)
	}

	l := lock.New(repo.Root(), "")
	if err := l.Acquire(); err != nil {
		return nil, err
	}

	res, err := newResolver(repo)
	if err != nil {
		l.Release()
		return nil, err
	}

	ctrl := reposync.New(repo, res, reposync.Config{
		CommitPrefix: cfg.CommitPrefix,
		Logger:       logger,
	})

	logger.Debug("repository opened", "root", repo.Root(), "lock", l.Path(), "resolver", res != nil)
	return &session{repo: repo, lock: l, resolver: res, controller: ctrl}, nil
}

func newResolver(repo vcs.Repository) (*resolver.Resolver, error) {
	if !cfg.HasAPIKey() {
		logger.Warn("no API key configured, conflicts will be aborted instead of resolved")
		return nil, nil
	}
	client, err := ai.New(ai.Config{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		MaxTokens:  cfg.MaxTokens,
		MaxRetries: 2,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return resolver.New(repo, client, resolver.Config{
		Timeout:   cfg.ResolveTimeoutDuration(),
		MaxRounds: cfg.MaxResolveRounds,
		Logger:    logger,
	}), nil
}

func (s *session) Close() {
	if err := s.lock.Release(); err != nil {
		logger.Warn("failed to release lock", "path", s.lock.Path(), "error", err)
	}
}
