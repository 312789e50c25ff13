// Package daemon provides the watch loop that drives sync cycles.
//
// The daemon:
//  1. Watches the working tree for changes and feeds them to the debounce gate
//  2. Ticks on a fixed interval, reporting repository state on every tick
//  3. Runs one sync cycle per tick once the tree has been quiet long enough
//  4. Optionally streams ticks and cycle reports to the dashboard
//  5. Lets an in-flight cycle finish on shutdown
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mschirtzinger/git-ai-sync/internal/dashboard"
	"github.com/mschirtzinger/git-ai-sync/internal/debounce"
	"github.com/mschirtzinger/git-ai-sync/internal/resolver"
	reposync "github.com/mschirtzinger/git-ai-sync/internal/sync"
	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
	"github.com/mschirtzinger/git-ai-sync/internal/watcher"
)

// ErrCycleInProgress is returned by RunOnce when another cycle is running.
var ErrCycleInProgress = errors.New("sync cycle already in progress")

// Cycler runs sync cycles. *sync.Controller implements it.
type Cycler interface {
	RunCycle(ctx context.Context) reposync.Report
	Repository() vcs.Repository
}

// Tick describes one tick of the loop.
type Tick struct {
	Time time.Time

	// State is the repository state at the tick. StateErr is set when it
	// could not be classified.
	State    resolver.State
	StateErr error

	// Skipped is true when the tree was still changing.
	Skipped bool

	// LastChange is the newest observed change, zero if none.
	LastChange time.Time

	// Remaining is how long until the tree counts as quiet.
	Remaining time.Duration
}

// Config holds configuration for the daemon.
type Config struct {
	// Interval between ticks. Required.
	Interval time.Duration

	// Quiet is how long the tree must be unchanged before a cycle runs.
	// Zero means the same as Interval.
	Quiet time.Duration

	// WatchFiles enables the filesystem watcher. Without it only
	// NotifyChange feeds the debounce gate.
	WatchFiles bool

	// Dashboard, when set, is started with the daemon and receives every
	// tick and cycle report.
	Dashboard *dashboard.Server

	// OnTick and OnCycle are called from the loop goroutine.
	OnTick  func(Tick)
	OnCycle func(reposync.Report)

	// Logger for daemon activity. Nil discards it.
	Logger *slog.Logger

	// Now is the clock. Nil selects time.Now.
	Now func() time.Time
}

// Daemon orchestrates file watching and sync cycles for one repository.
type Daemon struct {
	cycler Cycler
	repo   vcs.Repository
	config Config
	logger *slog.Logger

	gate    *debounce.Gate
	watcher *watcher.FileWatcher
	handler *dashboard.Handler

	// cycle is held while a cycle runs
	cycle sync.Mutex

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a daemon. Use Start to begin watching and syncing.
func New(cycler Cycler, config Config) (*Daemon, error) {
	if cycler == nil {
		return nil, fmt.Errorf("cycler cannot be nil")
	}
	if config.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", config.Interval)
	}
	if config.Quiet <= 0 {
		config.Quiet = config.Interval
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	d := &Daemon{
		cycler: cycler,
		repo:   cycler.Repository(),
		config: config,
		logger: logger.With("component", "daemon"),
		gate:   debounce.New(config.Quiet, debounce.DefaultQueueSize),
		done:   make(chan struct{}),
	}

	if config.WatchFiles {
		w, err := watcher.New()
		if err != nil {
			return nil, err
		}
		d.watcher = w
	}

	return d, nil
}

// NotifyChange records a working tree change observed at t.
func (d *Daemon) NotifyChange(t time.Time) {
	d.gate.Signal(t)
}

// Start runs the loop until ctx is cancelled or Stop is called. The first
// tick happens immediately. A cycle in flight when the loop is cancelled
// runs to completion before Start returns.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return fmt.Errorf("daemon already started")
	}
	d.started = true
	ctx, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()
	defer close(d.done)
	defer d.cancel()

	if d.watcher != nil {
		if err := d.watcher.Start(d.repo.Root()); err != nil {
			return fmt.Errorf("failed to watch %s: %w", d.repo.Root(), err)
		}
		defer d.watcher.Stop()
	}

	if srv := d.config.Dashboard; srv != nil {
		branch, _ := d.repo.CurrentBranch(context.WithoutCancel(ctx))
		d.handler = dashboard.NewHandler(srv, d.repo.Root(), branch)
		if err := srv.Start(); err != nil {
			return err
		}
	}

	d.logger.Info("watching repository",
		"root", d.repo.Root(),
		"interval", d.config.Interval,
		"quiet_period", d.config.Quiet,
		"fs_events", d.watcher != nil)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.gate.Run(gctx)
		return nil
	})

	if d.watcher != nil {
		g.Go(func() error {
			d.forwardEvents(gctx)
			return nil
		})
	}

	if srv := d.config.Dashboard; srv != nil {
		g.Go(func() error {
			<-gctx.Done()
			return srv.Stop()
		})
	}

	g.Go(func() error {
		d.loop(gctx)
		return nil
	})

	err := g.Wait()
	d.logger.Info("watch stopped")
	return err
}

// Stop gracefully shuts down the daemon and waits for Start to return.
func (d *Daemon) Stop() {
	d.mu.Lock()
	started, cancel := d.started, d.cancel
	d.mu.Unlock()

	if !started {
		return
	}
	if cancel != nil {
		cancel()
	}
	<-d.done
}

// loop ticks until ctx is done.
func (d *Daemon) loop(ctx context.Context) {
	ticker := time.NewTicker(d.config.Interval)
	defer ticker.Stop()

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// forwardEvents feeds watcher events into the debounce gate.
func (d *Daemon) forwardEvents(ctx context.Context) {
	events, errs := d.watcher.Events(), d.watcher.Errors()
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			d.logger.Debug("file event", "op", ev.Op.String(), "path", ev.Path)
			d.gate.Signal(ev.Time)

		case err, ok := <-errs:
			if !ok {
				return
			}
			d.logger.Warn("watcher error", "error", err)
		}
	}
}

// tick reports state and runs a cycle if the tree is quiet.
func (d *Daemon) tick(ctx context.Context) {
	now := d.config.Now()

	t := Tick{Time: now}
	t.State, t.StateErr = resolver.Classify(context.WithoutCancel(ctx), d.repo)
	t.LastChange, _ = d.gate.LastChange()
	t.Skipped = !d.gate.Settled(now)
	t.Remaining = d.gate.Remaining(now)

	if t.StateErr != nil {
		d.logger.Debug("tick", "state_error", t.StateErr, "skipped", t.Skipped)
	} else {
		d.logger.Debug("tick", "state", t.State.String(), "skipped", t.Skipped, "remaining", t.Remaining)
	}
	d.publishTick(t)

	if t.Skipped {
		return
	}

	if _, err := d.RunOnce(ctx); err != nil {
		d.logger.Debug("tick skipped", "reason", err)
	}
}

func (d *Daemon) publishTick(t Tick) {
	if d.config.OnTick != nil {
		d.config.OnTick(t)
	}
	if d.handler != nil {
		quietFor := -1.0
		if !t.LastChange.IsZero() {
			quietFor = t.Time.Sub(t.LastChange).Seconds()
		}
		state := t.State.String()
		if t.StateErr != nil {
			state = "unknown"
		}
		d.handler.OnTick(dashboard.TickData{State: state, Skipped: t.Skipped, QuietFor: quietFor})
	}
}

// RunOnce runs a single cycle now, regardless of the debounce gate. It
// returns ErrCycleInProgress instead of waiting when a cycle is running.
func (d *Daemon) RunOnce(ctx context.Context) (reposync.Report, error) {
	if !d.cycle.TryLock() {
		return reposync.Report{}, ErrCycleInProgress
	}
	defer d.cycle.Unlock()

	rep := d.cycler.RunCycle(ctx)

	if rep.Has(reposync.NoOp) {
		d.logger.Debug("sync cycle", "outcomes", rep.Summary())
	} else {
		d.logger.Info("sync cycle", "outcomes", rep.Summary(), "duration", rep.Duration())
	}

	if d.config.OnCycle != nil {
		d.config.OnCycle(rep)
	}
	if d.handler != nil {
		d.handler.OnCycle(rep)
	}
	return rep, nil
}
