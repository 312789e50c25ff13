package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mschirtzinger/git-ai-sync/internal/resolver"
	reposync "github.com/mschirtzinger/git-ai-sync/internal/sync"
	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
	"github.com/mschirtzinger/git-ai-sync/internal/vcs/vcstest"
)

// fakeCycler counts cycles and can hold one open until released.
type fakeCycler struct {
	repo *vcstest.Fake

	mu    sync.Mutex
	calls int

	started chan struct{}
	release chan struct{}
}

func newFakeCycler() *fakeCycler {
	return &fakeCycler{repo: vcstest.New()}
}

func (c *fakeCycler) RunCycle(ctx context.Context) reposync.Report {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	if c.started != nil {
		c.started <- struct{}{}
	}
	if c.release != nil {
		<-c.release
	}
	return reposync.Report{Outcomes: []reposync.Outcome{{Kind: reposync.NoOp}}}
}

func (c *fakeCycler) Repository() vcs.Repository {
	return c.repo
}

func (c *fakeCycler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(nil, Config{Interval: time.Second}); err == nil {
		t.Error("New() accepted a nil cycler")
	}
	if _, err := New(newFakeCycler(), Config{}); err == nil {
		t.Error("New() accepted a zero interval")
	}

	d, err := New(newFakeCycler(), Config{Interval: 30 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if d.gate.QuietPeriod() != 30*time.Second {
		t.Errorf("quiet period = %v, want the interval", d.gate.QuietPeriod())
	}
}

func TestTickSkipsWhileChanging(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	now := base
	var ticks []Tick

	c := newFakeCycler()
	c.repo.Changes = vcs.ChangeSet{{Path: "notes.md", Status: vcs.StatusModified, StagedCode: vcs.StatusUnmodified}}

	d, err := New(c, Config{
		Interval: time.Hour,
		Quiet:    5 * time.Second,
		OnTick:   func(t Tick) { ticks = append(ticks, t) },
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatal(err)
	}

	d.NotifyChange(base)

	now = base.Add(4 * time.Second)
	d.tick(context.Background())
	if c.count() != 0 {
		t.Fatal("cycle ran while the tree was still changing")
	}

	// The boundary is inclusive
	now = base.Add(5 * time.Second)
	d.tick(context.Background())
	if c.count() != 1 {
		t.Fatalf("cycles = %d after the quiet period, want 1", c.count())
	}

	if len(ticks) != 2 {
		t.Fatalf("got %d ticks, want 2", len(ticks))
	}
	if !ticks[0].Skipped || ticks[0].Remaining != time.Second {
		t.Errorf("first tick = %+v, want skipped with 1s remaining", ticks[0])
	}
	for i, tk := range ticks {
		if tk.State != resolver.StateDirty {
			t.Errorf("tick %d state = %v, want dirty even when skipped", i, tk.State)
		}
	}
	if ticks[1].Skipped {
		t.Error("second tick skipped")
	}
}

func TestTickReportsClassifyError(t *testing.T) {
	c := newFakeCycler()
	c.repo.InRebase = true
	c.repo.InMerge = true

	var got Tick
	d, err := New(c, Config{Interval: time.Hour, OnTick: func(t Tick) { got = t }})
	if err != nil {
		t.Fatal(err)
	}
	d.tick(context.Background())

	if !errors.Is(got.StateErr, resolver.ErrIntegrity) {
		t.Errorf("StateErr = %v, want ErrIntegrity", got.StateErr)
	}
	// The cycle still runs and reports the error itself
	if c.count() != 1 {
		t.Errorf("cycles = %d, want 1", c.count())
	}
}

func TestRunOnceRefusesOverlap(t *testing.T) {
	c := newFakeCycler()
	c.started = make(chan struct{})
	c.release = make(chan struct{})

	d, err := New(c, Config{Interval: time.Hour})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := d.RunOnce(context.Background())
		done <- err
	}()
	<-c.started

	if _, err := d.RunOnce(context.Background()); !errors.Is(err, ErrCycleInProgress) {
		t.Errorf("concurrent RunOnce() error = %v, want ErrCycleInProgress", err)
	}

	close(c.release)
	if err := <-done; err != nil {
		t.Errorf("first RunOnce() error = %v", err)
	}

	c.started = nil
	if _, err := d.RunOnce(context.Background()); err != nil {
		t.Errorf("RunOnce() after completion error = %v", err)
	}
}

func TestStartStop(t *testing.T) {
	c := newFakeCycler()
	var mu sync.Mutex
	var reports []reposync.Report

	d, err := New(c, Config{
		Interval: 10 * time.Millisecond,
		OnCycle: func(r reposync.Report) {
			mu.Lock()
			reports = append(reports, r)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 1)
	go func() { errc <- d.Start(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for c.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d cycles ran", c.count())
		}
		time.Sleep(5 * time.Millisecond)
	}

	d.Stop()
	if err := <-errc; err != nil {
		t.Errorf("Start() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reports) < 2 {
		t.Errorf("OnCycle called %d times, want at least 2", len(reports))
	}

	if err := d.Start(context.Background()); err == nil {
		t.Error("second Start() succeeded")
	}
}

func TestCancelLetsCycleFinish(t *testing.T) {
	c := newFakeCycler()
	c.started = make(chan struct{}, 1)
	c.release = make(chan struct{})

	d, err := New(c, Config{Interval: time.Hour})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- d.Start(ctx) }()

	<-c.started
	cancel()

	select {
	case <-errc:
		t.Fatal("Start() returned while a cycle was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(c.release)
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after the cycle finished")
	}
}

func TestStopWithoutStart(t *testing.T) {
	d, err := New(newFakeCycler(), Config{Interval: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	d.Stop()
}

func TestFileEventsFeedGate(t *testing.T) {
	c := newFakeCycler()
	c.repo.RootDir = t.TempDir()

	d, err := New(c, Config{Interval: time.Hour, WatchFiles: true})
	if err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 1)
	go func() { errc <- d.Start(context.Background()) }()
	defer func() {
		d.Stop()
		<-errc
	}()

	deadline := time.Now().Add(3 * time.Second)
	for i := 0; ; i++ {
		if _, ok := d.gate.LastChange(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("file change never reached the debounce gate")
		}
		// The watcher may not be registered yet; keep touching the file
		writeFile(t, filepath.Join(c.repo.RootDir, "notes.md"), fmt.Sprintf("edit %d\n", i))
		time.Sleep(20 * time.Millisecond)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
