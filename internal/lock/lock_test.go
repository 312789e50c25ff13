package lock

import (
	"errors"
	"os"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	l := New("/home/user/notes", dir)

	if !strings.HasPrefix(l.Path(), dir) || !strings.HasSuffix(l.Path(), ".lock") {
		t.Errorf("Path() = %q", l.Path())
	}

	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != strconv.Itoa(os.Getpid()) {
		t.Errorf("lock file = %q, want our pid", data)
	}

	// Acquire is idempotent for the holder
	if err := l.Acquire(); err != nil {
		t.Errorf("second Acquire() error = %v", err)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if data, err := os.ReadFile(l.Path()); err != nil || len(data) != 0 {
		t.Errorf("lock file after Release() = %q, %v; want it kept and empty", data, err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("Release() of an unheld lock = %v", err)
	}
}

func TestAcquireHeld(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("flock not available")
	}
	dir := t.TempDir()
	first := New("/repo", dir)
	second := New("/repo", dir)

	if err := first.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer first.Release()

	err := second.Acquire()
	if !errors.Is(err, ErrHeld) {
		t.Fatalf("Acquire() error = %v, want ErrHeld", err)
	}
	var held *HeldError
	if !errors.As(err, &held) || held.PID != os.Getpid() {
		t.Errorf("HeldError = %+v, want our pid", held)
	}

	if err := first.Release(); err != nil {
		t.Fatal(err)
	}
	if err := second.Acquire(); err != nil {
		t.Errorf("Acquire() after release error = %v", err)
	}
	second.Release()
}

func TestDistinctRepositories(t *testing.T) {
	dir := t.TempDir()
	a := New("/repo/a", dir)
	b := New("/repo/b", dir)
	if a.Path() == b.Path() {
		t.Fatal("different repositories share a lock file")
	}
	if err := a.Acquire(); err != nil {
		t.Fatal(err)
	}
	defer a.Release()
	if err := b.Acquire(); err != nil {
		t.Errorf("Acquire() for another repository error = %v", err)
	}
	b.Release()
}

func TestReleaseKeepsSingleHolder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("flock not available")
	}
	dir := t.TempDir()
	first := New("/repo", dir)
	if err := first.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// A second process has opened the lock file and is about to lock it
	waiting, err := os.OpenFile(first.Path(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	defer waiting.Close()

	if err := first.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := tryLock(waiting); err != nil {
		t.Fatalf("waiting process failed to lock after release: %v", err)
	}
	defer unlock(waiting)

	third := New("/repo", dir)
	if err := third.Acquire(); !errors.Is(err, ErrHeld) {
		third.Release()
		t.Fatalf("Acquire() error = %v, want ErrHeld while the waiting process holds the lock", err)
	}
}
