// Package lock keeps a single watcher running per repository.
//
// The lock is an flock on a file in the system temp directory named after a
// hash of the repository root. The kernel drops the flock when the owning
// process exits, so a crashed watcher never leaves a stale lock behind. The
// file holds the owner's PID for error messages only.
//
// The file is never removed. A process that opened it before removal would
// lock the unlinked inode while a newcomer locks a fresh file at the same
// path, and both would believe they hold the lock.
package lock

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrHeld is matched by the error Acquire returns when another process
// holds the lock.
var ErrHeld = errors.New("another git-ai-sync instance is running for this repository")

// HeldError reports the process holding the lock.
type HeldError struct {
	Path string

	// PID is the holder's process ID, or 0 if it could not be read.
	PID int
}

func (e *HeldError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("%v (pid %d, lock %s)", ErrHeld, e.PID, e.Path)
	}
	return fmt.Sprintf("%v (lock %s)", ErrHeld, e.Path)
}

func (e *HeldError) Is(target error) bool {
	return target == ErrHeld
}

// Locker guards one repository. It is not safe for concurrent use.
type Locker struct {
	path string
	file *os.File
}

// New returns a Locker for repoRoot with its lock file in dir. An empty dir
// selects os.TempDir().
func New(repoRoot, dir string) *Locker {
	if dir == "" {
		dir = os.TempDir()
	}
	sum := sha256.Sum256([]byte(filepath.Clean(repoRoot)))
	name := fmt.Sprintf("git-ai-sync-%x.lock", sum[:8])
	return &Locker{path: filepath.Join(dir, name)}
}

// Path returns the lock file path.
func (l *Locker) Path() string {
	return l.path
}

// Acquire takes the lock without blocking. It returns *HeldError when
// another process owns it.
func (l *Locker) Acquire() error {
	if l.file != nil {
		return nil
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := tryLock(f); err != nil {
		f.Close()
		if errors.Is(err, errWouldBlock) {
			return &HeldError{Path: l.path, PID: readPID(l.path)}
		}
		return fmt.Errorf("failed to lock %s: %w", l.path, err)
	}

	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0)
	}

	l.file = f
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *Locker) Release() error {
	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	// Clear the PID while still holding the lock; the file stays
	_ = f.Truncate(0)
	err := unlock(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func readPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
