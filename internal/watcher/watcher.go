// Package watcher reports file changes inside a git working tree.
//
// fsnotify watches single directories, so the watcher registers every
// directory under the root on Start and picks up directories created later.
// Events for git metadata, editor temp files and hidden files are dropped.
package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	// OpCreate indicates a new file was created.
	OpCreate EventOp = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file was deleted or renamed away.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// FileEvent is a change to a tracked-looking file.
type FileEvent struct {
	// Path is the absolute path to the file that changed.
	Path string
	// Op is the operation that occurred.
	Op EventOp
	// Time is when the watcher observed the event.
	Time time.Time
}

// FileWatcher watches a working tree recursively.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	events  chan FileEvent
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	closed  bool
	root    string
	dirs    map[string]struct{}
	now     func() time.Time
}

// New creates a FileWatcher. It must be started with Start before it emits
// events.
func New() (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: w,
		events:  make(chan FileEvent, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
		dirs:    make(map[string]struct{}),
		now:     time.Now,
	}, nil
}

// Start begins watching root and every directory below it except .git.
func (fw *FileWatcher) Start(root string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return fmt.Errorf("watcher already running")
	}
	if fw.closed {
		return fmt.Errorf("watcher already stopped")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	fw.root = abs

	if err := fw.addTree(abs); err != nil {
		return err
	}

	fw.running = true
	fw.wg.Add(1)
	go fw.processEvents()

	return nil
}

// addTree registers dir and its subdirectories. Caller holds fw.mu.
func (fw *FileWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Directories can vanish between the event and the walk
			if errors.Is(err, fs.ErrNotExist) && path != dir {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", path, err)
		}
		fw.dirs[path] = struct{}{}
		return nil
	})
}

// Stop stops watching and closes the event channels. It blocks until the
// event processing goroutine has exited.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if fw.closed {
		fw.mu.Unlock()
		return nil
	}
	fw.running = false
	fw.closed = true
	fw.mu.Unlock()

	// Signal shutdown
	close(fw.done)

	// Close the underlying watcher (this will unblock the event loop)
	err := fw.watcher.Close()

	// Wait for event processing to finish
	fw.wg.Wait()

	// Close channels
	close(fw.events)
	close(fw.errors)

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Events returns the channel that emits FileEvent notifications.
// This channel is closed when the watcher is stopped.
func (fw *FileWatcher) Events() <-chan FileEvent {
	return fw.events
}

// Errors returns the channel that emits error notifications.
// This channel is closed when the watcher is stopped.
func (fw *FileWatcher) Errors() <-chan error {
	return fw.errors
}

// IsRunning returns true if the watcher is currently running.
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.running
}

// processEvents converts fsnotify events until Stop is called.
func (fw *FileWatcher) processEvents() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			fileEvent, ok := fw.convertEvent(event)
			if !ok {
				continue
			}
			select {
			case fw.events <- fileEvent:
			case <-fw.done:
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}

			select {
			case fw.errors <- err:
			case <-fw.done:
				return
			}
		}
	}
}

// convertEvent maps an fsnotify event to a FileEvent. Directory events
// are consumed here: new directories are added to the watch list and
// removed ones dropped from it.
func (fw *FileWatcher) convertEvent(event fsnotify.Event) (FileEvent, bool) {
	if ShouldIgnore(event.Name) {
		return FileEvent{}, false
	}

	if fw.handleDirectory(event) {
		return FileEvent{}, false
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// A rename shows up as a delete here and a create for the new name
		op = OpDelete
	default:
		// Ignore chmod
		return FileEvent{}, false
	}

	return FileEvent{Path: event.Name, Op: op, Time: fw.now()}, true
}

// handleDirectory reports whether the event concerned a directory.
func (fw *FileWatcher) handleDirectory(event fsnotify.Event) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if _, ok := fw.dirs[event.Name]; ok {
			delete(fw.dirs, event.Name)
			return true
		}
		return false
	}

	if !event.Has(fsnotify.Create) {
		return false
	}
	info, err := os.Lstat(event.Name)
	if err != nil || !info.IsDir() {
		return false
	}
	if fw.running {
		if err := fw.addTree(event.Name); err != nil {
			select {
			case fw.errors <- err:
			default:
			}
		}
	}
	return true
}

// ShouldIgnore reports whether a change to path should not count as
// activity: anything inside .git, editor backups and swap files, and
// hidden files.
func ShouldIgnore(path string) bool {
	slashed := filepath.ToSlash(path)
	if strings.Contains(slashed, "/.git/") || strings.HasSuffix(slashed, "/.git") || slashed == ".git" {
		return true
	}

	if strings.HasSuffix(path, "~") || strings.HasSuffix(path, ".swp") || strings.HasSuffix(path, ".tmp") {
		return true
	}

	return strings.HasPrefix(filepath.Base(path), ".")
}
