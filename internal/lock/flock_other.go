//go:build !unix

package lock

import (
	"errors"
	"os"
)

var errWouldBlock = errors.New("lock would block")

// Locking is advisory and unsupported here; a second watcher is not
// detected.
func tryLock(f *os.File) error { return nil }

func unlock(f *os.File) error { return nil }
