// Package workspace provides per-send temporary directories.
//
// A Workspace lives under a fixed base directory and is named with a random
// token, so no two sends ever share one. Whoever holds the Workspace removes
// it with Close; after ownership moves to a call handle, only the handle does.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const dirPerm = 0o700

// Workspace is a temporary directory holding the files of one send attempt.
type Workspace struct {
	path  string
	valid bool
	err   error

	once     sync.Once
	closeErr error
}

// New creates base (if needed) and a fresh, uniquely named directory below it.
// Creation failures do not return an error: check IsValid and Err.
func New(base string) *Workspace {
	w := &Workspace{path: filepath.Join(base, uuid.NewString())}

	if err := os.MkdirAll(base, dirPerm); err != nil {
		w.err = fmt.Errorf("create workspace base %s: %w", base, err)
		return w
	}
	if err := os.Mkdir(w.path, dirPerm); err != nil {
		w.err = fmt.Errorf("create workspace %s: %w", w.path, err)
		return w
	}

	w.valid = true
	return w
}

// IsValid reports whether the directory was created.
func (w *Workspace) IsValid() bool { return w.valid }

// Err returns the creation error of an invalid workspace.
func (w *Workspace) Err() error { return w.err }

// Path returns the absolute directory path.
func (w *Workspace) Path() string { return w.path }

// Close removes the directory and everything in it. Only the first call does any work.
func (w *Workspace) Close() error {
	w.once.Do(func() {
		if !w.valid {
			return
		}
		if err := os.RemoveAll(w.path); err != nil {
			w.closeErr = fmt.Errorf("remove workspace %s: %w", w.path, err)
		}
	})
	return w.closeErr
}
