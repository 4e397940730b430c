package harness

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// ErrLocked is returned when another harness instance owns the workspace.
var ErrLocked = errors.New("workspace is in use by another run")

// Workspace is the directory the SUT persists replica logs into. It is recreated before
// every scenario and only read after the SUT has exited.
type Workspace struct {
	dir  string
	lock *flock.Flock
}

// NewWorkspace returns a handle on dir. Nothing is created until Reset.
func NewWorkspace(dir string) *Workspace {
	clean := filepath.Clean(dir)
	return &Workspace{
		dir:  clean,
		lock: flock.New(clean + ".lock"),
	}
}

// Dir returns the workspace path.
func (w *Workspace) Dir() string {
	return w.dir
}

// Lock takes an exclusive lock so two batch runs never share the directory.
func (w *Workspace) Lock() error {
	if err := os.MkdirAll(filepath.Dir(w.dir), 0755); err != nil {
		return errors.Wrap(err, "create workspace parent")
	}

	locked, err := w.lock.TryLock()
	if err != nil {
		return errors.Wrap(err, "lock workspace")
	}

	if !locked {
		return errors.Wrapf(ErrLocked, "%s", w.dir)
	}

	return nil
}

// Unlock releases the lock taken by Lock and removes the lock file.
func (w *Workspace) Unlock() error {
	if err := w.lock.Unlock(); err != nil {
		return errors.Wrap(err, "unlock workspace")
	}

	_ = os.Remove(w.lock.Path())
	return nil
}

// Reset deletes and recreates the directory so no stale state leaks into the next scenario.
func (w *Workspace) Reset() error {
	if err := os.RemoveAll(w.dir); err != nil {
		return errors.Wrap(err, "clear workspace")
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return errors.Wrap(err, "create workspace")
	}

	return nil
}

// Remove deletes the directory.
func (w *Workspace) Remove() error {
	return errors.Wrap(os.RemoveAll(w.dir), "remove workspace")
}

// LogFiles lists the regular files in the workspace, sorted by name, skipping the names
// in ignore.
func (w *Workspace) LogFiles(ignore ...string) ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, errors.Wrap(err, "list workspace")
	}

	files := []string{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || slices.Contains(ignore, entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(w.dir, entry.Name()))
	}

	return files, nil
}
