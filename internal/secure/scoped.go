package secure

import (
	"context"
	"os"
)

// Ephemeral is a short-lived plaintext file bound to an operation
// scope. Acquire it, defer Release, and the file is destroyed on every
// exit path: normal return, error, or panic unwinding through the
// defer. Release is idempotent.
type Ephemeral struct {
	path      string
	ramBacked bool
	eraser    *Eraser
	released  bool
}

// NewEphemeral creates an empty owner-only file in the most secure
// temp directory the platform offers, falling back to ordinary system
// temp storage when no RAM-backed directory qualifies.
func NewEphemeral(platform Platform, eraser *Eraser, pattern string) (*Ephemeral, error) {
	dir := LocateTempDir(platform)

	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return nil, err
	}

	// CreateTemp already uses 0600; restate it in case the process
	// umask or an exotic TMPDIR mount widened the mode.
	if err := os.Chmod(name, 0o600); err != nil {
		_ = os.Remove(name)
		return nil, err
	}

	return &Ephemeral{
		path:      name,
		ramBacked: dir != "",
		eraser:    eraser,
	}, nil
}

// Path returns the file's location.
func (e *Ephemeral) Path() string {
	return e.path
}

// RAMBacked reports whether the file landed in RAM-backed storage.
func (e *Ephemeral) RAMBacked() bool {
	return e.ramBacked
}

// TryLock best-effort pins the file's pages in memory. Only attempted
// for RAM-backed files; a caller-visible false is informational.
func (e *Ephemeral) TryLock() bool {
	if !e.ramBacked {
		return false
	}
	return LockFileInMemory(e.path)
}

// Release destroys the file. Safe to call more than once.
func (e *Ephemeral) Release(ctx context.Context) error {
	if e.released {
		return nil
	}
	e.released = true
	return e.eraser.Delete(ctx, e.path)
}
