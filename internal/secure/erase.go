package secure

import (
	"context"
	"os"

	pkgexec "github.com/systmms/agevault/pkg/exec"
)

// Eraser destroys files so their contents cannot be recovered from
// durable storage. Strategy depends on where the file lives: RAM-backed
// files only need an unlink because the data never reached persistent
// media; everything else is handed to shred first, with a plain unlink
// fallback when shred is missing or fails.
//
// Overwrite-based erasure is unreliable on log-structured filesystems
// and flash media with wear leveling. That is a known limitation of the
// fallback, not something this type can fix.
type Eraser struct {
	platform Platform
	executor pkgexec.CommandExecutor
}

// NewEraser creates an eraser for the given platform.
func NewEraser(platform Platform, executor pkgexec.CommandExecutor) *Eraser {
	if executor == nil {
		executor = pkgexec.DefaultExecutor()
	}
	return &Eraser{platform: platform, executor: executor}
}

// Delete securely removes path. Missing files are a no-op.
func (e *Eraser) Delete(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if e.platform.IsRAMBacked(path) {
		return os.Remove(path)
	}

	if _, _, err := e.executor.Execute(ctx, "shred", "-u", path); err == nil {
		return nil
	}

	// shred unavailable or failed; best-effort plain delete.
	return os.Remove(path)
}
