package vault

import (
	"context"
	"os"
	"strings"

	averrors "github.com/systmms/agevault/internal/errors"
	"github.com/systmms/agevault/internal/secure"
)

// withIdentity resolves a key file age can read and runs fn with its
// path.
//
// A plaintext identity (recognized by content sniff, not metadata) is
// used in place; no temp file exists and nothing needs cleanup.
// Anything else is assumed hardware-wrapped: the guard unwraps it and
// the plaintext copy lives in an ephemeral file for exactly the
// duration of fn, destroyed by the deferred Release on every exit path.
func (v *Vault) withIdentity(ctx context.Context, fn func(keyPath string) error) error {
	data, err := os.ReadFile(v.cfg.KeyFile)
	if err != nil {
		return averrors.CryptoError{
			Op:         "resolve-key",
			Path:       v.cfg.KeyFile,
			Message:    "private key not found",
			Suggestion: "Run 'agevault init' to generate a key pair",
			Err:        err,
		}
	}

	if strings.Contains(string(data), plaintextKeyMarker) {
		return fn(v.cfg.KeyFile)
	}

	if v.guard == nil {
		return averrors.CryptoError{
			Op:         "resolve-key",
			Path:       v.cfg.KeyFile,
			Message:    "key file is hardware-wrapped but YubiKey support is disabled",
			Suggestion: "Set AGEVAULT_YUBIKEY_ENABLED=true or restore a plaintext key from backup",
		}
	}

	privateKey, err := v.guard.UnwrapKey(ctx, data)
	if err != nil {
		return averrors.CryptoError{
			Op:      "resolve-key",
			Path:    v.cfg.KeyFile,
			Message: "hardware unwrap failed",
			Err:     err,
		}
	}

	keyCopy, err := secure.NewEphemeral(v.platform, v.eraser, "agevault-key-*.txt")
	if err != nil {
		return averrors.CryptoError{Op: "resolve-key", Err: err}
	}
	defer func() { _ = keyCopy.Release(ctx) }()

	if err := os.WriteFile(keyCopy.Path(), []byte(privateKey), 0o600); err != nil {
		return averrors.CryptoError{Op: "resolve-key", Path: keyCopy.Path(), Err: err}
	}
	keyCopy.TryLock()

	return fn(keyCopy.Path())
}

// WrapKeyWithGuard replaces the plaintext identity file with a
// hardware-wrapped copy. A backup of the plaintext key is written
// first so a failure mid-wrap never leaves the user without a usable
// key; the backup path is returned for the caller to surface.
func (v *Vault) WrapKeyWithGuard(ctx context.Context) (string, error) {
	if v.guard == nil {
		return "", averrors.HardwareError{
			Op:      "wrap-key",
			Message: "no hardware guard configured",
		}
	}

	data, err := os.ReadFile(v.cfg.KeyFile)
	if err != nil {
		return "", averrors.CryptoError{
			Op:         "wrap-key",
			Path:       v.cfg.KeyFile,
			Message:    "private key not found",
			Suggestion: "Run 'agevault init' first",
			Err:        err,
		}
	}

	if !strings.Contains(string(data), plaintextKeyMarker) {
		return "", averrors.CryptoError{
			Op:      "wrap-key",
			Path:    v.cfg.KeyFile,
			Message: "key file is already wrapped",
		}
	}

	wrapped, err := v.guard.WrapKey(ctx, string(data))
	if err != nil {
		return "", err
	}

	backupPath := v.cfg.KeyFile + ".backup"
	if err := os.WriteFile(backupPath, data, 0o600); err != nil {
		return "", averrors.CryptoError{Op: "wrap-key", Path: backupPath, Err: err}
	}

	if err := os.WriteFile(v.cfg.KeyFile, wrapped, 0o600); err != nil {
		return "", averrors.CryptoError{Op: "wrap-key", Path: v.cfg.KeyFile, Err: err}
	}

	return backupPath, nil
}

// KeyIsWrapped reports whether the identity file is hardware-wrapped.
func (v *Vault) KeyIsWrapped() (bool, error) {
	data, err := os.ReadFile(v.cfg.KeyFile)
	if err != nil {
		return false, err
	}
	return !strings.Contains(string(data), plaintextKeyMarker), nil
}
