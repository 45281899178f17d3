// Package vault orchestrates the secret lifecycle: key generation,
// encryption and decryption through the external age tool, optional
// hardware wrapping of the identity key, and the guaranteed destruction
// of every ephemeral plaintext artifact those operations create.
package vault

import (
	"context"
	"os"
	"strings"

	"github.com/systmms/agevault/internal/config"
	averrors "github.com/systmms/agevault/internal/errors"
	"github.com/systmms/agevault/internal/secure"
	"github.com/systmms/agevault/internal/yubikey"
	pkgexec "github.com/systmms/agevault/pkg/exec"
)

// EncryptedSuffix is appended to the input path when no ciphertext
// path is given to Encrypt.
const EncryptedSuffix = ".age"

// plaintextKeyMarker identifies an unencrypted age identity file.
// Anything without it is assumed to be hardware-wrapped.
const plaintextKeyMarker = "AGE-SECRET-KEY-"

// publicKeyComment is the comment header age-keygen writes into the
// identity file.
const publicKeyComment = "# public key:"

// Vault owns the identity key material and composes the secure-storage
// locator, the eraser, and the optional hardware guard into the
// encrypt/decrypt operations.
type Vault struct {
	cfg      config.Config
	executor pkgexec.CommandExecutor
	guard    yubikey.Guard // nil when the hardware path is disabled
	platform secure.Platform
	eraser   *secure.Eraser
}

// New creates a vault with production wiring. The hardware guard is
// attached only when enabled in configuration; availability is probed
// lazily on first use, not here.
func New(cfg config.Config) *Vault {
	executor := pkgexec.DefaultExecutor()
	var guard yubikey.Guard
	if cfg.YubiKeyEnabled {
		guard = yubikey.NewManager(cfg, executor)
	}
	return NewWithDeps(cfg, executor, guard)
}

// NewWithDeps creates a vault with injected collaborators. Tests use
// this with a stubbed executor and the mock guard.
func NewWithDeps(cfg config.Config, executor pkgexec.CommandExecutor, guard yubikey.Guard) *Vault {
	if executor == nil {
		executor = pkgexec.DefaultExecutor()
	}
	platform := secure.CurrentPlatform()
	return &Vault{
		cfg:      cfg,
		executor: executor,
		guard:    guard,
		platform: platform,
		eraser:   secure.NewEraser(platform, executor),
	}
}

// Guard exposes the attached hardware guard, nil when disabled.
func (v *Vault) Guard() yubikey.Guard {
	return v.guard
}

// KeyFile returns the identity key path this vault operates on.
func (v *Vault) KeyFile() string {
	return v.cfg.KeyFile
}

func (v *Vault) checkAgeInstalled(ctx context.Context) error {
	if _, _, err := v.executor.Execute(ctx, "age", "--version"); err != nil {
		return averrors.CryptoError{
			Op:         "check-tools",
			Message:    "age is not installed",
			Suggestion: "Install it from https://age-encryption.org",
			Err:        err,
		}
	}
	return nil
}

// GenerateKey creates a fresh age key pair and returns the public key.
// It deliberately refuses to overwrite an existing key file: silent key
// replacement would orphan every secret encrypted to the old key.
func (v *Vault) GenerateKey(ctx context.Context) (string, error) {
	if err := v.checkAgeInstalled(ctx); err != nil {
		return "", err
	}

	if _, err := os.Stat(v.cfg.KeyFile); err == nil {
		return "", averrors.CryptoError{
			Op:         "generate-key",
			Path:       v.cfg.KeyFile,
			Message:    "key file already exists",
			Suggestion: "Delete it first if you really want a new key",
		}
	}

	if err := os.MkdirAll(v.cfg.VaultDir, 0o700); err != nil {
		return "", averrors.CryptoError{Op: "generate-key", Path: v.cfg.VaultDir, Err: err}
	}

	_, stderr, err := v.executor.Execute(ctx, "age-keygen", "-o", v.cfg.KeyFile)
	if err != nil {
		return "", averrors.CryptoError{
			Op:     "generate-key",
			Path:   v.cfg.KeyFile,
			Stderr: string(stderr),
			Err:    err,
		}
	}

	// age-keygen reports the public key on its diagnostic stream.
	publicKey := ""
	for _, line := range strings.Split(string(stderr), "\n") {
		if _, after, ok := strings.Cut(line, "public key:"); ok {
			publicKey = strings.TrimSpace(after)
			break
		}
	}
	if publicKey == "" {
		// Fall back to the comment header in the generated file.
		publicKey, _ = v.publicKeyFromKeyFile()
	}
	if publicKey == "" {
		return "", averrors.CryptoError{
			Op:      "generate-key",
			Path:    v.cfg.KeyFile,
			Message: "could not determine public key from age-keygen output",
		}
	}

	if err := os.WriteFile(v.cfg.KeyPubFile(), []byte(publicKey+"\n"), 0o644); err != nil {
		return "", averrors.CryptoError{Op: "generate-key", Path: v.cfg.KeyPubFile(), Err: err}
	}
	if err := os.Chmod(v.cfg.KeyFile, 0o600); err != nil {
		return "", averrors.CryptoError{Op: "generate-key", Path: v.cfg.KeyFile, Err: err}
	}

	return publicKey, nil
}

// PublicKey returns the vault's own recipient string, preferring the
// companion .pub file and falling back to the private key's comment
// header.
func (v *Vault) PublicKey() (string, error) {
	if data, err := os.ReadFile(v.cfg.KeyPubFile()); err == nil {
		if key := strings.TrimSpace(string(data)); key != "" {
			return key, nil
		}
	}

	if _, err := os.Stat(v.cfg.KeyFile); err != nil {
		return "", averrors.CryptoError{
			Op:         "public-key",
			Path:       v.cfg.KeyFile,
			Message:    "key file not found",
			Suggestion: "Run 'agevault init' to generate a key pair",
		}
	}

	if key, err := v.publicKeyFromKeyFile(); err == nil && key != "" {
		return key, nil
	}

	return "", averrors.CryptoError{
		Op:      "public-key",
		Path:    v.cfg.KeyFile,
		Message: "could not find a public key",
	}
}

func (v *Vault) publicKeyFromKeyFile() (string, error) {
	data, err := os.ReadFile(v.cfg.KeyFile)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, publicKeyComment) {
			return strings.TrimSpace(strings.TrimPrefix(line, publicKeyComment)), nil
		}
	}
	return "", nil
}

// Encrypt encrypts plaintextPath to ciphertextPath (default: input plus
// ".age") for the given recipient (default: the vault's own public key)
// and returns the output path.
func (v *Vault) Encrypt(ctx context.Context, plaintextPath, ciphertextPath, recipient string) (string, error) {
	if err := v.checkAgeInstalled(ctx); err != nil {
		return "", err
	}

	if _, err := os.Stat(plaintextPath); err != nil {
		return "", averrors.CryptoError{
			Op:      "encrypt",
			Path:    plaintextPath,
			Message: "input file not found",
			Err:     err,
		}
	}

	if ciphertextPath == "" {
		ciphertextPath = plaintextPath + EncryptedSuffix
	}

	if recipient == "" {
		var err error
		recipient, err = v.PublicKey()
		if err != nil {
			return "", err
		}
	}

	_, stderr, err := v.executor.Execute(ctx,
		"age", "-r", recipient, "-o", ciphertextPath, plaintextPath)
	if err != nil {
		return "", averrors.CryptoError{
			Op:     "encrypt",
			Path:   plaintextPath,
			Stderr: string(stderr),
			Err:    err,
		}
	}
	return ciphertextPath, nil
}

// Decrypt decrypts ciphertextPath and returns the plaintext path.
//
// When plaintextPath is empty the output lands in the most secure temp
// directory available (RAM-backed where the platform has one), gets
// owner-only permissions, and is best-effort memory-locked. A caller
// that names its own output path owns that file's security posture;
// no locking is attempted for it.
//
// On tool failure a caller-unspecified output file is destroyed before
// the error is returned. Every exit path also destroys any unwrapped
// key copy created for the operation.
func (v *Vault) Decrypt(ctx context.Context, ciphertextPath, plaintextPath string) (string, error) {
	if err := v.checkAgeInstalled(ctx); err != nil {
		return "", err
	}

	if _, err := os.Stat(ciphertextPath); err != nil {
		return "", averrors.CryptoError{
			Op:      "decrypt",
			Path:    ciphertextPath,
			Message: "encrypted file not found",
			Err:     err,
		}
	}

	var output *secure.Ephemeral
	outPath := plaintextPath
	if outPath == "" {
		eph, err := secure.NewEphemeral(v.platform, v.eraser, "agevault-secrets-*.json")
		if err != nil {
			return "", averrors.CryptoError{Op: "decrypt", Err: err}
		}
		output = eph
		outPath = eph.Path()
	}

	err := v.withIdentity(ctx, func(keyPath string) error {
		_, stderr, err := v.executor.Execute(ctx,
			"age", "-d", "-i", keyPath, "-o", outPath, ciphertextPath)
		if err != nil {
			return averrors.CryptoError{
				Op:     "decrypt",
				Path:   ciphertextPath,
				Stderr: string(stderr),
				Err:    err,
			}
		}
		return nil
	})
	if err != nil {
		if output != nil {
			_ = output.Release(ctx)
		}
		return "", err
	}

	if err := os.Chmod(outPath, 0o600); err != nil {
		if output != nil {
			_ = output.Release(ctx)
		}
		return "", averrors.CryptoError{Op: "decrypt", Path: outPath, Err: err}
	}

	if output != nil {
		// Swap exposure is an optimization; a failed lock is not an error.
		output.TryLock()
	}

	return outPath, nil
}

// DecryptToString decrypts ciphertextPath straight to memory, never
// creating a plaintext file for the secrets themselves. Prefer
// DecryptToBuffer unless the caller immediately parses and drops the
// plaintext.
func (v *Vault) DecryptToString(ctx context.Context, ciphertextPath string) (string, error) {
	data, err := v.decryptToBytes(ctx, ciphertextPath)
	return string(data), err
}

// DecryptToBuffer decrypts ciphertextPath into a memguard-backed
// buffer: encrypted at rest in memory and wiped on Destroy.
func (v *Vault) DecryptToBuffer(ctx context.Context, ciphertextPath string) (*secure.Buffer, error) {
	data, err := v.decryptToBytes(ctx, ciphertextPath)
	if err != nil {
		return nil, err
	}
	return secure.NewBuffer(data), nil
}

func (v *Vault) decryptToBytes(ctx context.Context, ciphertextPath string) ([]byte, error) {
	if err := v.checkAgeInstalled(ctx); err != nil {
		return nil, err
	}

	if _, err := os.Stat(ciphertextPath); err != nil {
		return nil, averrors.CryptoError{
			Op:      "decrypt",
			Path:    ciphertextPath,
			Message: "encrypted file not found",
			Err:     err,
		}
	}

	var plaintext []byte
	err := v.withIdentity(ctx, func(keyPath string) error {
		stdout, stderr, err := v.executor.Execute(ctx,
			"age", "-d", "-i", keyPath, ciphertextPath)
		if err != nil {
			return averrors.CryptoError{
				Op:     "decrypt",
				Path:   ciphertextPath,
				Stderr: string(stderr),
				Err:    err,
			}
		}
		plaintext = stdout
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}
