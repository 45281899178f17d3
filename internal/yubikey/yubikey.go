// Package yubikey integrates a YubiKey PIV slot as an optional
// hardware guard around the vault's age identity.
//
// All hardware access goes through two external tools: ykman for
// device management and age-plugin-yubikey for the age recipient and
// identity of the configured slot. Both are invoked as subprocesses
// through pkg/exec, so tests run against a stubbed executor with no
// hardware present.
package yubikey

import (
	"context"
	"strings"

	"github.com/systmms/agevault/internal/config"
	averrors "github.com/systmms/agevault/internal/errors"
	"github.com/systmms/agevault/internal/secure"
	pkgexec "github.com/systmms/agevault/pkg/exec"
)

// recipientPrefix starts the recipient line in age-plugin-yubikey
// --list output.
const recipientPrefix = "age1yubikey1"

// Guard is the capability set the vault needs from a hardware token.
// Manager implements it against real hardware; MockManager simulates
// it in memory for tests.
type Guard interface {
	// Available reports whether the guard can be used right now:
	// enabled in configuration, management tool installed, and a
	// device physically present. Every sub-check fails closed.
	Available(ctx context.Context) bool

	// WrapKey encrypts an age private key to the token's recipient.
	WrapKey(ctx context.Context, privateKey string) ([]byte, error)

	// UnwrapKey decrypts a wrapped age private key. May require a PIN
	// entry and a physical touch, both driven by the external tooling.
	UnwrapKey(ctx context.Context, wrapped []byte) (string, error)

	// VerifyPIN and ChangePIN return false on any failure, including
	// "device not available". They never return an error.
	VerifyPIN(ctx context.Context, pin string) bool
	ChangePIN(ctx context.Context, oldPIN, newPIN string) bool
}

// Manager drives a physical YubiKey.
//
// Presence probes are cached per instance after the first successful
// check; there is deliberately no invalidation path. A caller that
// needs fresh hardware state constructs a new Manager.
type Manager struct {
	cfg      config.Config
	executor pkgexec.CommandExecutor
	platform secure.Platform
	eraser   *secure.Eraser

	ykmanInstalled *bool
	devicePresent  *bool
}

// NewManager creates a guard for the configured slot. A nil executor
// selects the production subprocess executor.
func NewManager(cfg config.Config, executor pkgexec.CommandExecutor) *Manager {
	if executor == nil {
		executor = pkgexec.DefaultExecutor()
	}
	platform := secure.CurrentPlatform()
	return &Manager{
		cfg:      cfg,
		executor: executor,
		platform: platform,
		eraser:   secure.NewEraser(platform, executor),
	}
}

func (m *Manager) checkManagerInstalled(ctx context.Context) bool {
	if m.ykmanInstalled != nil {
		return *m.ykmanInstalled
	}
	_, _, err := m.executor.Execute(ctx, "ykman", "--version")
	installed := err == nil
	m.ykmanInstalled = &installed
	m.cfg.Logger.Debug("ykman installed: %t", installed)
	return installed
}

func (m *Manager) checkDevicePresent(ctx context.Context) bool {
	if m.devicePresent != nil {
		return *m.devicePresent
	}
	if !m.checkManagerInstalled(ctx) {
		present := false
		m.devicePresent = &present
		return false
	}
	_, stderr, err := m.executor.Execute(ctx, "ykman", "info")
	present := err == nil
	m.devicePresent = &present
	if !present {
		m.cfg.Logger.Debug("yubikey detection failed: %s", strings.TrimSpace(string(stderr)))
	}
	return present
}

func (m *Manager) checkPluginInstalled(ctx context.Context) bool {
	_, _, err := m.executor.Execute(ctx, "age-plugin-yubikey", "--version")
	return err == nil
}

// Available implements Guard.
func (m *Manager) Available(ctx context.Context) bool {
	if !m.cfg.YubiKeyEnabled {
		return false
	}
	if !m.checkManagerInstalled(ctx) {
		return false
	}
	return m.checkDevicePresent(ctx)
}

// recipient resolves the age recipient string for the configured slot.
func (m *Manager) recipient(ctx context.Context) (string, error) {
	stdout, stderr, err := m.executor.Execute(ctx,
		"age-plugin-yubikey", "--list", "--slot", m.cfg.YubiKeySlot)
	if err != nil {
		return "", averrors.HardwareError{
			Op:         "list-recipient",
			Stderr:     string(stderr),
			Message:    "could not read recipient for slot " + m.cfg.YubiKeySlot,
			Suggestion: "Check the slot holds a key: age-plugin-yubikey --list",
			Err:        err,
		}
	}
	for _, line := range strings.Split(string(stdout), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, recipientPrefix) {
			return line, nil
		}
	}
	return "", averrors.HardwareError{
		Op:      "list-recipient",
		Message: "no recipient found in age-plugin-yubikey output",
	}
}

// identity resolves the age identity blob for the configured slot.
func (m *Manager) identity(ctx context.Context) (string, error) {
	stdout, stderr, err := m.executor.Execute(ctx,
		"age-plugin-yubikey", "--identity", "--slot", m.cfg.YubiKeySlot)
	if err != nil {
		return "", averrors.HardwareError{
			Op:         "export-identity",
			Stderr:     string(stderr),
			Message:    "could not export identity for slot " + m.cfg.YubiKeySlot,
			Suggestion: "Check the device is inserted and the slot is initialized",
			Err:        err,
		}
	}
	return strings.TrimSpace(string(stdout)), nil
}

// GenerateIdentity creates a fresh age identity on the configured slot
// and returns its recipient. Destructive for the slot: any key already
// there is replaced, so callers confirm before invoking this.
func (m *Manager) GenerateIdentity(ctx context.Context) (string, error) {
	if !m.checkPluginInstalled(ctx) {
		return "", averrors.HardwareError{
			Op:         "generate-identity",
			Message:    "age-plugin-yubikey is not installed",
			Suggestion: "Install from https://github.com/str4d/age-plugin-yubikey",
		}
	}

	args := []string{"--generate", "--slot", m.cfg.YubiKeySlot}
	if m.cfg.YubiKeyRequireTouch {
		args = append(args, "--touch-policy", "always")
	}

	stdout, stderr, err := m.executor.Execute(ctx, "age-plugin-yubikey", args...)
	if err != nil {
		return "", averrors.HardwareError{
			Op:         "generate-identity",
			Stderr:     string(stderr),
			Message:    "could not generate an identity on slot " + m.cfg.YubiKeySlot,
			Suggestion: "Check the device is inserted and the PIN is correct",
			Err:        err,
		}
	}

	// --generate echoes the recipient among its comment output.
	for _, line := range strings.Split(string(stdout), "\n") {
		for _, field := range strings.Fields(line) {
			if strings.HasPrefix(field, recipientPrefix) {
				return field, nil
			}
		}
	}
	return m.recipient(ctx)
}

// WrapKey implements Guard. The plaintext key is piped to age on
// stdin; it never touches a file.
func (m *Manager) WrapKey(ctx context.Context, privateKey string) ([]byte, error) {
	if !m.checkPluginInstalled(ctx) {
		return nil, averrors.HardwareError{
			Op:         "wrap-key",
			Message:    "age-plugin-yubikey is not installed",
			Suggestion: "Install from https://github.com/str4d/age-plugin-yubikey",
		}
	}

	recipient, err := m.recipient(ctx)
	if err != nil {
		return nil, err
	}

	stdout, stderr, err := m.executor.ExecuteWithInput(ctx,
		[]byte(privateKey), "age", "-r", recipient)
	if err != nil {
		return nil, averrors.HardwareError{
			Op:     "wrap-key",
			Stderr: string(stderr),
			Err:    err,
		}
	}
	return stdout, nil
}

// UnwrapKey implements Guard. The slot identity is written to an
// ephemeral file for age's -i flag; the deferred Release destroys it
// whether decryption succeeds or not.
func (m *Manager) UnwrapKey(ctx context.Context, wrapped []byte) (string, error) {
	if !m.checkPluginInstalled(ctx) {
		return "", averrors.HardwareError{
			Op:         "unwrap-key",
			Message:    "age-plugin-yubikey is not installed",
			Suggestion: "Install from https://github.com/str4d/age-plugin-yubikey",
		}
	}

	identity, err := m.identity(ctx)
	if err != nil {
		return "", err
	}

	identityFile, err := secure.NewEphemeral(m.platform, m.eraser, "agevault-identity-*.age")
	if err != nil {
		return "", averrors.HardwareError{Op: "unwrap-key", Err: err}
	}
	defer func() { _ = identityFile.Release(ctx) }()

	if err := writeFile(identityFile.Path(), []byte(identity)); err != nil {
		return "", averrors.HardwareError{Op: "unwrap-key", Err: err}
	}

	stdout, stderr, err := m.executor.ExecuteWithInput(ctx,
		wrapped, "age", "-d", "-i", identityFile.Path())
	if err != nil {
		return "", averrors.HardwareError{
			Op:         "unwrap-key",
			Stderr:     string(stderr),
			Suggestion: "Insert the YubiKey and confirm the touch prompt if one appears",
			Err:        err,
		}
	}
	return string(stdout), nil
}

// VerifyPIN implements Guard.
func (m *Manager) VerifyPIN(ctx context.Context, pin string) bool {
	if !m.Available(ctx) {
		return false
	}
	_, _, err := m.executor.Execute(ctx, "ykman", "piv", "access", "verify-pin", "-P", pin)
	return err == nil
}

// ChangePIN implements Guard.
func (m *Manager) ChangePIN(ctx context.Context, oldPIN, newPIN string) bool {
	if !m.Available(ctx) {
		return false
	}
	_, _, err := m.executor.Execute(ctx, "ykman", "piv", "access", "change-pin",
		"-P", oldPIN, "-n", newPIN)
	return err == nil
}

// SlotInfo returns the key=value fields ykman reports for the
// configured slot.
func (m *Manager) SlotInfo(ctx context.Context) (map[string]string, error) {
	if !m.Available(ctx) {
		return nil, averrors.HardwareError{
			Op:      "slot-info",
			Message: "yubikey not available",
		}
	}
	stdout, stderr, err := m.executor.Execute(ctx, "ykman", "piv", "info")
	if err != nil {
		return nil, averrors.HardwareError{
			Op:     "slot-info",
			Stderr: string(stderr),
			Err:    err,
		}
	}

	info := make(map[string]string)
	for _, line := range strings.Split(string(stdout), "\n") {
		if k, v, ok := strings.Cut(line, ":"); ok {
			info[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return info, nil
}

// ExportCertificate exports the slot's certificate in PEM form.
func (m *Manager) ExportCertificate(ctx context.Context, slot string) (string, error) {
	if !m.Available(ctx) {
		return "", averrors.HardwareError{
			Op:      "export-certificate",
			Message: "yubikey not available",
		}
	}
	if slot == "" {
		slot = m.cfg.YubiKeySlot
	}
	stdout, stderr, err := m.executor.Execute(ctx,
		"ykman", "piv", "certificates", "export", slot, "-")
	if err != nil {
		return "", averrors.HardwareError{
			Op:     "export-certificate",
			Stderr: string(stderr),
			Err:    err,
		}
	}
	return strings.TrimSpace(string(stdout)), nil
}
