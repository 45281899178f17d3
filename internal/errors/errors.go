// Package errors defines the error taxonomy for vault operations.
//
// Two hard-failure kinds exist: CryptoError for key lifecycle and
// encrypt/decrypt failures, and HardwareError for YubiKey-path failures.
// Both carry the external tool's diagnostic output so CLI callers can show
// the root cause without re-running anything. Soft-failure operations
// (PIN verify/change, memory locking, secure temp-dir probing) never
// return errors at all; they report a negative result instead.
package errors

import (
	"fmt"
	"strings"
)

// CryptoError represents a failure in the core encryption layer:
// missing tools, missing or pre-existing key files, or a non-zero
// exit from age/age-keygen.
type CryptoError struct {
	Op         string // operation that failed, e.g. "decrypt", "generate-key"
	Path       string // file the operation was acting on, if any
	Stderr     string // diagnostic output from the external tool
	Message    string
	Suggestion string
	Err        error
}

func (e CryptoError) Error() string {
	var parts []string

	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("%s failed: %s", e.Op, msg))
	} else {
		parts = append(parts, msg)
	}

	if e.Path != "" {
		parts = append(parts, "\n  Path: "+e.Path)
	}
	if e.Stderr != "" {
		parts = append(parts, "\n  Tool output: "+strings.TrimSpace(e.Stderr))
	}
	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e CryptoError) Unwrap() error {
	return e.Err
}

// HardwareError represents a YubiKey-path failure: device unavailable,
// plugin tool missing, or a wrap/unwrap rejected by the token.
type HardwareError struct {
	Op         string
	Stderr     string
	Message    string
	Suggestion string
	Err        error
}

func (e HardwareError) Error() string {
	var parts []string

	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("yubikey %s failed: %s", e.Op, msg))
	} else {
		parts = append(parts, msg)
	}

	if e.Stderr != "" {
		parts = append(parts, "\n  Tool output: "+strings.TrimSpace(e.Stderr))
	}
	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e HardwareError) Unwrap() error {
	return e.Err
}

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// WrapToolNotFound wraps a missing external tool error with install guidance.
func WrapToolNotFound(tool string, err error) error {
	suggestions := map[string]string{
		"age":                "Install age from https://age-encryption.org or your package manager",
		"age-keygen":         "age-keygen ships with age: https://age-encryption.org",
		"ykman":              "Install YubiKey Manager: pip install yubikey-manager",
		"age-plugin-yubikey": "Install from https://github.com/str4d/age-plugin-yubikey",
		"shred":              "shred is part of GNU coreutils",
	}

	suggestion := suggestions[tool]
	if suggestion == "" {
		suggestion = fmt.Sprintf("Make sure '%s' is installed and in your PATH", tool)
	}

	return UserError{
		Message:    fmt.Sprintf("Required tool '%s' not found", tool),
		Suggestion: suggestion,
		Err:        err,
	}
}
