package yubikey

import (
	"context"
	"os"
	"strings"
)

// Diagnostics is a non-throwing aggregate of everything worth knowing
// when the hardware path misbehaves. Every field is filled best-effort;
// collecting it never fails.
type Diagnostics struct {
	Enabled          bool
	Slot             string
	ManagerInstalled bool
	PluginInstalled  bool
	DeviceDetected   bool
	ManagerOutput    string
	ManagerStderr    string
	PCSCAvailable    bool
	Notes            []string
}

// Diagnose collects the current hardware state for troubleshooting.
func (m *Manager) Diagnose(ctx context.Context) Diagnostics {
	d := Diagnostics{
		Enabled:          m.cfg.YubiKeyEnabled,
		Slot:             m.cfg.YubiKeySlot,
		ManagerInstalled: m.checkManagerInstalled(ctx),
		PluginInstalled:  m.checkPluginInstalled(ctx),
		PCSCAvailable:    true,
	}

	if d.ManagerInstalled {
		stdout, stderr, err := m.executor.Execute(ctx, "ykman", "info")
		d.DeviceDetected = err == nil
		d.ManagerOutput = strings.TrimSpace(string(stdout))
		d.ManagerStderr = strings.TrimSpace(string(stderr))
		if strings.Contains(d.ManagerStderr, "PC/SC not available") {
			d.PCSCAvailable = false
			d.Notes = append(d.Notes, "PC/SC smart-card service is not running")
		}
	}

	if runningUnderWSL() {
		d.Notes = append(d.Notes,
			"WSL detected: USB smart-card passthrough is unavailable; use the Windows age-plugin-yubikey.exe binary")
	}

	return d
}

// runningUnderWSL detects the Windows Subsystem for Linux, where the
// smart-card subsystem the YubiKey needs does not exist.
func runningUnderWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), "microsoft")
}

// writeFile writes data with owner-only permissions from the first byte.
func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o600)
}
