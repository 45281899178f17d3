package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/systmms/agevault/internal/secure"
	"github.com/systmms/agevault/internal/vault"
	"github.com/systmms/agevault/internal/yubikey"
	pkgexec "github.com/systmms/agevault/pkg/exec"
)

func NewDoctorCommand(rt *Runtime) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check vault health, tools, and security posture",
		Long: `Verify the vault's environment:

- External tools (age, age-keygen, shred)
- Key material state (missing, plaintext, hardware-wrapped)
- Secure temporary storage (RAM-backed directory availability)
- Memory-lock budget
- YubiKey hardware, when enabled`,
		RunE: func(cmd *cobra.Command, args []string) error {
			type check struct {
				Name    string
				Status  string
				Message string
			}
			var results []check
			ok := func(name, msg string) { results = append(results, check{name, "✓ ok", msg}) }
			warn := func(name, msg string) { results = append(results, check{name, "⚠ warn", msg}) }
			fail := func(name, msg string) { results = append(results, check{name, "✗ fail", msg}) }

			// External tools.
			for _, tool := range []string{"age", "age-keygen"} {
				if pkgexec.LookPath(tool) {
					ok(tool, "installed")
				} else {
					fail(tool, "not found; install from https://age-encryption.org")
				}
			}
			if pkgexec.LookPath("shred") {
				ok("shred", "installed")
			} else {
				warn("shred", "not found; secure erase falls back to plain delete")
			}

			// Key material.
			v := vault.New(rt.Config)
			if _, err := os.Stat(rt.Config.KeyFile); err != nil {
				warn("key", "no key at "+rt.Config.KeyFile+", run 'agevault init'")
			} else if wrapped, err := v.KeyIsWrapped(); err != nil {
				fail("key", err.Error())
			} else if wrapped {
				ok("key", "hardware-wrapped")
			} else {
				ok("key", "plaintext (consider 'agevault yubikey encrypt-key')")
			}

			if _, err := os.Stat(rt.Config.SecretsFile); err == nil {
				ok("secrets", rt.Config.SecretsFile)
			} else {
				warn("secrets", "no secrets file at "+rt.Config.SecretsFile)
			}

			// Secure storage.
			platform := secure.CurrentPlatform()
			if dir := secure.LocateTempDir(platform); dir != "" {
				ok("ram-storage", dir)
			} else {
				warn("ram-storage", "no RAM-backed temp dir; plaintext may touch disk")
			}
			if secure.CanLockMemory() {
				ok("mlock", fmt.Sprintf("budget %d bytes", secure.LockBudget()))
			} else {
				warn("mlock", "memory locking unavailable (RLIMIT_MEMLOCK is 0)")
			}

			// Hardware guard.
			if rt.Config.YubiKeyEnabled {
				d := yubikey.NewManager(rt.Config, nil).Diagnose(cmd.Context())
				switch {
				case !d.ManagerInstalled:
					fail("yubikey", "ykman not installed")
				case !d.DeviceDetected:
					fail("yubikey", "no device detected")
				case !d.PluginInstalled:
					warn("yubikey", "device present but age-plugin-yubikey missing")
				default:
					ok("yubikey", "slot "+d.Slot+" ready")
				}
				for _, note := range d.Notes {
					warn("yubikey", note)
				}
				if verbose && d.ManagerOutput != "" {
					fmt.Println(d.ManagerOutput)
				}
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "CHECK\tSTATUS\tMESSAGE\n")
			_, _ = fmt.Fprintf(w, "-----\t------\t-------\n")
			failures := 0
			for _, r := range results {
				if r.Status == "✗ fail" {
					failures++
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Status, r.Message)
			}
			_ = w.Flush()

			if failures > 0 {
				return fmt.Errorf("%d check(s) failed", failures)
			}
			rt.Logger.Info("All checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show raw tool output")

	return cmd
}
