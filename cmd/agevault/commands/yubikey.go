package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	averrors "github.com/systmms/agevault/internal/errors"
	"github.com/systmms/agevault/internal/vault"
	"github.com/systmms/agevault/internal/yubikey"
)

func NewYubiKeyCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "yubikey",
		Short: "YubiKey management and key wrapping",
	}

	cmd.AddCommand(
		newYubiKeySetupCommand(rt),
		newYubiKeyStatusCommand(rt),
		newYubiKeyEncryptKeyCommand(rt),
		newYubiKeyDecryptKeyCommand(rt),
		newYubiKeyVerifyPINCommand(rt),
		newYubiKeyChangePINCommand(rt),
	)

	return cmd
}

func newYubiKeySetupCommand(rt *Runtime) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Generate an age identity on the configured PIV slot",
		Long: `Generate a new age identity on the YubiKey's PIV slot.

This REPLACES any key already stored in the slot. Secrets wrapped to the
old slot key become undecryptable, so keep plaintext key backups until
you have re-wrapped everything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := yubikey.NewManager(rt.Config, nil)
			d := manager.Diagnose(cmd.Context())

			if !d.ManagerInstalled {
				return averrors.HardwareError{
					Op:         "setup",
					Message:    "ykman not installed",
					Suggestion: "Install with: pip install yubikey-manager",
				}
			}
			if !d.DeviceDetected {
				return averrors.HardwareError{Op: "setup", Message: "no YubiKey detected"}
			}
			if !d.PluginInstalled {
				return averrors.HardwareError{
					Op:         "setup",
					Message:    "age-plugin-yubikey not installed",
					Suggestion: "Install from https://github.com/str4d/age-plugin-yubikey",
				}
			}

			if !force {
				fmt.Printf("⚠️  This will REPLACE any key in slot %s. Continue? (y/N): ", rt.Config.YubiKeySlot)
				var response string
				_, _ = fmt.Scanln(&response)
				if r := strings.ToLower(response); r != "y" && r != "yes" {
					fmt.Println("Operation cancelled")
					return nil
				}
			}

			rt.Logger.Info("Generating identity on slot %s (touch the key if prompted)...", rt.Config.YubiKeySlot)
			recipient, err := manager.GenerateIdentity(cmd.Context())
			if err != nil {
				return err
			}

			rt.Logger.Info("Identity created")
			fmt.Printf("Recipient: %s\n", recipient)
			fmt.Println("Next: run 'agevault yubikey encrypt-key' to wrap your vault key.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")

	return cmd
}

func newYubiKeyStatusCommand(rt *Runtime) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check YubiKey hardware and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := yubikey.NewManager(rt.Config, nil)
			d := manager.Diagnose(cmd.Context())

			if !d.ManagerInstalled {
				rt.Logger.Error("ykman CLI not found")
				fmt.Println("   Install with: pip install yubikey-manager")
				return averrors.HardwareError{Op: "status", Message: "ykman not installed"}
			}
			if !d.DeviceDetected {
				rt.Logger.Error("No YubiKey detected")
				if d.ManagerStderr != "" {
					fmt.Printf("   %s\n", d.ManagerStderr)
				}
				return averrors.HardwareError{Op: "status", Message: "no device detected"}
			}
			rt.Logger.Info("YubiKey detected")

			if d.PluginInstalled {
				rt.Logger.Info("age-plugin-yubikey installed")
			} else {
				rt.Logger.Warn("age-plugin-yubikey not found")
				fmt.Println("   Install from: https://github.com/str4d/age-plugin-yubikey")
			}

			fmt.Println()
			fmt.Println("📋 Configuration:")
			fmt.Printf("   Enabled: %t\n", rt.Config.YubiKeyEnabled)
			fmt.Printf("   Slot: %s\n", rt.Config.YubiKeySlot)
			fmt.Printf("   Require touch: %t\n", rt.Config.YubiKeyRequireTouch)
			fmt.Printf("   PIN prompt: %t\n", rt.Config.YubiKeyPINPrompt)

			for _, note := range d.Notes {
				rt.Logger.Warn("%s", note)
			}

			if info, err := manager.SlotInfo(cmd.Context()); err == nil && len(info) > 0 {
				fmt.Printf("\n🔑 PIV info:\n")
				for k, v := range info {
					fmt.Printf("   %s: %s\n", k, v)
				}
			}

			if verbose {
				pem, err := manager.ExportCertificate(cmd.Context(), "")
				if err != nil {
					rt.Logger.Warn("Could not export slot certificate: %v", err)
				} else if pem != "" {
					fmt.Printf("\n📜 Slot %s certificate:\n%s\n", rt.Config.YubiKeySlot, pem)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show the slot certificate")

	return cmd
}

func newYubiKeyEncryptKeyCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt-key",
		Short: "Wrap the age private key with the YubiKey",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := vault.NewWithDeps(rt.Config, nil, yubikey.NewManager(rt.Config, nil))

			rt.Logger.Info("Encrypting age key with YubiKey...")
			backupPath, err := v.WrapKeyWithGuard(cmd.Context())
			if err != nil {
				return err
			}

			rt.Logger.Info("Original key backed up to: %s", backupPath)
			rt.Logger.Info("Age key encrypted with YubiKey")
			fmt.Printf("Encrypted key saved to: %s\n", v.KeyFile())
			fmt.Println("Keep the backup safe in case the YubiKey is lost.")
			return nil
		},
	}
}

func newYubiKeyDecryptKeyCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt-key",
		Short: "Test unwrapping the age key (requires PIN/touch)",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := vault.NewWithDeps(rt.Config, nil, yubikey.NewManager(rt.Config, nil))

			wrapped, err := v.KeyIsWrapped()
			if err != nil {
				return averrors.CryptoError{
					Op:      "decrypt-key",
					Path:    v.KeyFile(),
					Message: "key file not found",
					Err:     err,
				}
			}
			if !wrapped {
				rt.Logger.Warn("Key file is already plaintext; nothing to test")
				return nil
			}

			rt.Logger.Info("Testing YubiKey decryption...")
			data, err := os.ReadFile(v.KeyFile())
			if err != nil {
				return err
			}
			key, err := v.Guard().UnwrapKey(cmd.Context(), data)
			if err != nil {
				return err
			}
			// The unwrapped key stays in memory only; report shape, not content.
			kind := "unknown"
			if strings.Contains(key, "AGE-SECRET-KEY-") {
				kind = "age"
			}
			rt.Logger.Info("Decryption successful")
			fmt.Printf("Key type: %s\n", kind)
			fmt.Printf("Key length: %d chars\n", len(key))
			return nil
		},
	}
}

func newYubiKeyVerifyPINCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-pin <pin>",
		Short: "Verify the PIV PIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := yubikey.NewManager(rt.Config, nil)
			if manager.VerifyPIN(cmd.Context(), args[0]) {
				rt.Logger.Info("PIN verified successfully")
				return nil
			}
			return averrors.HardwareError{Op: "verify-pin", Message: "PIN verification failed"}
		},
	}
}

func newYubiKeyChangePINCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "change-pin <old-pin> <new-pin>",
		Short: "Change the PIV PIN",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := yubikey.NewManager(rt.Config, nil)
			if manager.ChangePIN(cmd.Context(), args[0], args[1]) {
				rt.Logger.Info("PIN changed successfully")
				return nil
			}
			return averrors.HardwareError{
				Op:         "change-pin",
				Message:    "PIN change failed",
				Suggestion: "Make sure the old PIN is correct",
			}
		},
	}
}
