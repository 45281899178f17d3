package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
	"github.com/systmms/agevault/cmd/agevault/commands"
	"github.com/systmms/agevault/internal/config"
	"github.com/systmms/agevault/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Wipe every memguard enclave on the way out, including the
	// panic path.
	defer memguard.Purge()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		memguard.Purge()
		os.Exit(1)
	}
}

func run() error {
	var (
		vaultDir    string
		keyFile     string
		secretsFile string
		configFile  string
		noColor     bool
		debug       bool
	)

	rt := &commands.Runtime{}

	rootCmd := &cobra.Command{
		Use:   "agevault",
		Short: "Local secrets vault - age-encrypted credentials with optional YubiKey",
		Long: `agevault stores API credentials encrypted at rest with age and exposes
them to plugin commands through a short-lived decryption window. Decrypted
material lives in RAM-backed storage where available and is securely
destroyed when each operation completes.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(debug, noColor)
			cfg, err := config.Resolve(config.Options{
				VaultDir:    vaultDir,
				KeyFile:     keyFile,
				SecretsFile: secretsFile,
				ConfigFile:  configFile,
				Logger:      logger,
			})
			if err != nil {
				return err
			}
			rt.Config = cfg
			rt.Logger = logger
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&vaultDir, "vault-dir", "", "Vault directory (default: ~/.agevault)")
	rootCmd.PersistentFlags().StringVar(&keyFile, "key", "", "Private key file (default: <vault-dir>/key.txt)")
	rootCmd.PersistentFlags().StringVar(&secretsFile, "secrets", "", "Encrypted secrets file (default: <vault-dir>/secrets.json.age)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: ~/.config/agevault/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewInitCommand(rt),
		commands.NewEncryptCommand(rt),
		commands.NewDecryptCommand(rt),
		commands.NewGetCommand(rt),
		commands.NewRunCommand(rt),
		commands.NewSessionCommand(rt),
		commands.NewPluginsCommand(rt),
		commands.NewYubiKeyCommand(rt),
		commands.NewDoctorCommand(rt),
		commands.NewShredCommand(rt),
	)

	return rootCmd.Execute()
}
