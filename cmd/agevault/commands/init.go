package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/agevault/internal/vault"
)

func NewInitCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the vault and generate a key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.Config.EnsureDirectories(); err != nil {
				return err
			}

			v := vault.New(rt.Config)

			if _, err := os.Stat(rt.Config.KeyFile); err == nil {
				publicKey, err := v.PublicKey()
				if err != nil {
					return err
				}
				rt.Logger.Info("Key already exists: %s", rt.Config.KeyFile)
				fmt.Printf("Public key: %s\n", publicKey)
				return nil
			}

			rt.Logger.Info("Generating new age key pair...")
			publicKey, err := v.GenerateKey(cmd.Context())
			if err != nil {
				return err
			}

			rt.Logger.Info("Key generated")
			fmt.Printf("Private key: %s\n", rt.Config.KeyFile)
			fmt.Printf("Public key:  %s\n", publicKey)
			fmt.Println()
			rt.Logger.Warn("Back up your private key to a secure location!")
			rt.Logger.Warn("If you lose this key, you CANNOT decrypt your secrets.")
			return nil
		},
	}
}
