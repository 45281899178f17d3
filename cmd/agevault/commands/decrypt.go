package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/agevault/internal/vault"
)

func NewDecryptCommand(rt *Runtime) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "decrypt <file>",
		Short: "Decrypt a file with the vault's private key",
		Long: `Decrypt a file with the vault's private key.

Without --output the plaintext lands in the most secure temporary
location available (RAM-backed where the host has one). That file is
NOT cleaned up automatically; shred it when you are done:

  agevault shred <path>`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := vault.New(rt.Config)

			rt.Logger.Info("Decrypting %s...", args[0])
			outPath, err := v.Decrypt(cmd.Context(), args[0], output)
			if err != nil {
				return err
			}
			rt.Logger.Info("Decrypted to: %s", outPath)
			fmt.Println(outPath)

			if output == "" {
				rt.Logger.Warn("Plaintext is in temporary storage; run 'agevault shred %s' when done", outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: secure temp file)")

	return cmd
}
