package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/agevault/internal/secure"
	"github.com/systmms/agevault/internal/vault"
	pkgexec "github.com/systmms/agevault/pkg/exec"
)

func NewEncryptCommand(rt *Runtime) *cobra.Command {
	var (
		output    string
		recipient string
		shred     bool
	)

	cmd := &cobra.Command{
		Use:   "encrypt <file>",
		Short: "Encrypt a file to the vault's public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := vault.New(rt.Config)

			rt.Logger.Info("Encrypting %s...", args[0])
			outPath, err := v.Encrypt(cmd.Context(), args[0], output, recipient)
			if err != nil {
				return err
			}
			rt.Logger.Info("Encrypted to: %s", outPath)
			fmt.Println(outPath)

			if shred {
				rt.Logger.Info("Securely deleting original...")
				eraser := secure.NewEraser(secure.CurrentPlatform(), pkgexec.DefaultExecutor())
				if err := eraser.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: <file>.age)")
	cmd.Flags().StringVarP(&recipient, "recipient", "r", "", "Encrypt to this recipient instead of the vault key")
	cmd.Flags().BoolVar(&shred, "shred", false, "Securely delete the original after encryption")

	return cmd
}
