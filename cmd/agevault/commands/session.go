package commands

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"github.com/systmms/agevault/internal/config"
	averrors "github.com/systmms/agevault/internal/errors"
	"github.com/systmms/agevault/internal/secure"
	"github.com/systmms/agevault/internal/vault"
	pkgexec "github.com/systmms/agevault/pkg/exec"
)

func NewSessionCommand(rt *Runtime) *cobra.Command {
	var execArgs []string

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Start a shell with the vault decrypted",
		Long: `Decrypt the secrets file into secure temporary storage and launch a
shell (or a given command) with AGEVAULT_SECRETS pointing at the
plaintext. The plaintext is securely destroyed when the child exits,
whether it exits cleanly or not.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(rt.Config.SecretsFile); err != nil {
				return averrors.UserError{
					Message:    "No encrypted secrets found at " + rt.Config.SecretsFile,
					Suggestion: "Run 'agevault init' to set up your vault",
					Err:        err,
				}
			}

			v := vault.New(rt.Config)

			rt.Logger.Info("Decrypting vault...")
			plainPath, err := v.Decrypt(cmd.Context(), rt.Config.SecretsFile, "")
			if err != nil {
				return err
			}

			eraser := secure.NewEraser(secure.CurrentPlatform(), pkgexec.DefaultExecutor())
			defer func() {
				if err := eraser.Delete(cmd.Context(), plainPath); err != nil {
					rt.Logger.Error("Failed to destroy decrypted secrets at %s: %v", plainPath, err)
				} else {
					rt.Logger.Info("Vault closed")
				}
			}()

			rt.Logger.Info("Vault decrypted")
			fmt.Println()
			fmt.Println("💡 Usage: agevault run <plugin>.<command> [args]")
			fmt.Println()

			childArgs := execArgs
			if len(childArgs) == 0 {
				shell := os.Getenv("SHELL")
				if shell == "" {
					shell = "/bin/bash"
				}
				childArgs = []string{shell}
			}

			child := exec.CommandContext(cmd.Context(), childArgs[0], childArgs[1:]...)
			child.Env = append(os.Environ(), config.EnvSecretsFile+"="+plainPath)
			child.Stdin = os.Stdin
			child.Stdout = os.Stdout
			child.Stderr = os.Stderr
			return child.Run()
		},
	}

	cmd.Flags().StringSliceVar(&execArgs, "exec", nil, "Run this command instead of a shell, then exit")

	return cmd
}
