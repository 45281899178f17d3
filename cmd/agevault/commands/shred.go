package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	averrors "github.com/systmms/agevault/internal/errors"
	"github.com/systmms/agevault/internal/secure"
	pkgexec "github.com/systmms/agevault/pkg/exec"
)

func NewShredCommand(rt *Runtime) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "shred <paths...>",
		Short: "Securely delete files",
		Long: `Securely delete files so their contents cannot be recovered.

Files on RAM-backed storage are simply unlinked; the data never
reached persistent media. Files on disk are overwritten with shred
before removal, falling back to plain deletion when shred is missing.

Security note: overwrite-based erasure is unreliable on SSDs with wear
leveling and on log-structured filesystems. For strong guarantees use
full-disk encryption and RAM-backed temp storage.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				fmt.Printf("Files to be securely deleted:\n")
				for _, path := range args {
					fmt.Printf("  %s\n", path)
				}
				fmt.Print("⚠️  This operation is IRREVERSIBLE. Continue? (y/N): ")
				var response string
				_, _ = fmt.Scanln(&response)
				if r := strings.ToLower(response); r != "y" && r != "yes" {
					fmt.Println("Operation cancelled")
					return nil
				}
			}

			eraser := secure.NewEraser(secure.CurrentPlatform(), pkgexec.DefaultExecutor())
			failed := 0
			for _, path := range args {
				if err := eraser.Delete(cmd.Context(), path); err != nil {
					rt.Logger.Error("Failed to delete %s: %v", path, err)
					failed++
					continue
				}
				rt.Logger.Info("Deleted: %s", path)
			}

			if failed > 0 {
				return averrors.UserError{
					Message: fmt.Sprintf("%d file(s) could not be deleted", failed),
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")

	return cmd
}
