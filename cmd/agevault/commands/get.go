package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	averrors "github.com/systmms/agevault/internal/errors"
)

func NewGetCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "get <plugin> <field>",
		Short: "Print a single credential value",
		Long: `Print one credential from the decrypted secrets document.

The document is decrypted straight into protected memory; no plaintext
file is created. The value goes to stdout for piping into other tools.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			secrets, err := loadSecrets(cmd.Context(), rt)
			if err != nil {
				return err
			}

			section, ok := secrets[args[0]]
			if !ok {
				return averrors.UserError{
					Message:    fmt.Sprintf("No credentials for '%s'", args[0]),
					Suggestion: "Run 'agevault plugins list' to see configured sections",
				}
			}

			value, ok := section[args[1]]
			if !ok {
				return averrors.UserError{
					Message: fmt.Sprintf("'%s' has no field '%s'", args[0], args[1]),
				}
			}

			fmt.Printf("%v\n", value)
			return nil
		},
	}
}
