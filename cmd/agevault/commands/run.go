package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/agevault/internal/plugin"
)

func NewRunCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "run <plugin.command> [args...]",
		Short: "Run a plugin command against the decrypted vault",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secrets, err := loadSecrets(cmd.Context(), rt)
			if err != nil {
				return err
			}

			manager, err := plugin.NewManager(plugin.NewRegistry(), secrets)
			if err != nil {
				return err
			}

			result, err := manager.Dispatch(args[0], args[1:])
			if err != nil {
				return err
			}
			if result != "" {
				fmt.Println(result)
			}
			return nil
		},
	}
}
