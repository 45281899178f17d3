package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/agevault/internal/plugin"
)

func NewPluginsCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect registered and loaded plugins",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List plugins loaded from the secrets file",
			RunE: func(cmd *cobra.Command, args []string) error {
				secrets, err := loadSecrets(cmd.Context(), rt)
				if err != nil {
					rt.Logger.Warn("%v", err)
					secrets = nil
				}

				manager, err := plugin.NewManager(plugin.NewRegistry(), secrets)
				if err != nil {
					return err
				}

				names := manager.Plugins()
				if len(names) == 0 {
					fmt.Println("No plugins loaded.")
					fmt.Println("Add credentials to your secrets file to enable plugins.")
					return nil
				}

				fmt.Println("Loaded plugins:")
				for _, name := range names {
					p, _ := manager.Get(name)
					fmt.Printf("  • %-15s - %s\n", name, p.Description())
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "commands",
			Short: "List dispatchable plugin commands",
			RunE: func(cmd *cobra.Command, args []string) error {
				secrets, err := loadSecrets(cmd.Context(), rt)
				if err != nil {
					rt.Logger.Warn("%v", err)
					secrets = nil
				}

				manager, err := plugin.NewManager(plugin.NewRegistry(), secrets)
				if err != nil {
					return err
				}

				names := manager.CommandNames()
				if len(names) == 0 {
					fmt.Println("No commands available.")
					return nil
				}
				fmt.Println("Available commands:")
				for _, name := range names {
					fmt.Printf("  %s\n", name)
				}
				return nil
			},
		},
	)

	return cmd
}
