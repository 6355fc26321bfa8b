package cmd

import (
	"fmt"

	"github.com/PolarWolf314/credkeep/internal/ui"
	"github.com/PolarWolf314/credkeep/internal/workflows"
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:     "remove <id>...",
	Aliases: []string{"rm"},
	Short:   "Remove credentials",
	Long: `Removes credentials by id. Removing an id that does not exist is not an error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting remove command")

		env, err := setupEnvironment(cmd.Context(), false)
		if err != nil {
			return err
		}

		for _, id := range args {
			if err := workflows.Delete(cmd.Context(), env, workflows.DeleteOptions{ID: id}); err != nil {
				return Logger.ErrorfAndReturn("failed to remove %s: %v", id, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.SuccessLine("Removed "+ui.Muted.Sprint(id)))
		}
		return nil
	},
}
