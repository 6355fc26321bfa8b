package cmd

import (
	"fmt"

	"github.com/PolarWolf314/credkeep/internal/ui"
	"github.com/PolarWolf314/credkeep/internal/utils"
	"github.com/PolarWolf314/credkeep/internal/workflows"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var addPasswordStdin bool

func init() {
	addCmd.Flags().BoolVar(&addPasswordStdin, "password-stdin", false, "read the secret from stdin")
}

func resetAddState() {
	addPasswordStdin = false
}

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a credential",
	Long: `Adds a credential under a new random id.

The secret is prompted for without echo, or read from stdin with
--password-stdin. Names do not need to be unique.

Examples:
  credkeep add GitHub
  echo "$TOKEN" | credkeep add CI --password-stdin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting add command")
		name := args[0]

		secret, err := readSecret(cmd, addPasswordStdin)
		if err != nil {
			return err
		}

		env, err := setupEnvironment(cmd.Context(), false)
		if err != nil {
			return err
		}

		id := uuid.NewString()
		Logger.Debugf("Generated id %s for %q", id, name)

		if err := workflows.Save(cmd.Context(), env, workflows.SaveOptions{
			ID:       id,
			Name:     name,
			Password: secret,
		}); err != nil {
			return Logger.ErrorfAndReturn("failed to save record: %v", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.SuccessLine("Added "+ui.Highlight.Sprint(name)+" "+ui.Muted.Sprint(id)))
		return nil
	},
}

// readSecret reads a secret from the command's stdin or prompts for it on
// the terminal.
func readSecret(cmd *cobra.Command, fromStdin bool) (string, error) {
	if fromStdin {
		Logger.Debugf("Reading secret from stdin")
		data, err := utils.ReadInput(cmd.InOrStdin())
		if err != nil {
			return "", Logger.ErrorfAndReturn("failed to read secret: %v", err)
		}
		return string(data), nil
	}

	if !utils.IsTerminal() {
		return "", Logger.ErrorfAndReturn("stdin is not a terminal, use %s to pipe the secret", ui.Flag.Sprint("--password-stdin"))
	}

	data, err := utils.ReadPassphrase("Secret: ")
	if err != nil {
		return "", Logger.ErrorfAndReturn("failed to read secret: %v", err)
	}
	if len(data) == 0 {
		return "", Logger.ErrorfAndReturn("secret cannot be empty")
	}
	return string(data), nil
}
