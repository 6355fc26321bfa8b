package cmd

import (
	"errors"
	"fmt"

	kerrors "github.com/PolarWolf314/credkeep/internal/errors"
	"github.com/PolarWolf314/credkeep/internal/ui"
	"github.com/PolarWolf314/credkeep/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	setName          string
	setPassword      bool
	setPasswordStdin bool
)

func init() {
	setCmd.Flags().StringVar(&setName, "name", "", "new display name")
	setCmd.Flags().BoolVar(&setPassword, "password", false, "prompt for a new secret")
	setCmd.Flags().BoolVar(&setPasswordStdin, "password-stdin", false, "read the new secret from stdin")
	setCmd.MarkFlagsMutuallyExclusive("password", "password-stdin")
}

func resetSetState() {
	setName = ""
	setPassword = false
	setPasswordStdin = false
}

var setCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Change the name or secret of a credential",
	Long: `Changes the display name, the secret, or both, of an existing credential.

Examples:
  credkeep set 550e8400-e29b-41d4-a716-446655440000 --name "GitHub (work)"
  echo "$NEW_TOKEN" | credkeep set 550e8400-e29b-41d4-a716-446655440000 --password-stdin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting set command")
		id := args[0]

		opts := workflows.UpdateOptions{ID: id}
		if cmd.Flags().Changed("name") {
			opts.Name = &setName
		}
		if setPassword || setPasswordStdin {
			secret, err := readSecret(cmd, setPasswordStdin)
			if err != nil {
				return err
			}
			opts.Password = &secret
		}
		if opts.Name == nil && opts.Password == nil {
			return Logger.ErrorfAndReturn("nothing to change, pass %s, %s or %s",
				ui.Flag.Sprint("--name"), ui.Flag.Sprint("--password"), ui.Flag.Sprint("--password-stdin"))
		}

		env, err := setupEnvironment(cmd.Context(), false)
		if err != nil {
			return err
		}

		rec, err := workflows.Update(cmd.Context(), env, opts)
		switch {
		case errors.Is(err, kerrors.ErrRecordNotFound):
			return Logger.ErrorfAndReturn("no credential with id %s", id)
		case errors.Is(err, kerrors.ErrDecryptFailed):
			return Logger.ErrorfAndReturn("the stored secret of %s cannot be decrypted, set a new one with %s", id, ui.Flag.Sprint("--password"))
		case err != nil:
			return Logger.ErrorfAndReturn("failed to update record: %v", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.SuccessLine("Updated "+ui.Highlight.Sprint(rec.Name)+" "+ui.Muted.Sprint(rec.ID)))
		return nil
	},
}
