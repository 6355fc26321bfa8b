package cmd

import (
	"fmt"
	"strings"

	"github.com/PolarWolf314/credkeep/internal/migration"
	"github.com/PolarWolf314/credkeep/internal/ui"
	"github.com/PolarWolf314/credkeep/internal/workflows"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run the legacy data migrations",
	Long: `Runs the migrations that normally run on every start, and reports what they did:

  - vault:    copies secrets from the legacy system vault into records that
              are still waiting for theirs, then empties the vault
  - identity: re-encrypts records written under the former application name

Both are safe to run repeatedly. Use --verbose to follow each step.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting migrate command")

		env, err := setupEnvironment(cmd.Context(), true)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		spinner, cleanup := startSpinner("Migrating legacy data...", out)
		report := workflows.Migrate(cmd.Context(), env)
		spinner.FinalMSG = formatReport(report)
		cleanup()

		if report.Failed() {
			return Logger.ErrorfAndReturn("migration did not complete")
		}
		return nil
	},
}

func formatReport(report *migration.Report) string {
	var b strings.Builder

	if report.Failed() {
		b.WriteString(ui.ErrorLine("Migration did not complete") + "\n")
	} else {
		b.WriteString(ui.SuccessLine("Migration complete") + "\n")
	}

	if report.VaultErr != nil {
		fmt.Fprintf(&b, "  %-10s %s\n", "Vault:", ui.Error.Sprint(report.VaultErr.Error()))
	} else if v := report.Vault; v != nil {
		fmt.Fprintf(&b, "  %-10s %d found, %d merged, %d without secret, %d purged\n",
			"Vault:", v.Found, len(v.Merged), len(v.Skipped), len(v.Purged))
	}

	if report.IdentityErr != nil {
		fmt.Fprintf(&b, "  %-10s %s\n", "Identity:", ui.Error.Sprint(report.IdentityErr.Error()))
	} else if id := report.Identity; id != nil {
		fmt.Fprintf(&b, "  %-10s %d migrated, %d without secret\n",
			"Identity:", len(id.Migrated), len(id.Skipped))
	}

	return b.String()
}
