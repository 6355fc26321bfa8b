package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/PolarWolf314/credkeep/internal/ui"
	"github.com/PolarWolf314/credkeep/internal/workflows"
	"github.com/spf13/cobra"
)

var statusJSONOutput bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSONOutput, "json", false, "output in JSON format")
}

func resetStatusState() {
	statusJSONOutput = false
}

type statusOutput struct {
	DataDir        string `json:"data_dir"`
	StorePath      string `json:"store_path"`
	Identity       string `json:"identity"`
	LegacyIdentity string `json:"legacy_identity"`
	Records        int    `json:"records"`
	Unmigrated     int    `json:"unmigrated"`
	HeaderOnly     int    `json:"header_only"`
	Undecryptable  int    `json:"undecryptable"`
	Unreadable     int    `json:"unreadable"`
	PendingVault   int    `json:"pending_vault"`
	VaultError     string `json:"vault_error,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health of the credential store",
	Long: `Shows where credentials are stored and how many of them need attention:

  - unmigrated:    records not yet re-encrypted under the current name
  - header-only:   records still waiting for a secret from the legacy vault
  - undecryptable: records whose secret cannot be decrypted here
  - unreadable:    record files that cannot be parsed

Nothing is migrated or changed. Use --json for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")

		env, err := setupEnvironment(cmd.Context(), true)
		if err != nil {
			return err
		}

		result, err := workflows.Status(cmd.Context(), env)
		if err != nil {
			return Logger.ErrorfAndReturn("failed to inspect store: %v", err)
		}

		out := cmd.OutOrStdout()
		if statusJSONOutput {
			return outputStatusJSON(out, result)
		}
		printStatus(out, result)
		return nil
	},
}

func outputStatusJSON(out io.Writer, result *workflows.StatusResult) error {
	output := statusOutput{
		DataDir:        result.DataDir,
		StorePath:      result.StorePath,
		Identity:       result.Identity,
		LegacyIdentity: result.LegacyIdentity,
		Records:        result.Records,
		Unmigrated:     result.Unmigrated,
		HeaderOnly:     result.HeaderOnly,
		Undecryptable:  result.Undecryptable,
		Unreadable:     result.Unreadable,
		PendingVault:   result.PendingVault,
	}
	if result.VaultErr != nil {
		output.VaultError = result.VaultErr.Error()
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return Logger.ErrorfAndReturn("Failed to marshal status to JSON: %v", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func printStatus(out io.Writer, result *workflows.StatusResult) {
	fmt.Fprintf(out, "  %-16s %s\n", "Data directory:", ui.Path.Sprint(result.DataDir))
	fmt.Fprintf(out, "  %-16s %s %s\n", "Identity:", ui.Highlight.Sprint(result.Identity),
		ui.Muted.Sprint("legacy: "+result.LegacyIdentity))
	fmt.Fprintf(out, "  %-16s %d\n", "Records:", result.Records)
	fmt.Fprintf(out, "  %-16s %s\n", "Unmigrated:", countLine(result.Unmigrated))
	fmt.Fprintf(out, "  %-16s %s\n", "Header-only:", countLine(result.HeaderOnly))
	fmt.Fprintf(out, "  %-16s %s\n", "Undecryptable:", countLine(result.Undecryptable))
	fmt.Fprintf(out, "  %-16s %s\n", "Unreadable:", countLine(result.Unreadable))

	if result.VaultErr != nil {
		fmt.Fprintf(out, "  %-16s %s\n", "Legacy vault:", ui.Error.Sprint("unavailable"))
	} else {
		fmt.Fprintf(out, "  %-16s %s\n", "Legacy vault:", countLine(result.PendingVault)+" pending")
	}

	if result.PendingVault > 0 || result.Unmigrated > result.HeaderOnly {
		fmt.Fprintln(out)
		fmt.Fprintln(out, ui.HintLine("Run "+ui.Code.Sprint("credkeep migrate")+" to bring legacy data up to date"))
	}
}

func countLine(n int) string {
	if n == 0 {
		return ui.Success.Sprint("0")
	}
	return ui.Warning.Sprint(n)
}
