package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/PolarWolf314/credkeep/internal/ui"
	"github.com/PolarWolf314/credkeep/internal/utils"
	"github.com/PolarWolf314/credkeep/internal/workflows"
	"github.com/spf13/cobra"
)

const maxNameWidth = 32

var (
	listShow bool
	listJSON bool
)

func init() {
	listCmd.Flags().BoolVarP(&listShow, "show", "s", false, "reveal secrets instead of masking them")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output in JSON format")
}

func resetListState() {
	listShow = false
	listJSON = false
}

type listEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type listFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type listOutput struct {
	Records  []listEntry   `json:"records"`
	Failures []listFailure `json:"failures,omitempty"`
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored credentials",
	Long: `Lists every stored credential, sorted by name.

Secrets are masked unless --show is given. A record whose secret cannot be
decrypted is still listed, with an empty secret, and reported below the list.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting list command")

		env, err := setupEnvironment(cmd.Context(), false)
		if err != nil {
			return err
		}

		result, err := workflows.Load(cmd.Context(), env)
		if err != nil {
			return Logger.ErrorfAndReturn("failed to load records: %v", err)
		}
		Logger.Debugf("Loaded %d records with %d failures", len(result.Records), len(result.Failures))

		out := cmd.OutOrStdout()
		if listJSON {
			return outputListJSON(out, result)
		}
		printList(out, result)
		return nil
	},
}

func displaySecret(secret string) string {
	if listShow {
		return secret
	}
	return utils.MaskSecret(secret)
}

func outputListJSON(out io.Writer, result *workflows.LoadResult) error {
	output := listOutput{Records: make([]listEntry, 0, len(result.Records))}
	for _, rec := range result.Records {
		output.Records = append(output.Records, listEntry{
			ID:       rec.ID,
			Name:     rec.Name,
			Password: displaySecret(rec.Password),
		})
	}
	for _, f := range result.Failures {
		output.Failures = append(output.Failures, listFailure{ID: f.ID, Error: f.Err.Error()})
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return Logger.ErrorfAndReturn("Failed to marshal records to JSON: %v", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func printList(out io.Writer, result *workflows.LoadResult) {
	if len(result.Records) == 0 && len(result.Failures) == 0 {
		fmt.Fprintln(out, ui.WarningLine("No credentials stored yet."))
		fmt.Fprintln(out, ui.HintLine("Run "+ui.Code.Sprint("credkeep add <name>")+" to add one"))
		return
	}

	width := 0
	for _, rec := range result.Records {
		if n := utf8.RuneCountInString(utils.Truncate(rec.Name, maxNameWidth)); n > width {
			width = n
		}
	}

	for _, rec := range result.Records {
		name := utils.Truncate(rec.Name, maxNameWidth)
		pad := width - utf8.RuneCountInString(name)
		secret := displaySecret(rec.Password)
		if secret == "" {
			secret = ui.Muted.Sprint("no secret")
		} else if listShow {
			secret = ui.Secret.Sprint(secret)
		}
		fmt.Fprintf(out, "  %s%*s  %s  %s\n", ui.Highlight.Sprint(name), pad, "", ui.Muted.Sprint(rec.ID), secret)
	}

	if len(result.Failures) > 0 {
		fmt.Fprintln(out)
		for _, f := range result.Failures {
			fmt.Fprintln(out, ui.WarningLine(f.Error()))
		}
	}
}
