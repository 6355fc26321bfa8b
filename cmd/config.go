package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/PolarWolf314/credkeep/internal/configs"
	"github.com/PolarWolf314/credkeep/internal/ui"
	"github.com/spf13/cobra"
)

var (
	configShowJSON  bool
	configInitForce bool

	// ConfigCmd is the top-level config command.
	ConfigCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage credkeep configuration",
		Long: `Provides commands for inspecting and creating the configuration file.

Settings are read from config.toml in the data directory and may be
overridden by CREDKEEP_IDENTITY, CREDKEEP_KEYRING_BACKENDS and
CREDKEEP_KEYRING_FILE_DIR.

Examples:
  # Write a config file with the default settings
  credkeep config init

  # Show the effective configuration
  credkeep config show`,
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			Logger.Infof("Starting config show command")

			settings, err := configs.ResolveSettings(dataDir)
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to load configuration: %v", err)
			}
			Logger.Debugf("Loaded configuration from %s", settings.ConfigPath)

			out := cmd.OutOrStdout()
			if configShowJSON {
				return outputConfigJSON(out, settings.Config)
			}
			return outputConfigText(out, settings)
		},
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			Logger.Infof("Starting config init command")

			dir, err := configs.ResolveDataDir(dataDir)
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to determine data directory: %v", err)
			}
			path := configs.ConfigPath(dir)
			out := cmd.OutOrStdout()

			_, err = os.Stat(path)
			switch {
			case err == nil && !configInitForce:
				fmt.Fprintln(out, ui.WarningLine("Configuration already exists at "+ui.Path.Sprint(path)))
				fmt.Fprintln(out, ui.HintLine("Use "+ui.Flag.Sprint("--force")+" to overwrite it"))
				return nil
			case err != nil && !errors.Is(err, os.ErrNotExist):
				return Logger.ErrorfAndReturn("Failed to check %s: %v", path, err)
			}

			if err := configs.SaveConfig(path, configs.DefaultConfig()); err != nil {
				return Logger.ErrorfAndReturn("Failed to write configuration: %v", err)
			}
			fmt.Fprintln(out, ui.SuccessLine("Wrote "+ui.Path.Sprint(path)))
			return nil
		},
	}
)

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing configuration file")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configInitCmd)
}

func resetConfigState() {
	configShowJSON = false
	configInitForce = false
}

func outputConfigJSON(out io.Writer, config configs.Config) error {
	output, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return Logger.ErrorfAndReturn("Failed to marshal config to JSON: %v", err)
	}
	fmt.Fprintln(out, string(output))
	return nil
}

func outputConfigText(out io.Writer, settings *configs.Settings) error {
	source := ui.Muted.Sprint("defaults")
	if _, err := os.Stat(settings.ConfigPath); err == nil {
		source = ui.Path.Sprint(settings.ConfigPath)
	}
	fmt.Fprintf(out, "# Effective configuration, from %s\n", source)

	if err := toml.NewEncoder(out).Encode(settings.Config); err != nil {
		return Logger.ErrorfAndReturn("Failed to encode configuration: %v", err)
	}
	return nil
}
