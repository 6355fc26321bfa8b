package cmd

import (
	"context"
	"errors"

	"github.com/99designs/keyring"
	kerrors "github.com/PolarWolf314/credkeep/internal/errors"
	logger "github.com/PolarWolf314/credkeep/internal/logging"
	"github.com/PolarWolf314/credkeep/internal/ui"
	"github.com/PolarWolf314/credkeep/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	debug   bool
	dataDir string
	Logger  logger.Logger

	// Keyrings used instead of the OS keyrings; set only by tests.
	cipherRing keyring.Keyring
	vaultRing  keyring.Keyring

	RootCmd = &cobra.Command{
		Use:   "credkeep",
		Short: "credkeep - a local credential store backed by the OS keyring",
		Long: `credkeep keeps named credentials on disk, one file per record, with every
secret encrypted by a key held in the operating system keyring.

On every start it folds secrets left in the legacy system vault into their
records and re-encrypts records written under the former application name.

Examples:
  # Add a credential, prompting for the secret
  credkeep add GitHub

  # Add a credential from a pipe
  echo "$TOKEN" | credkeep add CI --password-stdin

  # List credentials with secrets revealed
  credkeep list --show`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
				Out:     cmd.ErrOrStderr(),
				Err:     cmd.ErrOrStderr(),
			}
			Logger.Debugf("Initializing %s with verbose=%t, debug=%t", cmd.Name(), verbose, debug)
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	RootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default $CREDKEEP_DATA_DIR or the user config directory)")

	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(addCmd)
	RootCmd.AddCommand(setCmd)
	RootCmd.AddCommand(removeCmd)
	RootCmd.AddCommand(migrateCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(ConfigCmd)
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

// setupEnvironment opens the store for a command. Startup migrations run
// unless skipMigration is set.
func setupEnvironment(ctx context.Context, skipMigration bool) (*workflows.Environment, error) {
	env, err := workflows.Setup(ctx, workflows.SetupOptions{
		DataDir:       dataDir,
		Logger:        Logger,
		CipherRing:    cipherRing,
		VaultRing:     vaultRing,
		SkipMigration: skipMigration,
	})
	if err != nil {
		if errors.Is(err, kerrors.ErrKeyringUnavailable) {
			return nil, Logger.ErrorfAndReturn("%s\n%s", ui.ErrorLine("Could not open the OS keyring: "+err.Error()),
				ui.HintLine("Set "+ui.Code.Sprint("CREDKEEP_KEYRING_BACKENDS=file")+" to use an encrypted file instead"))
		}
		return nil, Logger.ErrorfAndReturn("failed to open credential store: %v", err)
	}
	if env.Migration != nil && env.Migration.Failed() {
		Logger.WarnfAlways("Startup migration did not complete, run %s for details", ui.Code.Sprint("credkeep migrate -v"))
	}
	return env, nil
}

// GetRootCmd returns the RootCmd for testing.
func GetRootCmd() *cobra.Command {
	return RootCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	dataDir = ""
	cipherRing = nil
	vaultRing = nil
	resetListState()
	resetAddState()
	resetSetState()
	resetStatusState()
	resetConfigState()
}

// SetKeyrings replaces the OS keyrings for testing.
func SetKeyrings(cipher, vault keyring.Keyring) {
	cipherRing = cipher
	vaultRing = vault
}
