package workflows

import (
	"context"
	"errors"
	"fmt"

	kerrors "github.com/PolarWolf314/credkeep/internal/errors"
	"github.com/PolarWolf314/credkeep/internal/migration"
)

// Migrate runs the vault and identity migrations again. Failures are in the
// returned report.
func Migrate(ctx context.Context, env *Environment) *migration.Report {
	return env.Migrator.Run(ctx)
}

// StatusResult describes the state of the store and the legacy vault.
type StatusResult struct {
	DataDir        string
	StorePath      string
	Identity       string
	LegacyIdentity string

	// Records is the number of readable record files.
	Records int

	// Unmigrated counts records not yet stamped by the identity migration.
	Unmigrated int

	// HeaderOnly counts records still waiting for a secret.
	HeaderOnly int

	// Undecryptable counts records whose secret cannot be decrypted.
	Undecryptable int

	// Unreadable counts record files that could not be read or parsed.
	Unreadable int

	// PendingVault counts entries still in the legacy vault. It is -1 when
	// the vault could not be read, with the reason in VaultErr.
	PendingVault int
	VaultErr     error
}

// Status inspects the store and the legacy vault without changing either.
// Every store count comes from one listing of the record files.
func Status(ctx context.Context, env *Environment) (*StatusResult, error) {
	cfg := env.Settings.Config
	result := &StatusResult{
		DataDir:        env.Settings.DataDir,
		StorePath:      env.Settings.StorePath,
		Identity:       env.Identity.Name(),
		LegacyIdentity: cfg.Identity.Legacy,
	}

	stored, failures, err := env.Store.ListStored(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	result.Records = len(stored)
	result.Unreadable = len(failures)
	for _, rec := range stored {
		if !rec.Migrated() {
			result.Unmigrated++
		}
		if rec.Password == "" {
			result.HeaderOnly++
			continue
		}
		if _, err := env.Store.Decrypt(rec); errors.Is(err, kerrors.ErrDecryptFailed) {
			result.Undecryptable++
		}
	}

	pending, err := env.Vault.LoadAll(ctx)
	if err != nil {
		env.Logger.Warnf("Could not read legacy vault: %v", err)
		result.PendingVault = -1
		result.VaultErr = err
	} else {
		result.PendingVault = len(pending)
	}

	return result, nil
}
