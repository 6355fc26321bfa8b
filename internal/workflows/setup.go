package workflows

import (
	"context"
	"fmt"

	"github.com/99designs/keyring"
	"github.com/PolarWolf314/credkeep/internal/configs"
	"github.com/PolarWolf314/credkeep/internal/identity"
	logger "github.com/PolarWolf314/credkeep/internal/logging"
	"github.com/PolarWolf314/credkeep/internal/migration"
	"github.com/PolarWolf314/credkeep/internal/secrets"
	"github.com/PolarWolf314/credkeep/internal/store"
	"github.com/PolarWolf314/credkeep/internal/vault"
)

// SetupOptions configures the setup workflow.
type SetupOptions struct {
	// DataDir overrides the data directory. Empty means $CREDKEEP_DATA_DIR or
	// the per-user default.
	DataDir string

	// Logger receives diagnostics from every component.
	Logger logger.Logger

	// CipherRing holds the at-rest key material. Nil opens the OS keyring
	// configured under [keyring].
	CipherRing keyring.Keyring

	// VaultRing is the legacy secret vault. Nil opens the OS keyring
	// configured under [vault].
	VaultRing keyring.Keyring

	// SkipMigration disables the startup migrations for this run.
	SkipMigration bool
}

// Environment is everything a workflow needs, built once per process.
type Environment struct {
	Settings *configs.Settings
	Logger   logger.Logger
	Identity *identity.Identity
	Cipher   *secrets.SafeStorage
	Store    *store.Store
	Vault    *vault.Vault
	Migrator *migration.Migrator

	// Migration is the report of the startup migrations, or nil when they
	// did not run.
	Migration *migration.Report
}

// Setup resolves settings, opens the keyrings and the record store, and runs
// the startup migrations unless they are disabled.
//
// Migration failures are logged and recorded in Environment.Migration; they
// never fail Setup.
func Setup(ctx context.Context, opts SetupOptions) (*Environment, error) {
	log := opts.Logger

	settings, err := configs.ResolveSettings(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving settings: %w", err)
	}
	cfg := settings.Config
	log.Debugf("Data directory: %s", settings.DataDir)
	log.Debugf("Identity: %s (legacy %s)", cfg.Identity.Name, cfg.Identity.Legacy)

	cipherRing := opts.CipherRing
	if cipherRing == nil {
		cipherRing, err = secrets.OpenKeyring(secrets.KeyringOptions{
			Service:  cfg.Keyring.Service,
			Backends: cfg.Keyring.Backends,
			FileDir:  cfg.Keyring.FileDir,
		})
		if err != nil {
			return nil, err
		}
	}

	vaultRing := opts.VaultRing
	if vaultRing == nil {
		vaultRing, err = secrets.OpenKeyring(secrets.KeyringOptions{
			Service:  cfg.Vault.Service,
			Backends: cfg.Keyring.Backends,
			FileDir:  cfg.Keyring.FileDir,
		})
		if err != nil {
			return nil, err
		}
	}

	id := identity.New(cfg.Identity.Name)
	cipher := secrets.NewSafeStorage(cipherRing, id)

	st, err := store.Open(settings.StorePath, cipher, store.WithLogger(log))
	if err != nil {
		return nil, err
	}

	v := vault.New(vaultRing, log)

	env := &Environment{
		Settings: settings,
		Logger:   log,
		Identity: id,
		Cipher:   cipher,
		Store:    st,
		Vault:    v,
		Migrator: migration.New(st, v, id, cfg.Identity.Legacy, migration.WithLogger(log)),
	}

	switch {
	case cfg.Migration.Disabled:
		log.Debugf("Startup migrations disabled in %s", settings.ConfigPath)
	case opts.SkipMigration:
		log.Debugf("Startup migrations skipped")
	default:
		env.Migration = env.Migrator.Run(ctx)
	}

	return env, nil
}
