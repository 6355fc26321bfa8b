// Package migration brings data left behind by earlier releases into the
// current record store format.
//
// Two procedures exist, both safe to run on every startup:
//
//   - MigrateVault moves secrets out of the legacy system vault into the
//     records still waiting for them, then purges the vault.
//   - MigrateIdentity re-encrypts records that were written while the
//     process ran under the legacy application identity.
//
// Run executes both in order and only logs failures.
package migration

import (
	"context"

	"github.com/PolarWolf314/credkeep/internal/identity"
	logger "github.com/PolarWolf314/credkeep/internal/logging"
	"github.com/PolarWolf314/credkeep/internal/store"
)

// DefaultConcurrency bounds concurrent store and vault calls in a batch.
const DefaultConcurrency = 16

// RecordStore is the part of the record store the migrations need.
type RecordStore interface {
	ListStored(ctx context.Context) ([]store.StoredRecord, []store.RecordError, error)
	Decrypt(stored store.StoredRecord) (store.Record, error)
	Save(ctx context.Context, rec store.Record) error
}

// SecretVault is the part of the legacy vault the migrations need.
type SecretVault interface {
	LoadAll(ctx context.Context) (map[string]string, error)
	Delete(ctx context.Context, id string) error
}

// Migrator runs the startup migrations.
type Migrator struct {
	store    RecordStore
	vault    SecretVault
	identity *identity.Identity
	legacy   string
	log      logger.Logger

	concurrency int
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithLogger sets the logger for migration progress.
func WithLogger(l logger.Logger) Option {
	return func(m *Migrator) { m.log = l }
}

// WithConcurrency bounds concurrent calls within a batch.
func WithConcurrency(n int) Option {
	return func(m *Migrator) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// New returns a Migrator. legacyIdentity is the application identity that
// older records may have been encrypted under.
func New(st RecordStore, v SecretVault, id *identity.Identity, legacyIdentity string, opts ...Option) *Migrator {
	m := &Migrator{
		store:       st,
		vault:       v,
		identity:    id,
		legacy:      legacyIdentity,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Report collects the outcome of Run.
type Report struct {
	Vault       *VaultResult
	VaultErr    error
	Identity    *IdentityResult
	IdentityErr error
}

// Failed reports whether either migration returned an error.
func (r *Report) Failed() bool {
	return r.VaultErr != nil || r.IdentityErr != nil
}

// Run performs the vault migration and then the identity migration. Errors
// are logged and recorded in the report, never returned.
func (m *Migrator) Run(ctx context.Context) *Report {
	report := &Report{}

	report.Vault, report.VaultErr = m.MigrateVault(ctx)
	if report.VaultErr != nil {
		m.log.Errorf("migrateVault: %v", report.VaultErr)
		m.log.Warnf("Vault migration failed, legacy secrets were left in place")
	}

	report.Identity, report.IdentityErr = m.MigrateIdentity(ctx)
	if report.IdentityErr != nil {
		m.log.Errorf("migrateIdentity: %v", report.IdentityErr)
		m.log.Warnf("Identity migration failed, affected records stay unreadable until it succeeds")
	}

	return report
}
