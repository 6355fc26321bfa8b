package migration

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/credkeep/internal/store"
	"golang.org/x/sync/errgroup"
)

// IdentityResult describes one identity migration.
type IdentityResult struct {
	// Candidates is the number of records without a version.
	Candidates int

	// Migrated lists records re-encrypted under the current identity.
	Migrated []string

	// Skipped lists unversioned records with no stored secret.
	Skipped []string
}

// MigrateIdentity re-encrypts records written under the legacy identity.
//
// Records without a version are decrypted while the legacy identity is
// assumed. If any of them fails to decrypt the whole batch is abandoned and
// nothing is written. Otherwise the identity is restored and every record is
// saved again under the current identity with the current version. The
// identity is restored on every exit path.
func (m *Migrator) MigrateIdentity(ctx context.Context) (*IdentityResult, error) {
	result := &IdentityResult{}

	current := m.identity.Base()
	if current == m.legacy {
		m.log.Infof("migrateIdentity: identity is already %s", m.legacy)
		return result, nil
	}

	records, err := m.decryptLegacy(ctx, current, result)
	if err != nil {
		return result, err
	}
	if len(records) == 0 {
		m.log.Infof("migrateIdentity: no records to migrate")
		return result, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, rec := range records {
		g.Go(func() error {
			if err := m.store.Save(gctx, rec); err != nil {
				return fmt.Errorf("saving record %s: %w", rec.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	for _, rec := range records {
		result.Migrated = append(result.Migrated, rec.ID)
	}
	m.log.Infof("migrateIdentity: migrated %d records", len(records))
	return result, nil
}

// decryptLegacy decrypts every unversioned record while the legacy identity
// is assumed. The returned records are stamped with the current version.
func (m *Migrator) decryptLegacy(ctx context.Context, current string, result *IdentityResult) ([]store.Record, error) {
	m.log.Infof("migrateIdentity: changing identity from %s to %s", current, m.legacy)
	guard := m.identity.Assume(m.legacy)
	defer func() {
		guard.Release()
		m.log.Infof("migrateIdentity: changed identity back to %s", guard.Previous())
	}()

	stored, failures, err := m.store.ListStored(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	for _, f := range failures {
		m.log.Warnf("migrateIdentity: %v", f)
	}

	var candidates []store.StoredRecord
	for _, rec := range stored {
		if rec.Migrated() {
			continue
		}
		result.Candidates++
		if rec.Password == "" {
			result.Skipped = append(result.Skipped, rec.ID)
			continue
		}
		candidates = append(candidates, rec)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	m.log.Infof("migrateIdentity: found %d records to migrate", len(candidates))

	records := make([]store.Record, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, stored := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := m.store.Decrypt(stored)
			if err != nil {
				return err
			}
			v := store.CurrentVersion
			rec.Version = &v
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to migrate records: %w", err)
	}
	return records, nil
}
