package migration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/PolarWolf314/credkeep/internal/store"
	"golang.org/x/sync/errgroup"
)

// VaultResult describes one vault migration.
type VaultResult struct {
	// Found is the number of secrets loaded from the vault.
	Found int

	// Merged lists the records that received their secret from the vault.
	Merged []string

	// Skipped lists header-only records with no usable secret in the vault.
	Skipped []string

	// Purged lists the vault entries removed.
	Purged []string
}

// MigrateVault merges legacy vault secrets into header-only records and then
// purges the vault.
//
// A record is header-only when its stored password is empty. Records with no
// matching vault secret, or an empty one, are left untouched. The vault is
// purged only after every merged record has been written and every record
// file with a vault secret was read, and the purge removes every loaded
// entry, matched or not.
func (m *Migrator) MigrateVault(ctx context.Context) (*VaultResult, error) {
	result := &VaultResult{}

	secrets, err := m.vault.LoadAll(ctx)
	if err != nil {
		return result, fmt.Errorf("loading vault secrets: %w", err)
	}
	if len(secrets) == 0 {
		m.log.Infof("migrateVault: no secrets found in vault")
		return result, nil
	}
	result.Found = len(secrets)
	m.log.Infof("migrateVault: found %d secrets in vault", len(secrets))

	stored, failures, err := m.store.ListStored(ctx)
	if err != nil {
		return result, fmt.Errorf("loading records: %w", err)
	}
	var unread []store.RecordError
	for _, f := range failures {
		m.log.Warnf("migrateVault: %v", f)
		if _, ok := secrets[f.ID]; ok {
			unread = append(unread, f)
		}
	}
	if len(stored) == 0 {
		m.log.Infof("migrateVault: no records found in store")
		return result, nil
	}
	m.log.Infof("migrateVault: found %d records in store", len(stored))

	var merged []store.Record
	for _, rec := range stored {
		if rec.Password != "" {
			continue
		}
		secret := secrets[rec.ID]
		if secret == "" {
			result.Skipped = append(result.Skipped, rec.ID)
			continue
		}
		merged = append(merged, store.Record{
			ID:       rec.ID,
			Name:     rec.Name,
			Password: secret,
			Version:  rec.Version,
		})
	}

	if len(merged) == 0 {
		m.log.Infof("migrateVault: no records to merge")
	} else {
		m.log.Infof("migrateVault: merging %d records", len(merged))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, rec := range merged {
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
	for _, rec := range merged {
		result.Merged = append(result.Merged, rec.ID)
	}

	// The vault may hold the only copy of an unread record's secret.
	if len(unread) > 0 {
		m.log.Warnf("migrateVault: keeping vault, %d records with vault secrets could not be read", len(unread))
		return result, unreadError(unread)
	}

	purged, err := m.purge(ctx, secrets)
	result.Purged = purged
	if err != nil {
		return result, fmt.Errorf("purging vault: %w", err)
	}
	m.log.Infof("migrateVault: deleted %d secrets from vault", len(purged))

	return result, nil
}

func unreadError(unread []store.RecordError) error {
	ids := make([]string, len(unread))
	errs := make([]error, len(unread))
	for i, f := range unread {
		ids[i] = f.ID
		errs[i] = f
	}
	sort.Strings(ids)
	return fmt.Errorf("vault not purged, unreadable records %s: %w", strings.Join(ids, ", "), errors.Join(errs...))
}

// purge deletes every vault entry in secrets. A failed delete does not stop
// the others; the first error is returned.
func (m *Migrator) purge(ctx context.Context, secrets map[string]string) ([]string, error) {
	var (
		mu     sync.Mutex
		purged []string
		g      errgroup.Group
	)
	g.SetLimit(m.concurrency)
	for id := range secrets {
		g.Go(func() error {
			if err := m.vault.Delete(ctx, id); err != nil {
				return fmt.Errorf("deleting %s: %w", id, err)
			}
			mu.Lock()
			purged = append(purged, id)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	sort.Strings(purged)
	return purged, err
}
