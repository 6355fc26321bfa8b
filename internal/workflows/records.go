package workflows

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	kerrors "github.com/PolarWolf314/credkeep/internal/errors"
	"github.com/PolarWolf314/credkeep/internal/store"
)

// LoadResult contains every record in the store.
type LoadResult struct {
	// Records are sorted by name, then id. Records whose secret could not be
	// decrypted carry an empty Password.
	Records []store.Record

	// Failures lists records that could not be read or decrypted.
	Failures []store.RecordError
}

// Load lists every record with its plaintext secret.
func Load(ctx context.Context, env *Environment) (*LoadResult, error) {
	result, err := env.Store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	records := result.Records
	sort.Slice(records, func(i, j int) bool {
		a, b := strings.ToLower(records[i].Name), strings.ToLower(records[j].Name)
		if a != b {
			return a < b
		}
		return records[i].ID < records[j].ID
	})

	return &LoadResult{Records: records, Failures: result.Failures}, nil
}

// SaveOptions configures the save workflow.
type SaveOptions struct {
	// ID identifies the record. The caller generates it for new records.
	ID string

	// Name is the display label.
	Name string

	// Password is the plaintext secret.
	Password string
}

// Save creates the record or replaces it in full.
func Save(ctx context.Context, env *Environment, opts SaveOptions) error {
	rec := store.Record{
		ID:       opts.ID,
		Name:     opts.Name,
		Password: opts.Password,
	}
	if err := env.Store.Save(ctx, rec); err != nil {
		return err
	}
	env.Logger.Infof("Saved record %s", opts.ID)
	return nil
}

// UpdateOptions configures the update workflow. Nil fields keep their value.
type UpdateOptions struct {
	ID       string
	Name     *string
	Password *string
}

// Update reads a record, applies the given changes and saves it in full.
//
// Returns ErrRecordNotFound if the record does not exist. Returns
// ErrDecryptFailed if the current secret cannot be read and no new one was
// given, since saving would erase it.
func Update(ctx context.Context, env *Environment, opts UpdateOptions) (*store.Record, error) {
	rec, err := env.Store.Get(ctx, opts.ID)
	switch {
	case err == nil:
	case errors.Is(err, kerrors.ErrDecryptFailed) && opts.Password != nil:
		env.Logger.Warnf("Replacing unreadable secret of record %s", opts.ID)
	default:
		return nil, err
	}

	if opts.Name != nil {
		rec.Name = *opts.Name
	}
	if opts.Password != nil {
		rec.Password = *opts.Password
	}

	if err := env.Store.Save(ctx, rec); err != nil {
		return nil, err
	}
	env.Logger.Infof("Updated record %s", opts.ID)
	return &rec, nil
}

// DeleteOptions configures the delete workflow.
type DeleteOptions struct {
	ID string
}

// Delete removes a record. Deletion is best effort: a storage failure is
// logged and not returned. Only an invalid id or a canceled context fails.
func Delete(ctx context.Context, env *Environment, opts DeleteOptions) error {
	if err := store.ValidateID(opts.ID); err != nil {
		return err
	}

	err := env.Store.Delete(ctx, opts.ID)
	switch {
	case err == nil:
		env.Logger.Infof("Deleted record %s", opts.ID)
	case errors.Is(err, kerrors.ErrStoreIO):
		env.Logger.Errorf("Failed to delete record %s: %v", opts.ID, err)
	default:
		return err
	}
	return nil
}
