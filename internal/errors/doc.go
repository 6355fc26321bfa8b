// Package errors provides typed error values for credkeep.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Record errors: missing or malformed records (ErrRecordNotFound, ErrInvalidRecordID)
//   - Crypto errors: encryption/decryption failures (ErrDecryptFailed, ErrKeyringUnavailable)
//   - Storage errors: filesystem and vault failures (ErrStoreIO, ErrVaultUnavailable)
//
// # Usage
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("reading record %s: %w", id, errors.ErrRecordNotFound)
//
// Handle them in the CLI layer:
//
//	record, err := env.Store.Get(ctx, id)
//	if errors.Is(err, kerrors.ErrRecordNotFound) {
//	    // Show user-friendly message
//	}
package errors
