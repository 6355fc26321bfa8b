// Package workflows provides high-level orchestration for credkeep commands.
//
// Workflows coordinate the configuration, keyring, record store, legacy vault
// and migration packages to implement complete user-facing features. Each
// workflow handles a single command's business logic, independent of CLI
// concerns like flag parsing, spinners, and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Calls Setup once, then the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else:
//   - Resolving settings and opening the keyrings
//   - Running the startup migrations exactly once
//   - Reading and writing records
//
// # Available Workflows
//
//   - Setup: Builds the Environment every other workflow runs against
//   - Load: Lists every record with its plaintext secret
//   - Save: Creates or replaces a record
//   - Update: Changes the name or secret of an existing record
//   - Delete: Removes a record, best effort
//   - Migrate: Re-runs the startup migrations on demand
//   - Status: Reports store health and pending migrations
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package. Use
// errors.Is() to check for specific conditions:
//
//	_, err := workflows.Update(ctx, env, opts)
//	if errors.Is(err, kerrors.ErrRecordNotFound) {
//	    // Show a friendly "no such record" message
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
package workflows
