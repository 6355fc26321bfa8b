// Package configs resolves where credkeep keeps its data and how it reaches
// the platform keyring.
//
// # Data Directory
//
// All state lives under one data directory, by default
// <user config dir>/credkeep:
//
//   - config.toml: optional configuration (identity, vault, keyring, migration)
//   - users/<id>.json: one file per credential record
//
// The directory can be moved with --data-dir or $CREDKEEP_DATA_DIR.
//
// # Configuration
//
// config.toml is loaded on top of DefaultConfig; any key left empty keeps its
// default. Environment variables ($CREDKEEP_IDENTITY,
// $CREDKEEP_KEYRING_BACKENDS, $CREDKEEP_KEYRING_FILE_DIR) are applied last.
//
// Settings are resolved once at startup and passed explicitly to the
// packages that need them; there is no package-level state.
package configs
