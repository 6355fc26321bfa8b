// Package utils provides shared utility functions for credkeep.
//
// This package contains general-purpose helpers used across multiple packages.
// Functions are organized into logical groups:
//
// # String Utilities
//
// Functions for formatting record data for display:
//   - MaskSecret: hides a secret while hinting at its length
//   - Truncate: shortens long values for table output
//
// # I/O Utilities
//
// Functions for reading secrets piped into the process:
//   - ReadStdin: reads all data from standard input
//   - ReadInput: reads a secret from any reader
//
// # Terminal Utilities
//
// Functions for terminal detection and interaction:
//   - IsTerminal: checks if stdin is a terminal
//   - ReadPassphrase: prompts for a secret without echo
package utils
