package errors

import "errors"

// Record errors indicate issues with individual credential records.
var (
	// ErrRecordNotFound indicates no file exists for the requested record id.
	ErrRecordNotFound = errors.New("record not found")

	// ErrInvalidRecordID indicates the id cannot be mapped to a single file name.
	ErrInvalidRecordID = errors.New("invalid record id")

	// ErrInvalidRecord indicates a record file could not be parsed.
	ErrInvalidRecord = errors.New("record file is invalid")
)

// Cryptographic errors indicate failures during encryption or decryption operations.
var (
	// ErrEncryptFailed indicates a secret could not be encrypted.
	ErrEncryptFailed = errors.New("failed to encrypt secret")

	// ErrDecryptFailed indicates a stored secret could not be decrypted under
	// the current identity and session.
	ErrDecryptFailed = errors.New("failed to decrypt secret")

	// ErrKeyringUnavailable indicates the OS keyring holding the encryption key
	// could not be opened or queried.
	ErrKeyringUnavailable = errors.New("keyring unavailable")
)

// Storage errors indicate issues with the backing stores.
var (
	// ErrStoreIO indicates a filesystem operation on the record store failed.
	ErrStoreIO = errors.New("record store I/O failure")

	// ErrVaultUnavailable indicates a call to the legacy secret vault failed.
	ErrVaultUnavailable = errors.New("secret vault unavailable")
)
