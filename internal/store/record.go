package store

import (
	"fmt"
	"path/filepath"
	"strings"

	kerrors "github.com/PolarWolf314/credkeep/internal/errors"
)

// CurrentVersion is stamped on every record written by this release. Its
// presence means the secret is encrypted under the current identity.
const CurrentVersion = 1

const fileExt = ".json"

// Record is a credential entry as seen by callers. Password is plaintext, or
// empty when the secret is missing or could not be decrypted.
type Record struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Version  *int   `json:"version,omitempty"`
}

// StoredRecord is a record in its on-disk form. Password holds the base64
// ciphertext, or is empty for records still waiting for their secret.
type StoredRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Version  *int   `json:"version,omitempty"`
}

// Migrated reports whether the record has passed the identity migration.
func (r StoredRecord) Migrated() bool {
	return r.Version != nil
}

// RecordError ties a failure to the record it happened on.
type RecordError struct {
	ID  string
	Err error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("record %s: %v", e.ID, e.Err)
}

func (e RecordError) Unwrap() error {
	return e.Err
}

// ValidateID checks that id maps to exactly one file in the store directory.
func ValidateID(id string) error {
	switch {
	case id == "", id == ".", id == "..":
		return fmt.Errorf("%w: %q", kerrors.ErrInvalidRecordID, id)
	case strings.ContainsAny(id, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", kerrors.ErrInvalidRecordID, id)
	case filepath.Base(id) != id:
		return fmt.Errorf("%w: %q is not a single path element", kerrors.ErrInvalidRecordID, id)
	}
	return nil
}

// FileName returns the file name holding the record with the given id.
func FileName(id string) string {
	return id + fileExt
}

func version(v int) *int {
	return &v
}
