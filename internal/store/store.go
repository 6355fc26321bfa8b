// Package store persists credential records, one JSON file per record id.
//
// The store directory is the index: every <id>.json file is one record and
// nothing else is consulted. On disk the password field always holds the
// base64 ciphertext produced by the store's Cipher; callers only ever see
// plaintext.
//
// Operations on the same id are serialized with an in-process lock per id.
// Writes replace the whole file atomically, so a concurrent reader sees
// either the old or the new record, never a partial one.
package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/PolarWolf314/credkeep/internal/errors"
	logger "github.com/PolarWolf314/credkeep/internal/logging"
	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the number of files read at once by listings.
const DefaultConcurrency = 16

// Cipher encrypts secrets before they reach the disk.
type Cipher interface {
	Encrypt(plaintext string) ([]byte, error)
	Decrypt(blob []byte) (string, error)
}

// Store is a directory of record files.
type Store struct {
	dir         string
	cipher      Cipher
	log         logger.Logger
	concurrency int
	locks       *lockMap
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for per-record diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithConcurrency bounds concurrent file reads in listings.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New returns a store rooted at dir. The directory must already exist.
func New(dir string, cipher Cipher, opts ...Option) *Store {
	s := &Store{
		dir:         dir,
		cipher:      cipher,
		concurrency: DefaultConcurrency,
		locks:       newLockMap(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates dir if needed and returns a store rooted at it.
func Open(dir string, cipher Cipher, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w: %w", dir, kerrors.ErrStoreIO, err)
	}
	return New(dir, cipher, opts...), nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// ListResult is the outcome of a listing. Failures never hide the records
// that could be read.
type ListResult struct {
	// Records holds every readable record. Records whose secret could not be
	// decrypted are included with an empty Password.
	Records []Record

	// Failures lists records that could not be read or decrypted.
	Failures []RecordError
}

// ListAll reads and decrypts every record in the store. Order is unspecified.
// Only a failure to enumerate the directory fails the call.
func (s *Store) ListAll(ctx context.Context) (*ListResult, error) {
	stored, failures, err := s.listStored(ctx)
	if err != nil {
		return nil, err
	}

	result := &ListResult{
		Records:  make([]Record, 0, len(stored)),
		Failures: failures,
	}
	for _, rec := range stored {
		plain, err := s.decrypt(rec)
		if err != nil {
			s.log.Warnf("Could not decrypt record %s: %v", rec.ID, err)
			result.Failures = append(result.Failures, RecordError{ID: rec.ID, Err: err})
		}
		result.Records = append(result.Records, plain)
	}

	return result, nil
}

// ListStored returns every record in its on-disk form, without decrypting.
// Files that cannot be read or parsed are reported alongside.
func (s *Store) ListStored(ctx context.Context) ([]StoredRecord, []RecordError, error) {
	return s.listStored(ctx)
}

func (s *Store) listStored(ctx context.Context) ([]StoredRecord, []RecordError, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, nil, err
	}

	type slot struct {
		rec     StoredRecord
		err     error
		missing bool
	}
	slots := make([]slot, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := s.readStored(id)
			if errors.Is(err, kerrors.ErrRecordNotFound) {
				// Deleted after the directory was listed.
				slots[i].missing = true
				return nil
			}
			slots[i] = slot{rec: rec, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	records := make([]StoredRecord, 0, len(ids))
	var failures []RecordError
	for i, sl := range slots {
		switch {
		case sl.missing:
		case sl.err != nil:
			s.log.Warnf("Skipping unreadable record %s: %v", ids[i], sl.err)
			failures = append(failures, RecordError{ID: ids[i], Err: sl.err})
		default:
			records = append(records, sl.rec)
		}
	}
	return records, failures, nil
}

// Get reads and decrypts one record. It returns ErrRecordNotFound when no
// file exists. When the secret cannot be decrypted the record is still
// returned, with an empty Password, together with an error wrapping
// ErrDecryptFailed.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if err := ValidateID(id); err != nil {
		return Record{}, err
	}

	stored, err := s.readStored(id)
	if err != nil {
		return Record{}, err
	}
	return s.decrypt(stored)
}

// Save encrypts the record's password and replaces the record file. It is
// the only way records change; partial updates resave the full record.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateID(rec.ID); err != nil {
		return err
	}

	blob, err := s.cipher.Encrypt(rec.Password)
	if err != nil {
		return fmt.Errorf("encrypting record %s: %w", rec.ID, err)
	}

	v := CurrentVersion
	if rec.Version != nil && *rec.Version > v {
		v = *rec.Version
	}
	stored := StoredRecord{
		ID:       rec.ID,
		Name:     rec.Name,
		Password: base64.StdEncoding.EncodeToString(blob),
		Version:  version(v),
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", rec.ID, err)
	}

	unlock := s.locks.lock(rec.ID)
	defer unlock()

	if err := atomic.WriteFile(s.path(rec.ID), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing record %s: %w: %w", rec.ID, kerrors.ErrStoreIO, err)
	}
	s.log.Debugf("Saved record %s", rec.ID)
	return nil
}

// Delete removes the record file. Deleting a record that does not exist is
// not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateID(id); err != nil {
		return err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	err := os.Remove(s.path(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting record %s: %w: %w", id, kerrors.ErrStoreIO, err)
	}
	s.log.Debugf("Deleted record %s", id)
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, FileName(id))
}

// ids lists record ids from the directory. Temporary files left by
// interrupted writes do not carry the .json extension and are ignored.
func (s *Store) ids() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading store directory %s: %w: %w", s.dir, kerrors.ErrStoreIO, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), fileExt)
		if ValidateID(id) != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) readStored(id string) (StoredRecord, error) {
	unlock := s.locks.lock(id)
	data, err := os.ReadFile(s.path(id))
	unlock()

	if errors.Is(err, os.ErrNotExist) {
		return StoredRecord{}, fmt.Errorf("%w: %s", kerrors.ErrRecordNotFound, id)
	}
	if err != nil {
		return StoredRecord{}, fmt.Errorf("reading record %s: %w: %w", id, kerrors.ErrStoreIO, err)
	}

	var rec StoredRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return StoredRecord{}, fmt.Errorf("%w: %s: %w", kerrors.ErrInvalidRecord, id, err)
	}
	// The file name is authoritative for the id.
	rec.ID = id
	return rec, nil
}

// Decrypt converts a record from ListStored into its caller-facing form using
// the store's cipher as currently scoped. On failure the returned record
// carries an empty password and the error wraps ErrDecryptFailed.
func (s *Store) Decrypt(stored StoredRecord) (Record, error) {
	return s.decrypt(stored)
}

func (s *Store) decrypt(stored StoredRecord) (Record, error) {
	rec := Record{
		ID:      stored.ID,
		Name:    stored.Name,
		Version: stored.Version,
	}
	if stored.Password == "" {
		return rec, nil
	}

	blob, err := base64.StdEncoding.DecodeString(stored.Password)
	if err != nil {
		return rec, fmt.Errorf("%w: record %s: invalid base64: %w", kerrors.ErrDecryptFailed, stored.ID, err)
	}

	plaintext, err := s.cipher.Decrypt(blob)
	if err != nil {
		if !errors.Is(err, kerrors.ErrDecryptFailed) {
			err = fmt.Errorf("%w: %w", kerrors.ErrDecryptFailed, err)
		}
		return rec, fmt.Errorf("record %s: %w", stored.ID, err)
	}
	rec.Password = plaintext
	return rec, nil
}
