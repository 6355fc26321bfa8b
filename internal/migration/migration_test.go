package migration

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/99designs/keyring"
	kerrors "github.com/PolarWolf314/credkeep/internal/errors"
	"github.com/PolarWolf314/credkeep/internal/identity"
	logger "github.com/PolarWolf314/credkeep/internal/logging"
	"github.com/PolarWolf314/credkeep/internal/secrets"
	"github.com/PolarWolf314/credkeep/internal/store"
	"github.com/PolarWolf314/credkeep/internal/vault"
)

const (
	currentName = "credkeep"
	legacyName  = "Devtools Password Manager"
)

type testEnv struct {
	ring   keyring.Keyring
	id     *identity.Identity
	cipher *secrets.SafeStorage
	store  *store.Store
	vault  *vault.Vault
}

func newTestEnv(t *testing.T, vaultItems ...keyring.Item) *testEnv {
	t.Helper()
	ring := keyring.NewArrayKeyring(nil)
	id := identity.New(currentName)
	cipher := secrets.NewSafeStorage(ring, id)
	st, err := store.Open(filepath.Join(t.TempDir(), "users"), cipher)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	return &testEnv{
		ring:   ring,
		id:     id,
		cipher: cipher,
		store:  st,
		vault:  vault.New(keyring.NewArrayKeyring(vaultItems), logger.Logger{}),
	}
}

func (e *testEnv) migrator(st RecordStore) *Migrator {
	if st == nil {
		st = e.store
	}
	return New(st, e.vault, e.id, legacyName)
}

func (e *testEnv) writeRaw(t *testing.T, rec store.StoredRecord) {
	t.Helper()
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Failed to encode record: %v", err)
	}
	if err := os.WriteFile(filepath.Join(e.store.Dir(), store.FileName(rec.ID)), data, 0600); err != nil {
		t.Fatalf("Failed to write record: %v", err)
	}
}

// writeLegacy writes an unversioned record encrypted by a process running
// under the legacy identity, sharing the same keyring.
func (e *testEnv) writeLegacy(t *testing.T, id, name, password string) {
	t.Helper()
	legacy := secrets.NewSafeStorage(e.ring, identity.New(legacyName))
	blob, err := legacy.Encrypt(password)
	if err != nil {
		t.Fatalf("Failed to encrypt legacy secret: %v", err)
	}
	e.writeRaw(t, store.StoredRecord{ID: id, Name: name, Password: base64.StdEncoding.EncodeToString(blob)})
}

func (e *testEnv) storedByID(t *testing.T) map[string]store.StoredRecord {
	t.Helper()
	stored, failures, err := e.store.ListStored(context.Background())
	if err != nil {
		t.Fatalf("ListStored failed: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("Unexpected listing failures: %v", failures)
	}
	out := make(map[string]store.StoredRecord, len(stored))
	for _, rec := range stored {
		out[rec.ID] = rec
	}
	return out
}

func envelope(secret string) []byte {
	data, _ := json.Marshal(map[string]string{"password": secret})
	return data
}

// saveFailingStore fails every Save of one id.
type saveFailingStore struct {
	*store.Store
	failID string
}

func (s saveFailingStore) Save(ctx context.Context, rec store.Record) error {
	if rec.ID == s.failID {
		return errors.New("disk full")
	}
	return s.Store.Save(ctx, rec)
}

type unavailableVault struct{}

func (unavailableVault) LoadAll(context.Context) (map[string]string, error) {
	return nil, kerrors.ErrVaultUnavailable
}

func (unavailableVault) Delete(context.Context, string) error {
	return kerrors.ErrVaultUnavailable
}

func TestMigrateVault(t *testing.T) {
	ctx := context.Background()

	t.Run("MergesHeaderOnlyRecords", func(t *testing.T) {
		env := newTestEnv(t,
			keyring.Item{Key: "a", Data: envelope("vault-a")},
			keyring.Item{Key: "c", Data: envelope("vault-c")},
			keyring.Item{Key: "orphan", Data: envelope("vault-orphan")},
		)
		env.writeRaw(t, store.StoredRecord{ID: "a", Name: "Alice"})
		env.writeRaw(t, store.StoredRecord{ID: "b", Name: "Bob"})
		if err := env.store.Save(ctx, store.Record{ID: "c", Name: "Carol", Password: "own-secret"}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		result, err := env.migrator(nil).MigrateVault(ctx)
		if err != nil {
			t.Fatalf("MigrateVault failed: %v", err)
		}

		if result.Found != 3 {
			t.Errorf("Expected 3 vault secrets found, got %d", result.Found)
		}
		if !reflect.DeepEqual(result.Merged, []string{"a"}) {
			t.Errorf("Expected only a merged, got %v", result.Merged)
		}
		if !reflect.DeepEqual(result.Skipped, []string{"b"}) {
			t.Errorf("Expected b skipped, got %v", result.Skipped)
		}
		if !reflect.DeepEqual(result.Purged, []string{"a", "c", "orphan"}) {
			t.Errorf("Expected every vault entry purged, got %v", result.Purged)
		}

		a, err := env.store.Get(ctx, "a")
		if err != nil {
			t.Fatalf("Get a failed: %v", err)
		}
		if a.Password != "vault-a" || a.Name != "Alice" {
			t.Errorf("Unexpected merged record: %+v", a)
		}

		b, err := env.store.Get(ctx, "b")
		if err != nil {
			t.Fatalf("Get b failed: %v", err)
		}
		if b.Password != "" {
			t.Errorf("Expected b to stay header-only, got %q", b.Password)
		}

		c, err := env.store.Get(ctx, "c")
		if err != nil {
			t.Fatalf("Get c failed: %v", err)
		}
		if c.Password != "own-secret" {
			t.Errorf("Record with a secret must not be overwritten, got %q", c.Password)
		}

		remaining, err := env.vault.LoadAll(ctx)
		if err != nil {
			t.Fatalf("LoadAll failed: %v", err)
		}
		if len(remaining) != 0 {
			t.Errorf("Expected empty vault, got %v", remaining)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		env := newTestEnv(t, keyring.Item{Key: "a", Data: envelope("vault-a")})
		env.writeRaw(t, store.StoredRecord{ID: "a", Name: "Alice"})
		m := env.migrator(nil)

		if _, err := m.MigrateVault(ctx); err != nil {
			t.Fatalf("First MigrateVault failed: %v", err)
		}
		before := env.storedByID(t)

		result, err := m.MigrateVault(ctx)
		if err != nil {
			t.Fatalf("Second MigrateVault failed: %v", err)
		}
		if result.Found != 0 || len(result.Merged) != 0 {
			t.Errorf("Expected second run to be a no-op, got %+v", result)
		}
		if !reflect.DeepEqual(before, env.storedByID(t)) {
			t.Error("Second run changed the store")
		}
	})

	t.Run("EmptyVault", func(t *testing.T) {
		env := newTestEnv(t)
		env.writeRaw(t, store.StoredRecord{ID: "a", Name: "Alice"})

		result, err := env.migrator(nil).MigrateVault(ctx)
		if err != nil {
			t.Fatalf("MigrateVault failed: %v", err)
		}
		if result.Found != 0 {
			t.Errorf("Expected nothing found, got %d", result.Found)
		}
		if env.storedByID(t)["a"].Password != "" {
			t.Error("Expected header-only record to be untouched")
		}
	})

	t.Run("EmptyStoreLeavesVault", func(t *testing.T) {
		env := newTestEnv(t, keyring.Item{Key: "a", Data: envelope("vault-a")})

		result, err := env.migrator(nil).MigrateVault(ctx)
		if err != nil {
			t.Fatalf("MigrateVault failed: %v", err)
		}
		if len(result.Purged) != 0 {
			t.Errorf("Expected no purge, got %v", result.Purged)
		}
		if _, ok, _ := env.vault.LoadOne(ctx, "a"); !ok {
			t.Error("Expected vault entry to remain")
		}
	})

	t.Run("NoPurgeWhenWriteFails", func(t *testing.T) {
		env := newTestEnv(t,
			keyring.Item{Key: "a", Data: envelope("vault-a")},
			keyring.Item{Key: "b", Data: envelope("vault-b")},
		)
		env.writeRaw(t, store.StoredRecord{ID: "a", Name: "Alice"})
		env.writeRaw(t, store.StoredRecord{ID: "b", Name: "Bob"})

		m := env.migrator(saveFailingStore{Store: env.store, failID: "b"})
		if _, err := m.MigrateVault(ctx); err == nil {
			t.Fatal("Expected MigrateVault to fail")
		}

		remaining, err := env.vault.LoadAll(ctx)
		if err != nil {
			t.Fatalf("LoadAll failed: %v", err)
		}
		if len(remaining) != 2 {
			t.Errorf("Expected vault to keep both secrets, got %v", remaining)
		}
	})

	t.Run("NoPurgeWhenRecordUnreadable", func(t *testing.T) {
		env := newTestEnv(t,
			keyring.Item{Key: "a", Data: envelope("only-copy")},
			keyring.Item{Key: "b", Data: envelope("vault-b")},
		)
		if err := os.WriteFile(filepath.Join(env.store.Dir(), store.FileName("a")), []byte("{not json"), 0600); err != nil {
			t.Fatalf("Failed to write record: %v", err)
		}
		env.writeRaw(t, store.StoredRecord{ID: "b", Name: "Bob"})

		result, err := env.migrator(nil).MigrateVault(ctx)
		if !errors.Is(err, kerrors.ErrInvalidRecord) {
			t.Fatalf("Expected ErrInvalidRecord, got %v", err)
		}
		if !reflect.DeepEqual(result.Merged, []string{"b"}) {
			t.Errorf("Expected b merged, got %v", result.Merged)
		}
		if len(result.Purged) != 0 {
			t.Errorf("Expected nothing purged, got %v", result.Purged)
		}

		remaining, err := env.vault.LoadAll(ctx)
		if err != nil {
			t.Fatalf("LoadAll failed: %v", err)
		}
		if remaining["a"] != "only-copy" {
			t.Errorf("Expected vault to keep a's secret, got %v", remaining)
		}
	})

	t.Run("UnreadableRecordWithoutVaultSecretDoesNotBlockPurge", func(t *testing.T) {
		env := newTestEnv(t, keyring.Item{Key: "b", Data: envelope("vault-b")})
		if err := os.WriteFile(filepath.Join(env.store.Dir(), store.FileName("x")), []byte("{not json"), 0600); err != nil {
			t.Fatalf("Failed to write record: %v", err)
		}
		env.writeRaw(t, store.StoredRecord{ID: "b", Name: "Bob"})

		result, err := env.migrator(nil).MigrateVault(ctx)
		if err != nil {
			t.Fatalf("MigrateVault failed: %v", err)
		}
		if !reflect.DeepEqual(result.Purged, []string{"b"}) {
			t.Errorf("Expected b purged, got %v", result.Purged)
		}
	})

	t.Run("VaultUnavailable", func(t *testing.T) {
		env := newTestEnv(t)
		m := New(env.store, unavailableVault{}, env.id, legacyName)

		if _, err := m.MigrateVault(ctx); !errors.Is(err, kerrors.ErrVaultUnavailable) {
			t.Fatalf("Expected ErrVaultUnavailable, got %v", err)
		}
	})
}

func TestMigrateIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("ReencryptsLegacyRecords", func(t *testing.T) {
		env := newTestEnv(t)
		env.writeLegacy(t, "a", "Alice", "legacy-a")
		env.writeLegacy(t, "b", "Bob", "legacy-b")
		env.writeRaw(t, store.StoredRecord{ID: "header", Name: "Header only"})
		if err := env.store.Save(ctx, store.Record{ID: "c", Name: "Carol", Password: "current-c"}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		if _, err := env.store.Get(ctx, "a"); !errors.Is(err, kerrors.ErrDecryptFailed) {
			t.Fatalf("Expected legacy record to be unreadable before migration, got %v", err)
		}

		result, err := env.migrator(nil).MigrateIdentity(ctx)
		if err != nil {
			t.Fatalf("MigrateIdentity failed: %v", err)
		}
		if env.id.Name() != currentName {
			t.Fatalf("Identity not restored, got %q", env.id.Name())
		}
		if result.Candidates != 3 {
			t.Errorf("Expected 3 candidates, got %d", result.Candidates)
		}
		if len(result.Migrated) != 2 {
			t.Errorf("Expected 2 migrated records, got %v", result.Migrated)
		}
		if !reflect.DeepEqual(result.Skipped, []string{"header"}) {
			t.Errorf("Expected header skipped, got %v", result.Skipped)
		}

		for id, want := range map[string]string{"a": "legacy-a", "b": "legacy-b", "c": "current-c"} {
			rec, err := env.store.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get %s failed: %v", id, err)
			}
			if rec.Password != want {
				t.Errorf("Record %s: expected %q, got %q", id, want, rec.Password)
			}
			if rec.Version == nil || *rec.Version != store.CurrentVersion {
				t.Errorf("Record %s: expected version %d, got %v", id, store.CurrentVersion, rec.Version)
			}
		}

		if env.storedByID(t)["header"].Migrated() {
			t.Error("Header-only record must not be stamped")
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		env := newTestEnv(t)
		env.writeLegacy(t, "a", "Alice", "legacy-a")
		m := env.migrator(nil)

		if _, err := m.MigrateIdentity(ctx); err != nil {
			t.Fatalf("First MigrateIdentity failed: %v", err)
		}
		before := env.storedByID(t)

		result, err := m.MigrateIdentity(ctx)
		if err != nil {
			t.Fatalf("Second MigrateIdentity failed: %v", err)
		}
		if result.Candidates != 0 || len(result.Migrated) != 0 {
			t.Errorf("Expected second run to be a no-op, got %+v", result)
		}
		if !reflect.DeepEqual(before, env.storedByID(t)) {
			t.Error("Second run changed the store")
		}
	})

	t.Run("CorruptRecordAbortsBatch", func(t *testing.T) {
		env := newTestEnv(t)
		env.writeLegacy(t, "good", "Good", "legacy-good")
		env.writeRaw(t, store.StoredRecord{ID: "bad", Name: "Bad", Password: "djEw"})

		_, err := env.migrator(nil).MigrateIdentity(ctx)
		if !errors.Is(err, kerrors.ErrDecryptFailed) {
			t.Fatalf("Expected ErrDecryptFailed, got %v", err)
		}
		if env.id.Name() != currentName {
			t.Fatalf("Identity not restored after failure, got %q", env.id.Name())
		}

		for id, rec := range env.storedByID(t) {
			if rec.Migrated() {
				t.Errorf("Record %s written despite aborted batch", id)
			}
		}
	})

	t.Run("IdentityRestoredWhenListingFails", func(t *testing.T) {
		id := identity.New(currentName)
		cipher := secrets.NewSafeStorage(keyring.NewArrayKeyring(nil), id)
		st := store.New(filepath.Join(t.TempDir(), "missing"), cipher)
		m := New(st, unavailableVault{}, id, legacyName)

		if _, err := m.MigrateIdentity(ctx); !errors.Is(err, kerrors.ErrStoreIO) {
			t.Fatalf("Expected ErrStoreIO, got %v", err)
		}
		if id.Name() != currentName {
			t.Fatalf("Identity not restored, got %q", id.Name())
		}
	})

	t.Run("SaveWhileLegacyIdentityAssumed", func(t *testing.T) {
		env := newTestEnv(t)

		guard := env.id.Assume(legacyName)
		saved := make(chan error, 1)
		go func() {
			saved <- env.store.Save(ctx, store.Record{ID: "u", Name: "Concurrent", Password: "fresh"})
		}()
		err := <-saved
		guard.Release()
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		rec, err := env.store.Get(ctx, "u")
		if err != nil {
			t.Fatalf("Get after release failed: %v", err)
		}
		if rec.Password != "fresh" {
			t.Errorf("Expected 'fresh', got %q", rec.Password)
		}

		result, err := env.migrator(nil).MigrateIdentity(ctx)
		if err != nil {
			t.Fatalf("MigrateIdentity failed: %v", err)
		}
		if result.Candidates != 0 {
			t.Errorf("Expected no candidates, got %+v", result)
		}
	})

	t.Run("NoOpUnderLegacyIdentity", func(t *testing.T) {
		env := newTestEnv(t)
		env.id = identity.New(legacyName)

		result, err := env.migrator(nil).MigrateIdentity(ctx)
		if err != nil {
			t.Fatalf("MigrateIdentity failed: %v", err)
		}
		if result.Candidates != 0 {
			t.Errorf("Expected no-op, got %+v", result)
		}
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("RunsBothMigrations", func(t *testing.T) {
		env := newTestEnv(t, keyring.Item{Key: "a", Data: envelope("vault-a")})
		env.writeRaw(t, store.StoredRecord{ID: "a", Name: "Alice"})
		env.writeLegacy(t, "b", "Bob", "legacy-b")

		report := env.migrator(nil).Run(ctx)
		if report.Failed() {
			t.Fatalf("Unexpected failures: vault=%v identity=%v", report.VaultErr, report.IdentityErr)
		}

		result, err := env.store.ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if len(result.Failures) != 0 {
			t.Fatalf("Unexpected failures after migration: %v", result.Failures)
		}
		got := make(map[string]string)
		for _, rec := range result.Records {
			got[rec.ID] = rec.Password
		}
		if !reflect.DeepEqual(got, map[string]string{"a": "vault-a", "b": "legacy-b"}) {
			t.Errorf("Unexpected records after migration: %v", got)
		}
	})

	t.Run("VaultFailureDoesNotStopIdentityMigration", func(t *testing.T) {
		env := newTestEnv(t)
		env.writeLegacy(t, "b", "Bob", "legacy-b")
		m := New(env.store, unavailableVault{}, env.id, legacyName)

		report := m.Run(ctx)
		if !errors.Is(report.VaultErr, kerrors.ErrVaultUnavailable) {
			t.Errorf("Expected vault error in report, got %v", report.VaultErr)
		}
		if report.IdentityErr != nil {
			t.Fatalf("Identity migration failed: %v", report.IdentityErr)
		}
		if rec, err := env.store.Get(ctx, "b"); err != nil || rec.Password != "legacy-b" {
			t.Errorf("Expected b to be migrated, got %+v (%v)", rec, err)
		}
	})
}
