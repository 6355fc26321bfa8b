// Package vault reads and purges the legacy secret vault.
//
// Older releases kept each record's secret in the OS keyring under one fixed
// service name ("SAFE_STORAGE_SERVICE"), with the record id as the account
// and a small JSON envelope as the value:
//
//	{
//	  "password": "..."
//	}
//
// The vault never encrypts; the OS keyring provides its own protection.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
	kerrors "github.com/PolarWolf314/credkeep/internal/errors"
	logger "github.com/PolarWolf314/credkeep/internal/logging"
)

// envelope is the JSON shape stored as each vault entry's value.
type envelope struct {
	Password string `json:"password"`
}

// Vault is the legacy secret vault, keyed by record id.
type Vault struct {
	ring keyring.Keyring
	log  logger.Logger

	// mu serializes calls into ring; keyring backends are not assumed to be
	// safe for concurrent use.
	mu sync.Mutex
}

// New wraps a keyring opened with the vault's service name.
func New(ring keyring.Keyring, log logger.Logger) *Vault {
	return &Vault{ring: ring, log: log}
}

// LoadAll returns every secret in the vault by id. An entry whose envelope
// cannot be decoded maps to the empty string instead of failing the batch.
func (v *Vault) LoadAll(ctx context.Context) (map[string]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ids, err := v.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("listing vault entries: %w: %w", kerrors.ErrVaultUnavailable, err)
	}

	secrets := make(map[string]string, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item, err := v.ring.Get(id)
		if errors.Is(err, keyring.ErrKeyNotFound) {
			// Removed between Keys and Get.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading vault entry %s: %w: %w", id, kerrors.ErrVaultUnavailable, err)
		}

		secret, err := decode(item.Data)
		if err != nil {
			v.log.Warnf("Vault entry %s has an unreadable envelope: %v", id, err)
		}
		secrets[id] = secret
	}

	return secrets, nil
}

// LoadOne returns the secret stored for id. The boolean is false when the
// vault has no entry for id.
func (v *Vault) LoadOne(ctx context.Context, id string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	item, err := v.ring.Get(id)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading vault entry %s: %w: %w", id, kerrors.ErrVaultUnavailable, err)
	}
	if len(item.Data) == 0 {
		return "", false, nil
	}

	secret, err := decode(item.Data)
	if err != nil {
		v.log.Warnf("Vault entry %s has an unreadable envelope: %v", id, err)
	}
	return secret, true, nil
}

// Save stores secret for id, overwriting any existing entry.
func (v *Vault) Save(ctx context.Context, id, secret string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(envelope{Password: secret}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding vault entry %s: %w", id, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.ring.Set(keyring.Item{Key: id, Data: data, Label: id}); err != nil {
		return fmt.Errorf("writing vault entry %s: %w: %w", id, kerrors.ErrVaultUnavailable, err)
	}
	return nil
}

// Delete removes the entry for id. A missing entry is not an error.
func (v *Vault) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	err := v.ring.Remove(id)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting vault entry %s: %w: %w", id, kerrors.ErrVaultUnavailable, err)
	}
	return nil
}

func decode(data []byte) (string, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return "", err
	}
	return e.Password, nil
}
