package secrets

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
	kerrors "github.com/PolarWolf314/credkeep/internal/errors"
	"github.com/PolarWolf314/credkeep/internal/identity"
)

// blobPrefix marks ciphertext produced by SafeStorage.
var blobPrefix = []byte("v10")

// SafeStorage encrypts secrets with key material held in the OS keyring.
//
// Each application identity owns its own key material, stored as
// "<identity> Safe Storage". Encrypt always uses the base identity. Decrypt
// reads the current identity on every call, so ciphertext written by another
// identity only decrypts while that identity is assumed.
type SafeStorage struct {
	ring keyring.Keyring
	id   *identity.Identity

	// mu guards keys and every call into ring.
	mu   sync.Mutex
	keys map[string]*[KeySize]byte
}

// NewSafeStorage returns a cipher using ring for key material, scoped by id.
func NewSafeStorage(ring keyring.Keyring, id *identity.Identity) *SafeStorage {
	return &SafeStorage{
		ring: ring,
		id:   id,
		keys: make(map[string]*[KeySize]byte),
	}
}

// KeyName returns the keyring item holding the key material for an identity.
func KeyName(identityName string) string {
	return identityName + " Safe Storage"
}

// Encrypt encrypts plaintext under the base identity, creating its key
// material on first use. An assumed identity never applies here.
func (s *SafeStorage) Encrypt(plaintext string) ([]byte, error) {
	key, err := s.key(s.id.Base(), true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kerrors.ErrEncryptFailed, err)
	}

	sealed, err := Seal(key, []byte(plaintext))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kerrors.ErrEncryptFailed, err)
	}

	blob := make([]byte, 0, len(blobPrefix)+len(sealed))
	blob = append(blob, blobPrefix...)
	return append(blob, sealed...), nil
}

// Decrypt decrypts a blob produced by Encrypt under the current identity.
// Every failure wraps ErrDecryptFailed.
func (s *SafeStorage) Decrypt(blob []byte) (string, error) {
	if !bytes.HasPrefix(blob, blobPrefix) {
		return "", fmt.Errorf("%w: unrecognized ciphertext format", kerrors.ErrDecryptFailed)
	}

	name := s.id.Name()
	key, err := s.key(name, false)
	if err != nil {
		return "", fmt.Errorf("%w: %w", kerrors.ErrDecryptFailed, err)
	}

	plaintext, err := Open(key, blob[len(blobPrefix):])
	if err != nil {
		return "", fmt.Errorf("%w under identity %q: %w", kerrors.ErrDecryptFailed, name, err)
	}
	return string(plaintext), nil
}

func (s *SafeStorage) key(name string, create bool) (*[KeySize]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.keys[name]; ok {
		return key, nil
	}

	item, err := s.ring.Get(KeyName(name))
	switch {
	case err == nil:
	case errors.Is(err, keyring.ErrKeyNotFound) && create:
		item, err = s.createKey(name)
		if err != nil {
			return nil, err
		}
	case errors.Is(err, keyring.ErrKeyNotFound):
		return nil, fmt.Errorf("no key material for identity %q", name)
	default:
		return nil, fmt.Errorf("%w: %w", kerrors.ErrKeyringUnavailable, err)
	}

	key, err := DeriveKey(item.Data, name)
	if err != nil {
		return nil, err
	}
	s.keys[name] = key
	return key, nil
}

func (s *SafeStorage) createKey(name string) (keyring.Item, error) {
	material, err := CreateSymmetricKey()
	if err != nil {
		return keyring.Item{}, fmt.Errorf("failed to generate key material: %w", err)
	}

	item := keyring.Item{
		Key:                       KeyName(name),
		Data:                      material,
		Label:                     KeyName(name),
		Description:               "credkeep at-rest encryption key",
		KeychainNotSynchronizable: true,
	}
	if err := s.ring.Set(item); err != nil {
		return keyring.Item{}, fmt.Errorf("%w: storing key material: %w", kerrors.ErrKeyringUnavailable, err)
	}
	return item, nil
}
