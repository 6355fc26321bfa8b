package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// KeySize is the size of secretbox keys and of the stored key material.
	KeySize = 32

	nonceSize = 24
)

// CreateSymmetricKey generates a new random symmetric key.
func CreateSymmetricKey() ([]byte, error) {
	symKey := make([]byte, KeySize)
	if _, err := rand.Read(symKey); err != nil {
		return nil, err
	}

	return symKey, nil
}

// DeriveKey derives a secretbox key from stored key material, bound to info.
func DeriveKey(material []byte, info string) (*[KeySize]byte, error) {
	if len(material) != KeySize {
		return nil, fmt.Errorf("invalid key material length: expected %d bytes, got %d bytes", KeySize, len(material))
	}

	var key [KeySize]byte
	r := hkdf.New(sha256.New, material, nil, []byte(info))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return &key, nil
}

// Seal encrypts plaintext with secretbox, prepending a random 24-byte nonce.
// Sealing the same plaintext twice produces different output.
func Seal(key *[KeySize]byte, plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed on ReadFull method: %w", err)
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, key), nil
}

// Open reverses Seal.
func Open(key *[KeySize]byte, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("ciphertext too short: %d bytes", len(ciphertext))
	}

	// Extract the nonce from the beginning of the ciphertext
	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, key)
	if !ok {
		return nil, fmt.Errorf("failed to decrypt ciphertext with secretbox")
	}
	return plaintext, nil
}
