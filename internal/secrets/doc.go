// Package secrets provides the at-rest encryption used for credential secrets.
//
// # Encryption Architecture
//
// Secrets are encrypted with NaCl secretbox. The secretbox key is derived
// with HKDF-SHA256 from 32 bytes of key material kept in the OS keyring:
//
//  1. Key material is created on first encryption and stored as
//     "<identity> Safe Storage" in the keyring service "credkeep safe storage"
//  2. The secretbox key is HKDF(material, info = identity)
//  3. Each secret is sealed with a random 24-byte nonce
//
// The keyring is only readable while the OS user session is unlocked, so
// ciphertext is bound to the session, user and machine that produced it.
// Because both the item name and the HKDF info carry the application
// identity, changing the identity makes older ciphertext undecryptable until
// the old identity is assumed again (see package identity).
//
// # Ciphertext Format
//
//	"v10" || nonce (24 bytes) || secretbox(plaintext)
//
// Encryption is non-deterministic: encrypting the same secret twice yields
// different output.
//
// # Keyring Backends
//
// OpenKeyring wraps github.com/99designs/keyring. The backend order can be
// restricted (keychain, secret-service, kwallet, wincred, pass, keyctl,
// file). The encrypted file backend reads its passphrase from
// $CREDKEEP_KEYRING_PASSWORD or prompts on the TTY.
package secrets
