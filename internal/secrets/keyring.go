package secrets

import (
	"fmt"
	"os"

	"github.com/99designs/keyring"
	kerrors "github.com/PolarWolf314/credkeep/internal/errors"
	"github.com/PolarWolf314/credkeep/internal/utils"
)

// EnvKeyringPassword supplies the passphrase for the encrypted-file keyring
// backend, for headless machines without a TTY.
const EnvKeyringPassword = "CREDKEEP_KEYRING_PASSWORD"

// KeyringOptions selects and configures an OS keyring.
type KeyringOptions struct {
	// Service scopes every item in the keyring.
	Service string

	// Backends restricts the backends tried, in order. Empty means all
	// backends available on this platform.
	Backends []string

	// FileDir is where the "file" backend keeps its items.
	FileDir string
}

var knownBackends = map[string]keyring.BackendType{
	string(keyring.KeychainBackend):      keyring.KeychainBackend,
	string(keyring.SecretServiceBackend): keyring.SecretServiceBackend,
	string(keyring.KWalletBackend):       keyring.KWalletBackend,
	string(keyring.WinCredBackend):       keyring.WinCredBackend,
	string(keyring.FileBackend):          keyring.FileBackend,
	string(keyring.PassBackend):          keyring.PassBackend,
	string(keyring.KeyCtlBackend):        keyring.KeyCtlBackend,
}

// OpenKeyring opens the OS keyring described by opts.
func OpenKeyring(opts KeyringOptions) (keyring.Keyring, error) {
	backends, err := parseBackends(opts.Backends)
	if err != nil {
		return nil, err
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:                    opts.Service,
		AllowedBackends:                backends,
		KeychainTrustApplication:       true,
		KeychainSynchronizable:         false,
		KeychainAccessibleWhenUnlocked: true,
		FileDir:                        opts.FileDir,
		FilePasswordFunc:               filePassword,
		KeyCtlScope:                    "user",
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring %q: %w: %w", opts.Service, kerrors.ErrKeyringUnavailable, err)
	}
	return ring, nil
}

func parseBackends(names []string) ([]keyring.BackendType, error) {
	if len(names) == 0 {
		return nil, nil
	}

	backends := make([]keyring.BackendType, 0, len(names))
	for _, name := range names {
		backend, ok := knownBackends[name]
		if !ok {
			return nil, fmt.Errorf("unknown keyring backend %q: %w", name, kerrors.ErrKeyringUnavailable)
		}
		backends = append(backends, backend)
	}
	return backends, nil
}

func filePassword(prompt string) (string, error) {
	if v, ok := os.LookupEnv(EnvKeyringPassword); ok {
		return v, nil
	}

	passphrase, err := utils.ReadPassphraseFromTTY(prompt + ": ")
	if err != nil {
		return "", err
	}
	return string(passphrase), nil
}
