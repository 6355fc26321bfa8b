package configs

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// ConfigFileName is the name of the optional config file inside the data directory.
	ConfigFileName = "config.toml"

	// DefaultIdentity is the application identity new records are encrypted under.
	DefaultIdentity = "credkeep"

	// DefaultLegacyIdentity is the identity older releases ran under.
	DefaultLegacyIdentity = "Devtools Password Manager"

	// DefaultVaultService is the service name every legacy vault entry is stored under.
	DefaultVaultService = "SAFE_STORAGE_SERVICE"

	// DefaultKeyringService is the service name holding the at-rest encryption keys.
	DefaultKeyringService = "credkeep safe storage"
)

// Config is the contents of config.toml.
type Config struct {
	Identity  IdentityConfig  `toml:"identity" json:"identity"`
	Vault     VaultConfig     `toml:"vault" json:"vault"`
	Keyring   KeyringConfig   `toml:"keyring" json:"keyring"`
	Migration MigrationConfig `toml:"migration" json:"migration"`
}

// IdentityConfig names the identity records are encrypted under and the one
// older releases used.
type IdentityConfig struct {
	Name   string `toml:"name" json:"name"`
	Legacy string `toml:"legacy" json:"legacy"`
}

// VaultConfig locates the legacy secret vault.
type VaultConfig struct {
	Service string `toml:"service" json:"service"`
}

// KeyringConfig selects the OS keyring backing both the legacy vault and the
// at-rest cipher keys. Backends uses 99designs/keyring backend names
// ("keychain", "secret-service", "wincred", "file", ...); empty means the
// platform default order.
type KeyringConfig struct {
	Service  string   `toml:"service" json:"service"`
	Backends []string `toml:"backends" json:"backends"`
	FileDir  string   `toml:"file_dir" json:"file_dir"`
}

// MigrationConfig controls the migrations run on startup.
type MigrationConfig struct {
	Disabled bool `toml:"disabled" json:"disabled"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() Config {
	return Config{
		Identity: IdentityConfig{
			Name:   DefaultIdentity,
			Legacy: DefaultLegacyIdentity,
		},
		Vault: VaultConfig{
			Service: DefaultVaultService,
		},
		Keyring: KeyringConfig{
			Service: DefaultKeyringService,
		},
	}
}

// LoadConfig loads the config file at path on top of DefaultConfig.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(path, &config); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	config.fillDefaults()
	return config, nil
}

// SaveConfig writes config to path, creating parent directories as needed.
func SaveConfig(path string, config Config) error {
	if err := SaveTOML(path, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// fillDefaults restores defaults for keys a config file set to empty strings.
func (c *Config) fillDefaults() {
	defaults := DefaultConfig()
	if c.Identity.Name == "" {
		c.Identity.Name = defaults.Identity.Name
	}
	if c.Identity.Legacy == "" {
		c.Identity.Legacy = defaults.Identity.Legacy
	}
	if c.Vault.Service == "" {
		c.Vault.Service = defaults.Vault.Service
	}
	if c.Keyring.Service == "" {
		c.Keyring.Service = defaults.Keyring.Service
	}
}

// ConfigPath returns the config file location inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFileName)
}
