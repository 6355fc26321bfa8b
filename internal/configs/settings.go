package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// AppDirName is the directory created under the user config directory.
	AppDirName = "credkeep"

	// StoreDirName is the subdirectory of the data directory holding one file per record.
	StoreDirName = "users"
)

// Environment overrides, applied after the config file.
const (
	EnvDataDir         = "CREDKEEP_DATA_DIR"
	EnvIdentity        = "CREDKEEP_IDENTITY"
	EnvKeyringBackends = "CREDKEEP_KEYRING_BACKENDS"
	EnvKeyringFileDir  = "CREDKEEP_KEYRING_FILE_DIR"
)

// Settings are the resolved paths and configuration for one process.
type Settings struct {
	DataDir    string
	StorePath  string
	ConfigPath string
	Config     Config
}

// DefaultDataDir returns the per-user application data directory.
func DefaultDataDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting config directory: %w", err)
	}
	return filepath.Join(configDir, AppDirName), nil
}

// ResolveDataDir returns dataDir, or $CREDKEEP_DATA_DIR when it is empty, or
// DefaultDataDir when both are.
func ResolveDataDir(dataDir string) (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		return v, nil
	}
	return DefaultDataDir()
}

// ResolveSettings builds Settings for the data directory chosen by
// ResolveDataDir, applying the config file and then environment overrides.
func ResolveSettings(dataDir string) (*Settings, error) {
	dataDir, err := ResolveDataDir(dataDir)
	if err != nil {
		return nil, err
	}

	configPath := ConfigPath(dataDir)
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	applyEnv(&config)

	return &Settings{
		DataDir:    dataDir,
		StorePath:  filepath.Join(dataDir, StoreDirName),
		ConfigPath: configPath,
		Config:     config,
	}, nil
}

func applyEnv(config *Config) {
	if v := os.Getenv(EnvIdentity); v != "" {
		config.Identity.Name = v
	}
	if v := os.Getenv(EnvKeyringBackends); v != "" {
		config.Keyring.Backends = splitList(v)
	}
	if v := os.Getenv(EnvKeyringFileDir); v != "" {
		config.Keyring.FileDir = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
