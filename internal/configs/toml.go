package configs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/natefinch/atomic"
)

// SaveTOML encodes data and replaces filePath with the result in one step,
// creating the parent directory with owner-only permissions.
func SaveTOML(filePath string, data any) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(data); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(filePath), err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return err
	}
	if err := atomic.WriteFile(filePath, &buf); err != nil {
		return err
	}
	return os.Chmod(filePath, 0600)
}

// LoadTOML decodes filePath into data. Keys that data has no field for are
// an error, so a misspelled setting is not silently ignored.
func LoadTOML(filePath string, data any) error {
	meta, err := toml.DecodeFile(filePath, data)
	if err != nil {
		return err
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown keys in %s: %s", filepath.Base(filePath), strings.Join(keys, ", "))
	}
	return nil
}
