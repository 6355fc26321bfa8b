package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadStdin reads all content from stdin.
// Returns an error if stdin is empty, is a terminal (no piped data), or cannot be read.
func ReadStdin() ([]byte, error) {
	return ReadInput(os.Stdin)
}

// ReadInput reads a secret from r and strips one trailing line ending, so
// that `echo secret | credkeep add` stores "secret". When r is a terminal
// rather than a pipe an error is returned instead of blocking.
func ReadInput(r io.Reader) ([]byte, error) {
	if f, ok := r.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat stdin: %w", err)
		}

		// If ModeCharDevice is set, stdin is connected to a terminal.
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			return nil, fmt.Errorf("no data provided on stdin (hint: pipe the secret to this command)")
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read from stdin: %w", err)
	}

	text := strings.TrimSuffix(string(data), "\n")
	text = strings.TrimSuffix(text, "\r")
	if text == "" {
		return nil, fmt.Errorf("stdin is empty")
	}

	return []byte(text), nil
}
