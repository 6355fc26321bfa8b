package utils

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/term"
)

// ReadPassphrase reads a line from the terminal on stdin without echo,
// writing prompt to stderr first.
func ReadPassphrase(prompt string) ([]byte, error) {
	return readHidden(os.Stdin, os.Stderr, prompt)
}

// ReadPassphraseFromTTY is ReadPassphrase against the controlling terminal.
// The keyring file backend uses it so its passphrase prompt works while a
// secret is being piped in on stdin.
func ReadPassphraseFromTTY(prompt string) ([]byte, error) {
	path := "/dev/tty"
	if runtime.GOOS == "windows" {
		path = "CON"
	}

	tty, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s for passphrase input: %w", path, err)
	}
	defer tty.Close()

	return readHidden(tty, os.Stderr, prompt)
}

// IsTerminal reports whether stdin is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func readHidden(in *os.File, prompt io.Writer, message string) ([]byte, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("cannot read passphrase: %s is not a terminal", in.Name())
	}

	fmt.Fprint(prompt, message)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return secret, nil
}
