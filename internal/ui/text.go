package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter applies semantic formatting to text.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

// Sprint formats the arguments and returns the resulting string.
func (f Formatter) Sprint(a ...interface{}) string {
	return f.render(fmt.Sprint(a...))
}

// Sprintf formats according to a format specifier and returns the resulting string.
func (f Formatter) Sprintf(format string, a ...interface{}) string {
	return f.render(fmt.Sprintf(format, a...))
}

func (f Formatter) render(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// EnsureNewline ensures the string ends with a newline character.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// noColor returns true if color output should be disabled.
func noColor() bool {
	// Check NO_COLOR environment variable (https://no-color.org/).
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	// Also respect fatih/color's detection (terminal capability, TERM=dumb, etc.).
	return color.NoColor
}

// Semantic formatters for different types of CLI output.
var (
	// Code formats runnable commands.
	// Yellow with color, `backticks` without.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	// Path formats file or directory paths.
	Path = Formatter{color.New(color.FgYellow), "", ""}

	// Flag formats CLI flags like --password-stdin.
	Flag = Formatter{color.New(color.FgYellow), "", ""}

	Success = Formatter{color.New(color.FgGreen), "", ""}
	Error   = Formatter{color.New(color.FgRed), "", ""}
	Warning = Formatter{color.New(color.FgYellow), "", ""}
	Info    = Formatter{color.New(color.FgCyan), "", ""}

	// Highlight formats record names and other user values.
	// Cyan with color, 'single quotes' without.
	Highlight = Formatter{color.New(color.FgCyan), "'", "'"}

	// Muted formats record ids and other secondary text.
	// Gray with color, (parentheses) without.
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}

	// Secret formats revealed secret values.
	// Magenta with color, unchanged without.
	Secret = Formatter{color.New(color.FgMagenta), "", ""}
)

// Status lines start with a colored symbol followed by the message.

// SuccessLine returns "✓ msg".
func SuccessLine(msg string) string {
	return Success.Sprint("✓") + " " + msg
}

// ErrorLine returns "✗ msg".
func ErrorLine(msg string) string {
	return Error.Sprint("✗") + " " + msg
}

// WarningLine returns "⚠ msg".
func WarningLine(msg string) string {
	return Warning.Sprint("⚠") + " " + msg
}

// HintLine returns "→ msg".
func HintLine(msg string) string {
	return Info.Sprint("→") + " " + msg
}
