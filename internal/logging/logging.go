package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

type Logger struct {
	Verbose bool
	Debug   bool

	// Out and Err default to os.Stdout and os.Stderr when nil.
	Out io.Writer
	Err io.Writer
}

func (l Logger) stdout() io.Writer {
	if l.Out != nil {
		return l.Out
	}
	return os.Stdout
}

func (l Logger) stderr() io.Writer {
	if l.Err != nil {
		return l.Err
	}
	return os.Stderr
}

func (l Logger) Infof(msg string, args ...any) {
	if l.Verbose || l.Debug {
		fmt.Fprintf(l.stdout(), color.GreenString("[info] ")+msg+"\n", args...)
	}
}

func (l Logger) Debugf(msg string, args ...any) {
	if l.Debug {
		fmt.Fprintf(l.stdout(), color.CyanString("[debug] ")+msg+"\n", args...)
	}
}

func (l Logger) Warnf(msg string, args ...any) {
	if l.Verbose || l.Debug {
		fmt.Fprintf(l.stderr(), color.YellowString("[warn] ")+msg+"\n", args...)
	}
}

// WarnfAlways prints warnings that must reach the user regardless of verbosity.
func (l Logger) WarnfAlways(msg string, args ...any) {
	fmt.Fprintf(l.stderr(), color.YellowString("[warn] ")+msg+"\n", args...)
}

func (l Logger) Errorf(msg string, args ...any) {
	if l.Debug {
		fmt.Fprintf(l.stderr(), color.RedString("[error] ")+msg+"\n", args...)
	}
}

// ErrorfAndReturn logs the message as an error and returns it.
func (l Logger) ErrorfAndReturn(msg string, args ...any) error {
	l.Errorf(msg, args...)
	return fmt.Errorf(msg, args...)
}
