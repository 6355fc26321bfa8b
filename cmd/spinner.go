package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/PolarWolf314/credkeep/internal/ui"
	"github.com/briandowns/spinner"
)

// startSpinner creates and starts a spinner with the given message when not in
// verbose or debug mode. The spinner draws on stderr so that stdout stays
// clean for piping. Returns the spinner and a function that should be
// deferred to clean up.
//
// spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// writes the final message to out with ui.EnsureNewline applied.
func startSpinner(message string, out io.Writer) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	quiet := !verbose && !debug
	if quiet {
		s.Start()
		// Keep stray log output from tearing the spinner line.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if quiet {
			log.SetOutput(os.Stderr)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if quiet {
			s.Stop()
		}

		if finalMsg != "" {
			fmt.Fprint(out, finalMsg)
		}
	}

	return s, cleanup
}
