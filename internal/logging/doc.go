// Package logger provides leveled logging for credkeep.
//
// The logger supports multiple verbosity levels controlled by command-line
// flags. Output is formatted with colored semantic prefixes.
//
// # Verbosity Levels
//
// Logging behavior is controlled by two flags:
//
//   - --verbose: Shows info and warning messages
//   - --debug: Shows all messages including debug details and errors
//
// Without flags, only WarnfAlways output is shown.
//
// # Log Methods
//
//	Logger.Infof()           // Shown with --verbose or --debug
//	Logger.Debugf()          // Shown only with --debug
//	Logger.Warnf()           // Shown with --verbose or --debug
//	Logger.WarnfAlways()     // Always shown
//	Logger.Errorf()          // Shown with --debug
//	Logger.ErrorfAndReturn() // Errorf, then returns the message as an error
//
// # Usage
//
//	log := Logger{Verbose: verbose, Debug: debug}
//	log.Infof("Loaded %d records", count)
//
// The zero Logger is silent apart from WarnfAlways, which makes it a safe
// default for library packages.
package logger
