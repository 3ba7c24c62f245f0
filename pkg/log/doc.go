// Package log provides the structured logging abstraction used by devwrite.
//
// The dispatcher writes its diagnostic log (full error chains, dispatch
// decisions) through the [Logger] interface. Two implementations ship with
// the package: a zerolog adapter and a no-op logger for tests and embedders
// that bring their own logging.
//
// # Usage
//
// Console output on stderr:
//
//	logger := log.NewZerologAdapter()
//
// A rotating JSON file for the verbose diagnostic log:
//
//	logger := log.NewFileLogger(log.FileConfig{Path: "/var/log/devwrite.log"})
//
// Any other logging library can be plugged in by implementing [Logger].
package log
