package cliconfig

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/devwrite/pkg/log"
)

var logger zerolog.Logger

func init() {
	logger = zerolog.New(consoleWriter(os.Stderr)).With().Timestamp().Logger()
}

// Logger returns the package console logger used before configuration is
// loaded.
func Logger() zerolog.Logger {
	return logger
}

// NewLogger builds the run logger for cfg. The console shows info and above
// unless Verbose is set. When LogFile is set every record down to debug is
// also written as JSON to a rotating file. The returned closer releases the
// file.
func NewLogger(cfg Config, console io.Writer) (zerolog.Logger, io.Closer) {
	consoleLevel := zerolog.InfoLevel
	if cfg.Verbose {
		consoleLevel = zerolog.DebugLevel
	}
	writers := []io.Writer{
		&zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: consoleWriter(console)},
			Level:  consoleLevel,
		},
	}

	var closer io.Closer = nopCloser{}
	if cfg.LogFile != "" {
		fw := log.NewFileWriter(log.FileConfig{Path: cfg.LogFile})
		writers = append(writers, fw)
		closer = fw
	}

	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(zerolog.DebugLevel).
		With().Timestamp().Logger()
	return l, closer
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
