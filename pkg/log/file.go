package log

import (
	"io"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig configures a rotating log file.
type FileConfig struct {
	// Path of the active log file
	Path string

	// MaxSizeMB rotates the file once it grows past this size. Default: 10
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept. Default: 3
	MaxBackups int

	// MaxAgeDays removes rotated files older than this. Zero keeps them.
	MaxAgeDays int

	// Level is the minimum level written. Default: debug
	Level zerolog.Level
}

// NewFileWriter returns a rotating writer for cfg.
// The caller owns the returned writer and should Close it on shutdown.
func NewFileWriter(cfg FileConfig) io.WriteCloser {
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
}

// NewFileLogger creates a JSON logger writing to a rotating file.
func NewFileLogger(cfg FileConfig) (*ZerologAdapter, io.Closer) {
	w := NewFileWriter(cfg)
	logger := zerolog.New(w).Level(cfg.Level).With().Timestamp().Logger()
	return &ZerologAdapter{logger: logger}, w
}
