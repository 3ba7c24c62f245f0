package cliconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_ConsoleLevel(t *testing.T) {
	var console bytes.Buffer
	l, closer := NewLogger(Config{}, &console)
	defer closer.Close()

	l.Debug().Msg("hidden detail")
	l.Info().Msg("visible")

	out := console.String()
	if strings.Contains(out, "hidden detail") {
		t.Errorf("console shows debug output without verbose: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("console missing info output: %q", out)
	}
}

func TestNewLogger_FileReceivesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devwrite.log")
	var console bytes.Buffer
	l, closer := NewLogger(Config{LogFile: path}, &console)

	l.Debug().Str("chain", "A: B: C").Msg("write failed")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `"chain":"A: B: C"`) {
		t.Errorf("log file = %q, want the debug record", data)
	}
	if strings.Contains(console.String(), "write failed") {
		t.Error("console shows debug output without verbose")
	}
}
