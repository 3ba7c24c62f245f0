package configwatcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/devwrite/pkg/devwrite"
	"github.com/bft-labs/devwrite/pkg/log"
)

type reconfigureRecorder struct {
	mu      sync.Mutex
	applied []devwrite.Settings
}

func (r *reconfigureRecorder) reconfigure(s devwrite.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, s)
	return nil
}

func (r *reconfigureRecorder) last() (devwrite.Settings, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.applied) == 0 {
		return devwrite.Settings{}, 0
	}
	return r.applied[len(r.applied)-1], len(r.applied)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadFile_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "debounce_time = 250\nbusy_min_duration = \"1s\"\ndevice = \"ignored:502\"\n")

	got, err := LoadFile(path)(devwrite.DefaultSettings())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	want := devwrite.Settings{DebounceTime: "250", BusyMinDuration: time.Second}
	if got != want {
		t.Errorf("settings = %+v, want %+v", got, want)
	}
}

func TestLoadFile_KeepsMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "debounce_time: \"40\"\n")

	current := devwrite.Settings{DebounceTime: "100", BusyMinDuration: 3 * time.Second}
	got, err := LoadFile(path)(current)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.DebounceTime != "40" {
		t.Errorf("DebounceTime = %q, want 40", got.DebounceTime)
	}
	if got.BusyMinDuration != 3*time.Second {
		t.Errorf("BusyMinDuration = %v, want 3s", got.BusyMinDuration)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.toml"))(devwrite.DefaultSettings())
	if got := reason(err); got != ReasonFileNotFound {
		t.Errorf("reason = %q, want %q", got, ReasonFileNotFound)
	}

	bad := filepath.Join(dir, "bad.toml")
	writeFile(t, bad, "busy_min_duration = \"soon\"\n")
	if _, err := LoadFile(bad)(devwrite.DefaultSettings()); err == nil {
		t.Error("expected error for unparsable duration")
	}

	if got := reason(errors.New("other")); got != ReasonReadError {
		t.Errorf("reason = %q, want %q", got, ReasonReadError)
	}
}

func TestPlugin_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "debounce_time = 100\n")

	rec := &reconfigureRecorder{}
	plugin := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := plugin.Initialize(ctx, devwrite.PluginConfig{
		Settings:    devwrite.DefaultSettings(),
		Logger:      log.NewNoopLogger(),
		Reconfigure: rec.reconfigure,
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	writeFile(t, path, "debounce_time = 20\nbusy_min_duration = \"50ms\"\n")

	waitFor(t, func() bool { return plugin.Reloads() == 1 })

	got, n := rec.last()
	if n != 1 {
		t.Errorf("reconfigure calls = %d, want 1", n)
	}
	want := devwrite.Settings{DebounceTime: "20", BusyMinDuration: 50 * time.Millisecond}
	if got != want {
		t.Errorf("settings = %+v, want %+v", got, want)
	}

	if err := plugin.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestPlugin_InvalidFileKeepsSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "debounce_time = 100\n")

	rec := &reconfigureRecorder{}
	plugin := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := plugin.Initialize(ctx, devwrite.PluginConfig{
		Settings:    devwrite.DefaultSettings(),
		Logger:      log.NewNoopLogger(),
		Reconfigure: rec.reconfigure,
	}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	writeFile(t, path, "debounce_time = \"fast\"\n")
	time.Sleep(200 * time.Millisecond)

	// A later valid write still applies.
	writeFile(t, path, "debounce_time = 5\n")
	waitFor(t, func() bool { return plugin.Reloads() == 1 })

	got, n := rec.last()
	if n != 1 || got.DebounceTime != "5" {
		t.Errorf("applied %d times, last %+v; want once with debounce 5", n, got)
	}

	if err := plugin.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestPlugin_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "debounce_time = 100\n")

	rec := &reconfigureRecorder{}
	plugin := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := plugin.Initialize(ctx, devwrite.PluginConfig{
		Settings:    devwrite.DefaultSettings(),
		Logger:      log.NewNoopLogger(),
		Reconfigure: rec.reconfigure,
	}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	writeFile(t, filepath.Join(dir, "other.toml"), "debounce_time = 1\n")
	time.Sleep(200 * time.Millisecond)

	if n := plugin.Reloads(); n != 0 {
		t.Errorf("Reloads = %d, want 0", n)
	}

	if err := plugin.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestPlugin_Name(t *testing.T) {
	plugin := New(DefaultConfig())
	if plugin.Name() != "configwatcher" {
		t.Errorf("Name() = %v, want configwatcher", plugin.Name())
	}
}

func TestPlugin_DisabledWhenPathEmpty(t *testing.T) {
	plugin := New(Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := plugin.Initialize(ctx, devwrite.PluginConfig{
		Settings: devwrite.DefaultSettings(),
		Logger:   log.NewNoopLogger(),
		Reconfigure: func(devwrite.Settings) error {
			t.Error("Reconfigure called on a disabled watcher")
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if err := plugin.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestWithConfigWatcher_Node(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "debounce_time = 100\n")

	writer := devwrite.DeviceWriterFunc(func(context.Context, devwrite.Key, any) error { return nil })
	node, err := devwrite.New(devwrite.DefaultConfig(),
		devwrite.WithConnectionSource(devwrite.StaticConnection(writer)),
		WithConfigWatcher(Config{Path: path, DebounceDelay: 10 * time.Millisecond}),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := node.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer node.Close()

	writeFile(t, path, "debounce_time = 7\n")
	waitFor(t, func() bool { return node.Settings().DebounceTime == "7" })
}
