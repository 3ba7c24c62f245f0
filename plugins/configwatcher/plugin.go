// Package configwatcher reloads node timing settings when the config file
// changes.
package configwatcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/devwrite/internal/cliconfig"
	"github.com/bft-labs/devwrite/pkg/devwrite"
	"github.com/bft-labs/devwrite/pkg/log"
)

// Reasons logged when the config file cannot be loaded.
const (
	ReasonFileNotFound     = "FILE_NOT_FOUND"
	ReasonPermissionDenied = "PERMISSION_DENIED"
	ReasonReadError        = "READ_ERROR"
)

// LoadFunc produces the settings to apply after the config file changed.
// It receives the settings currently in effect.
type LoadFunc func(current devwrite.Settings) (devwrite.Settings, error)

// Plugin watches one config file and applies its timing settings to the
// node whenever it is written.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	load          LoadFunc

	current     devwrite.Settings
	reconfigure func(devwrite.Settings) error
	logger      devwrite.Logger
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	debounce    *time.Timer
	reloads     int
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the config file to watch.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Editors often write a file in several steps.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// Load builds the new settings. Defaults to LoadFile(Path).
	Load LoadFunc
}

// DefaultConfig returns a Config watching the default config file.
func DefaultConfig() Config {
	return Config{
		Path:          cliconfig.DefaultConfigPath(),
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	if cfg.Load == nil {
		cfg.Load = LoadFile(cfg.Path)
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		load:          cfg.Load,
	}
}

// LoadFile returns a LoadFunc that overlays the timing settings found in
// the file at path onto the current ones. Keys missing from the file keep
// their current value.
func LoadFile(path string) LoadFunc {
	return func(current devwrite.Settings) (devwrite.Settings, error) {
		fc, err := cliconfig.LoadFileConfig(path)
		if err != nil {
			return current, err
		}
		next := current
		debounce, err := fc.Debounce()
		if err != nil {
			return current, err
		}
		if debounce != "" {
			next.DebounceTime = debounce
		}
		if fc.BusyMinDuration != "" {
			d, err := time.ParseDuration(fc.BusyMinDuration)
			if err != nil {
				return current, fmt.Errorf("parse busy_min_duration: %w", err)
			}
			next.BusyMinDuration = d
		}
		return next, nil
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize records the node's settings and starts watching.
func (p *Plugin) Initialize(ctx context.Context, cfg devwrite.PluginConfig) error {
	p.mu.Lock()
	p.current = cfg.Settings
	p.reconfigure = cfg.Reconfigure
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Warn("config watcher disabled: no config file")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// The directory is watched so that files replaced by rename are seen.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher started", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Reloads returns how many times settings were applied from the file.
func (p *Plugin) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// reload applies the file's settings. On any failure the settings in
// effect are kept.
func (p *Plugin) reload() {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()

	next, err := p.load(current)
	if err != nil {
		p.logger.Warn("config reload failed, keeping current settings",
			log.String("reason", reason(err)),
			log.Err(err))
		return
	}
	if next == current {
		p.logger.Debug("config file changed, settings unchanged")
		return
	}

	if err := p.reconfigure(next); err != nil {
		p.logger.Warn("config reload rejected, keeping current settings",
			log.Err(err))
		return
	}

	p.mu.Lock()
	p.current = next
	p.reloads++
	p.mu.Unlock()

	p.logger.Info("settings reloaded",
		log.String("debounce_ms", next.DebounceTime),
		log.Duration("busy_min", next.BusyMinDuration))
}

func reason(err error) string {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return ReasonFileNotFound
	case errors.Is(err, os.ErrPermission):
		return ReasonPermissionDenied
	default:
		return ReasonReadError
	}
}

var _ devwrite.Plugin = (*Plugin)(nil)
