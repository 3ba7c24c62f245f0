package devwrite

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bft-labs/devwrite/internal/app"
	"github.com/bft-labs/devwrite/internal/domain"
)

// Settings holds the timing configuration of a node. It can be changed
// while the node runs with Node.Reconfigure.
type Settings struct {
	// DebounceTime is the quiet period after each completed write, as a
	// non-negative integer number of milliseconds.
	DebounceTime string

	// BusyMinDuration is how long Busy stays visible after a write starts.
	BusyMinDuration time.Duration
}

// Config holds the configuration of a node.
type Config struct {
	Settings
}

// DefaultSettings returns Settings with the default timing.
func DefaultSettings() Settings {
	return Settings{
		DebounceTime:    strconv.FormatInt(app.DefaultDebounceInterval.Milliseconds(), 10),
		BusyMinDuration: app.DefaultBusyMinDuration,
	}
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{Settings: DefaultSettings()}
}

// Validate checks the settings. Errors match ErrInvalidConfig.
func (s Settings) Validate() error {
	_, err := s.dispatcherConfig()
	return err
}

func (s Settings) dispatcherConfig() (app.DispatcherConfig, error) {
	debounce, err := app.ParseDebounce(s.DebounceTime)
	if err != nil {
		return app.DispatcherConfig{}, err
	}
	if s.BusyMinDuration < 0 {
		return app.DispatcherConfig{}, fmt.Errorf("%w: busy min duration must not be negative", domain.ErrInvalidConfig)
	}
	return app.DispatcherConfig{
		DebounceInterval: debounce,
		BusyMinDuration:  s.BusyMinDuration,
	}, nil
}
