package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bft-labs/devwrite/internal/app"
	"github.com/bft-labs/devwrite/internal/domain"
)

// Supported transports.
const (
	TransportCBOR   = "cbor"
	TransportModbus = "modbus"
)

// Config holds CLI configuration for devwrite.
type Config struct {
	Device    string
	Transport string

	// DebounceTime is the quiet period after each write, in milliseconds.
	DebounceTime    string
	BusyMinDuration time.Duration

	DialTimeout  time.Duration
	WriteTimeout time.Duration
	ReconnectMin time.Duration
	ReconnectMax time.Duration

	StatusFile string
	LogFile    string
	Input      string
	Verbose    bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Transport:       TransportCBOR,
		DebounceTime:    strconv.FormatInt(app.DefaultDebounceInterval.Milliseconds(), 10),
		BusyMinDuration: app.DefaultBusyMinDuration,
		DialTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ReconnectMin:    500 * time.Millisecond,
		ReconnectMax:    10 * time.Second,
		Input:           "-",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("%w: device is required", domain.ErrInvalidConfig)
	}

	switch c.Transport {
	case TransportCBOR, TransportModbus:
	default:
		return fmt.Errorf("%w: unknown transport %q", domain.ErrInvalidConfig, c.Transport)
	}

	if _, err := app.ParseDebounce(c.DebounceTime); err != nil {
		return err
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"busy-min", c.BusyMinDuration},
		{"dial-timeout", c.DialTimeout},
		{"write-timeout", c.WriteTimeout},
		{"reconnect-min", c.ReconnectMin},
		{"reconnect-max", c.ReconnectMax},
	}
	for _, d := range durations {
		if d.d < 0 {
			return fmt.Errorf("%w: %s must not be negative", domain.ErrInvalidConfig, d.name)
		}
	}
	if c.ReconnectMax < c.ReconnectMin {
		return fmt.Errorf("%w: reconnect-max must not be below reconnect-min", domain.ErrInvalidConfig)
	}

	if c.Input == "" {
		c.Input = "-"
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
