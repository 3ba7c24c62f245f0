package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config but uses strings for durations to make files
// friendly. DebounceTime accepts a number or a string of milliseconds.
type FileConfig struct {
	Device          string `toml:"device" yaml:"device"`
	Transport       string `toml:"transport" yaml:"transport"`
	DebounceTime    any    `toml:"debounce_time" yaml:"debounce_time"`
	BusyMinDuration string `toml:"busy_min_duration" yaml:"busy_min_duration"`
	DialTimeout     string `toml:"dial_timeout" yaml:"dial_timeout"`
	WriteTimeout    string `toml:"write_timeout" yaml:"write_timeout"`
	ReconnectMin    string `toml:"reconnect_min" yaml:"reconnect_min"`
	ReconnectMax    string `toml:"reconnect_max" yaml:"reconnect_max"`
	StatusFile      string `toml:"status_file" yaml:"status_file"`
	LogFile         string `toml:"log_file" yaml:"log_file"`
	Input           string `toml:"input" yaml:"input"`
	Verbose         *bool  `toml:"verbose" yaml:"verbose"`
}

// LoadFileConfig reads and parses a config file from the given path.
// Files ending in .yaml or .yml are parsed as YAML, everything else as TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fc)
	default:
		err = toml.Unmarshal(b, &fc)
	}
	if err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.devwrite/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".devwrite", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("device", fc.Device, &cfg.Device)
	s.setString("transport", fc.Transport, &cfg.Transport)
	s.setString("status-file", fc.StatusFile, &cfg.StatusFile)
	s.setString("log-file", fc.LogFile, &cfg.LogFile)
	s.setString("input", fc.Input, &cfg.Input)

	debounce, err := fc.Debounce()
	if err != nil {
		return err
	}
	s.setString("debounce", debounce, &cfg.DebounceTime)

	if err := s.setDuration("busy-min", fc.BusyMinDuration, &cfg.BusyMinDuration); err != nil {
		return err
	}
	if err := s.setDuration("dial-timeout", fc.DialTimeout, &cfg.DialTimeout); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", fc.WriteTimeout, &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-min", fc.ReconnectMin, &cfg.ReconnectMin); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-max", fc.ReconnectMax, &cfg.ReconnectMax); err != nil {
		return err
	}

	s.setBool("verbose", fc.Verbose, &cfg.Verbose)

	return nil
}

// Debounce returns DebounceTime as a millisecond string, or "" when unset.
// The value itself is validated later by Config.Validate.
func (fc FileConfig) Debounce() (string, error) {
	switch v := fc.DebounceTime.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("parse debounce_time: unsupported value %v", v)
	}
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
