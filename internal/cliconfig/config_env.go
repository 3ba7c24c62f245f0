package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (DEVWRITE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("device", os.Getenv("DEVWRITE_DEVICE"), &cfg.Device)
	s.setString("transport", os.Getenv("DEVWRITE_TRANSPORT"), &cfg.Transport)
	s.setString("debounce", os.Getenv("DEVWRITE_DEBOUNCE_TIME"), &cfg.DebounceTime)
	s.setString("status-file", os.Getenv("DEVWRITE_STATUS_FILE"), &cfg.StatusFile)
	s.setString("log-file", os.Getenv("DEVWRITE_LOG_FILE"), &cfg.LogFile)
	s.setString("input", os.Getenv("DEVWRITE_INPUT"), &cfg.Input)

	if err := s.setDuration("busy-min", os.Getenv("DEVWRITE_BUSY_MIN_DURATION"), &cfg.BusyMinDuration); err != nil {
		return err
	}
	if err := s.setDuration("dial-timeout", os.Getenv("DEVWRITE_DIAL_TIMEOUT"), &cfg.DialTimeout); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", os.Getenv("DEVWRITE_WRITE_TIMEOUT"), &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-min", os.Getenv("DEVWRITE_RECONNECT_MIN"), &cfg.ReconnectMin); err != nil {
		return err
	}
	if err := s.setDuration("reconnect-max", os.Getenv("DEVWRITE_RECONNECT_MAX"), &cfg.ReconnectMax); err != nil {
		return err
	}

	s.setBoolFromString("verbose", os.Getenv("DEVWRITE_VERBOSE"), &cfg.Verbose)

	return nil
}
