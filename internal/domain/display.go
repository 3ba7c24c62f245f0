package domain

import "fmt"

// DisplayState is the status shown to an operator.
// It is always derived, never stored as ground truth.
type DisplayState int

const (
	DisplayDisconnected DisplayState = iota
	DisplayConnecting
	DisplayError
	DisplayBusy
	DisplayConnected
)

// String returns a human-readable representation of the display state.
func (s DisplayState) String() string {
	switch s {
	case DisplayConnecting:
		return "Connecting"
	case DisplayDisconnected:
		return "Disconnected"
	case DisplayError:
		return "Error"
	case DisplayBusy:
		return "Busy"
	case DisplayConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the state by name for JSON status files.
func (s DisplayState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name written by MarshalText.
func (s *DisplayState) UnmarshalText(text []byte) error {
	for c := DisplayDisconnected; c <= DisplayConnected; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown display state %q", text)
}
