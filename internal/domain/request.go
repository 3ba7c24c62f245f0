package domain

import "fmt"

// Key is the coalescing identity of a write target.
// Two requests with the same Key address the same device object.
type Key struct {
	// Index is the primary address (object index, register address, ...)
	Index int

	// SubIndex is the secondary address (sub-object, unit id, ...)
	SubIndex int
}

// String formats the key as index/subindex in hex, the way device
// object dictionaries are usually written.
func (k Key) String() string {
	return fmt.Sprintf("0x%04X/%d", k.Index, k.SubIndex)
}

// WriteRequest is a validated write waiting in the queue.
type WriteRequest struct {
	Key     Key
	Payload any
}

// RawEvent is an input event before validation.
// Addresses may be numbers or numeric strings; Payload is opaque.
type RawEvent struct {
	Index    any `json:"index"`
	SubIndex any `json:"subindex"`
	Payload  any `json:"payload"`
}
