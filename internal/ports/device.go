package ports

import (
	"context"

	"github.com/bft-labs/devwrite/internal/domain"
)

// DeviceWriter writes one addressed payload to the device.
// It returns nil on success or an error that may wrap a chain of causes.
// Implementations may block; the dispatcher never calls Write concurrently.
type DeviceWriter interface {
	Write(ctx context.Context, key domain.Key, payload any) error
}

// DeviceWriterFunc adapts a function to DeviceWriter.
type DeviceWriterFunc func(ctx context.Context, key domain.Key, payload any) error

// Write calls f.
func (f DeviceWriterFunc) Write(ctx context.Context, key domain.Key, payload any) error {
	return f(ctx, key, payload)
}
