package ports

import (
	"time"

	"github.com/bft-labs/devwrite/pkg/log"
)

// Logger is the diagnostic logging port.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors re-exported for the application layer.
func String(key, value string) Field                 { return log.String(key, value) }
func Int(key string, value int) Field                { return log.Int(key, value) }
func Bool(key string, value bool) Field              { return log.Bool(key, value) }
func Duration(key string, value time.Duration) Field { return log.Duration(key, value) }
func Err(err error) Field                            { return log.Err(err) }
func Any(key string, value any) Field                { return log.Any(key, value) }
