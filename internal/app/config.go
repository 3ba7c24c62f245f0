package app

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/devwrite/internal/domain"
)

// ParseDebounce parses a debounce interval given as a non-negative integer
// number of milliseconds.
func ParseDebounce(s string) (time.Duration, error) {
	ms, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: debounce time %q is not a non-negative integer of milliseconds", domain.ErrInvalidConfig, s)
	}
	if ms > math.MaxInt64/uint64(time.Millisecond) {
		return 0, fmt.Errorf("%w: debounce time %q is out of range", domain.ErrInvalidConfig, s)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
