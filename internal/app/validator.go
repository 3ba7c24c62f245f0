package app

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bft-labs/devwrite/internal/domain"
)

// Validate checks a raw input event and turns it into a WriteRequest.
// It runs in the caller's goroutine and touches no shared state, so a
// rejected event can never reach the queue.
func Validate(raw domain.RawEvent) (domain.WriteRequest, error) {
	index, err := parseAddress("index", raw.Index)
	if err != nil {
		return domain.WriteRequest{}, err
	}
	sub, err := parseAddress("subindex", raw.SubIndex)
	if err != nil {
		return domain.WriteRequest{}, err
	}
	if raw.Payload == nil {
		return domain.WriteRequest{}, &domain.RequestError{Field: "payload", Reason: "is missing"}
	}

	return domain.WriteRequest{
		Key:     domain.Key{Index: index, SubIndex: sub},
		Payload: raw.Payload,
	}, nil
}

// parseAddress accepts Go integers, integral floats (JSON numbers),
// json.Number and numeric strings with an optional 0x/0o/0b prefix.
func parseAddress(field string, v any) (int, error) {
	var n int64
	switch x := v.(type) {
	case nil:
		return 0, &domain.RequestError{Field: field, Reason: "is missing"}
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint8:
		n = int64(x)
	case uint16:
		n = int64(x)
	case uint32:
		n = int64(x)
	case uint:
		if uint64(x) > math.MaxInt32 {
			return 0, outOfRange(field)
		}
		n = int64(x)
	case uint64:
		if x > math.MaxInt32 {
			return 0, outOfRange(field)
		}
		n = int64(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return 0, notInteger(field, v)
		}
		if x > math.MaxInt32 || x < math.MinInt32 {
			return 0, outOfRange(field)
		}
		n = int64(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, notInteger(field, v)
		}
		n = i
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 0, 64)
		if err != nil {
			return 0, notInteger(field, v)
		}
		n = i
	default:
		return 0, notInteger(field, v)
	}

	if n < 0 {
		return 0, &domain.RequestError{Field: field, Reason: "must not be negative"}
	}
	if n > math.MaxInt32 {
		return 0, outOfRange(field)
	}
	return int(n), nil
}

func notInteger(field string, v any) error {
	return &domain.RequestError{Field: field, Reason: fmt.Sprintf("is not an integer: %v", v)}
}

func outOfRange(field string) error {
	return &domain.RequestError{Field: field, Reason: "is out of range"}
}
