package cbortcp

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Response status codes.
const (
	StatusOK    uint8 = 0
	StatusError uint8 = 1
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Request asks the device to store Payload at (Index, SubIndex).
type Request struct {
	Seq      uint32 `cbor:"1,keyasint"`
	Index    uint32 `cbor:"2,keyasint"`
	SubIndex uint32 `cbor:"3,keyasint"`
	Payload  any    `cbor:"4,keyasint"`
}

// Response answers the Request with the same Seq.
type Response struct {
	Seq    uint32       `cbor:"1,keyasint"`
	Status uint8        `cbor:"2,keyasint"`
	Error  *RemoteError `cbor:"3,keyasint,omitempty"`
}

// RemoteError is a failure reported by the device. Cause is the failure
// it wraps, if any.
type RemoteError struct {
	Message string       `cbor:"1,keyasint"`
	Code    uint32       `cbor:"2,keyasint,omitempty"`
	Cause   *RemoteError `cbor:"3,keyasint,omitempty"`
}

// Error returns the messages of the whole chain, outermost first.
func (e *RemoteError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

// Unwrap returns the wrapped remote failure.
func (e *RemoteError) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}

// Err converts the response into a Go error, nil on success.
func (r *Response) Err() error {
	if r.Status == StatusOK {
		return nil
	}
	if r.Error != nil {
		return r.Error
	}
	return fmt.Errorf("device returned status %d", r.Status)
}

// EncodeRequest encodes a request to CBOR bytes.
func EncodeRequest(req *Request) ([]byte, error) {
	req.Payload = normalizePayload(req.Payload)
	return encMode.Marshal(req)
}

// DecodeRequest decodes CBOR bytes into a request.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := decMode.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	return &req, nil
}

// EncodeResponse encodes a response to CBOR bytes.
func EncodeResponse(resp *Response) ([]byte, error) {
	return encMode.Marshal(resp)
}

// DecodeResponse decodes CBOR bytes into a response.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := decMode.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// normalizePayload turns json.Number values into CBOR numbers.
func normalizePayload(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizePayload(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizePayload(e)
		}
		return out
	default:
		return v
	}
}
