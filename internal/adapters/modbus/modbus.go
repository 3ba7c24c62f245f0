// Package modbus implements the device transport over Modbus TCP.
//
// The index of a key is the register (or coil) address and the subindex is
// the unit id. A numeric payload writes one holding register, a list of
// numbers writes consecutive registers, and booleans write coils.
package modbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/bft-labs/devwrite/internal/adapters/session"
	"github.com/bft-labs/devwrite/internal/domain"
	"github.com/bft-labs/devwrite/internal/ports"
)

// DefaultTimeout bounds each Modbus transaction.
const DefaultTimeout = 5 * time.Second

// ErrUnsupportedPayload is returned for payloads that do not map to
// registers or coils.
var ErrUnsupportedPayload = errors.New("unsupported payload")

// Dialer opens Modbus TCP sessions.
type Dialer struct {
	Addr    string
	Timeout time.Duration
	Logger  ports.Logger
}

// Dial implements session.Dialer.
func (d *Dialer) Dial(ctx context.Context) (session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	h := modbus.NewTCPClientHandler(d.Addr)
	h.Timeout = timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			h.Timeout = left
		}
	}
	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.Addr, err)
	}
	h.Timeout = timeout

	return &Session{
		handler: h,
		client:  modbus.NewClient(h),
		logger:  d.Logger,
		done:    make(chan struct{}),
	}, nil
}

// Session is one Modbus TCP connection. It serializes requests because
// the unit id is set on the shared handler per write.
type Session struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
	logger  ports.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// Write writes payload at key.
func (s *Session) Write(ctx context.Context, key domain.Key, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key.Index > math.MaxUint16 {
		return fmt.Errorf("address 0x%X exceeds the modbus address space", key.Index)
	}
	if key.SubIndex > math.MaxUint8 {
		return fmt.Errorf("unit id %d exceeds 255", key.SubIndex)
	}

	op, err := encodeValue(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return errors.New("modbus session closed")
	default:
	}

	s.handler.SlaveId = byte(key.SubIndex)
	addr := uint16(key.Index)

	switch {
	case op.coils != nil && len(op.coils) == 1:
		var v uint16
		if op.coils[0] {
			v = 0xFF00
		}
		_, err = s.client.WriteSingleCoil(addr, v)
	case op.coils != nil:
		_, err = s.client.WriteMultipleCoils(addr, uint16(len(op.coils)), packBits(op.coils))
	case len(op.regs) == 1:
		_, err = s.client.WriteSingleRegister(addr, op.regs[0])
	default:
		_, err = s.client.WriteMultipleRegisters(addr, uint16(len(op.regs)), packRegisters(op.regs))
	}
	if err == nil {
		return nil
	}

	var mbErr *modbus.ModbusError
	if !errors.As(err, &mbErr) {
		// Transport failures end the session so the manager reconnects.
		s.logger.Warn("modbus transport failure", ports.Err(err))
		s.closeLocked()
	}
	return fmt.Errorf("modbus write 0x%04X unit %d: %w", addr, key.SubIndex, err)
}

// Done is closed when the session fails or is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close closes the connection.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}

func (s *Session) closeLocked() {
	s.closeOnce.Do(func() {
		_ = s.handler.Close()
		close(s.done)
	})
}

type writeOp struct {
	regs  []uint16
	coils []bool
}

// encodeValue maps a payload onto registers or coils.
func encodeValue(payload any) (writeOp, error) {
	switch v := payload.(type) {
	case bool:
		return writeOp{coils: []bool{v}}, nil
	case []any:
		if len(v) == 0 {
			return writeOp{}, fmt.Errorf("%w: empty list", ErrUnsupportedPayload)
		}
		if len(v) > 123 {
			return writeOp{}, fmt.Errorf("%w: %d values exceed one request", ErrUnsupportedPayload, len(v))
		}
		if _, ok := v[0].(bool); ok {
			coils := make([]bool, len(v))
			for i, e := range v {
				b, ok := e.(bool)
				if !ok {
					return writeOp{}, fmt.Errorf("%w: mixed list", ErrUnsupportedPayload)
				}
				coils[i] = b
			}
			return writeOp{coils: coils}, nil
		}
		regs := make([]uint16, len(v))
		for i, e := range v {
			r, err := register(e)
			if err != nil {
				return writeOp{}, err
			}
			regs[i] = r
		}
		return writeOp{regs: regs}, nil
	default:
		r, err := register(payload)
		if err != nil {
			return writeOp{}, err
		}
		return writeOp{regs: []uint16{r}}, nil
	}
}

// register converts a number to a register value. Negative values are
// stored as 16-bit two's complement.
func register(v any) (uint16, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrUnsupportedPayload, n)
		}
		f = x
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedPayload, v)
	}

	if f != math.Trunc(f) || f < math.MinInt16 || f > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %v does not fit a register", ErrUnsupportedPayload, f)
	}
	if f < 0 {
		return uint16(int16(f)), nil
	}
	return uint16(f), nil
}

func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, v := range bits {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}

var (
	_ session.Dialer  = (*Dialer)(nil)
	_ session.Session = (*Session)(nil)
)
