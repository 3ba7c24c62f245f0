package cbortcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/bft-labs/devwrite/internal/adapters/session"
	"github.com/bft-labs/devwrite/internal/domain"
	"github.com/bft-labs/devwrite/internal/ports"
)

// ErrConnectionClosed is returned for writes on a lost connection.
var ErrConnectionClosed = errors.New("connection closed")

// DefaultWriteTimeout bounds a write whose context has no deadline.
const DefaultWriteTimeout = 5 * time.Second

// Dialer opens CBOR-over-TCP sessions to one device.
type Dialer struct {
	Addr         string
	WriteTimeout time.Duration
	Logger       ports.Logger
}

// Dial implements session.Dialer.
func (d *Dialer) Dial(ctx context.Context) (session.Session, error) {
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", d.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.Addr, err)
	}
	return NewConn(conn, d.WriteTimeout, d.Logger), nil
}

// Conn is one established device connection. Responses are matched to
// requests by sequence number on a background reader goroutine.
type Conn struct {
	conn         net.Conn
	writeTimeout time.Duration
	logger       ports.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	seq     uint32
	pending map[uint32]chan *Response
	err     error

	done      chan struct{}
	closeOnce sync.Once
}

// NewConn wraps an established connection and starts its reader.
func NewConn(conn net.Conn, writeTimeout time.Duration, logger ports.Logger) *Conn {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	c := &Conn{
		conn:         conn,
		writeTimeout: writeTimeout,
		logger:       logger,
		pending:      make(map[uint32]chan *Response),
		done:         make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Write sends one write request and waits for its response.
func (c *Conn) Write(ctx context.Context, key domain.Key, payload any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}

	ch := make(chan *Response, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return err
	}
	c.seq++
	seq := c.seq
	c.pending[seq] = ch
	c.mu.Unlock()
	defer c.forget(seq)

	data, err := EncodeRequest(&Request{
		Seq:      seq,
		Index:    uint32(key.Index),
		SubIndex: uint32(key.SubIndex),
		Payload:  payload,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	c.writeMu.Lock()
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(dl)
	}
	err = WriteFrame(c.conn, data)
	c.writeMu.Unlock()
	if err != nil {
		c.fail(err)
		return fmt.Errorf("send request: %w", err)
	}

	select {
	case resp := <-ch:
		return resp.Err()
	case <-c.done:
		return c.closedErr()
	case <-ctx.Done():
		return fmt.Errorf("await response: %w", ctx.Err())
	}
}

// Done is closed when the connection is lost or closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection.
func (c *Conn) Close() error {
	c.fail(ErrConnectionClosed)
	return nil
}

func (c *Conn) readLoop() {
	for {
		data, err := ReadFrame(c.conn)
		if err != nil {
			c.fail(err)
			return
		}
		resp, err := DecodeResponse(data)
		if err != nil {
			c.logger.Warn("dropping undecodable response", ports.Err(err))
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.Seq]
		delete(c.pending, resp.Seq)
		c.mu.Unlock()

		if !ok {
			c.logger.Debug("response without pending request", ports.Int("seq", int(resp.Seq)))
			continue
		}
		ch <- resp
	}
}

func (c *Conn) forget(seq uint32) {
	c.mu.Lock()
	delete(c.pending, seq)
	c.mu.Unlock()
}

func (c *Conn) fail(err error) {
	c.closeOnce.Do(func() {
		if !errors.Is(err, ErrConnectionClosed) {
			err = fmt.Errorf("%w: %v", ErrConnectionClosed, err)
		}
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		_ = c.conn.Close()
		close(c.done)
	})
}

func (c *Conn) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

var (
	_ session.Dialer  = (*Dialer)(nil)
	_ session.Session = (*Conn)(nil)
)
