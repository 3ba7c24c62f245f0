package cbortcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/devwrite/internal/domain"
	"github.com/bft-labs/devwrite/pkg/log"
)

func TestFraming(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("abc")))
	assert.Equal(t, []byte{0, 0, 0, 3, 'a', 'b', 'c'}, buf.Bytes())

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	assert.ErrorIs(t, WriteFrame(&buf, nil), ErrMessageEmpty)
	assert.ErrorIs(t, WriteFrame(&buf, make([]byte, MaxMessageSize+1)), ErrMessageTooLarge)

	_, err = ReadFrame(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff}))
	assert.ErrorIs(t, err, ErrMessageTooLarge)

	_, err = ReadFrame(bytes.NewReader([]byte{0, 0, 0, 5, 'a'}))
	assert.Error(t, err)
}

func TestRemoteErrorChain(t *testing.T) {
	resp := &Response{
		Seq:    7,
		Status: StatusError,
		Error: &RemoteError{
			Message: "download failed",
			Cause: &RemoteError{
				Message: "segment 2",
				Cause:   &RemoteError{Message: "sdo abort 0x06090011", Code: 0x06090011},
			},
		},
	}

	data, err := EncodeResponse(resp)
	require.NoError(t, err)
	decoded, err := DecodeResponse(data)
	require.NoError(t, err)

	err = decoded.Err()
	require.Error(t, err)
	assert.Equal(t, "download failed: segment 2: sdo abort 0x06090011", err.Error())

	root := domain.RootCause(err)
	assert.Equal(t, "sdo abort 0x06090011", root.Error())
	var rerr *RemoteError
	require.True(t, errors.As(root, &rerr))
	assert.Equal(t, uint32(0x06090011), rerr.Code)
}

func TestResponseErr_StatusWithoutDetail(t *testing.T) {
	r := &Response{Status: 9}
	assert.EqualError(t, r.Err(), "device returned status 9")
	assert.NoError(t, (&Response{}).Err())
}

func TestEncodeRequest_NormalizesJSONNumbers(t *testing.T) {
	data, err := EncodeRequest(&Request{
		Seq:     1,
		Index:   0x2000,
		Payload: []any{json.Number("5"), json.Number("2.5"), map[string]any{"n": json.Number("9")}},
	})
	require.NoError(t, err)

	req, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x2000), req.Index)
	assert.Equal(t, []any{uint64(5), 2.5, map[any]any{"n": uint64(9)}}, req.Payload)
}

type device struct {
	mu       sync.Mutex
	received []*Request
	fail     *RemoteError
	block    chan struct{}
}

func (d *device) handle(ctx context.Context, req *Request) *RemoteError {
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.received = append(d.received, req)
	return d.fail
}

func startDevice(t *testing.T, d *device) (*Server, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(d.handle, log.NewNoopLogger())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return srv, ln.Addr().String()
}

func dial(t *testing.T, addr string, timeout time.Duration) *Conn {
	t.Helper()
	d := &Dialer{Addr: addr, WriteTimeout: timeout, Logger: log.NewNoopLogger()}
	sess, err := d.Dial(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return sess.(*Conn)
}

func TestConn_Write(t *testing.T) {
	d := &device{}
	_, addr := startDevice(t, d)
	c := dial(t, addr, time.Second)

	key := domain.Key{Index: 0x2000, SubIndex: 1}
	require.NoError(t, c.Write(context.Background(), key, "hello"))
	require.NoError(t, c.Write(context.Background(), key, float64(9)))

	d.mu.Lock()
	defer d.mu.Unlock()
	require.Len(t, d.received, 2)
	assert.Equal(t, uint32(1), d.received[0].Seq)
	assert.Equal(t, uint32(2), d.received[1].Seq)
	assert.Equal(t, uint32(1), d.received[1].SubIndex)
	assert.Equal(t, "hello", d.received[0].Payload)
}

func TestConn_WriteRemoteFailure(t *testing.T) {
	d := &device{fail: &RemoteError{Message: "write refused", Cause: &RemoteError{Message: "read-only object"}}}
	_, addr := startDevice(t, d)
	c := dial(t, addr, time.Second)

	err := c.Write(context.Background(), domain.Key{Index: 1}, 1)
	require.Error(t, err)
	assert.Equal(t, "read-only object", domain.RootCause(err).Error())
}

func TestConn_WriteTimeout(t *testing.T) {
	d := &device{block: make(chan struct{})}
	defer close(d.block)
	_, addr := startDevice(t, d)
	c := dial(t, addr, 20*time.Millisecond)

	err := c.Write(context.Background(), domain.Key{Index: 1}, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConn_DoneOnDrop(t *testing.T) {
	d := &device{}
	srv, addr := startDevice(t, d)
	c := dial(t, addr, time.Second)
	require.NoError(t, c.Write(context.Background(), domain.Key{Index: 1}, 1))

	srv.DropConnections()

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after the device dropped the connection")
	}
	err := c.Write(context.Background(), domain.Key{Index: 1}, 1)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestDialer_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	d := &Dialer{Addr: addr, Logger: log.NewNoopLogger()}
	_, err = d.Dial(context.Background())
	assert.Error(t, err)
}
