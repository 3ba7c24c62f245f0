package devwrite

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/devwrite/internal/adapters/cbortcp"
	"github.com/bft-labs/devwrite/internal/adapters/fs"
	"github.com/bft-labs/devwrite/internal/adapters/modbus"
	"github.com/bft-labs/devwrite/internal/cliconfig"
	"github.com/bft-labs/devwrite/internal/domain"
	"github.com/bft-labs/devwrite/pkg/log"
)

// device is a loopback CBOR device that remembers the last value written
// to each object.
type device struct {
	mu     sync.Mutex
	values map[domain.Key]any
	writes int
}

func startDevice(t *testing.T, handler func(*cbortcp.Request) *cbortcp.RemoteError) (*device, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	d := &device{values: make(map[domain.Key]any)}
	srv := cbortcp.NewServer(func(_ context.Context, req *cbortcp.Request) *cbortcp.RemoteError {
		if handler != nil {
			if rerr := handler(req); rerr != nil {
				return rerr
			}
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		d.values[domain.Key{Index: int(req.Index), SubIndex: int(req.SubIndex)}] = req.Payload
		d.writes++
		return nil
	}, log.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return d, ln.Addr().String()
}

func testConfig(addr string) Config {
	cfg := DefaultConfig()
	cfg.Device = addr
	cfg.DebounceTime = "0"
	cfg.BusyMinDuration = 0
	cfg.ReconnectMin = 10 * time.Millisecond
	cfg.ReconnectMax = 50 * time.Millisecond
	return cfg
}

func TestRun_WritesInputToDevice(t *testing.T) {
	dev, addr := startDevice(t, nil)

	cfg := testConfig(addr)
	cfg.StatusFile = t.TempDir()

	in := strings.Join([]string{
		`{"index": "0x2000", "subindex": 1, "payload": 10}`,
		`{"index": "0x2000", "subindex": 1, "payload": 11}`,
		`{"index": 8194, "subindex": 0, "payload": {"mode": "auto"}}`,
		`{"index": "0x2000", "subindex": 1, "payload": 12}`,
	}, "\n")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := Run(ctx, cfg, RunOptions{Input: strings.NewReader(in), Logger: zerolog.Nop()})
	require.NoError(t, err)

	dev.mu.Lock()
	defer dev.mu.Unlock()
	assert.Equal(t, uint64(12), dev.values[domain.Key{Index: 0x2000, SubIndex: 1}])
	assert.Equal(t, map[any]any{"mode": "auto"}, dev.values[domain.Key{Index: 0x2002, SubIndex: 0}])
	assert.LessOrEqual(t, dev.writes, 4)
	assert.GreaterOrEqual(t, dev.writes, 2)

	st, err := fs.NewStatusFile(filepath.Join(cfg.StatusFile, fs.DefaultStatusFileName), log.NewNoopLogger()).Load()
	require.NoError(t, err)
	assert.Equal(t, domain.DisplayConnected, st.State)
}

func TestRun_ReportsRootCause(t *testing.T) {
	_, addr := startDevice(t, func(req *cbortcp.Request) *cbortcp.RemoteError {
		if req.Index == 0x3000 {
			return &cbortcp.RemoteError{
				Message: "sdo download failed",
				Cause:   &cbortcp.RemoteError{Message: "object does not exist", Code: 0x06020000},
			}
		}
		return nil
	})

	cfg := testConfig(addr)
	cfg.StatusFile = filepath.Join(t.TempDir(), "status.json")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	in := `{"index": "0x3000", "subindex": 0, "payload": 1}`
	require.NoError(t, Run(ctx, cfg, RunOptions{Input: strings.NewReader(in), Logger: zerolog.Nop()}))

	st, err := fs.NewStatusFile(cfg.StatusFile, log.NewNoopLogger()).Load()
	require.NoError(t, err)
	assert.Equal(t, domain.DisplayError, st.State)
	assert.Equal(t, "object does not exist", st.LastError)
}

func TestRun_CancelWhileDisconnected(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	in := `{"index": 1, "subindex": 0, "payload": 1}`
	start := time.Now()
	err = Run(ctx, testConfig(addr), RunOptions{Input: strings.NewReader(in), Logger: zerolog.Nop()})
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	err := Run(context.Background(), cfg, RunOptions{Input: strings.NewReader("")})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	cfg.Device = "127.0.0.1:1"
	cfg.DebounceTime = "-5"
	err = Run(context.Background(), cfg, RunOptions{Input: strings.NewReader("")})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestNewDialer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device = "127.0.0.1:502"

	cfg.Transport = cliconfig.TransportCBOR
	d, err := NewDialer(cfg, log.NewNoopLogger())
	require.NoError(t, err)
	assert.IsType(t, &cbortcp.Dialer{}, d)

	cfg.Transport = cliconfig.TransportModbus
	d, err = NewDialer(cfg, log.NewNoopLogger())
	require.NoError(t, err)
	assert.IsType(t, &modbus.Dialer{}, d)

	cfg.Transport = "canopen"
	_, err = NewDialer(cfg, log.NewNoopLogger())
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestOpenInput(t *testing.T) {
	_, err := OpenInput(filepath.Join(t.TempDir(), "missing.ndjson"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	f, err := OpenInput("-")
	require.NoError(t, err)
	assert.NoError(t, f.Close())
}
