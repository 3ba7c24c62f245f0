// Package devwrite runs a device write pipeline: it keeps a connection to
// one device, reads write requests from a stream and writes them through a
// coalescing node.
//
// Example usage:
//
//	cfg := devwrite.DefaultConfig()
//	cfg.Device = "10.0.0.7:5020"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := devwrite.Run(context.Background(), cfg, devwrite.RunOptions{Input: os.Stdin}); err != nil {
//	    log.Fatal(err)
//	}
//
// Use the pkg/devwrite package to embed the node with a custom transport.
package devwrite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/bft-labs/devwrite/internal/adapters/cbortcp"
	"github.com/bft-labs/devwrite/internal/adapters/fs"
	logsurface "github.com/bft-labs/devwrite/internal/adapters/log"
	"github.com/bft-labs/devwrite/internal/adapters/modbus"
	"github.com/bft-labs/devwrite/internal/adapters/session"
	"github.com/bft-labs/devwrite/internal/cliconfig"
	"github.com/bft-labs/devwrite/internal/domain"
	"github.com/bft-labs/devwrite/internal/input"
	"github.com/bft-labs/devwrite/internal/ports"
	node "github.com/bft-labs/devwrite/pkg/devwrite"
	"github.com/bft-labs/devwrite/pkg/log"
)

// Config holds the configuration of a device write pipeline.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// DefaultConfig returns a Config with sensible default values.
// At minimum, you must set Device before calling Run.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// RunOptions carries what Run needs besides the configuration.
type RunOptions struct {
	// Input is the request stream. When nil, cfg.Input is opened
	// ("-" for standard input).
	Input io.Reader

	// Logger receives diagnostics and the operator-facing surface.
	Logger zerolog.Logger

	// NodeOptions are appended to the node's options, for example plugins.
	NodeOptions []node.Option
}

// Run connects to the device and writes requests read from the input.
// It blocks until the input ends and every request has been written, or
// until ctx is done. Stopping through ctx is a clean shutdown and returns
// nil; requests still queued at that point are dropped.
func Run(ctx context.Context, cfg Config, opts RunOptions) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := log.NewZerologAdapterWithLogger(opts.Logger)

	in := opts.Input
	if in == nil {
		f, err := OpenInput(cfg.Input)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	dialer, err := NewDialer(cfg, logger)
	if err != nil {
		return err
	}
	manager := session.NewManager(dialer, session.Config{
		DialTimeout:  cfg.DialTimeout,
		ReconnectMin: cfg.ReconnectMin,
		ReconnectMax: cfg.ReconnectMax,
	}, logger)

	surface := logsurface.NewSurface(logger)
	sinks := statusSinks{surface}
	reporters := errorReporters{surface}
	if cfg.StatusFile != "" {
		sf := fs.NewStatusFile(cfg.StatusFile, logger)
		sinks = append(sinks, sf)
		reporters = append(reporters, sf)
		logger.Info("writing status file", log.String("path", sf.Path()))
	}

	nodeOpts := append([]node.Option{
		node.WithLogger(logger),
		node.WithStatusSink(sinks),
		node.WithErrorReporter(reporters),
		node.WithConnectionSource(manager),
	}, opts.NodeOptions...)

	n, err := node.New(node.Config{Settings: node.Settings{
		DebounceTime:    cfg.DebounceTime,
		BusyMinDuration: cfg.BusyMinDuration,
	}}, nodeOpts...)
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := n.Start(runCtx); err != nil {
		return fmt.Errorf("start node: %w", err)
	}

	managerDone := make(chan struct{})
	go func() {
		defer close(managerDone)
		err := manager.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, session.ErrManagerClosed) {
			logger.Error("connection manager stopped", log.Err(err))
		}
	}()

	logger.Info("devwrite started",
		log.String("device", cfg.Device),
		log.String("transport", cfg.Transport),
		log.String("debounce_ms", cfg.DebounceTime),
	)

	runErr := pump(runCtx, n, in, reporters, logger)

	if err := n.Close(); err != nil && !errors.Is(err, domain.ErrClosed) {
		logger.Warn("node shutdown incomplete", log.Err(err))
	}
	cancel()
	_ = manager.Close()
	<-managerDone

	if ctx.Err() != nil {
		logger.Info("devwrite stopped before all requests were written")
		return nil
	}
	return runErr
}

// pump feeds the input into the node and waits for the queue to drain.
func pump(ctx context.Context, n *node.Node, in io.Reader, reporter ports.ErrorReporter, logger ports.Logger) error {
	st, err := input.NewReader(in, n, reporter, logger).Run(ctx)
	logger.Info("input finished",
		log.Int("lines", st.Lines),
		log.Int("submitted", st.Submitted),
		log.Int("rejected", st.Rejected),
	)
	if err != nil {
		return err
	}
	if err := n.Flush(ctx); err != nil {
		return err
	}
	logger.Info("all requests written")
	return nil
}

// NewDialer returns the transport dialer selected by cfg.Transport.
func NewDialer(cfg Config, logger ports.Logger) (session.Dialer, error) {
	switch cfg.Transport {
	case cliconfig.TransportCBOR:
		return &cbortcp.Dialer{Addr: cfg.Device, WriteTimeout: cfg.WriteTimeout, Logger: logger}, nil
	case cliconfig.TransportModbus:
		return &modbus.Dialer{Addr: cfg.Device, Timeout: cfg.WriteTimeout, Logger: logger}, nil
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", domain.ErrInvalidConfig, cfg.Transport)
	}
}

// OpenInput opens the request stream; "-" or "" is standard input.
func OpenInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

// Logger returns the package-level console logger.
func Logger() zerolog.Logger {
	return cliconfig.Logger()
}

type statusSinks []ports.StatusSink

func (s statusSinks) SetStatus(state domain.DisplayState) {
	for _, sink := range s {
		sink.SetStatus(state)
	}
}

type errorReporters []ports.ErrorReporter

func (r errorReporters) ReportError(err error) {
	for _, rep := range r {
		rep.ReportError(err)
	}
}
