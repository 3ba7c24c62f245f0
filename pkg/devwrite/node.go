package devwrite

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/devwrite/internal/app"
	"github.com/bft-labs/devwrite/internal/domain"
	"github.com/bft-labs/devwrite/internal/ports"
	"github.com/bft-labs/devwrite/internal/scheduler"
	"github.com/bft-labs/devwrite/pkg/lifecycle"
)

// Node is a single-writer coalescing write dispatcher.
// Use New() to create one, Start() to begin processing and Close() to stop.
// All methods are safe for concurrent use.
type Node struct {
	opts      options
	logger    ports.Logger
	lifecycle *lifecycle.DefaultManager

	sched      ports.Scheduler
	loop       *scheduler.Loop
	dispatcher *app.Dispatcher
	reporter   ports.ErrorReporter

	display atomic.Int32

	mu          sync.Mutex
	unsubscribe func()
	runCtx      context.Context

	settingsMu sync.Mutex
	settings   Settings
}

// New creates a node in StateIdle. It returns an error matching
// ErrInvalidConfig when the settings are invalid or no connection source
// is given; such a node never processes requests.
func New(cfg Config, opts ...Option) (*Node, error) {
	dcfg, err := cfg.dispatcherConfig()
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.connection == nil {
		return nil, fmt.Errorf("%w: connection source is required", domain.ErrInvalidConfig)
	}

	n := &Node{
		opts:     o,
		logger:   o.logger,
		settings: cfg.Settings,
	}
	n.display.Store(int32(domain.DisplayDisconnected))

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	n.lifecycle = lifecycle.NewManager(o.logger, emitter)

	n.sched = o.scheduler
	if n.sched == nil {
		n.loop = scheduler.NewLoop()
		n.sched = n.loop
	}

	n.reporter = o.reporter
	if n.reporter == nil {
		n.reporter = ports.ErrorReporterFunc(func(error) {})
	}

	status := ports.StatusSinkFunc(func(s domain.DisplayState) {
		n.display.Store(int32(s))
		if o.status != nil {
			o.status.SetStatus(s)
		}
	})

	var writeEvents app.WriteEventEmitter
	if o.eventHandler != nil {
		writeEvents = emitter
	}
	n.dispatcher = app.NewDispatcher(dcfg, n.sched, o.logger, status, n.reporter, writeEvents)

	return n, nil
}

// Start begins processing. The node closes itself when ctx is done.
// Returns ErrAlreadyRunning if started before, or ErrClosed after Close.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.lifecycle.CanStart() {
		if n.lifecycle.State() == lifecycle.StateRunning {
			return domain.ErrAlreadyRunning
		}
		return domain.ErrClosed
	}

	runCtx, cancel := context.WithCancel(ctx)
	n.lifecycle.SetCancel(cancel)
	n.runCtx = runCtx

	if n.loop != nil {
		n.lifecycle.AddWorker()
		go func() {
			defer n.lifecycle.WorkerDone()
			n.loop.Run()
		}()
	}

	n.sched.Post(n.dispatcher.Refresh)
	n.unsubscribe = n.opts.connection.Subscribe(func(snap ports.ConnectionSnapshot) {
		n.sched.Post(func() { n.dispatcher.OnConnection(snap) })
	})

	pluginCfg := PluginConfig{
		Settings:    n.Settings(),
		Logger:      n.logger,
		Reconfigure: n.Reconfigure,
	}
	for i, p := range n.opts.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			n.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			_ = n.lifecycle.TransitionTo(lifecycle.StateFailed, "plugin init failed: "+p.Name())
			n.shutdownPlugins(n.opts.plugins[:i])
			n.teardown()
			_ = n.lifecycle.WaitWithTimeout(lifecycle.ShutdownTimeout)
			_ = n.lifecycle.TransitionTo(lifecycle.StateClosed, "start aborted")
			return err
		}
		n.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	if err := n.lifecycle.TransitionTo(lifecycle.StateRunning, "Start() called"); err != nil {
		cancel()
		return err
	}

	go func() {
		<-runCtx.Done()
		_ = n.Close()
	}()

	return nil
}

// Submit validates raw and queues it for writing. A later request for the
// same key replaces a queued one. Invalid requests are reported to the
// error reporter and returned; they never reach the queue.
func (n *Node) Submit(raw RawEvent) error {
	switch n.lifecycle.State() {
	case lifecycle.StateRunning:
	case lifecycle.StateIdle:
		return domain.ErrNotRunning
	default:
		return domain.ErrClosed
	}

	req, err := app.Validate(raw)
	if err != nil {
		n.logger.Warn("invalid request rejected", ports.Err(err))
		n.sched.Post(func() { n.reporter.ReportError(err) })
		return err
	}

	if !n.sched.Post(func() { n.dispatcher.Enqueue(req) }) {
		return domain.ErrClosed
	}
	return nil
}

// flushPollInterval is how often Flush re-examines a busy dispatcher.
const flushPollInterval = 10 * time.Millisecond

// Flush blocks until no request is queued and no write is in flight, or ctx
// is done. Failed writes count as finished. Flush never returns while the
// node is disconnected with requests queued, so callers should bound ctx.
func (n *Node) Flush(ctx context.Context) error {
	n.mu.Lock()
	runCtx := n.runCtx
	n.mu.Unlock()

	switch n.lifecycle.State() {
	case lifecycle.StateRunning:
	case lifecycle.StateIdle:
		return domain.ErrNotRunning
	default:
		return domain.ErrClosed
	}

	result := make(chan error, 1)
	var check func()
	check = func() {
		if ctx.Err() != nil {
			return
		}
		in := n.dispatcher.Inspect()
		switch {
		case in.Closed:
			result <- domain.ErrClosed
		case len(in.Queued) == 0 && !in.State.WritePending:
			result <- nil
		default:
			n.sched.AfterFunc(flushPollInterval, check)
		}
	}
	if !n.sched.Post(check) {
		return domain.ErrClosed
	}

	select {
	case err := <-result:
		return err
	case <-runCtx.Done():
		return domain.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reconfigure applies new settings. Invalid settings are rejected with an
// error matching ErrInvalidConfig and the current settings stay in effect.
func (n *Node) Reconfigure(s Settings) error {
	dcfg, err := s.dispatcherConfig()
	if err != nil {
		n.logger.Warn("reconfiguration rejected", ports.Err(err))
		return err
	}

	if !n.sched.Post(func() { n.dispatcher.Reconfigure(dcfg) }) {
		return domain.ErrClosed
	}

	n.settingsMu.Lock()
	n.settings = s
	n.settingsMu.Unlock()
	return nil
}

// Settings returns the current settings.
func (n *Node) Settings() Settings {
	n.settingsMu.Lock()
	defer n.settingsMu.Unlock()
	return n.settings
}

// Status returns the current lifecycle state.
func (n *Node) Status() State {
	return n.lifecycle.State()
}

// Display returns the last published display state.
func (n *Node) Display() DisplayState {
	return DisplayState(n.display.Load())
}

// Close stops processing. Queued requests are dropped and a write still in
// flight completes without side effects. Waits up to
// lifecycle.ShutdownTimeout for the loop to drain.
// Returns ErrClosed if the node is already closed.
func (n *Node) Close() error {
	n.mu.Lock()
	if !n.lifecycle.CanClose() {
		n.mu.Unlock()
		return domain.ErrClosed
	}

	if n.lifecycle.State() == lifecycle.StateIdle {
		err := n.lifecycle.TransitionTo(lifecycle.StateClosed, "Close() before Start()")
		n.mu.Unlock()
		return err
	}

	if err := n.lifecycle.TransitionTo(lifecycle.StateClosing, "Close() called"); err != nil {
		n.mu.Unlock()
		return err
	}
	n.lifecycle.Cancel()
	n.mu.Unlock()

	n.teardown()
	err := n.lifecycle.WaitWithTimeout(lifecycle.ShutdownTimeout)
	n.shutdownPlugins(n.opts.plugins)

	if err != nil {
		_ = n.lifecycle.TransitionTo(lifecycle.StateFailed, "shutdown timeout")
	}
	_ = n.lifecycle.TransitionTo(lifecycle.StateClosed, "closed")
	return err
}

// teardown unsubscribes from the connection source and closes the
// dispatcher on its loop.
func (n *Node) teardown() {
	if n.unsubscribe != nil {
		n.unsubscribe()
		n.unsubscribe = nil
	}
	n.sched.Post(n.dispatcher.Close)
	if n.loop != nil {
		n.loop.Stop()
	}
}

func (n *Node) shutdownPlugins(plugins []Plugin) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			n.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			n.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current lifecycle.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnWriteSuccess(key domain.Key, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnWriteSuccess(WriteSuccessEvent{Key: key, Duration: duration})
}

func (e *eventEmitterWrapper) OnWriteError(key domain.Key, err error, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnWriteError(WriteErrorEvent{
		Key:       key,
		Error:     err,
		RootCause: domain.RootCause(err),
		Duration:  duration,
	})
}
