package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/devwrite/internal/domain"
	"github.com/bft-labs/devwrite/internal/ports"
)

// Default timing values.
const (
	DefaultDebounceInterval = 100 * time.Millisecond
	DefaultBusyMinDuration  = 250 * time.Millisecond
)

// DispatcherConfig contains the timing configuration of the dispatcher.
type DispatcherConfig struct {
	// DebounceInterval is the quiet period after each completed write
	DebounceInterval time.Duration

	// BusyMinDuration is how long Busy stays visible after a write starts
	BusyMinDuration time.Duration
}

// WriteEventEmitter is called when a write completes.
type WriteEventEmitter interface {
	OnWriteSuccess(key domain.Key, duration time.Duration)
	OnWriteError(key domain.Key, err error, duration time.Duration)
}

// Dispatcher is the single-writer state machine.
//
// Every method except NewDispatcher must run on the scheduler: the queue,
// the dispatch bookkeeping and the connection snapshot are owned by it and
// are never touched from another goroutine.
type Dispatcher struct {
	config   DispatcherConfig
	sched    ports.Scheduler
	logger   ports.Logger
	status   ports.StatusSink
	reporter ports.ErrorReporter
	emitter  WriteEventEmitter

	queue *Queue
	state domain.DispatchState
	conn  ports.ConnectionSnapshot

	closed bool

	// notConnectedReported suppresses repeated not-connected reports
	// within one disconnection episode
	notConnectedReported bool

	debounce ports.Timer
	recheck  ports.Timer

	display   domain.DisplayState
	displayed bool
}

// NewDispatcher creates a dispatcher. Nil sinks are replaced with no-ops.
func NewDispatcher(
	config DispatcherConfig,
	sched ports.Scheduler,
	logger ports.Logger,
	status ports.StatusSink,
	reporter ports.ErrorReporter,
	emitter WriteEventEmitter,
) *Dispatcher {
	if status == nil {
		status = ports.StatusSinkFunc(func(domain.DisplayState) {})
	}
	if reporter == nil {
		reporter = ports.ErrorReporterFunc(func(error) {})
	}
	return &Dispatcher{
		config:   config,
		sched:    sched,
		logger:   logger,
		status:   status,
		reporter: reporter,
		emitter:  emitter,
		queue:    NewQueue(),
	}
}

// Enqueue accepts a validated request.
func (d *Dispatcher) Enqueue(req domain.WriteRequest) {
	if d.closed {
		d.logger.Debug("request after close dropped", ports.Any("key", req.Key))
		return
	}

	replaced := d.queue.Enqueue(req)
	d.logger.Debug("request queued",
		ports.Any("key", req.Key),
		ports.Bool("coalesced", replaced),
		ports.Int("queued", d.queue.Len()),
	)

	if !d.conn.Usable() && !d.notConnectedReported {
		d.notConnectedReported = true
		d.logger.Warn("request queued while not connected", ports.Any("key", req.Key))
		d.reporter.ReportError(domain.ErrNotConnected)
	}

	d.tryDispatch()
	d.refresh()
}

// tryDispatch starts the next write when every precondition holds.
// It does nothing otherwise, so it is safe to call after any event.
func (d *Dispatcher) tryDispatch() {
	if d.closed || d.state.WritePending || d.state.Debouncing || !d.conn.Usable() {
		return
	}
	req, ok := d.queue.DequeueOldest()
	if !ok {
		return
	}

	writer := d.conn.Writer
	ref := d.conn.Ref
	started := d.sched.Now()

	d.state.WritePending = true
	d.state.LastWrite = started
	d.state.LastError = nil

	d.logger.Debug("dispatching write",
		ports.Any("key", req.Key),
		ports.String("conn", ref),
		ports.Int("queued", d.queue.Len()),
	)

	d.sched.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("device writer panicked: %v", r)
			}
		}()
		return writer.Write(context.Background(), req.Key, req.Payload)
	}, func(err error) {
		d.completeWrite(req, ref, started, err)
	})
}

// completeWrite is the single place where write outcomes are handled.
func (d *Dispatcher) completeWrite(req domain.WriteRequest, ref string, started time.Time, err error) {
	if d.closed {
		return
	}
	d.state.WritePending = false
	took := d.sched.Now().Sub(started)
	stale := ref != d.conn.Ref

	if err != nil {
		werr := &domain.WriteError{Key: req.Key, Err: err}
		// A failure on a connection that has since been replaced must not
		// show up as the new connection's error.
		if !stale {
			d.state.LastError = werr
		}
		d.logger.Error("write failed",
			ports.Any("key", req.Key),
			ports.String("conn", ref),
			ports.Bool("stale", stale),
			ports.Duration("took", took),
			ports.Err(werr),
		)
		d.reporter.ReportError(domain.RootCause(werr))
		if d.emitter != nil {
			d.emitter.OnWriteError(req.Key, werr, took)
		}
	} else {
		d.logger.Debug("write complete",
			ports.Any("key", req.Key),
			ports.Duration("took", took),
		)
		if d.emitter != nil {
			d.emitter.OnWriteSuccess(req.Key, took)
		}
	}

	d.state.Debouncing = true
	d.debounce = d.sched.AfterFunc(d.config.DebounceInterval, d.endDebounce)
	d.refresh()
}

func (d *Dispatcher) endDebounce() {
	if d.closed {
		return
	}
	d.debounce = nil
	d.state.Debouncing = false
	d.tryDispatch()
	d.refresh()
}

// refresh recomputes the display state and keeps at most one
// re-evaluation timer armed.
func (d *Dispatcher) refresh() {
	if d.closed {
		return
	}

	p := Project(ProjectionInput{
		Connecting:      d.conn.Connecting,
		Connected:       d.conn.Ref != "",
		LastError:       d.state.LastError,
		WritePending:    d.state.WritePending,
		LastWrite:       d.state.LastWrite,
		BusyMinDuration: d.config.BusyMinDuration,
	}, d.sched.Now())

	if d.recheck != nil {
		d.recheck.Stop()
		d.recheck = nil
	}
	if p.Recheck > 0 {
		d.recheck = d.sched.AfterFunc(p.Recheck, d.onRecheck)
	}

	if !d.displayed || p.State != d.display {
		d.display = p.State
		d.displayed = true
		d.status.SetStatus(p.State)
	}
}

func (d *Dispatcher) onRecheck() {
	if d.closed {
		return
	}
	d.recheck = nil
	d.refresh()
}

// Refresh publishes the current display state.
func (d *Dispatcher) Refresh() {
	d.refresh()
}

// Reconfigure applies new timing values. A running debounce keeps its
// original deadline.
func (d *Dispatcher) Reconfigure(config DispatcherConfig) {
	if d.closed {
		return
	}
	d.config = config
	d.logger.Info("dispatcher reconfigured",
		ports.Duration("debounce", config.DebounceInterval),
		ports.Duration("busy_min", config.BusyMinDuration),
	)
	d.refresh()
}

// Close stops all further processing. A write still in flight completes in
// the background, but its result is discarded.
func (d *Dispatcher) Close() {
	if d.closed {
		return
	}
	d.closed = true
	if d.debounce != nil {
		d.debounce.Stop()
		d.debounce = nil
	}
	if d.recheck != nil {
		d.recheck.Stop()
		d.recheck = nil
	}
	if n := d.queue.Clear(); n > 0 {
		d.logger.Warn("dropping queued requests on close", ports.Int("queued", n))
	}
}

// Inspection is a snapshot of the dispatcher for diagnostics and tests.
type Inspection struct {
	Phase   domain.Phase
	State   domain.DispatchState
	Queued  []domain.Key
	Display domain.DisplayState
	Conn    string
	Closed  bool
}

// Inspect returns a snapshot of the dispatcher.
func (d *Dispatcher) Inspect() Inspection {
	return Inspection{
		Phase:   d.state.Phase(),
		State:   d.state,
		Queued:  d.queue.Keys(),
		Display: d.display,
		Conn:    d.conn.Ref,
		Closed:  d.closed,
	}
}
