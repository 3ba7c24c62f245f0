package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/devwrite/internal/domain"
	"github.com/bft-labs/devwrite/internal/ports"
	"github.com/bft-labs/devwrite/internal/scheduler"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// recordingLogger keeps every entry for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level  string
	msg    string
	fields []ports.Field
}

func (l *recordingLogger) add(level, msg string, fields []ports.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level, msg, fields})
}

func (l *recordingLogger) Debug(msg string, fields ...ports.Field) { l.add("debug", msg, fields) }
func (l *recordingLogger) Info(msg string, fields ...ports.Field)  { l.add("info", msg, fields) }
func (l *recordingLogger) Warn(msg string, fields ...ports.Field)  { l.add("warn", msg, fields) }
func (l *recordingLogger) Error(msg string, fields ...ports.Field) { l.add("error", msg, fields) }

func (l *recordingLogger) errors() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []error
	for _, e := range l.entries {
		if e.level != "error" {
			continue
		}
		for _, f := range e.fields {
			if err, ok := f.Value.(error); ok {
				out = append(out, err)
			}
		}
	}
	return out
}

// recordingSink keeps every display state it is given.
type recordingSink struct {
	states []domain.DisplayState
}

func (s *recordingSink) SetStatus(state domain.DisplayState) { s.states = append(s.states, state) }

func (s *recordingSink) last() domain.DisplayState {
	if len(s.states) == 0 {
		return domain.DisplayState(-1)
	}
	return s.states[len(s.states)-1]
}

// recordingReporter keeps every user-facing error.
type recordingReporter struct {
	errs []error
}

func (r *recordingReporter) ReportError(err error) { r.errs = append(r.errs, err) }

// write is one call received by scriptedWriter.
type write struct {
	key     domain.Key
	payload any
	at      time.Time
}

// scriptedWriter records writes and fails with the queued errors in order.
type scriptedWriter struct {
	mu       sync.Mutex
	sched    *scheduler.Manual
	writes   []write
	failures []error
	inFlight int
	maxSeen  int
}

func (w *scriptedWriter) Write(_ context.Context, key domain.Key, payload any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight++
	if w.inFlight > w.maxSeen {
		w.maxSeen = w.inFlight
	}
	w.writes = append(w.writes, write{key: key, payload: payload, at: w.sched.Now()})
	w.inFlight--

	if len(w.failures) == 0 {
		return nil
	}
	err := w.failures[0]
	w.failures = w.failures[1:]
	return err
}

func (w *scriptedWriter) failNext(errs ...error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failures = append(w.failures, errs...)
}

func (w *scriptedWriter) calls() []write {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]write(nil), w.writes...)
}

// harness wires a dispatcher to a manual scheduler and recording sinks.
type harness struct {
	t        *testing.T
	sched    *scheduler.Manual
	logger   *recordingLogger
	sink     *recordingSink
	reporter *recordingReporter
	writer   *scriptedWriter
	d        *Dispatcher
}

func newHarness(t *testing.T, cfg DispatcherConfig) *harness {
	t.Helper()
	sched := scheduler.NewManual(epoch)
	h := &harness{
		t:        t,
		sched:    sched,
		logger:   &recordingLogger{},
		sink:     &recordingSink{},
		reporter: &recordingReporter{},
		writer:   &scriptedWriter{sched: sched},
	}
	h.d = NewDispatcher(cfg, sched, h.logger, h.sink, h.reporter, nil)
	return h
}

// connect publishes an established connection with the harness writer.
func (h *harness) connect(ref string) {
	h.d.OnConnection(ports.ConnectionSnapshot{Ref: ref, Writer: h.writer})
}

func (h *harness) submit(index, sub int, payload any) {
	h.t.Helper()
	req, err := Validate(domain.RawEvent{Index: index, SubIndex: sub, Payload: payload})
	if err != nil {
		h.t.Fatalf("Validate() = %v", err)
	}
	h.d.Enqueue(req)
}

var defaultTiming = DispatcherConfig{
	DebounceInterval: 100 * time.Millisecond,
	BusyMinDuration:  250 * time.Millisecond,
}
