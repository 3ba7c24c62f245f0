// Package session implements the connection manager: it owns the device
// connection, reconnects with backoff, and publishes a snapshot to its
// subscribers on every change.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/devwrite/internal/ports"
)

// ErrManagerClosed is returned by Run after Close.
var ErrManagerClosed = errors.New("session: manager closed")

// Session is one established device connection.
type Session interface {
	ports.DeviceWriter

	// Done is closed when the connection is lost.
	Done() <-chan struct{}

	// Close tears the connection down.
	Close() error
}

// Dialer establishes sessions.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Session, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context) (Session, error) { return f(ctx) }

// Config configures a Manager.
type Config struct {
	// DialTimeout bounds each connection attempt. Zero means no bound.
	DialTimeout time.Duration

	// ReconnectMin and ReconnectMax bound the reconnect backoff.
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

// Manager owns the device connection.
type Manager struct {
	dialer  Dialer
	config  Config
	logger  ports.Logger
	backoff *Backoff

	mu      sync.Mutex
	current ports.ConnectionSnapshot
	subs    map[int]func(ports.ConnectionSnapshot)
	nextSub int
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager creates a manager. Call Run to start connecting.
func NewManager(dialer Dialer, config Config, logger ports.Logger) *Manager {
	return &Manager{
		dialer:  dialer,
		config:  config,
		logger:  logger,
		backoff: NewBackoff(config.ReconnectMin, config.ReconnectMax),
		subs:    make(map[int]func(ports.ConnectionSnapshot)),
		done:    make(chan struct{}),
	}
}

// Subscribe implements ports.ConnectionSource.
func (m *Manager) Subscribe(fn func(ports.ConnectionSnapshot)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	current := m.current
	m.mu.Unlock()

	fn(current)

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Snapshot returns the current connection snapshot.
func (m *Manager) Snapshot() ports.ConnectionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Run connects and keeps reconnecting until ctx is done or Close is called.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()
	defer close(m.done)
	defer cancel()

	for {
		m.publish(ports.ConnectionSnapshot{Connecting: true})

		sess, err := m.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				m.publish(ports.ConnectionSnapshot{})
				return ctx.Err()
			}
			delay := m.backoff.Current()
			m.logger.Warn("connect failed",
				ports.Err(err),
				ports.Duration("retry_in", delay),
			)
			m.publish(ports.ConnectionSnapshot{})
			if err := m.backoff.Wait(ctx); err != nil {
				return err
			}
			continue
		}

		m.backoff.Reset()
		ref := uuid.NewString()
		m.logger.Info("connected", ports.String("conn", ref))
		m.publish(ports.ConnectionSnapshot{Ref: ref, Writer: sess})

		select {
		case <-ctx.Done():
			_ = sess.Close()
			m.publish(ports.ConnectionSnapshot{})
			return ctx.Err()
		case <-sess.Done():
			_ = sess.Close()
			m.logger.Warn("connection lost", ports.String("conn", ref))
			m.publish(ports.ConnectionSnapshot{})
		}

		if err := m.backoff.Wait(ctx); err != nil {
			return err
		}
	}
}

// Close stops Run and drops all subscribers.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	cancel := m.cancel
	m.subs = make(map[int]func(ports.ConnectionSnapshot))
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-m.done
	}
	return nil
}

func (m *Manager) dial(ctx context.Context) (Session, error) {
	if m.config.DialTimeout <= 0 {
		return m.dialer.Dial(ctx)
	}
	dctx, cancel := context.WithTimeout(ctx, m.config.DialTimeout)
	defer cancel()
	return m.dialer.Dial(dctx)
}

func (m *Manager) publish(snap ports.ConnectionSnapshot) {
	m.mu.Lock()
	if m.closed {
		m.current = snap
		m.mu.Unlock()
		return
	}
	m.current = snap
	subs := make([]func(ports.ConnectionSnapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

var _ ports.ConnectionSource = (*Manager)(nil)
