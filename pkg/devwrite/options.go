package devwrite

import (
	"github.com/bft-labs/devwrite/internal/ports"
	"github.com/bft-labs/devwrite/pkg/log"
)

// Option configures optional behavior of a Node.
type Option func(*options)

type options struct {
	logger       Logger
	status       StatusSink
	reporter     ErrorReporter
	connection   ConnectionSource
	eventHandler EventHandler
	plugins      []Plugin

	// scheduler replaces the node's own loop; used by tests.
	scheduler ports.Scheduler
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
	}
}

// WithLogger sets the diagnostic logger. Failed writes are logged with
// their full cause chain. If not provided, nothing is logged.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStatusSink sets where display state changes are published.
// The sink is called on the node's loop and only when the state changes.
func WithStatusSink(sink StatusSink) Option {
	return func(o *options) {
		o.status = sink
	}
}

// WithErrorReporter sets the user-facing error surface. It receives only
// the root cause of a failure. Called on the node's loop.
func WithErrorReporter(reporter ErrorReporter) Option {
	return func(o *options) {
		o.reporter = reporter
	}
}

// WithConnectionSource sets the connection manager. Required.
func WithConnectionSource(source ConnectionSource) Option {
	return func(o *options) {
		o.connection = source
	}
}

// WithEventHandler sets a handler for node events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the node starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

func withScheduler(s ports.Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}
