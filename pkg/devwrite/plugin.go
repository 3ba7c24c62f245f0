package devwrite

import "context"

// Plugin extends a node with optional behavior. Plugins are initialized on
// Start in registration order and shut down on Close in reverse order.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize starts the plugin. An error aborts Start.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin.
	Shutdown(ctx context.Context) error
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	// Settings are the node settings at start.
	Settings Settings

	// Logger is the node's logger.
	Logger Logger

	// Reconfigure applies new settings to the running node.
	Reconfigure func(Settings) error
}
