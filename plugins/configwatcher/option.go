package configwatcher

import "github.com/bft-labs/devwrite/pkg/devwrite"

// WithConfigWatcher returns a devwrite Option that reloads timing settings
// whenever the config file is written.
//
// Usage:
//
//	node, err := devwrite.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "/etc/devwrite/config.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) devwrite.Option {
	return devwrite.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher returns a devwrite Option that watches the
// default config file.
//
// Usage:
//
//	node, err := devwrite.New(cfg, configwatcher.WithDefaultConfigWatcher())
func WithDefaultConfigWatcher() devwrite.Option {
	return WithConfigWatcher(DefaultConfig())
}
