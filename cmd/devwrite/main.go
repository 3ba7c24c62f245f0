package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/devwrite"
	"github.com/bft-labs/devwrite/internal/cliconfig"
	node "github.com/bft-labs/devwrite/pkg/devwrite"
	"github.com/bft-labs/devwrite/plugins/configwatcher"
)

const helpDescription = `
Write values to a device object dictionary without flooding it.

Reads newline-delimited JSON write requests from stdin or a file:

  {"index": "0x2000", "subindex": 1, "payload": 42}

Only one write is in flight at a time. Requests that arrive while the device
is busy are queued, and a newer request for the same index/subindex replaces
the queued one. Status and errors are shown on the console and optionally
kept in a status file.
`

var exampleUsage = strings.TrimSpace(`
  sensor-feed | devwrite --device 10.0.0.7:5020
  devwrite --device 10.0.0.8:502 --transport modbus --input writes.ndjson
  devwrite --config $HOME/.devwrite/config.toml --debounce 250
  devwrite sim --listen 127.0.0.1:5020
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:           "devwrite",
		Short:         "Coalescing single-writer for device object writes",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			// base holds defaults and flags only, so a reload can replay
			// file and env on top of it with the same precedence.
			base := cfg
			if err := resolveConfig(&cfg, cfgFile, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			runLog, closer := cliconfig.NewLogger(cfg, os.Stderr)
			defer closer.Close()
			runLog.Info().Interface("config", cfg).Msg("configuration")

			var nodeOpts []node.Option
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				nodeOpts = append(nodeOpts, configwatcher.WithConfigWatcher(configwatcher.Config{
					Path: cfgFile,
					Load: func(node.Settings) (node.Settings, error) {
						next := base
						if err := resolveConfig(&next, cfgFile, changed); err != nil {
							return node.Settings{}, err
						}
						return node.Settings{
							DebounceTime:    next.DebounceTime,
							BusyMinDuration: next.BusyMinDuration,
						}, nil
					},
				}))
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return devwrite.Run(ctx, cfg, devwrite.RunOptions{
				Logger:      runLog,
				NodeOptions: nodeOpts,
			})
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file, .toml or .yaml (default: $HOME/.devwrite/config.toml)")
	root.Flags().StringVar(&cfg.Device, "device", cfg.Device, "device address host:port")
	root.Flags().StringVar(&cfg.Transport, "transport", cfg.Transport, "device transport: cbor or modbus")
	root.Flags().StringVar(&cfg.Input, "input", cfg.Input, "request stream, - for stdin")

	root.Flags().StringVar(&cfg.DebounceTime, "debounce", cfg.DebounceTime, "quiet period after each write, in milliseconds")
	root.Flags().DurationVar(&cfg.BusyMinDuration, "busy-min", cfg.BusyMinDuration, "minimum time Busy stays visible after a write starts")

	root.Flags().DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "timeout for connecting to the device")
	root.Flags().DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "timeout for a single write")
	root.Flags().DurationVar(&cfg.ReconnectMin, "reconnect-min", cfg.ReconnectMin, "initial reconnect delay")
	root.Flags().DurationVar(&cfg.ReconnectMax, "reconnect-max", cfg.ReconnectMax, "maximum reconnect delay")

	root.Flags().StringVar(&cfg.StatusFile, "status-file", cfg.StatusFile, "write status.json to this file or directory")
	root.Flags().StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write the full diagnostic log to this rotating file")
	root.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "show debug logs on the console")

	root.AddCommand(newSimCommand())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("devwrite")
		os.Exit(1)
	}
}

// resolveConfig applies the config file and then the environment to cfg.
// Flags recorded in changed keep their value.
func resolveConfig(cfg *cliconfig.Config, cfgFile string, changed map[string]bool) error {
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}
	return cliconfig.ApplyEnvConfig(cfg, changed)
}
