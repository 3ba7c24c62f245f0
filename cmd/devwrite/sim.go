package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/devwrite/internal/adapters/cbortcp"
	"github.com/bft-labs/devwrite/internal/cliconfig"
	"github.com/bft-labs/devwrite/pkg/log"
)

type simConfig struct {
	listen      string
	latency     time.Duration
	rejectIndex int
}

// newSimCommand returns a command that serves a CBOR device on loopback
// for trying devwrite without hardware.
func newSimCommand() *cobra.Command {
	sc := simConfig{listen: "127.0.0.1:5020", rejectIndex: -1}

	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run a simulated CBOR device",
		RunE: func(cmd *cobra.Command, args []string) error {
			zl := cliconfig.Logger()
			logger := log.NewZerologAdapterWithLogger(zl)

			ln, err := net.Listen("tcp", sc.listen)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			zl.Info().Str("addr", ln.Addr().String()).Msg("simulated device listening")

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			srv := cbortcp.NewServer(simHandler(sc, logger), logger)
			return srv.Serve(ctx, ln)
		},
	}

	cmd.Flags().StringVar(&sc.listen, "listen", sc.listen, "address to listen on")
	cmd.Flags().DurationVar(&sc.latency, "latency", sc.latency, "time each write takes")
	cmd.Flags().IntVar(&sc.rejectIndex, "reject-index", sc.rejectIndex, "fail writes to this index (-1 for none)")
	return cmd
}

func simHandler(sc simConfig, logger log.Logger) cbortcp.Handler {
	return func(ctx context.Context, req *cbortcp.Request) *cbortcp.RemoteError {
		if sc.latency > 0 {
			select {
			case <-time.After(sc.latency):
			case <-ctx.Done():
				return &cbortcp.RemoteError{Message: "device shutting down"}
			}
		}

		if sc.rejectIndex >= 0 && int(req.Index) == sc.rejectIndex {
			logger.Warn("rejecting write",
				log.Int("index", int(req.Index)),
				log.Int("subindex", int(req.SubIndex)))
			return &cbortcp.RemoteError{
				Message: fmt.Sprintf("write 0x%04X/%d rejected", req.Index, req.SubIndex),
				Cause:   &cbortcp.RemoteError{Message: "object is read-only", Code: 0x06010002},
			}
		}

		logger.Info("write",
			log.Int("index", int(req.Index)),
			log.Int("subindex", int(req.SubIndex)),
			log.Any("payload", req.Payload))
		return nil
	}
}
