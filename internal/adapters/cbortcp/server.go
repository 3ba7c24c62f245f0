package cbortcp

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/bft-labs/devwrite/internal/ports"
)

// Handler handles one write request on the device side. A nil return is
// answered with StatusOK.
type Handler func(ctx context.Context, req *Request) *RemoteError

// Server is a device-side endpoint. It is used by the simulator and tests.
type Server struct {
	handler Handler
	logger  ports.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// NewServer creates a server that answers requests with handler.
func NewServer(handler Handler, logger ports.Logger) *Server {
	return &Server{
		handler: handler,
		logger:  logger,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Serve accepts connections until ctx is done or ln fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.closeAll()
			s.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

// DropConnections closes every accepted connection.
func (s *Server) DropConnections() {
	s.closeAll()
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		data, err := ReadFrame(conn)
		if err != nil {
			return
		}
		req, err := DecodeRequest(data)
		if err != nil {
			s.logger.Warn("dropping undecodable request", ports.Err(err))
			continue
		}

		resp := &Response{Seq: req.Seq, Status: StatusOK}
		if rerr := s.handler(ctx, req); rerr != nil {
			resp.Status = StatusError
			resp.Error = rerr
		}

		out, err := EncodeResponse(resp)
		if err != nil {
			s.logger.Error("failed to encode response", ports.Err(err))
			return
		}
		if err := WriteFrame(conn, out); err != nil {
			return
		}
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}
