package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Source produces the payload for one reply.
type Source func() string

// Server answers every connection with one payload from its Source. It
// stands in for the sensor device during development and in tests.
type Server struct {
	ln          net.Listener
	source      Source
	logger      *slog.Logger
	readTimeout time.Duration

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func Listen(addr string, source Source, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return &Server{
		ln:          ln,
		source:      source,
		logger:      logger,
		readTimeout: 5 * time.Second,
	}, nil
}

func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve accepts connections until ctx is done or Close is called.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	s.logger.Info("peer listening", "addr", s.Addr())
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			s.wg.Wait()
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil {
		s.logger.Debug("peer: read request", "remote", conn.RemoteAddr().String(), "error", err)
		return
	}

	payload := s.source()
	if _, err := conn.Write([]byte(payload)); err != nil {
		s.logger.Warn("peer: write reply", "remote", conn.RemoteAddr().String(), "error", err)
		return
	}
	s.logger.Debug("peer: served reading",
		"remote", conn.RemoteAddr().String(),
		"request", string(buf[:n]),
		"payload", payload,
	)
}

// Close stops accepting connections. Idempotent.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.ln.Close() })
	return err
}
