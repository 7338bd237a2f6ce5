// Package peer talks to the remote sensor device: one request token out,
// one unframed payload back, then the connection is closed.
package peer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"go.bug.st/serial"
)

// ErrNoData is returned when the peer closes the connection without replying.
var ErrNoData = errors.New("peer sent no data")

type Options struct {
	Mode       string // "tcp" or "serial"
	Addr       string
	SerialPort string
	BaudRate   int
	Request    string
	Timeout    time.Duration
	BufferSize int
}

type dialFunc func(ctx context.Context) (io.ReadWriteCloser, error)

// Client fetches one payload per call. It keeps no connection between calls.
type Client struct {
	opts   Options
	dial   dialFunc
	logger *slog.Logger
}

func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1024
	}
	c := &Client{opts: opts, logger: logger}
	switch opts.Mode {
	case "", "tcp":
		c.dial = c.dialTCP
	case "serial":
		c.dial = c.dialSerial
	default:
		return nil, fmt.Errorf("unknown peer mode %q", opts.Mode)
	}
	return c, nil
}

// Target describes where the client fetches from, for logs.
func (c *Client) Target() string {
	if c.opts.Mode == "serial" {
		return c.opts.SerialPort
	}
	return c.opts.Addr
}

// Fetch sends the request token and returns whatever arrives in a single
// read of at most BufferSize bytes.
func (c *Client) Fetch(ctx context.Context) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return "", fmt.Errorf("connect %s: %w", c.Target(), err)
	}
	defer func() {
		c.logger.Debug("closing peer connection", "target", c.Target())
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.logger.Debug("close peer connection", "error", err)
		}
	}()

	if nc, ok := conn.(net.Conn); ok {
		if deadline, ok := ctx.Deadline(); ok {
			if err := nc.SetDeadline(deadline); err != nil {
				return "", fmt.Errorf("set deadline: %w", err)
			}
		}
	}
	// Unblocks a pending read on transports without deadlines.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if _, err := io.WriteString(conn, c.opts.Request); err != nil {
		return "", fmt.Errorf("send request: %w", ctxErr(ctx, err))
	}

	buf := make([]byte, c.opts.BufferSize)
	n, err := conn.Read(buf)
	if n > 0 {
		return string(buf[:n]), nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("receive: %w", ctxErr(ctx, err))
	}
	return "", ErrNoData
}

func (c *Client) dialTCP(ctx context.Context) (io.ReadWriteCloser, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", c.opts.Addr)
}

func (c *Client) dialSerial(ctx context.Context) (io.ReadWriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: c.opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(c.opts.SerialPort, mode)
	if err != nil {
		return nil, err
	}
	timeout := c.opts.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout > 0 {
		if err := port.SetReadTimeout(timeout); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("set read timeout: %w", err)
		}
	}
	return port, nil
}

// ctxErr reports the context error, when there is one, ahead of the
// transport error it caused.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w (%v)", ctx.Err(), err)
	}
	return err
}
