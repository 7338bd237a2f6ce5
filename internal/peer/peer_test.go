package peer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T, source Source) *Server {
	t.Helper()
	srv, err := Listen("127.0.0.1:0", source, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return srv
}

// rawListener accepts one connection and hands it to fn.
func rawListener(t *testing.T, fn func(net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		fn(conn)
	}()
	return ln.Addr().String()
}

func TestClientFetch_FromServer(t *testing.T) {
	srv := startServer(t, func() string { return "25.0,60,2000,4000,500" })

	c, err := NewClient(Options{Addr: srv.Addr(), Request: "Hello ESP32", Timeout: 2 * time.Second}, quietLogger())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := c.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "25.0,60,2000,4000,500", got)
	}
}

func TestClientFetch_SendsRequestToken(t *testing.T) {
	received := make(chan string, 1)
	addr := rawListener(t, func(conn net.Conn) {
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		received <- string(buf[:n])
		_, _ = conn.Write([]byte("1,2,3,4,5"))
	})

	c, err := NewClient(Options{Mode: "tcp", Addr: addr, Request: "Hello ESP32", Timeout: 2 * time.Second}, quietLogger())
	require.NoError(t, err)

	got, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1,2,3,4,5", got)
	assert.Equal(t, "Hello ESP32", <-received)
}

func TestClientFetch_SingleBoundedRead(t *testing.T) {
	srv := startServer(t, func() string { return strings.Repeat("x", 100) })

	c, err := NewClient(Options{Addr: srv.Addr(), Request: "r", Timeout: 2 * time.Second, BufferSize: 16}, quietLogger())
	require.NoError(t, err)

	got, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), 16)
	assert.NotEmpty(t, got)
}

func TestClientFetch_Timeout(t *testing.T) {
	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })
	addr := rawListener(t, func(conn net.Conn) { <-hold })

	c, err := NewClient(Options{Addr: addr, Request: "r", Timeout: 100 * time.Millisecond}, quietLogger())
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Fetch(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClientFetch_ContextCanceled(t *testing.T) {
	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })
	addr := rawListener(t, func(conn net.Conn) { <-hold })

	c, err := NewClient(Options{Addr: addr, Request: "r", Timeout: 10 * time.Second}, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err = c.Fetch(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientFetch_PeerClosesWithoutReply(t *testing.T) {
	addr := rawListener(t, func(conn net.Conn) {
		buf := make([]byte, 64)
		_, _ = conn.Read(buf)
	})

	c, err := NewClient(Options{Addr: addr, Request: "r", Timeout: 2 * time.Second}, quietLogger())
	require.NoError(t, err)

	_, err = c.Fetch(context.Background())
	assert.True(t, errors.Is(err, ErrNoData), "got %v, want ErrNoData", err)
}

func TestClientFetch_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c, err := NewClient(Options{Addr: addr, Request: "r", Timeout: time.Second}, quietLogger())
	require.NoError(t, err)

	_, err = c.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect "+addr)
}

func TestNewClient_UnknownMode(t *testing.T) {
	_, err := NewClient(Options{Mode: "carrier-pigeon"}, quietLogger())
	require.Error(t, err)
}

func TestClient_Target(t *testing.T) {
	tcp, err := NewClient(Options{Mode: "tcp", Addr: "10.0.0.2:8080"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2:8080", tcp.Target())

	ser, err := NewClient(Options{Mode: "serial", SerialPort: "/dev/ttyACM0"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", ser.Target())
}

func TestServer_CloseIsIdempotent(t *testing.T) {
	srv, err := Listen("127.0.0.1:0", func() string { return "" }, quietLogger())
	require.NoError(t, err)
	require.NoError(t, srv.Close())
	assert.NoError(t, srv.Close())
	assert.NoError(t, srv.Serve(context.Background()))
}
