package mqtt

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// unreachableOptions points at a local port nothing listens on.
func unreachableOptions(t *testing.T) Options {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	return Options{
		Broker:    "127.0.0.1",
		Port:      port,
		ClientID:  "cloudpico-client-test",
		StationID: "home",
	}
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "stations/home/telemetry", TelemetryTopic("home"))
	assert.Equal(t, "stations/home/status", StatusTopic("home"))
}

func TestTelemetry_JSONOmitsMissingValues(t *testing.T) {
	temp := 25.5
	raw := 2000
	b, err := json.Marshal(Telemetry{
		StationID:   "home",
		Timestamp:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Temperature: &temp,
		RainRaw:     &raw,
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "home", got["station_id"])
	assert.Equal(t, 25.5, got["temperature_c"])
	assert.Equal(t, float64(2000), got["rain_raw"])
	assert.NotContains(t, got, "humidity_pct")
	assert.NotContains(t, got, "air_quality_pct")
}

func TestPublishTelemetry_NotConnected(t *testing.T) {
	c := NewClient(unreachableOptions(t), quietLogger())
	t.Cleanup(c.Disconnect)

	err := c.PublishTelemetry(Telemetry{})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnect_RespectsContext(t *testing.T) {
	c := NewClient(unreachableOptions(t), quietLogger())
	t.Cleanup(c.Disconnect)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := c.Connect(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.False(t, c.IsConnected())
}

func TestConnect_AfterDisconnect(t *testing.T) {
	c := NewClient(unreachableOptions(t), quietLogger())
	c.Disconnect()
	c.Disconnect()

	assert.ErrorIs(t, c.Connect(context.Background()), ErrStopped)
}
