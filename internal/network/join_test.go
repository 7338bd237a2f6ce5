package network

import (
	"context"
	"errors"
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

type fakeHost struct {
	calls       [][]string
	failRuns    int
	addrAfter   int
	lookups     int
	lookedUpFor []string
}

func (f *fakeHost) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if len(f.calls) <= f.failRuns {
		return []byte("Error: No network with SSID found."), errors.New("exit status 10")
	}
	return nil, nil
}

func (f *fakeHost) lookup(iface string) (net.IP, error) {
	f.lookups++
	f.lookedUpFor = append(f.lookedUpFor, iface)
	if f.lookups > f.addrAfter {
		return net.IPv4(192, 168, 1, 50).To4(), nil
	}
	return nil, errNoAddress
}

func newTestJoiner(opts Options, host *fakeHost) *Joiner {
	j := NewJoiner(opts, quietLogger())
	j.run = host.run
	j.lookup = host.lookup
	return j
}

func TestJoin_RetriesAssociationUntilItSucceeds(t *testing.T) {
	host := &fakeHost{failRuns: 2, addrAfter: 3}
	j := newTestJoiner(Options{SSID: "home", Password: "secret", Interface: "wlan0", Interval: time.Millisecond}, host)

	ip, err := j.Join(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.50", ip.String())

	require.Len(t, host.calls, 3, "nmcli is not called again after it succeeds")
	assert.Equal(t, []string{"nmcli", "--wait", "30", "device", "wifi", "connect", "home", "password", "secret", "ifname", "wlan0"}, host.calls[0])
	assert.Equal(t, 4, host.lookups, "address polled only once association was accepted")
	assert.Equal(t, "wlan0", host.lookedUpFor[0])
}

func TestJoin_AddressElsewhereDoesNotCountUntilAssociated(t *testing.T) {
	host := &fakeHost{failRuns: 1 << 30, addrAfter: 0}
	j := newTestJoiner(Options{SSID: "home", Interval: 10 * time.Millisecond}, host)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	ip, err := j.Join(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, ip)
	assert.Greater(t, len(host.calls), 1, "association keeps being retried")
	assert.Zero(t, host.lookups)
}

func TestJoin_WithoutSSIDOnlyWaitsForAddress(t *testing.T) {
	host := &fakeHost{addrAfter: 1}
	j := newTestJoiner(Options{Interval: time.Millisecond}, host)

	_, err := j.Join(context.Background())
	require.NoError(t, err)
	assert.Empty(t, host.calls)
	assert.Equal(t, 2, host.lookups)
}

func TestJoin_Canceled(t *testing.T) {
	host := &fakeHost{addrAfter: 1 << 30}
	j := newTestJoiner(Options{Interval: 10 * time.Millisecond}, host)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := j.Join(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, host.lookups, 1)
}

func TestNmcliArgs_OpenNetwork(t *testing.T) {
	j := NewJoiner(Options{SSID: "cafe"}, nil)
	assert.Equal(t, []string{"--wait", "30", "device", "wifi", "connect", "cafe"}, j.nmcliArgs())
}

func TestFirstIPv4(t *testing.T) {
	ifaces := []net.Interface{
		{Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
		{Name: "eth0", Flags: 0},
		{Name: "wlan0", Flags: net.FlagUp},
	}
	addrs := map[string][]net.Addr{
		"lo":    {&net.IPNet{IP: net.IPv4(127, 0, 0, 1), Mask: net.CIDRMask(8, 32)}},
		"eth0":  {&net.IPNet{IP: net.IPv4(10, 0, 0, 2), Mask: net.CIDRMask(24, 32)}},
		"wlan0": {&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)}, &net.IPNet{IP: net.IPv4(192, 168, 4, 7), Mask: net.CIDRMask(24, 32)}},
	}
	byName := func(i net.Interface) ([]net.Addr, error) { return addrs[i.Name], nil }

	ip, err := firstIPv4(ifaces, "", byName)
	require.NoError(t, err)
	assert.Equal(t, "192.168.4.7", ip.String())

	_, err = firstIPv4(ifaces, "eth0", byName)
	assert.ErrorIs(t, err, errNoAddress)

	_, err = firstIPv4(ifaces[:2], "", byName)
	assert.ErrorIs(t, err, errNoAddress)
}
