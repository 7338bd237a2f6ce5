package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"strings"
	"time"
)

var errNoAddress = errors.New("no ipv4 address")

type Options struct {
	SSID      string
	Password  string
	Interface string
	Interval  time.Duration
}

// Joiner brings the station onto the network and waits for an IPv4 address.
type Joiner struct {
	opts   Options
	logger *slog.Logger

	run    func(ctx context.Context, name string, args ...string) ([]byte, error)
	lookup func(iface string) (net.IP, error)
}

func NewJoiner(opts Options, logger *slog.Logger) *Joiner {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	return &Joiner{
		opts:   opts,
		logger: logger,
		run:    runCommand,
		lookup: interfaceIPv4,
	}
}

// Join blocks until an address is available or ctx is done. When an SSID is
// configured, NetworkManager is asked to associate until the request succeeds,
// and addresses are not considered before that. Attempts repeat every
// Interval without backoff.
func (j *Joiner) Join(ctx context.Context) (net.IP, error) {
	requested := j.opts.SSID == ""

	for attempt := 1; ; attempt++ {
		j.logger.Info("connecting to wifi", "ssid", j.opts.SSID, "attempt", attempt)

		if !requested {
			out, err := j.run(ctx, "nmcli", j.nmcliArgs()...)
			if err != nil {
				j.logger.Warn("wifi association failed",
					"ssid", j.opts.SSID,
					"error", err,
					"output", strings.TrimSpace(string(out)),
				)
			} else {
				requested = true
			}
		}

		if requested {
			ip, err := j.lookup(j.opts.Interface)
			if err == nil {
				j.logger.Info("wifi connected", "ip", ip.String(), "interface", j.opts.Interface)
				return ip, nil
			}
			j.logger.Debug("waiting for address", "error", err)
		}

		t := time.NewTimer(j.opts.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (j *Joiner) nmcliArgs() []string {
	args := []string{"--wait", "30", "device", "wifi", "connect", j.opts.SSID}
	if j.opts.Password != "" {
		args = append(args, "password", j.opts.Password)
	}
	if j.opts.Interface != "" {
		args = append(args, "ifname", j.opts.Interface)
	}
	return args
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// interfaceIPv4 returns the first IPv4 address of an up, non-loopback
// interface, restricted to iface when it is set.
func interfaceIPv4(iface string) (net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}
	return firstIPv4(ifaces, iface, func(i net.Interface) ([]net.Addr, error) { return i.Addrs() })
}

func firstIPv4(ifaces []net.Interface, name string, addrs func(net.Interface) ([]net.Addr, error)) (net.IP, error) {
	for _, i := range ifaces {
		if name != "" && i.Name != name {
			continue
		}
		if i.Flags&net.FlagUp == 0 || i.Flags&net.FlagLoopback != 0 {
			continue
		}
		list, err := addrs(i)
		if err != nil {
			continue
		}
		for _, a := range list {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			if v4 := ipnet.IP.To4(); v4 != nil {
				return v4, nil
			}
		}
	}
	if name != "" {
		return nil, fmt.Errorf("%s: %w", name, errNoAddress)
	}
	return nil, errNoAddress
}
