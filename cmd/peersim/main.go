// Command peersim answers station client requests with sensor payloads, in
// place of the real sensor device.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloudpico-client/internal/config"
	"cloudpico-client/internal/logging"
	"cloudpico-client/internal/peer"
	"cloudpico-client/internal/station"
)

var version = "dev"
var appName = "cloudpico-peersim"

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	addr := strings.TrimSpace(os.Getenv("PEERSIM_ADDR"))
	if addr == "" {
		addr = ":8080"
	}
	payload := strings.TrimSpace(os.Getenv("PEERSIM_PAYLOAD"))
	if payload != "" {
		if _, err := station.ParsePayload(payload); err != nil {
			fmt.Fprintf(os.Stderr, "config error: PEERSIM_PAYLOAD: %v\n", err)
			os.Exit(1)
		}
	}

	logger := logging.New(config.Config{AppEnv: "dev", LogLevel: slog.LevelInfo}, version, appName)
	slog.SetDefault(logger)

	source := peer.FixedSource(payload)
	if payload == "" {
		seed := uint64(time.Now().UnixNano())
		source = peer.RandomSource(rand.New(rand.NewPCG(seed, seed>>1)))
	}

	srv, err := peer.Listen(addr, source, logger)
	if err != nil {
		slog.Error("listen failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("serve failed", "error", err)
		os.Exit(1)
	}

	slog.Info("shutting down")
}
