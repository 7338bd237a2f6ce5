package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"cloudpico-client/internal/config"
	"cloudpico-client/internal/display"
	"cloudpico-client/internal/httpapi"
	"cloudpico-client/internal/indicator"
	"cloudpico-client/internal/metrics"
	"cloudpico-client/internal/mqtt"
	"cloudpico-client/internal/network"
	"cloudpico-client/internal/peer"
	"cloudpico-client/internal/telemetry"
)

// Run wires the hardware and network backends from cfg and polls until ctx
// is canceled.
func Run(ctx context.Context, cfg config.Config) error {
	logger := slog.Default()

	slog.Info("initializing station client",
		"peer_mode", cfg.PeerMode,
		"display", cfg.DisplayDriver,
		"indicators", cfg.IndicatorDriver,
		"telemetry", !cfg.TelemetryDisabled,
		"mqtt_broker", cfg.MQTTBroker,
	)

	m := metrics.New()

	fetcher, err := peer.NewClient(peer.Options{
		Mode:       cfg.PeerMode,
		Addr:       cfg.PeerAddr,
		SerialPort: cfg.PeerSerialPort,
		BaudRate:   cfg.PeerBaudRate,
		Request:    cfg.PeerRequest,
		Timeout:    cfg.PeerTimeout,
		BufferSize: cfg.PeerBufferSize,
	}, logger)
	if err != nil {
		return err
	}

	disp, err := openDisplay(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := disp.Close(); err != nil {
			slog.Warn("close display", "error", err)
		}
	}()

	pins, err := openPins(cfg, logger)
	if err != nil {
		return err
	}
	runner := indicator.NewRunner(pins, logger)
	defer releaseIndicators(logger, runner, pins)

	deps := Deps{
		Fetcher:    fetcher,
		Display:    disp,
		Indicators: runner,
		Metrics:    m,
	}

	if !cfg.TelemetryDisabled {
		deps.Publisher = telemetry.NewPublisher(telemetry.Options{
			BaseURL: cfg.AIOBaseURL,
			APIKey:  cfg.AIOKey,
			Timeout: cfg.TelemetryTimeout,
		}, logger)
	}

	if cfg.MQTTBroker != "" {
		mqttClient := mqtt.NewClient(mqtt.Options{
			Broker:    cfg.MQTTBroker,
			Port:      cfg.MQTTPort,
			ClientID:  cfg.MQTTClientID,
			StationID: cfg.DeviceStationID,
		}, logger)
		go func() {
			if err := mqttClient.Connect(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("mqtt connect failed", "error", err)
			}
		}()
		defer mqttClient.Disconnect()
		deps.Mirror = mqttClient
	}

	st := NewStation(cfg, deps, logger)

	if cfg.HTTPAddr != "" {
		ln, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.HTTPAddr, err)
		}
		statusFn := func() (any, bool) { return st.Latest() }
		srv := httpapi.NewServer(cfg.HTTPAddr, httpapi.NewMux(statusFn, m.Handler()), logger)
		served := make(chan struct{})
		go func() {
			defer close(served)
			slog.Info("http listening", "addr", ln.Addr().String())
			if err := httpapi.Serve(ctx, srv, ln); err != nil {
				slog.Error("http server failed", "error", err)
			}
		}()
		defer func() { <-served }()
	}

	if cfg.WiFiSSID != "" || cfg.WiFiInterface != "" {
		joiner := network.NewJoiner(network.Options{
			SSID:      cfg.WiFiSSID,
			Password:  cfg.WiFiPassword,
			Interface: cfg.WiFiInterface,
			Interval:  cfg.WiFiJoinInterval,
		}, logger)
		if _, err := joiner.Join(ctx); err != nil {
			return err
		}
	} else {
		slog.Info("network join skipped, no wifi configured")
	}

	err = st.Run(ctx)
	slog.Info("station client shutting down")
	return err
}

func openDisplay(cfg config.Config, logger *slog.Logger) (display.Display, error) {
	switch cfg.DisplayDriver {
	case "ssd1306":
		d, err := display.OpenSSD1306(cfg.DisplayI2CBus)
		if err != nil {
			return nil, fmt.Errorf("open ssd1306: %w", err)
		}
		return d, nil
	case "terminal":
		return display.NewTerminalDisplay(os.Stdout), nil
	default:
		return display.NewLogDisplay(logger), nil
	}
}

func openPins(cfg config.Config, logger *slog.Logger) (indicator.Pins, error) {
	switch cfg.IndicatorDriver {
	case "gpio":
		p, err := indicator.OpenGPIO(cfg.LEDRedPin, cfg.LEDGreenPin, cfg.LEDBluePin)
		if err != nil {
			return nil, fmt.Errorf("open gpio: %w", err)
		}
		return p, nil
	default:
		return indicator.NewLogPins(logger), nil
	}
}

// releaseIndicators leaves every LED off and closes the pins.
func releaseIndicators(logger *slog.Logger, runner Indicators, pins indicator.Pins) {
	if err := runner.Off(); err != nil {
		logger.Warn("clear indicators", "error", err)
	}
	if err := pins.Close(); err != nil {
		logger.Warn("close indicator pins", "error", err)
	}
}
