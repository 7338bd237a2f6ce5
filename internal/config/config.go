package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"cloudpico-client/internal/station"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	WiFiSSID         string
	WiFiPassword     string
	WiFiInterface    string
	WiFiJoinInterval time.Duration

	PeerMode       string
	PeerAddr       string
	PeerSerialPort string
	PeerBaudRate   int
	PeerRequest    string
	PeerTimeout    time.Duration
	PeerBufferSize int

	TelemetryDisabled bool
	AIOUsername       string
	AIOKey            string
	AIOBaseURL        string
	TelemetryTimeout  time.Duration
	Feeds             Feeds

	Thresholds station.Thresholds
	ADCMax     float64
	BlinkOn    time.Duration
	BlinkGap   time.Duration

	PollInterval time.Duration

	DisplayDriver string
	DisplayI2CBus string

	IndicatorDriver string
	LEDRedPin       string
	LEDGreenPin     string
	LEDBluePin      string

	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	DeviceStationID string

	HTTPAddr string
}

// Feeds names the telemetry channel for each published value.
type Feeds struct {
	Temperature string
	Humidity    string
	Rain        string
	Light       string
	AirQuality  string
}

// LoadDotEnv loads variables from path into the process environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envString("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:   appEnv,
		LogLevel: level,

		WiFiSSID:      envString("WIFI_SSID", ""),
		WiFiPassword:  os.Getenv("WIFI_PASSWORD"),
		WiFiInterface: envString("WIFI_INTERFACE", ""),

		PeerMode:       strings.ToLower(envString("PEER_MODE", "tcp")),
		PeerAddr:       envString("PEER_ADDR", "192.168.112.125:8080"),
		PeerSerialPort: envString("PEER_SERIAL_PORT", "/dev/ttyUSB0"),
		PeerRequest:    envString("PEER_REQUEST", "Hello ESP32"),

		AIOUsername: envString("AIO_USERNAME", ""),
		AIOKey:      envString("AIO_KEY", ""),
		Feeds: Feeds{
			Temperature: envString("FEED_TEMPERATURE", "temperature"),
			Humidity:    envString("FEED_HUMIDITY", "humidity"),
			Rain:        envString("FEED_RAIN", "rain-possibility"),
			Light:       envString("FEED_LIGHT", "ldr"),
			AirQuality:  envString("FEED_AIR_QUALITY", "air-quality"),
		},

		DisplayDriver: strings.ToLower(envString("DISPLAY_DRIVER", "log")),
		DisplayI2CBus: envString("DISPLAY_I2C_BUS", ""),

		IndicatorDriver: strings.ToLower(envString("INDICATOR_DRIVER", "log")),
		LEDRedPin:       envString("LED_RED_PIN", "GPIO18"),
		LEDGreenPin:     envString("LED_GREEN_PIN", "GPIO19"),
		LEDBluePin:      envString("LED_BLUE_PIN", "GPIO20"),

		MQTTBroker:      envString("MQTT_BROKER", ""),
		MQTTClientID:    envString("MQTT_CLIENT_ID", "cloudpico-client"),
		DeviceStationID: envString("DEVICE_STATION_ID", "home"),

		HTTPAddr: envString("HTTP_ADDR", ""),
	}

	switch cfg.PeerMode {
	case "tcp", "serial":
	default:
		return Config{}, fmt.Errorf("invalid PEER_MODE %q (allowed: tcp, serial)", cfg.PeerMode)
	}
	switch cfg.DisplayDriver {
	case "log", "terminal", "ssd1306":
	default:
		return Config{}, fmt.Errorf("invalid DISPLAY_DRIVER %q (allowed: log, terminal, ssd1306)", cfg.DisplayDriver)
	}
	switch cfg.IndicatorDriver {
	case "log", "gpio":
	default:
		return Config{}, fmt.Errorf("invalid INDICATOR_DRIVER %q (allowed: log, gpio)", cfg.IndicatorDriver)
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"WIFI_JOIN_INTERVAL", "1s", &cfg.WiFiJoinInterval},
		{"PEER_TIMEOUT", "10s", &cfg.PeerTimeout},
		{"TELEMETRY_TIMEOUT", "15s", &cfg.TelemetryTimeout},
		{"BLINK_ON", "1s", &cfg.BlinkOn},
		{"BLINK_GAP", "500ms", &cfg.BlinkGap},
		{"POLL_INTERVAL", "10s", &cfg.PollInterval},
	}
	for _, d := range durations {
		v, err := envDuration(d.key, d.def)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"PEER_BAUD_RATE", 9600, &cfg.PeerBaudRate},
		{"PEER_BUFFER_SIZE", 1024, &cfg.PeerBufferSize},
		{"MQTT_PORT", 1883, &cfg.MQTTPort},
		{"RAIN_THRESHOLD", 3000, &cfg.Thresholds.Rain},
		{"NIGHT_THRESHOLD", 3000, &cfg.Thresholds.Night},
		{"AIR_QUALITY_THRESHOLD", 1000, &cfg.Thresholds.AirQuality},
	}
	for _, i := range ints {
		v, err := envInt(i.key, i.def)
		if err != nil {
			return Config{}, err
		}
		*i.dst = v
	}
	if cfg.PeerBufferSize <= 0 {
		return Config{}, fmt.Errorf("PEER_BUFFER_SIZE must be positive, got %d", cfg.PeerBufferSize)
	}

	floats := []struct {
		key string
		def float64
		dst *float64
	}{
		{"TEMP_HIGH_THRESHOLD", 30, &cfg.Thresholds.TempHigh},
		{"TEMP_LOW_THRESHOLD", 20, &cfg.Thresholds.TempLow},
		{"ADC_MAX", 4095, &cfg.ADCMax},
	}
	for _, f := range floats {
		v, err := envFloat(f.key, f.def)
		if err != nil {
			return Config{}, err
		}
		*f.dst = v
	}
	if cfg.ADCMax <= 0 {
		return Config{}, fmt.Errorf("ADC_MAX must be positive, got %v", cfg.ADCMax)
	}
	if cfg.Thresholds.TempLow > cfg.Thresholds.TempHigh {
		return Config{}, fmt.Errorf("TEMP_LOW_THRESHOLD %v is above TEMP_HIGH_THRESHOLD %v", cfg.Thresholds.TempLow, cfg.Thresholds.TempHigh)
	}

	cfg.TelemetryDisabled, err = envBool("TELEMETRY_DISABLED", false)
	if err != nil {
		return Config{}, err
	}
	cfg.AIOBaseURL = strings.TrimRight(envString("AIO_BASE_URL", ""), "/")
	if !cfg.TelemetryDisabled {
		if cfg.AIOKey == "" {
			return Config{}, fmt.Errorf("AIO_KEY is required unless TELEMETRY_DISABLED=true")
		}
		if cfg.AIOBaseURL == "" {
			if cfg.AIOUsername == "" {
				return Config{}, fmt.Errorf("AIO_USERNAME is required when AIO_BASE_URL is not set")
			}
			cfg.AIOBaseURL = fmt.Sprintf("https://io.adafruit.com/api/v2/%s/feeds", cfg.AIOUsername)
		}
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envDuration(key, def string) (time.Duration, error) {
	s := envString(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", key, d)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return f, nil
}

func envBool(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
