// Package mqtt mirrors cycle telemetry to a broker and keeps a retained
// online flag for the station, cleared by the broker's last will.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

var (
	ErrNotConnected = errors.New("mqtt client not connected")
	ErrStopped      = errors.New("mqtt client stopped")
)

type Options struct {
	Broker         string
	Port           int
	ClientID       string
	StationID      string
	PublishTimeout time.Duration
}

type Telemetry struct {
	StationID     string    `json:"station_id"`
	Timestamp     time.Time `json:"timestamp"`
	Temperature   *float64  `json:"temperature_c,omitempty"`
	Humidity      *float64  `json:"humidity_pct,omitempty"`
	RainPct       *float64  `json:"rain_pct,omitempty"`
	LightPct      *float64  `json:"light_pct,omitempty"`
	AirQualityPct *float64  `json:"air_quality_pct,omitempty"`
	RainRaw       *int      `json:"rain_raw,omitempty"`
	LightRaw      *int      `json:"light_raw,omitempty"`
	AirQualityRaw *int      `json:"air_quality_raw,omitempty"`
	Sequence      *int      `json:"sequence,omitempty"`
}

// Presence is the retained payload on the station's status topic.
type Presence struct {
	StationID string    `json:"station_id"`
	Online    bool      `json:"online"`
	Since     time.Time `json:"since"`
}

func TelemetryTopic(stationID string) string {
	return fmt.Sprintf("stations/%s/telemetry", stationID)
}

func StatusTopic(stationID string) string {
	return fmt.Sprintf("stations/%s/status", stationID)
}

type Client struct {
	opts   Options
	client paho.Client
	logger *slog.Logger

	mu     sync.RWMutex
	online bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewClient(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	c := &Client{
		opts:   opts,
		logger: logger.With("broker", opts.Broker, "station_id", opts.StationID),
		stopCh: make(chan struct{}),
	}

	will, _ := json.Marshal(Presence{StationID: opts.StationID, Online: false})

	po := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", opts.Broker, opts.Port)).
		SetClientID(opts.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(time.Minute).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetBinaryWill(StatusTopic(opts.StationID), will, 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.setOnline(false)
			c.logger.Warn("mqtt connection lost", "error", err)
		})

	c.client = paho.NewClient(po)
	return c
}

// onConnect runs on every (re)connect, from paho's goroutine.
func (c *Client) onConnect(_ paho.Client) {
	c.setOnline(true)
	c.logger.Info("mqtt connected", "port", c.opts.Port)
	if err := c.publishJSON(StatusTopic(c.opts.StationID), true, Presence{
		StationID: c.opts.StationID,
		Online:    true,
		Since:     time.Now(),
	}); err != nil {
		c.logger.Warn("mqtt presence publish failed", "error", err)
	}
}

// Connect starts connecting and waits for the first session. paho keeps
// retrying in the background; Connect gives up waiting when ctx ends or the
// client is disconnected.
func (c *Client) Connect(ctx context.Context) error {
	if c.stopped() {
		return ErrStopped
	}
	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()
	for !token.WaitTimeout(200 * time.Millisecond) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return ErrStopped
		default:
		}
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// PublishTelemetry sends t to the station's telemetry topic with QoS 1,
// filling in the station id and, when unset, the timestamp.
func (c *Client) PublishTelemetry(t Telemetry) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	t.StationID = c.opts.StationID
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	topic := TelemetryTopic(t.StationID)
	if err := c.publishJSON(topic, false, t); err != nil {
		return err
	}
	c.logger.Debug("published telemetry", "topic", topic)
	return nil
}

func (c *Client) publishJSON(topic string, retained bool, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	token := c.client.Publish(topic, 1, retained, data)
	if !token.WaitTimeout(c.opts.PublishTimeout) {
		return fmt.Errorf("publish %s: timed out after %s", topic, c.opts.PublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	online := c.online
	c.mu.RUnlock()
	return online && c.client.IsConnected()
}

// Disconnect marks the station offline and closes the session. Safe to call
// more than once.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if c.IsConnected() {
			if err := c.publishJSON(StatusTopic(c.opts.StationID), true, Presence{
				StationID: c.opts.StationID,
				Since:     time.Now(),
			}); err != nil {
				c.logger.Warn("mqtt presence publish failed", "error", err)
			}
		}
		c.client.Disconnect(250)
		c.setOnline(false)
		c.logger.Info("mqtt disconnected")
	})
}

func (c *Client) stopped() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *Client) setOnline(v bool) {
	c.mu.Lock()
	c.online = v
	c.mu.Unlock()
}
