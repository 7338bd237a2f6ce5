// Package telemetry posts one value per feed to an Adafruit IO style REST API.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// StatusError is returned when the service answers with anything other than
// 200 or 201.
type StatusError struct {
	Feed       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("publish %s: status %d: %s", e.Feed, e.StatusCode, e.Body)
}

type Options struct {
	BaseURL string // e.g. https://io.adafruit.com/api/v2/{username}/feeds
	APIKey  string
	Timeout time.Duration
}

type Publisher struct {
	client *resty.Client
	logger *slog.Logger
}

func NewPublisher(opts Options, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetRetryCount(0).
		SetHeader("X-AIO-Key", opts.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	return &Publisher{client: client, logger: logger}
}

type dataPoint struct {
	Value any `json:"value"`
}

// Publish sends {"value": value} to the feed's data endpoint. There is no
// retry; the outcome is logged and returned.
func (p *Publisher) Publish(ctx context.Context, feed string, value any) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(dataPoint{Value: value}).
		Post("/" + url.PathEscape(feed) + "/data")
	if err != nil {
		p.logger.Warn("failed to publish", "feed", feed, "value", value, "error", err)
		return fmt.Errorf("publish %s: %w", feed, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated:
		p.logger.Info("published", "feed", feed, "value", value, "body", resp.String())
		return nil
	default:
		p.logger.Warn("failed to publish",
			"feed", feed,
			"status", resp.StatusCode(),
			"body", resp.String(),
		)
		return &StatusError{Feed: feed, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
}

// TextValue turns a text field into a JSON number when it is numeric and
// keeps it as a string otherwise.
func TextValue(s string) any {
	s = strings.TrimSpace(s)
	if _, err := strconv.ParseFloat(s, 64); err == nil && json.Valid([]byte(s)) {
		return json.Number(s)
	}
	return s
}
