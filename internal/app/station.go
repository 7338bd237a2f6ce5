package app

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cloudpico-client/internal/config"
	"cloudpico-client/internal/display"
	"cloudpico-client/internal/indicator"
	"cloudpico-client/internal/metrics"
	"cloudpico-client/internal/mqtt"
	"cloudpico-client/internal/station"
	"cloudpico-client/internal/telemetry"
)

type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, feed string, value any) error
}

type Indicators interface {
	Run(ctx context.Context, steps []indicator.Step) error
	Off() error
}

type Mirror interface {
	PublishTelemetry(t mqtt.Telemetry) error
}

// Deps are the cycle's collaborators. Publisher, Mirror and Metrics are optional.
type Deps struct {
	Fetcher    Fetcher
	Display    display.Display
	Publisher  Publisher
	Indicators Indicators
	Mirror     Mirror
	Metrics    *metrics.Metrics
}

// Station runs the polling cycle: fetch, parse, display, publish, blink.
type Station struct {
	deps       Deps
	feeds      config.Feeds
	thresholds station.Thresholds
	adcMax     float64
	timing     indicator.Timing
	interval   time.Duration
	logger     *slog.Logger

	wait func(ctx context.Context, d time.Duration) error
	now  func() time.Time

	mu     sync.RWMutex
	seq    int
	status Status
	ok     bool
}

func NewStation(cfg config.Config, deps Deps, logger *slog.Logger) *Station {
	if logger == nil {
		logger = slog.Default()
	}
	return &Station{
		deps:       deps,
		feeds:      cfg.Feeds,
		thresholds: cfg.Thresholds,
		adcMax:     cfg.ADCMax,
		timing:     indicator.Timing{On: cfg.BlinkOn, Gap: cfg.BlinkGap},
		interval:   cfg.PollInterval,
		logger:     logger,
		wait:       waitCtx,
		now:        time.Now,
	}
}

// Run repeats cycles, waiting the poll interval after each, until ctx ends.
func (s *Station) Run(ctx context.Context) error {
	s.logger.Info("polling started", "interval", s.interval.String())
	for {
		s.Cycle(ctx)
		if err := s.wait(ctx, s.interval); err != nil {
			return err
		}
	}
}

// Cycle performs one poll. It never fails; problems are logged and end up in
// the returned Status.
func (s *Station) Cycle(ctx context.Context) Status {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	st := Status{CycleID: uuid.NewString(), Sequence: seq}
	log := s.logger.With("cycle_id", st.CycleID)

	start := s.now()
	payload, err := s.deps.Fetcher.Fetch(ctx)
	s.deps.Metrics.Fetch(s.now().Sub(start), err)
	if err != nil {
		log.Warn("no data from peer", "error", err)
		return s.finish(log, st, metrics.OutcomeNoData, err)
	}

	reading, err := station.ParsePayload(payload)
	if err != nil {
		log.Warn("discarding payload", "payload", payload, "error", err)
		return s.finish(log, st, metrics.OutcomeMalformed, err)
	}
	st.Reading = &reading
	log.Info("reading received",
		"temperature_c", reading.Temperature,
		"humidity", reading.Humidity,
		"rain_raw", reading.RainRaw,
		"light_raw", reading.LightRaw,
		"air_quality_raw", reading.AirRaw,
	)

	lines := display.Lines(reading, s.thresholds)
	st.Lines = display.Texts(lines)
	if err := s.deps.Display.Show(lines); err != nil {
		log.Warn("display update failed", "error", err)
	}

	derived := station.Derive(reading, s.adcMax)
	st.Derived = &derived
	log.Debug("derived metrics",
		"rain_pct", derived.RainPct,
		"light_pct", derived.LightPct,
		"air_quality_pct", derived.AirPct,
	)

	st.Publishes = s.publish(ctx, log, reading, derived)
	s.mirror(log, seq, reading, derived)

	steps := indicator.Plan(reading, s.thresholds, s.timing)
	if err := s.deps.Indicators.Run(ctx, steps); err != nil && ctx.Err() == nil {
		log.Warn("indicator sequence incomplete", "error", err)
	}

	return s.finish(log, st, metrics.OutcomeOK, nil)
}

// Latest returns the most recent cycle status; ok is false before the first cycle.
func (s *Station) Latest() (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.ok
}

func (s *Station) publish(ctx context.Context, log *slog.Logger, r station.SensorReading, d station.DerivedMetrics) []PublishResult {
	if s.deps.Publisher == nil {
		return nil
	}
	values := []struct {
		feed  string
		value any
	}{
		{s.feeds.Temperature, r.Temperature},
		{s.feeds.Humidity, telemetry.TextValue(r.Humidity)},
		{s.feeds.Rain, d.RainPct},
		{s.feeds.Light, d.LightPct},
		{s.feeds.AirQuality, d.AirPct},
	}

	results := make([]PublishResult, 0, len(values))
	for _, v := range values {
		err := s.deps.Publisher.Publish(ctx, v.feed, v.value)
		s.deps.Metrics.Publish(v.feed, err)
		res := PublishResult{Feed: v.feed, OK: err == nil}
		if err != nil {
			res.Error = err.Error()
			log.Debug("publish failed", "feed", v.feed, "error", err)
		}
		results = append(results, res)
	}
	return results
}

func (s *Station) mirror(log *slog.Logger, seq int, r station.SensorReading, d station.DerivedMetrics) {
	if s.deps.Mirror == nil {
		return
	}
	t := mqtt.Telemetry{
		Timestamp:     s.now(),
		Temperature:   &r.Temperature,
		RainPct:       &d.RainPct,
		LightPct:      &d.LightPct,
		AirQualityPct: &d.AirPct,
		RainRaw:       &r.RainRaw,
		LightRaw:      &r.LightRaw,
		AirQualityRaw: &r.AirRaw,
		Sequence:      &seq,
	}
	if h, err := strconv.ParseFloat(strings.TrimSpace(r.Humidity), 64); err == nil {
		t.Humidity = &h
	}
	if err := s.deps.Mirror.PublishTelemetry(t); err != nil {
		s.deps.Metrics.MirrorFailed()
		log.Warn("mqtt mirror failed", "error", err)
	}
}

func (s *Station) finish(log *slog.Logger, st Status, outcome string, cause error) Status {
	if outcome != metrics.OutcomeOK {
		if err := s.deps.Indicators.Off(); err != nil {
			log.Warn("clearing indicators failed", "error", err)
		}
	}

	st.Outcome = outcome
	st.Time = s.now()
	if cause != nil {
		st.Error = cause.Error()
	}
	s.deps.Metrics.Cycle(outcome, st.Time)

	s.mu.Lock()
	s.status = st
	s.ok = true
	s.mu.Unlock()

	log.Info("cycle finished", "outcome", outcome, "sequence", st.Sequence)
	return st
}

func waitCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
