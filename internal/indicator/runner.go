package indicator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Pins drives single LEDs.
type Pins interface {
	Set(led LED, on bool) error
	Close() error
}

// Runner executes blink sequences against a Pins backend.
type Runner struct {
	pins   Pins
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRunner(pins Pins, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{pins: pins, logger: logger, sleep: sleepCtx}
}

// Run executes steps in order. Pin errors are logged and the sequence goes
// on; they are returned joined at the end. If ctx ends mid-sequence all LEDs
// are switched off and ctx's error is returned.
func (r *Runner) Run(ctx context.Context, steps []Step) error {
	var errs []error
	for _, s := range steps {
		switch s.Action {
		case On, Off:
			if err := r.set(s.LEDs, s.Action == On); err != nil {
				errs = append(errs, err)
			}
		case Wait:
			if err := r.sleep(ctx, s.Duration); err != nil {
				_ = r.Off()
				return err
			}
		}
	}
	return errors.Join(errs...)
}

// Off switches every LED off.
func (r *Runner) Off() error {
	return r.set(All, false)
}

func (r *Runner) set(l LED, on bool) error {
	var errs []error
	l.Each(func(single LED) {
		if err := r.pins.Set(single, on); err != nil {
			r.logger.Warn("indicator: set pin failed", "led", single.String(), "on", on, "error", err)
			errs = append(errs, fmt.Errorf("set %s: %w", single, err))
		}
	})
	return errors.Join(errs...)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
