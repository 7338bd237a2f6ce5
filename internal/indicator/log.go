package indicator

import (
	"log/slog"
	"sync"
)

// LogPins records LED state in memory and logs every change. Used when no
// GPIO is attached.
type LogPins struct {
	mu     sync.Mutex
	state  LED
	logger *slog.Logger
}

func NewLogPins(logger *slog.Logger) *LogPins {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPins{logger: logger}
}

func (p *LogPins) Set(led LED, on bool) error {
	p.mu.Lock()
	prev := p.state
	if on {
		p.state |= led
	} else {
		p.state &^= led
	}
	cur := p.state
	p.mu.Unlock()

	if cur != prev {
		p.logger.Debug("indicator", "led", led.String(), "on", on, "lit", cur.String())
	}
	return nil
}

// Lit reports which LEDs are currently on.
func (p *LogPins) Lit() LED {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *LogPins) Close() error {
	p.mu.Lock()
	p.state = 0
	p.mu.Unlock()
	return nil
}
