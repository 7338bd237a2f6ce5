package indicator

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIOPins drives the LEDs through host GPIO lines, active high.
type GPIOPins struct {
	pins map[LED]gpio.PinOut
}

// OpenGPIO resolves the three pins by name (for example "GPIO18") and drives
// them low.
func OpenGPIO(red, green, blue string) (*GPIOPins, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	g := &GPIOPins{pins: make(map[LED]gpio.PinOut, 3)}
	for led, name := range map[LED]string{Red: red, Green: green, Blue: blue} {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("gpio pin %q (%s) not found", name, led)
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("gpio pin %q (%s): %w", name, led, err)
		}
		g.pins[led] = p
	}
	return g, nil
}

func (g *GPIOPins) Set(led LED, on bool) error {
	p, ok := g.pins[led]
	if !ok {
		return fmt.Errorf("no pin for %s", led)
	}
	level := gpio.Low
	if on {
		level = gpio.High
	}
	return p.Out(level)
}

// Close leaves every LED off.
func (g *GPIOPins) Close() error {
	var errs []error
	for _, p := range g.pins {
		if err := p.Out(gpio.Low); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
