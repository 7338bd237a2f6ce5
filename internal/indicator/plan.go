// Package indicator turns a reading into fixed blink sequences on three
// status LEDs.
package indicator

import (
	"strings"
	"time"

	"cloudpico-client/internal/station"
)

// LED is a set of indicators. Single colors are bits of it.
type LED uint8

const (
	Red LED = 1 << iota
	Green
	Blue

	All = Red | Green | Blue
)

var ledNames = []struct {
	led  LED
	name string
}{
	{Red, "red"},
	{Green, "green"},
	{Blue, "blue"},
}

// Each calls fn for every single color in l, in red, green, blue order.
func (l LED) Each(fn func(LED)) {
	for _, n := range ledNames {
		if l&n.led != 0 {
			fn(n.led)
		}
	}
}

func (l LED) String() string {
	var parts []string
	for _, n := range ledNames {
		if l&n.led != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

type Action uint8

const (
	On Action = iota + 1
	Off
	Wait
)

func (a Action) String() string {
	switch a {
	case On:
		return "on"
	case Off:
		return "off"
	case Wait:
		return "wait"
	default:
		return "unknown"
	}
}

// Step is one instruction of a blink sequence. LEDs is ignored for Wait and
// Duration for On and Off.
type Step struct {
	Action   Action
	LEDs     LED
	Duration time.Duration
}

// Timing sets how long an LED stays lit and the pause between two blinks.
type Timing struct {
	On  time.Duration
	Gap time.Duration
}

var DefaultTiming = Timing{On: time.Second, Gap: 500 * time.Millisecond}

// Plan returns the whole sequence for one reading. The checks are
// independent, so several blocks can run in one cycle; each one starts from
// all LEDs off.
func Plan(r station.SensorReading, th station.Thresholds, tm Timing) []Step {
	var p planner
	p.tm = tm

	p.off(All)
	if th.Raining(r) {
		p.blinkTwice(Blue)
	}
	p.off(All)
	if th.TooHot(r) {
		p.blinkTwice(Green)
	}
	p.off(All)
	if th.TooCold(r) {
		p.on(Blue | Green)
		p.wait(tm.On)
		p.off(Blue | Green)
		p.wait(tm.Gap)
	}
	p.off(All)
	if th.Comfortable(r) {
		p.blinkTwice(Red)
	}
	p.off(All)
	if th.AirBad(r) {
		p.blinkOnce(All)
	}
	p.off(All)
	if th.AirGood(r) {
		p.blinkOnce(Blue | Red)
	}
	return p.steps
}

type planner struct {
	tm    Timing
	steps []Step
}

func (p *planner) on(l LED)  { p.steps = append(p.steps, Step{Action: On, LEDs: l}) }
func (p *planner) off(l LED) { p.steps = append(p.steps, Step{Action: Off, LEDs: l}) }

func (p *planner) wait(d time.Duration) {
	p.steps = append(p.steps, Step{Action: Wait, Duration: d})
}

func (p *planner) blinkOnce(l LED) {
	p.on(l)
	p.wait(p.tm.On)
	p.off(l)
}

func (p *planner) blinkTwice(l LED) {
	p.blinkOnce(l)
	p.wait(p.tm.Gap)
	p.blinkOnce(l)
}
