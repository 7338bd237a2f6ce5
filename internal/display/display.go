// Package display renders a cycle's reading as five text lines on a
// 128x64 monochrome panel.
package display

import (
	"fmt"

	"cloudpico-client/internal/station"
)

const (
	Width  = 128
	Height = 64
)

// Line is one row of text anchored at its top-left pixel.
type Line struct {
	X, Y int
	Text string
}

// Display shows one full frame per call, replacing the previous one.
type Display interface {
	Show(lines []Line) error
	Close() error
}

// Lines lays out r for the panel.
func Lines(r station.SensorReading, th station.Thresholds) []Line {
	return []Line{
		{X: 0, Y: 10, Text: fmt.Sprintf("Temp: %.1f C", r.Temperature)},
		{X: 0, Y: 20, Text: fmt.Sprintf("Humidity: %s %%", r.Humidity)},
		{X: 0, Y: 30, Text: "Rain: " + yesNo(th.Raining(r))},
		{X: 0, Y: 40, Text: "Light: " + pick(th.Dark(r), "Night", "Daytime")},
		{X: 0, Y: 50, Text: "Air Q: " + pick(th.AirGood(r), "Good", "Bad")},
	}
}

// Texts returns just the text of each line.
func Texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

func yesNo(b bool) string { return pick(b, "Yes", "No") }

func pick(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}
