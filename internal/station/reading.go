// Package station holds the per-cycle sensor data model: the payload parsed
// from the peer, the percentages derived from it and the threshold labels
// shown on the panel.
package station

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const payloadFields = 5

// ErrMalformedPayload reports a peer payload that does not carry five
// comma-separated fields of the expected kinds.
var ErrMalformedPayload = errors.New("malformed sensor payload")

// SensorReading is one peer payload. Humidity is kept verbatim as sent.
type SensorReading struct {
	Temperature float64 `json:"temperature_c"`
	Humidity    string  `json:"humidity"`
	RainRaw     int     `json:"rain_raw"`
	LightRaw    int     `json:"light_raw"`
	AirRaw      int     `json:"air_quality_raw"`
}

// ParsePayload splits the peer payload
// "<temperature>,<humidity>,<rain>,<light>,<air>" into a SensorReading.
// Surrounding whitespace on each field, including a trailing newline, is ignored.
func ParsePayload(data string) (SensorReading, error) {
	fields := strings.Split(data, ",")
	if len(fields) < payloadFields {
		return SensorReading{}, fmt.Errorf("%w: got %d fields, want %d", ErrMalformedPayload, len(fields), payloadFields)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	temp, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || math.IsNaN(temp) || math.IsInf(temp, 0) {
		return SensorReading{}, fmt.Errorf("%w: temperature %q", ErrMalformedPayload, fields[0])
	}
	rain, err := strconv.Atoi(fields[2])
	if err != nil {
		return SensorReading{}, fmt.Errorf("%w: rain %q", ErrMalformedPayload, fields[2])
	}
	light, err := strconv.Atoi(fields[3])
	if err != nil {
		return SensorReading{}, fmt.Errorf("%w: light %q", ErrMalformedPayload, fields[3])
	}
	air, err := strconv.Atoi(fields[4])
	if err != nil {
		return SensorReading{}, fmt.Errorf("%w: air quality %q", ErrMalformedPayload, fields[4])
	}

	return SensorReading{
		Temperature: temp,
		Humidity:    fields[1],
		RainRaw:     rain,
		LightRaw:    light,
		AirRaw:      air,
	}, nil
}

// Payload renders r in the peer wire format.
func (r SensorReading) Payload() string {
	return fmt.Sprintf("%s,%s,%d,%d,%d",
		strconv.FormatFloat(r.Temperature, 'f', -1, 64), r.Humidity, r.RainRaw, r.LightRaw, r.AirRaw)
}
