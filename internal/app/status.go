package app

import (
	"time"

	"cloudpico-client/internal/station"
)

// Status describes the outcome of one cycle as served on /status.
type Status struct {
	CycleID   string                  `json:"cycle_id"`
	Sequence  int                     `json:"sequence"`
	Outcome   string                  `json:"outcome"`
	Time      time.Time               `json:"time"`
	Error     string                  `json:"error,omitempty"`
	Reading   *station.SensorReading  `json:"reading,omitempty"`
	Derived   *station.DerivedMetrics `json:"derived,omitempty"`
	Lines     []string                `json:"lines,omitempty"`
	Publishes []PublishResult         `json:"publishes,omitempty"`
}

type PublishResult struct {
	Feed  string `json:"feed"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
