package station

// Thresholds decide the panel labels and the indicator blocks. Analog
// thresholds apply to raw values.
type Thresholds struct {
	Rain       int
	Night      int
	AirQuality int
	TempHigh   float64
	TempLow    float64
}

// DefaultThresholds matches the sensors the peer is usually wired to.
var DefaultThresholds = Thresholds{
	Rain:       3000,
	Night:      3000,
	AirQuality: 1000,
	TempHigh:   30,
	TempLow:    20,
}

func (t Thresholds) Raining(r SensorReading) bool { return r.RainRaw < t.Rain }

func (t Thresholds) Dark(r SensorReading) bool { return r.LightRaw > t.Night }

// AirGood and AirBad are not complements: a reading equal to the threshold
// is neither.
func (t Thresholds) AirGood(r SensorReading) bool { return r.AirRaw < t.AirQuality }

func (t Thresholds) AirBad(r SensorReading) bool { return r.AirRaw > t.AirQuality }

func (t Thresholds) TooHot(r SensorReading) bool { return r.Temperature > t.TempHigh }

func (t Thresholds) TooCold(r SensorReading) bool { return r.Temperature < t.TempLow }

func (t Thresholds) Comfortable(r SensorReading) bool {
	return r.Temperature >= t.TempLow && r.Temperature <= t.TempHigh
}
