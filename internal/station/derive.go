package station

// DefaultADCMax is the full-scale value of a 12-bit analog reading.
const DefaultADCMax = 4095

// DerivedMetrics are the percentages published alongside the raw readings.
// Raw values outside [0, ADC max] give percentages outside [0, 100].
type DerivedMetrics struct {
	RainPct  float64 `json:"rain_pct"`
	LightPct float64 `json:"light_pct"`
	AirPct   float64 `json:"air_quality_pct"`
}

// Derive scales the analog fields against [0, adcMax]. Rain and light are
// inverted: a wet or bright sensor reads low.
func Derive(r SensorReading, adcMax float64) DerivedMetrics {
	if adcMax <= 0 {
		adcMax = DefaultADCMax
	}
	return DerivedMetrics{
		RainPct:  100 - scale(r.RainRaw, adcMax),
		LightPct: 100 - scale(r.LightRaw, adcMax),
		AirPct:   scale(r.AirRaw, adcMax),
	}
}

func scale(raw int, adcMax float64) float64 {
	return float64(raw) / adcMax * 100
}
