package peer

import (
	"math"
	"math/rand/v2"
	"strconv"
	"sync"

	"cloudpico-client/internal/station"
)

// FixedSource always replies with payload.
func FixedSource(payload string) Source {
	return func() string { return payload }
}

// RandomSource replies with plausible readings drawn from rng: 10 to 35 C,
// 20 to 90 % humidity and raw analog values across [0, 4095].
// Safe for concurrent use.
func RandomSource(rng *rand.Rand) Source {
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		r := station.SensorReading{
			Temperature: math.Round((10+rng.Float64()*25)*10) / 10,
			Humidity:    strconv.FormatFloat(math.Round((20+rng.Float64()*70)*10)/10, 'f', 1, 64),
			RainRaw:     rng.IntN(station.DefaultADCMax + 1),
			LightRaw:    rng.IntN(station.DefaultADCMax + 1),
			AirRaw:      rng.IntN(station.DefaultADCMax + 1),
		}
		return r.Payload()
	}
}
