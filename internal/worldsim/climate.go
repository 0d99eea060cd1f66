// Package worldsim drives the world around the survivor: a noise-based
// weather timeline, a day plan of camp and expeditions, and the drain on
// survival stats. It produces the snapshot the engine reads each tick.
package worldsim

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/jwebster45206/wilds-engine/pkg/state"
)

// Climate samples weather from independent noise layers over time.
type Climate struct {
	BaseTempC float64 // mean temperature
	SwingC    float64 // noise swing either side of the mean
	DailyC    float64 // day/night amplitude

	temp   opensimplex.Noise
	precip opensimplex.Noise
	wind   opensimplex.Noise
}

// NewClimate builds a cold-season climate from seed.
func NewClimate(seed int64) *Climate {
	return &Climate{
		BaseTempC: -4,
		SwingC:    12,
		DailyC:    4,
		temp:      opensimplex.NewNormalized(seed),
		precip:    opensimplex.NewNormalized(seed + 1),
		wind:      opensimplex.NewNormalized(seed + 2),
	}
}

// At returns the weather at an absolute minute since the start of the run.
func (c *Climate) At(minute int64) state.Weather {
	hours := float64(minute) / 60

	// Peak warmth mid-afternoon, coldest before dawn.
	daily := math.Sin((math.Mod(hours, 24) - 9) / 24 * 2 * math.Pi)
	temp := c.BaseTempC + c.SwingC*(2*octaveNoise(c.temp, hours, 0, 3, 1.0/48, 0.5)-1) + c.DailyC*daily

	precip := octaveNoise(c.precip, hours, 10, 3, 1.0/18, 0.5)
	wind := 80 * math.Pow(octaveNoise(c.wind, hours, 20, 2, 1.0/12, 0.5), 1.5)

	return state.Weather{
		Condition:     Classify(temp, precip, wind),
		TemperatureC:  round1(temp),
		WindKph:       round1(wind),
		Precipitation: round1(precip),
	}
}

// Classify names the weather for a temperature, precipitation (0..1) and
// wind speed.
func Classify(tempC, precip, windKph float64) state.Condition {
	freezing := tempC <= 0
	switch {
	case precip >= 0.8 && windKph >= 50 && freezing:
		return state.WeatherWhiteout
	case precip >= 0.7 && windKph >= 35 && freezing:
		return state.WeatherBlizzard
	case precip >= 0.7 && windKph >= 35:
		return state.WeatherStorm
	case precip >= 0.55 && freezing:
		return state.WeatherSnow
	case precip >= 0.55:
		return state.WeatherRain
	case precip >= 0.45 && windKph < 10:
		return state.WeatherFog
	case precip >= 0.35:
		return state.WeatherCloudy
	default:
		return state.WeatherClear
	}
}

// octaveNoise layers frequencies along the time axis; y picks the layer.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
