package situations

import (
	c "github.com/jwebster45206/wilds-engine/pkg/conditionals"
	"github.com/jwebster45206/wilds-engine/pkg/state"
)

// Built-in situations.
const (
	Vulnerable       ID = "vulnerable"
	Exposed          ID = "exposed"
	PredatorPressure ID = "predator_pressure"
	Isolated         ID = "isolated"
	Fatigued         ID = "fatigued"
)

// Tension keys the built-in situations read.
const (
	stalkedKey     = "Stalked"
	woundedPreyKey = "WoundedPrey"
)

// RegisterBuiltins installs the built-in situations. The condition registry
// passed to NewCalculator should already carry the built-in conditions.
func RegisterBuiltins(calc *Calculator) {
	calc.MustRegister(Situation{
		ID:    Vulnerable,
		AnyOf: []c.ID{c.Injured, c.Bleeding, c.LowHealth, c.Exhausted},
		Indicators: []Indicator{
			{Name: "health_deficit", Weight: 0.45, Level: func(s *state.Snapshot) float64 { return 1 - s.Body.Health }},
			{Name: "bleeding", Weight: 0.25, Level: boolLevel(func(s *state.Snapshot) bool { return s.Body.Bleeding })},
			{Name: "energy_deficit", Weight: 0.3, Level: deficit(state.StatEnergy)},
		},
	})

	calc.MustRegister(Situation{
		ID:    Exposed,
		AllOf: []c.ID{c.OnExpedition},
		AnyOf: []c.ID{c.DangerousWeather, c.Freezing, c.HighWind, c.Chilled},
		Gate:  func(s *state.Snapshot) bool { return !s.HasFeature("shelter") },
		Indicators: []Indicator{
			{Name: "cold", Weight: 0.4, Level: func(s *state.Snapshot) float64 { return -s.Weather.TemperatureC / 30 }},
			{Name: "wind", Weight: 0.3, Level: func(s *state.Snapshot) float64 { return s.Weather.WindKph / 80 }},
			{Name: "warmth_deficit", Weight: 0.3, Level: deficit(state.StatWarmth)},
		},
	})

	calc.MustRegister(Situation{
		ID: PredatorPressure,
		Gate: func(s *state.Snapshot) bool {
			return s.HasTension(stalkedKey) || s.HasTension(woundedPreyKey) || s.Has("meat") || s.Has("carcass") || s.Body.Bleeding
		},
		Indicators: []Indicator{
			{Name: "stalked", Weight: 0.45, Level: func(s *state.Snapshot) float64 { return s.TensionSeverity(stalkedKey) }},
			{Name: "carrying_meat", Weight: 0.2, Level: boolLevel(func(s *state.Snapshot) bool { return s.Has("meat") || s.Has("carcass") })},
			{Name: "blood_scent", Weight: 0.2, Level: boolLevel(func(s *state.Snapshot) bool { return s.Body.Bleeding })},
			{Name: "night", Weight: 0.15, Level: boolLevel((*state.Snapshot).IsNight)},
		},
	})

	calc.MustRegister(Situation{
		ID:    Isolated,
		AllOf: []c.ID{c.OnExpedition},
		AnyOf: []c.ID{c.IsNight, c.IsFoggy, c.IsWhiteout, c.IsBlizzard},
		Indicators: []Indicator{
			{Name: "night", Weight: 0.3, Level: boolLevel((*state.Snapshot).IsNight)},
			{Name: "visibility", Weight: 0.4, Level: visibilityLoss},
			{Name: "away_from_camp", Weight: 0.3, Level: boolLevel(func(s *state.Snapshot) bool { return !s.AtCamp })},
		},
	})

	calc.MustRegister(Situation{
		ID:    Fatigued,
		AnyOf: []c.ID{c.LowEnergy, c.LowCalories, c.LowHydration},
		Indicators: []Indicator{
			{Name: "energy_deficit", Weight: 0.5, Level: deficit(state.StatEnergy)},
			{Name: "calorie_deficit", Weight: 0.25, Level: deficit(state.StatCalories)},
			{Name: "hydration_deficit", Weight: 0.25, Level: deficit(state.StatHydration)},
		},
	})
}

func deficit(key state.StatKey) func(*state.Snapshot) float64 {
	return func(s *state.Snapshot) float64 { return 1 - s.StatPercent(key)/100 }
}

func boolLevel(pred func(*state.Snapshot) bool) func(*state.Snapshot) float64 {
	return func(s *state.Snapshot) float64 {
		if pred(s) {
			return 1
		}
		return 0
	}
}

func visibilityLoss(s *state.Snapshot) float64 {
	switch s.Weather.Condition {
	case state.WeatherFog, state.WeatherWhiteout, state.WeatherBlizzard:
		return 1
	case state.WeatherSnow, state.WeatherStorm:
		return 0.5
	case state.WeatherRain:
		return 0.25
	default:
		return 0
	}
}
