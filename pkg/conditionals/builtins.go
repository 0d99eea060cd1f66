package conditionals

import (
	"github.com/jwebster45206/wilds-engine/pkg/state"
)

// Built-in primitive conditions.
const (
	IsClear          ID = "IsClear"
	IsRaining        ID = "IsRaining"
	IsSnowing        ID = "IsSnowing"
	IsFoggy          ID = "IsFoggy"
	IsStormy         ID = "IsStormy"
	IsBlizzard       ID = "IsBlizzard"
	IsWhiteout       ID = "IsWhiteout"
	DangerousWeather ID = "DangerousWeather"
	Freezing         ID = "Freezing"
	ExtremeCold      ID = "ExtremeCold"
	HighWind         ID = "HighWind"

	Sleeping     ID = "Sleeping"
	Resting      ID = "Resting"
	Traveling    ID = "Traveling"
	Foraging     ID = "Foraging"
	Hunting      ID = "Hunting"
	Crafting     ID = "Crafting"
	InCamp       ID = "InCamp"
	OnExpedition ID = "OnExpedition"

	IsNight ID = "IsNight"
	IsDay   ID = "IsDay"

	LowEnergy    ID = "LowEnergy"
	Exhausted    ID = "Exhausted"
	LowCalories  ID = "LowCalories"
	Starving     ID = "Starving"
	LowHydration ID = "LowHydration"
	Dehydrated   ID = "Dehydrated"
	Chilled      ID = "Chilled"
	Hypothermic  ID = "Hypothermic"

	Injured        ID = "Injured"
	Bleeding       ID = "Bleeding"
	LowHealth      ID = "LowHealth"
	CriticalHealth ID = "CriticalHealth"

	HasWeapon    ID = "HasWeapon"
	HasMeat      ID = "HasMeat"
	HasFirewood  ID = "HasFirewood"
	HasTorch     ID = "HasTorch"
	HasWater     ID = "HasWater"
	WeaponWorn   ID = "WeaponWorn"
	ClothingWorn ID = "ClothingWorn"

	InForest   ID = "InForest"
	NearWater  ID = "NearWater"
	OpenGround ID = "OpenGround"
	HasShelter ID = "HasShelter"
	NearCave   ID = "NearCave"
)

// Stat bands shared by the low/severe stat conditions.
const (
	LowStatPercent    = 25.0
	SevereStatPercent = 10.0
)

var weapons = []string{"spear", "bow", "knife", "axe", "club"}

// RegisterBuiltins installs the primitive conditions.
func RegisterBuiltins(r *Registry) {
	weather := func(c state.Condition) Func {
		return func(s *state.Snapshot) bool { return s.Weather.Condition == c }
	}
	r.MustRegister(IsClear, weather(state.WeatherClear))
	r.MustRegister(IsRaining, weather(state.WeatherRain))
	r.MustRegister(IsSnowing, weather(state.WeatherSnow))
	r.MustRegister(IsFoggy, weather(state.WeatherFog))
	r.MustRegister(IsStormy, weather(state.WeatherStorm))
	r.MustRegister(IsBlizzard, weather(state.WeatherBlizzard))
	r.MustRegister(IsWhiteout, weather(state.WeatherWhiteout))
	r.MustRegister(DangerousWeather, func(s *state.Snapshot) bool { return s.Weather.Condition.Dangerous() })
	r.MustRegister(Freezing, func(s *state.Snapshot) bool { return s.Weather.TemperatureC <= 0 })
	r.MustRegister(ExtremeCold, func(s *state.Snapshot) bool { return s.Weather.TemperatureC <= -15 })
	r.MustRegister(HighWind, func(s *state.Snapshot) bool { return s.Weather.WindKph >= 40 })

	activity := func(a state.Activity) Func {
		return func(s *state.Snapshot) bool { return s.Activity == a }
	}
	r.MustRegister(Sleeping, activity(state.ActivitySleeping))
	r.MustRegister(Resting, activity(state.ActivityResting))
	r.MustRegister(Traveling, activity(state.ActivityTraveling))
	r.MustRegister(Foraging, activity(state.ActivityForaging))
	r.MustRegister(Hunting, activity(state.ActivityHunting))
	r.MustRegister(Crafting, activity(state.ActivityCrafting))
	r.MustRegister(InCamp, func(s *state.Snapshot) bool { return s.AtCamp })
	r.MustRegister(OnExpedition, func(s *state.Snapshot) bool { return s.OnExpedition })

	r.MustRegister(IsNight, func(s *state.Snapshot) bool { return s.IsNight() })
	r.MustRegister(IsDay, func(s *state.Snapshot) bool { return !s.IsNight() })

	below := func(key state.StatKey, limit float64) Func {
		return func(s *state.Snapshot) bool { return s.StatPercent(key) < limit }
	}
	r.MustRegister(LowEnergy, below(state.StatEnergy, LowStatPercent))
	r.MustRegister(Exhausted, below(state.StatEnergy, SevereStatPercent))
	r.MustRegister(LowCalories, below(state.StatCalories, LowStatPercent))
	r.MustRegister(Starving, below(state.StatCalories, SevereStatPercent))
	r.MustRegister(LowHydration, below(state.StatHydration, LowStatPercent))
	r.MustRegister(Dehydrated, below(state.StatHydration, SevereStatPercent))
	r.MustRegister(Chilled, below(state.StatWarmth, 40))
	r.MustRegister(Hypothermic, below(state.StatWarmth, 15))

	r.MustRegister(Injured, func(s *state.Snapshot) bool { return len(s.Body.Injuries) > 0 })
	r.MustRegister(Bleeding, func(s *state.Snapshot) bool { return s.Body.Bleeding })
	r.MustRegister(LowHealth, func(s *state.Snapshot) bool { return s.Body.Health < 0.4 })
	r.MustRegister(CriticalHealth, func(s *state.Snapshot) bool { return s.Body.Health < 0.15 })

	r.MustRegister(HasWeapon, func(s *state.Snapshot) bool {
		for _, w := range weapons {
			if s.Has(w) {
				return true
			}
		}
		return false
	})
	r.MustRegister(HasMeat, func(s *state.Snapshot) bool { return s.Has("meat") || s.Has("carcass") })
	r.MustRegister(HasFirewood, func(s *state.Snapshot) bool { return s.Quantity("firewood") >= 1 })
	r.MustRegister(HasTorch, func(s *state.Snapshot) bool { return s.Has("torch") })
	r.MustRegister(HasWater, func(s *state.Snapshot) bool { return s.Has("water") })
	r.MustRegister(WeaponWorn, func(s *state.Snapshot) bool {
		for _, w := range weapons {
			if c, ok := s.Equipment[w]; ok && c < 0.25 {
				return true
			}
		}
		return false
	})
	r.MustRegister(ClothingWorn, func(s *state.Snapshot) bool {
		c, ok := s.Equipment["clothing"]
		return ok && c < 0.3
	})

	r.MustRegister(InForest, func(s *state.Snapshot) bool { return s.HasTag("forest") })
	r.MustRegister(NearWater, func(s *state.Snapshot) bool {
		return s.HasTag("river") || s.HasTag("lake") || s.HasTag("water")
	})
	r.MustRegister(OpenGround, func(s *state.Snapshot) bool {
		return s.HasTag("tundra") || s.HasTag("plain") || s.HasTag("open")
	})
	r.MustRegister(HasShelter, func(s *state.Snapshot) bool {
		return s.HasFeature("shelter") || s.HasFeature("cave")
	})
	r.MustRegister(NearCave, func(s *state.Snapshot) bool { return s.HasFeature("cave") })
}
