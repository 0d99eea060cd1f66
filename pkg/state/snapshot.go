package state

import (
	"slices"
	"strings"

	"github.com/jwebster45206/wilds-engine/pkg/tension"
)

// Activity is what the survivor is currently doing.
type Activity string

const (
	ActivityCamp      Activity = "camp"
	ActivitySleeping  Activity = "sleeping"
	ActivityResting   Activity = "resting"
	ActivityTraveling Activity = "traveling"
	ActivityForaging  Activity = "foraging"
	ActivityHunting   Activity = "hunting"
	ActivityCrafting  Activity = "crafting"
)

// Condition is the prevailing weather.
type Condition string

const (
	WeatherClear    Condition = "clear"
	WeatherCloudy   Condition = "cloudy"
	WeatherRain     Condition = "rain"
	WeatherSnow     Condition = "snow"
	WeatherFog      Condition = "fog"
	WeatherStorm    Condition = "storm"
	WeatherBlizzard Condition = "blizzard"
	WeatherWhiteout Condition = "whiteout"
)

// Dangerous reports whether the condition threatens someone caught outside.
func (c Condition) Dangerous() bool {
	switch c {
	case WeatherStorm, WeatherBlizzard, WeatherWhiteout:
		return true
	}
	return false
}

// StatKey names a tracked survival stat.
type StatKey string

const (
	StatEnergy    StatKey = "energy"
	StatCalories  StatKey = "calories"
	StatHydration StatKey = "hydration"
	StatWarmth    StatKey = "warmth"
)

// Location is where the survivor currently is.
type Location struct {
	Name     string   `json:"name"`
	Tags     []string `json:"tags,omitempty"`
	Features []string `json:"features,omitempty"`
}

// Weather is the current weather reading.
type Weather struct {
	Condition     Condition `json:"condition"`
	TemperatureC  float64   `json:"temperature_c"`
	WindKph       float64   `json:"wind_kph"`
	Precipitation float64   `json:"precipitation"` // 0..1
}

// Stats are survival stats expressed as percentages (0..100).
type Stats struct {
	Energy    float64 `json:"energy"`
	Calories  float64 `json:"calories"`
	Hydration float64 `json:"hydration"`
	Warmth    float64 `json:"warmth"`
}

// Body is the coarse health picture exposed by the body subsystem.
type Body struct {
	Health   float64  `json:"health"` // 0..1
	Bleeding bool     `json:"bleeding,omitempty"`
	Injuries []string `json:"injuries,omitempty"`
}

// TensionView is the read side of the tension registry.
type TensionView interface {
	Has(typeKey string) bool
	Severity(typeKey string) float64
	StageOf(typeKey string) tension.Stage
}

// Snapshot is the read-only view of the world the engine evaluates each step.
// Collaborators build it; the engine never mutates it.
type Snapshot struct {
	Tick         int64              `json:"tick"`
	Minute       int                `json:"minute"` // minute of day, 0..1439
	Location     Location           `json:"location"`
	Activity     Activity           `json:"activity"`
	Weather      Weather            `json:"weather"`
	Stats        Stats              `json:"stats"`
	Inventory    map[string]float64 `json:"inventory,omitempty"`
	Equipment    map[string]float64 `json:"equipment,omitempty"` // condition 0..1
	Body         Body               `json:"body"`
	OnExpedition bool               `json:"on_expedition,omitempty"`
	AtCamp       bool               `json:"at_camp,omitempty"`
	Vars         map[string]string  `json:"vars,omitempty"`
	Tensions     TensionView        `json:"-"`
}

// HasTag reports whether the current location carries tag (case-insensitive).
func (s *Snapshot) HasTag(tag string) bool {
	return containsFold(s.Location.Tags, tag)
}

// HasFeature reports whether the current location has feature.
func (s *Snapshot) HasFeature(feature string) bool {
	return containsFold(s.Location.Features, feature)
}

// Quantity returns how much of item the survivor carries.
func (s *Snapshot) Quantity(item string) float64 {
	if s.Inventory == nil {
		return 0
	}
	return s.Inventory[item]
}

// Has reports whether the survivor carries any of item.
func (s *Snapshot) Has(item string) bool {
	return s.Quantity(item) > 0
}

// EquipmentCondition returns the condition of an equipped item, 0 when absent.
func (s *Snapshot) EquipmentCondition(item string) float64 {
	if s.Equipment == nil {
		return 0
	}
	return s.Equipment[item]
}

// IsNight reports whether the snapshot falls between 20:00 and 05:59.
func (s *Snapshot) IsNight() bool {
	hour := (s.Minute / 60) % 24
	return hour >= 20 || hour < 6
}

// StatPercent returns the named stat.
func (s *Snapshot) StatPercent(key StatKey) float64 {
	switch key {
	case StatEnergy:
		return s.Stats.Energy
	case StatCalories:
		return s.Stats.Calories
	case StatHydration:
		return s.Stats.Hydration
	case StatWarmth:
		return s.Stats.Warmth
	default:
		return 0
	}
}

// TensionSeverity returns the severity of typeKey, or 0 without a registry.
func (s *Snapshot) TensionSeverity(typeKey string) float64 {
	if s.Tensions == nil {
		return 0
	}
	return s.Tensions.Severity(typeKey)
}

// TensionStage returns the stage of typeKey, or Absent without a registry.
func (s *Snapshot) TensionStage(typeKey string) tension.Stage {
	if s.Tensions == nil {
		return tension.Absent
	}
	return s.Tensions.StageOf(typeKey)
}

// HasTension reports whether typeKey is active.
func (s *Snapshot) HasTension(typeKey string) bool {
	return s.Tensions != nil && s.Tensions.Has(typeKey)
}

func containsFold(list []string, target string) bool {
	return slices.ContainsFunc(list, func(v string) bool {
		return strings.EqualFold(strings.TrimSpace(v), target)
	})
}
