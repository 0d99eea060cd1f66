package triggers

import (
	"fmt"
	"slices"

	"github.com/jwebster45206/wilds-engine/pkg/state"
)

// WeatherRule fires EventID when the weather changes into one of To. From,
// when set, restricts the previous condition.
type WeatherRule struct {
	Name          string            `yaml:"name" json:"name"`
	From          []state.Condition `yaml:"from,omitempty" json:"from,omitempty"`
	To            []state.Condition `yaml:"to" json:"to"`
	EventID       string            `yaml:"event" json:"event"`
	RequireTravel bool              `yaml:"require_travel,omitempty" json:"require_travel,omitempty"`
}

func (r WeatherRule) matches(prev, cur state.Condition, activity state.Activity) bool {
	if !slices.Contains(r.To, cur) {
		return false
	}
	if len(r.From) > 0 && !slices.Contains(r.From, prev) {
		return false
	}
	return !r.RequireTravel || activity == state.ActivityTraveling
}

// DefaultWeatherRules returns the standard transitions: a blizzard or
// whiteout setting in while traveling, fog rolling in, and skies clearing
// after dangerous weather.
func DefaultWeatherRules(onset, fog, clearing string) []WeatherRule {
	return []WeatherRule{
		{
			Name:          "blizzard_onset",
			To:            []state.Condition{state.WeatherBlizzard, state.WeatherWhiteout},
			EventID:       onset,
			RequireTravel: true,
		},
		{
			Name:    "fog_onset",
			To:      []state.Condition{state.WeatherFog},
			EventID: fog,
		},
		{
			Name:    "clearing",
			From:    []state.Condition{state.WeatherStorm, state.WeatherBlizzard, state.WeatherWhiteout},
			To:      []state.Condition{state.WeatherClear, state.WeatherCloudy},
			EventID: clearing,
		},
	}
}

// WeatherState remembers the last observed condition.
type WeatherState struct {
	Last state.Condition `json:"last,omitempty"`
}

// WeatherFactory fires on weather transitions while the survivor is out on
// an expedition and awake. Suppressed transitions still update the state so
// they never fire late.
type WeatherFactory struct {
	Rules []WeatherRule
}

// Check returns at most one trigger, from the first matching rule.
func (f *WeatherFactory) Check(st *WeatherState, snap *state.Snapshot) []Trigger {
	prev, cur := st.Last, snap.Weather.Condition
	st.Last = cur
	if prev == "" || prev == cur {
		return nil
	}
	if snap.Activity == state.ActivitySleeping || !snap.OnExpedition {
		return nil
	}
	for _, rule := range f.Rules {
		if rule.EventID == "" || !rule.matches(prev, cur, snap.Activity) {
			continue
		}
		return []Trigger{{
			EventID: rule.EventID,
			Source:  SourceWeather,
			Reason:  fmt.Sprintf("%s: %s -> %s", rule.Name, prev, cur),
		}}
	}
	return nil
}
