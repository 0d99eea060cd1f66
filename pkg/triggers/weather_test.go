package triggers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/wilds-engine/pkg/state"
)

func weatherSnap(c state.Condition, activity state.Activity, expedition bool) *state.Snapshot {
	return &state.Snapshot{
		Activity:     activity,
		OnExpedition: expedition,
		Weather:      state.Weather{Condition: c},
	}
}

func TestWeather_Transitions(t *testing.T) {
	f := &WeatherFactory{Rules: DefaultWeatherRules("blizzard_hits", "fog_rolls_in", "skies_clear")}

	tests := []struct {
		name     string
		prev     state.Condition
		cur      state.Condition
		activity state.Activity
		out      bool
		want     string
	}{
		{"blizzard while traveling", state.WeatherSnow, state.WeatherBlizzard, state.ActivityTraveling, true, "blizzard_hits"},
		{"whiteout while traveling", state.WeatherClear, state.WeatherWhiteout, state.ActivityTraveling, true, "blizzard_hits"},
		{"blizzard while foraging", state.WeatherSnow, state.WeatherBlizzard, state.ActivityForaging, true, ""},
		{"fog onset", state.WeatherClear, state.WeatherFog, state.ActivityForaging, true, "fog_rolls_in"},
		{"clearing after storm", state.WeatherStorm, state.WeatherClear, state.ActivityTraveling, true, "skies_clear"},
		{"clearing after snow is ordinary", state.WeatherSnow, state.WeatherClear, state.ActivityTraveling, true, ""},
		{"suppressed while sleeping", state.WeatherClear, state.WeatherFog, state.ActivitySleeping, true, ""},
		{"suppressed at camp", state.WeatherSnow, state.WeatherBlizzard, state.ActivityTraveling, false, ""},
		{"no change", state.WeatherFog, state.WeatherFog, state.ActivityTraveling, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &WeatherState{Last: tt.prev}
			got := f.Check(st, weatherSnap(tt.cur, tt.activity, tt.out))
			assert.Equal(t, tt.cur, st.Last, "state always tracks the latest condition")
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].EventID)
			assert.Equal(t, SourceWeather, got[0].Source)
		})
	}
}

func TestWeather_FirstObservationIsBaseline(t *testing.T) {
	f := &WeatherFactory{Rules: DefaultWeatherRules("a", "b", "c")}
	st := &WeatherState{}

	assert.Empty(t, f.Check(st, weatherSnap(state.WeatherFog, state.ActivityTraveling, true)))
	assert.Equal(t, state.WeatherFog, st.Last)
}

func TestWeather_SuppressedTransitionDoesNotFireLater(t *testing.T) {
	f := &WeatherFactory{Rules: DefaultWeatherRules("a", "fog", "c")}
	st := &WeatherState{Last: state.WeatherClear}

	assert.Empty(t, f.Check(st, weatherSnap(state.WeatherFog, state.ActivitySleeping, true)))
	assert.Empty(t, f.Check(st, weatherSnap(state.WeatherFog, state.ActivityTraveling, true)))
}
