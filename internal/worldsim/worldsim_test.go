package worldsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/wilds-engine/internal/survivor"
	"github.com/jwebster45206/wilds-engine/pkg/engine"
	"github.com/jwebster45206/wilds-engine/pkg/state"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name               string
		temp, precip, wind float64
		want               state.Condition
	}{
		{"whiteout", -10, 0.9, 60, state.WeatherWhiteout},
		{"blizzard", -5, 0.75, 40, state.WeatherBlizzard},
		{"storm when warm", 4, 0.75, 40, state.WeatherStorm},
		{"snow", -1, 0.6, 10, state.WeatherSnow},
		{"rain", 3, 0.6, 10, state.WeatherRain},
		{"fog in still air", 1, 0.5, 5, state.WeatherFog},
		{"cloudy with wind", 1, 0.5, 20, state.WeatherCloudy},
		{"clear", -20, 0.1, 30, state.WeatherClear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.temp, tt.precip, tt.wind))
		})
	}
}

func TestClimate_DeterministicAndBounded(t *testing.T) {
	a, b := NewClimate(11), NewClimate(11)
	other := NewClimate(12)

	differs := false
	seen := map[state.Condition]bool{}
	for minute := int64(0); minute < 14*24*60; minute += 60 {
		wa := a.At(minute)
		assert.Equal(t, wa, b.At(minute))
		if wa != other.At(minute) {
			differs = true
		}
		seen[wa.Condition] = true

		assert.GreaterOrEqual(t, wa.Precipitation, 0.0)
		assert.LessOrEqual(t, wa.Precipitation, 1.0)
		assert.GreaterOrEqual(t, wa.WindKph, 0.0)
		assert.Greater(t, wa.TemperatureC, -40.0)
		assert.Less(t, wa.TemperatureC, 30.0)
	}
	assert.True(t, differs, "different seeds give different weather")
	assert.Greater(t, len(seen), 1, "weather changes over two weeks")
}

func newSurvivor(t *testing.T) *survivor.Survivor {
	t.Helper()
	s, err := survivor.New(survivor.DefaultSpec(), nil, nil)
	require.NoError(t, err)
	return s
}

func TestWorld_DayPlan(t *testing.T) {
	w := New(5, 15)
	s := newSurvivor(t)

	snap := w.Advance(s, 0)
	assert.Equal(t, int64(1), snap.Tick)
	assert.Equal(t, 6*60+15, snap.Minute)
	assert.True(t, snap.OnExpedition)
	assert.False(t, snap.AtCamp)
	assert.Equal(t, state.ActivityTraveling, snap.Activity)
	assert.NotEqual(t, "Camp", snap.Location.Name)

	// 90 minutes out, then work at the site.
	for range 6 {
		snap = w.Advance(s, 0)
	}
	assert.Equal(t, PhaseWorking, w.Phase())
	assert.Contains(t, []state.Activity{state.ActivityForaging, state.ActivityHunting}, snap.Activity)

	// Work, travel home.
	for range (workMinutes + travelMinutes) / 15 {
		snap = w.Advance(s, 0)
	}
	assert.Equal(t, PhaseCamp, w.Phase())
	assert.True(t, snap.AtCamp)
	assert.Equal(t, "Camp", snap.Location.Name)
}

func TestWorld_AbortReturnsToCamp(t *testing.T) {
	w := New(5, 15)
	s := newSurvivor(t)
	w.Advance(s, 0)
	require.Equal(t, PhaseOutbound, w.Phase())

	s.AbortCurrentActivity()
	w.Advance(s, 0)
	assert.Equal(t, PhaseReturn, w.Phase())

	for range (travelMinutes + restMinutes) / 15 {
		w.Advance(s, 0)
	}
	assert.Equal(t, PhaseCamp, w.Phase())
}

func TestWorld_SleepsAtNight(t *testing.T) {
	w := New(5, 60)
	s := newSurvivor(t)
	for range 24 {
		snap := w.Advance(s, 0)
		if snap.AtCamp && w.MinuteOfDay() >= 21*60 {
			break
		}
	}
	require.Equal(t, PhaseCamp, w.Phase(), "back at camp by nightfall")

	w.Advance(s, 0)
	assert.Equal(t, state.ActivitySleeping, s.Activity())
}

func TestWorld_ExtraMinutesAndDrain(t *testing.T) {
	w := New(5, 15)
	s := newSurvivor(t)
	before := s.Stats()

	snap := w.Advance(s, 45)
	assert.Equal(t, 6*60+60, snap.Minute)
	assert.InDelta(t, before.Calories-3, snap.Stats.Calories, 1e-9)
	assert.InDelta(t, before.Hydration-4, snap.Stats.Hydration, 1e-9)
	assert.Less(t, snap.Stats.Energy, before.Energy)
}

func TestWorld_CampRestoresFromStores(t *testing.T) {
	w := New(5, 15)
	spec := survivor.DefaultSpec()
	spec.Stats.Calories = 40
	spec.Stats.Hydration = 40
	spec.Stats.Energy = 10 // too tired to leave
	spec.Inventory["meat"] = 1
	s, err := survivor.New(spec, nil, nil)
	require.NoError(t, err)

	snap := w.Advance(s, 0)
	assert.True(t, snap.AtCamp)
	assert.Equal(t, state.ActivityResting, snap.Activity)
	assert.InDelta(t, 40-0.75+25, snap.Stats.Calories, 1e-9)
	assert.InDelta(t, 40-1+30, snap.Stats.Hydration, 1e-9)
	assert.Zero(t, s.Quantity("meat"))
	assert.Equal(t, 1.0, s.Quantity("water"))
}

func TestWorld_RestoreClock(t *testing.T) {
	w := New(5, 15)
	s := newSurvivor(t)
	for range 70 {
		w.Advance(s, 0)
	}
	saved := w.Clock()
	assert.Equal(t, int64(70), saved.Tick)

	resumed := New(5, 15)
	resumed.Restore(saved)
	assert.Equal(t, w.Tick(), resumed.Tick())
	assert.Equal(t, w.Day(), resumed.Day())
	assert.Equal(t, w.MinuteOfDay(), resumed.MinuteOfDay())
	assert.Equal(t, PhaseCamp, resumed.Phase())

	snap := resumed.Advance(newSurvivor(t), 0)
	assert.Equal(t, int64(71), snap.Tick)

	fresh := New(5, 15)
	fresh.Restore(engine.Clock{})
	assert.Zero(t, fresh.Tick(), "a zero clock leaves a new world alone")
	assert.Equal(t, 6*60, fresh.MinuteOfDay())
}
