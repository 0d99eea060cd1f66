package triggers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/wilds-engine/pkg/state"
	"github.com/jwebster45206/wilds-engine/pkg/tension"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	h := NewHandlers()
	require.NoError(t, h.Register("Stalked", stalkedTable))
	return NewDispatcher(h, caloriesFactory(), &WeatherFactory{Rules: DefaultWeatherRules("blizzard_hits", "fog_rolls_in", "skies_clear")}, nil)
}

func TestDispatcher_PriorityAndDeferral(t *testing.T) {
	d := newTestDispatcher(t)
	st := NewState()
	st.Weather.Last = state.WeatherSnow

	snap := &state.Snapshot{
		Tick:         4,
		Activity:     state.ActivityTraveling,
		OnExpedition: true,
		Weather:      state.Weather{Condition: state.WeatherBlizzard},
		Stats:        state.Stats{Calories: 20},
	}
	changes := []tension.StageChange{{TypeKey: "Stalked", Previous: tension.Building, Current: tension.Escalating}}

	first, ok := d.Next(st, changes, snap)
	require.True(t, ok)
	assert.Equal(t, "stalked_closer", first.EventID)
	assert.Equal(t, int64(4), first.Tick)
	require.Len(t, st.Deferred, 2)

	snap.Tick = 5
	second, ok := d.Next(st, nil, snap)
	require.True(t, ok)
	assert.Equal(t, "hunger_pangs", second.EventID, "threshold beats weather")

	snap.Tick = 6
	third, ok := d.Next(st, nil, snap)
	require.True(t, ok)
	assert.Equal(t, "blizzard_hits", third.EventID)
	assert.Equal(t, int64(4), third.Tick, "deferred triggers keep the tick they were raised")

	_, ok = d.Next(st, nil, snap)
	assert.False(t, ok)
}

func TestDispatcher_FreshHigherPriorityJumpsQueue(t *testing.T) {
	d := newTestDispatcher(t)
	st := NewState()
	st.Weather.Last = state.WeatherClear
	snap := &state.Snapshot{
		Activity:     state.ActivityForaging,
		OnExpedition: true,
		Weather:      state.Weather{Condition: state.WeatherFog},
		Stats:        state.Stats{Calories: 20},
	}

	got, ok := d.Next(st, nil, snap)
	require.True(t, ok)
	assert.Equal(t, "hunger_pangs", got.EventID)
	require.Len(t, st.Deferred, 1)

	got, ok = d.Next(st, []tension.StageChange{{TypeKey: "Stalked", Current: tension.Building, IsCreation: true}}, snap)
	require.True(t, ok)
	assert.Equal(t, "stalked_first_sign", got.EventID)

	got, ok = d.Next(st, nil, snap)
	require.True(t, ok)
	assert.Equal(t, "fog_rolls_in", got.EventID)
}

func TestDispatcher_FIFOWithinSource(t *testing.T) {
	h := NewHandlers()
	require.NoError(t, h.Register("Stalked", stalkedTable))
	require.NoError(t, h.Register("Fever", StageTable{OnEscalating: "fever_worse"}))
	d := NewDispatcher(h, nil, nil, nil)
	st := NewState()

	d.Collect(st, []tension.StageChange{
		{TypeKey: "Fever", Previous: tension.Building, Current: tension.Escalating},
		{TypeKey: "Stalked", Previous: tension.Building, Current: tension.Escalating},
	}, &state.Snapshot{})

	a, _ := d.Pop(st)
	b, _ := d.Pop(st)
	assert.Equal(t, "fever_worse", a.EventID)
	assert.Equal(t, "stalked_closer", b.EventID)
	assert.Less(t, a.Seq, b.Seq)
}

func TestState_JSON(t *testing.T) {
	d := newTestDispatcher(t)
	st := NewState()
	st.Weather.Last = state.WeatherSnow
	d.Collect(st, []tension.StageChange{{TypeKey: "Stalked", Previous: tension.Building, Current: tension.Critical}}, &state.Snapshot{
		Activity:     state.ActivityTraveling,
		OnExpedition: true,
		Weather:      state.Weather{Condition: state.WeatherBlizzard},
		Stats:        state.Stats{Calories: 5},
	})

	data, err := json.Marshal(st)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"calories":"critical"`)
	assert.Contains(t, string(data), `"source":"weather"`)

	var restored State
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, st.Thresholds, restored.Thresholds)
	assert.Equal(t, st.Seq, restored.Seq)
	require.Len(t, restored.Deferred, 3)
	assert.Equal(t, "stalked_confrontation", restored.Deferred[0].EventID)
	assert.Equal(t, tension.Critical, restored.Deferred[0].Tension.Current)
}
