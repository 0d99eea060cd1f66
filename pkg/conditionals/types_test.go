package conditionals

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwebster45206/wilds-engine/pkg/state"
	"github.com/jwebster45206/wilds-engine/pkg/tension"
)

func boolPtr(b bool) *bool    { return &b }
func int64Ptr(i int64) *int64 { return &i }

func TestWhen_Matches(t *testing.T) {
	reg := tension.NewRegistry(nil, nil)
	reg.Create(tension.Spec{TypeKey: "Fever", Severity: 0.5})

	snap := &state.Snapshot{
		Tick:         12,
		Minute:       3 * 60,
		Activity:     state.ActivityTraveling,
		Location:     state.Location{Name: "Pass", Tags: []string{"mountain"}},
		Weather:      state.Weather{Condition: state.WeatherSnow},
		Stats:        state.Stats{Energy: 30, Hydration: 80},
		Inventory:    map[string]float64{"rope": 1},
		Vars:         map[string]string{"met_trapper": "yes"},
		OnExpedition: true,
		Tensions:     reg,
	}

	tests := []struct {
		name string
		when When
		want bool
	}{
		{"empty never holds", When{}, false},
		{"activity any-of", When{Activities: []state.Activity{state.ActivityCamp, state.ActivityTraveling}}, true},
		{"activity mismatch", When{Activities: []state.Activity{state.ActivitySleeping}}, false},
		{"weather", When{Weather: []state.Condition{state.WeatherSnow}}, true},
		{"location name", When{LocationName: "Pass"}, true},
		{"location name mismatch", When{LocationName: "Valley"}, false},
		{"location tag", When{LocationTag: "Mountain"}, true},
		{"vars", When{Vars: map[string]string{"met_trapper": "yes"}}, true},
		{"vars mismatch", When{Vars: map[string]string{"met_trapper": "no"}}, false},
		{"missing var", When{Vars: map[string]string{"other": "yes"}}, false},
		{"min tick", When{MinTick: int64Ptr(10)}, true},
		{"min tick unmet", When{MinTick: int64Ptr(13)}, false},
		{"stat below", When{StatBelow: map[state.StatKey]float64{state.StatEnergy: 40}}, true},
		{"stat below unmet", When{StatBelow: map[state.StatKey]float64{state.StatEnergy: 30}}, false},
		{"stat above", When{StatAbove: map[state.StatKey]float64{state.StatHydration: 50}}, true},
		{"items", When{Items: []string{"rope"}}, true},
		{"items missing", When{Items: []string{"rope", "axe"}}, false},
		{"tension at least", When{TensionAtLeast: map[string]float64{"Fever": 0.5}}, true},
		{"tension below", When{TensionAtLeast: map[string]float64{"Fever": 0.6}}, false},
		{"absent tension", When{TensionAtLeast: map[string]float64{"Stalked": 0}}, false},
		{"night", When{Night: boolPtr(true)}, true},
		{"expedition", When{OnExpedition: boolPtr(false)}, false},
		{"combined", When{
			Activities: []state.Activity{state.ActivityTraveling},
			Weather:    []state.Condition{state.WeatherSnow},
			Night:      boolPtr(true),
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.when.Matches(snap))
		})
	}
}

func TestRegisterDefinition(t *testing.T) {
	r := NewRegistry(nil)

	assert.NoError(t, r.RegisterDefinition(Definition{
		ID:   "SnowyTravel",
		When: &When{Weather: []state.Condition{state.WeatherSnow}, Activities: []state.Activity{state.ActivityTraveling}},
	}))
	assert.True(t, r.Has("SnowyTravel"))

	assert.Error(t, r.RegisterDefinition(Definition{ID: "Empty", When: &When{}}))
	assert.Error(t, r.RegisterDefinition(Definition{ID: "Nothing"}))
	assert.Error(t, r.RegisterDefinition(Definition{ID: "Both", When: &When{LocationName: "x"}, Lua: "return true"}))
}
