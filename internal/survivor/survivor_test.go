package survivor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/wilds-engine/pkg/events"
	"github.com/jwebster45206/wilds-engine/pkg/outcome"
	"github.com/jwebster45206/wilds-engine/pkg/state"
)

func newSurvivor(t *testing.T) *Survivor {
	t.Helper()
	s, err := New(DefaultSpec(), nil, nil)
	require.NoError(t, err)
	return s
}

func TestNew_Validation(t *testing.T) {
	spec := DefaultSpec()
	spec.MaxHP = 0
	_, err := New(spec, nil, nil)
	assert.Error(t, err)
}

func TestApplyDamage(t *testing.T) {
	s := newSurvivor(t)
	require.Equal(t, 1.0, s.Health())

	s.ApplyDamage(0.25, "bite", "arm")
	assert.InDelta(t, 0.75, s.Health(), 1e-9)
	snap := &state.Snapshot{}
	s.Project(snap)
	assert.True(t, snap.Body.Bleeding)
	assert.Equal(t, []string{"bite:arm"}, snap.Body.Injuries)

	s.ApplyDamage(0.001, "frostbite", "")
	assert.InDelta(t, 14.0/20, s.Health(), 1e-9, "any damage costs at least one HP")

	s.ApplyDamage(0, "bite", "leg")
	assert.InDelta(t, 14.0/20, s.Health(), 1e-9)
	assert.True(t, s.Alive())
}

func TestConsumeResource(t *testing.T) {
	s := newSurvivor(t)

	tests := []struct {
		name     string
		resource string
		amount   float64
		want     outcome.ConsumeStatus
		left     float64
	}{
		{"full", "firewood", 1, outcome.ConsumeSuccess, 1},
		{"clamped", "firewood", 5, outcome.ConsumePartial, 0},
		{"none left", "firewood", 1, outcome.ConsumeFailure, 0},
		{"never carried", "torch", 1, outcome.ConsumeFailure, 0},
		{"zero amount", "torch", 0, outcome.ConsumeSuccess, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.ConsumeResource(tt.resource, tt.amount))
			assert.Equal(t, tt.left, s.Quantity(tt.resource))
		})
	}

	snap := &state.Snapshot{}
	s.Project(snap)
	assert.NotContains(t, snap.Inventory, "firewood", "emptied items leave the inventory")
}

func TestConsumeResource_Stats(t *testing.T) {
	s := newSurvivor(t)
	assert.Equal(t, outcome.ConsumeSuccess, s.ConsumeResource("energy", 30))
	assert.Equal(t, 70.0, s.Stats().Energy)
	assert.Equal(t, outcome.ConsumePartial, s.ConsumeResource("energy", 100))
	assert.Equal(t, 0.0, s.Stats().Energy)
}

func TestGrantReward(t *testing.T) {
	s := newSurvivor(t)

	// survival 2 scales rewards by 1.1.
	s.GrantReward("elk_meat", 1)
	assert.InDelta(t, 6.6, s.Quantity("meat"), 1e-9)
	assert.InDelta(t, 1.1, s.Quantity("hide"), 1e-9)

	s.GrantReward("fresh_water", 0.5)
	assert.InDelta(t, 100, s.Stats().Hydration, 1e-9, "stats cap at 100")
	assert.InDelta(t, 2+1.1, s.Quantity("water"), 1e-9)

	s.GrantReward("no_such_pool", 1)
}

func TestStatusEffectsAndPass(t *testing.T) {
	s := newSurvivor(t)
	s.ApplyStatusEffect(events.StatusEffect{Name: "shaken", Severity: 0.3, DurationMinutes: 60})
	s.ApplyStatusEffect(events.StatusEffect{Name: "shaken", Severity: 0.6, DurationMinutes: 30})
	s.ApplyStatusEffect(events.StatusEffect{Name: "fever_chills", Severity: 0.4, DurationMinutes: 180})

	effects := s.Effects()
	require.Len(t, effects, 2)
	assert.Equal(t, Effect{Name: "shaken", Severity: 0.6, RemainingMinutes: 60}, effects[0])

	s.Pass(60)
	effects = s.Effects()
	require.Len(t, effects, 1)
	assert.Equal(t, "fever_chills", effects[0].Name)
	assert.Equal(t, 120, effects[0].RemainingMinutes)
}

func TestBleedingAndTreatment(t *testing.T) {
	s := newSurvivor(t)
	s.ApplyDamage(0.1, "laceration", "hand")
	hp := s.Health()

	s.Pass(120)
	assert.InDelta(t, hp-2.0/20, s.Health(), 1e-9)

	require.True(t, s.Treat())
	assert.Equal(t, 1.0, s.Quantity("cordage"))
	s.Pass(120)
	assert.InDelta(t, hp-2.0/20, s.Health(), 1e-9)
	assert.False(t, s.Treat(), "nothing to treat")
}

func TestEncountersAndAbort(t *testing.T) {
	s := newSurvivor(t)
	s.SetActivity(state.ActivityHunting)

	s.SpawnEncounter("bear", 8, 0.6)
	require.Len(t, s.Threats(), 1)

	s.AbortCurrentActivity()
	assert.Equal(t, state.ActivityResting, s.Activity())
	s.AbortCurrentActivity()
	assert.Equal(t, 1, s.Aborted())

	s.Pass(60)
	require.Len(t, s.Threats(), 1)
	assert.InDelta(t, 32, s.Threats()[0].Distance, 1e-9)
	s.Pass(60)
	assert.Empty(t, s.Threats(), "threats wander off")
}

func TestCollaboratorsDriveResolver(t *testing.T) {
	s := newSurvivor(t)
	cat := events.NewCatalog(nil)
	res := outcome.NewResolver(cat, s.Collaborators(), nil)

	result := &events.Result{
		Weight:        1,
		Costs:         []events.Cost{{Resource: "firewood", Amount: 2}},
		Damage:        &events.Damage{Amount: 0.1, Type: "blunt"},
		StatusEffects: []events.StatusEffect{{Name: "bruised", DurationMinutes: 30}},
		Reward:        &events.Reward{Pool: "small_game"},
		AbortActivity: true,
	}
	out := res.Apply(result, 0, &state.Snapshot{}, nil)
	require.NotNil(t, out)
	assert.Equal(t, 0.0, s.Quantity("firewood"))
	assert.InDelta(t, 0.9, s.Health(), 1e-9)
	assert.InDelta(t, 2.2, s.Quantity("meat"), 1e-9)
	assert.Len(t, s.Effects(), 1)
}

func TestJSONRestoresActor(t *testing.T) {
	s := newSurvivor(t)
	s.ApplyDamage(0.25, "claw", "leg")
	s.ConsumeResource("water", 1)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var restored Survivor
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.InDelta(t, 0.75, restored.Health(), 1e-9)
	assert.Equal(t, 1.0, restored.Quantity("water"))
	assert.Equal(t, "Survivor", restored.Name())

	spec := restored.Spec()
	assert.Equal(t, 2, spec.Attributes["survival"])
	assert.True(t, spec.Bleeding)
}

func TestAdjust(t *testing.T) {
	s := newSurvivor(t)
	s.Adjust(state.StatWarmth, 50)
	assert.Equal(t, 100.0, s.Stats().Warmth)
	s.Adjust(state.StatCalories, -200)
	assert.Equal(t, 0.0, s.Stats().Calories)
	s.Adjust("morale", 10)
}
