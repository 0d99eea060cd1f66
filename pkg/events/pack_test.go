package events

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/wilds-engine/pkg/conditionals"
	"github.com/jwebster45206/wilds-engine/pkg/situations"
	"github.com/jwebster45206/wilds-engine/pkg/state"
)

const packYAML = `
conditions:
  - id: SnowyTravel
    when:
      activity: [traveling]
      weather: [snow, blizzard]
  - id: ColdAndTired
    lua: return snapshot.weather.temperature < 0 and snapshot.stats.energy < 30
events:
  - id: drifts
    title: Snow Drifts
    text: The snow is waist deep here.
    base_weight: 2
    required_conditions: [SnowyTravel]
    condition_weights:
      ColdAndTired: 1.5
    situation_weights:
      exposed: 2
      fatigued:
        multiplier: 3
        mode: level
    cooldown_ticks: 12
    choices:
      - label: Push through
        results:
          - weight: 3
            text: You make it, barely.
            time_cost_minutes: 40
            costs:
              - resource: calories
                amount: 200
          - weight: 1
            text: You fall and twist an ankle.
            damage: {amount: 0.1, type: sprain, target: leg}
            abort_activity: true
---
events:
  - id: whiteout_shelter
    base_weight: 0
    choices:
      - label: Dig in
        results:
          - weight: 1
            tensions:
              - op: create
                type: DeadlyCold
                severity: 0.4
            chain: drifts
`

func TestLoadYAML(t *testing.T) {
	pack, err := LoadYAML(strings.NewReader(packYAML))
	require.NoError(t, err)

	require.Len(t, pack.Conditions, 2)
	require.Len(t, pack.Events, 2)

	drifts := pack.Events[0]
	assert.Equal(t, "drifts", drifts.ID)
	assert.Equal(t, int64(12), drifts.Cooldown())
	assert.Equal(t, SituationFactor{Multiplier: 2, Mode: ModeGate}, drifts.SituationWeightFactors[situations.Exposed])
	assert.Equal(t, SituationFactor{Multiplier: 3, Mode: ModeLevel}, drifts.SituationWeightFactors[situations.Fatigued])
	require.Len(t, drifts.Choices[0].Results, 2)
	assert.Equal(t, "sprain", drifts.Choices[0].Results[1].Damage.Type)
	assert.True(t, drifts.Choices[0].Results[1].AbortActivity)

	shelter := pack.Events[1]
	assert.Equal(t, TensionCreate, shelter.Choices[0].Results[0].Tensions[0].Op)
	assert.Equal(t, "drifts", shelter.Choices[0].Results[0].ChainEvent)
}

func TestLoadYAML_RejectsUnknownFields(t *testing.T) {
	_, err := LoadYAML(strings.NewReader(`
events:
  - id: typo
    base_wieght: 1
    choices: []
`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "base_wieght")
}

func TestPackInstall(t *testing.T) {
	pack, err := LoadYAML(strings.NewReader(packYAML))
	require.NoError(t, err)

	conds := conditionals.NewRegistry(nil)
	conditionals.RegisterBuiltins(conds)
	cat := NewCatalog(nil)
	require.NoError(t, pack.Install(cat, conds))

	assert.Equal(t, 2, cat.Len())
	assert.True(t, conds.Has("SnowyTravel"))
	assert.True(t, conds.Evaluate("ColdAndTired", &state.Snapshot{
		Weather: state.Weather{TemperatureC: -5},
		Stats:   state.Stats{Energy: 10},
	}))

	// Installing twice reports every duplicate event.
	err = pack.Install(cat, conds)
	assert.ErrorIs(t, err, ErrDuplicateEvent)
	assert.Contains(t, err.Error(), "drifts")
	assert.Contains(t, err.Error(), "whiteout_shelter")
}

func TestLoadDir(t *testing.T) {
	fsys := fstest.MapFS{
		"packs/b.yaml":     {Data: []byte("events:\n  - id: second\n    base_weight: 1\n    choices: [{label: ok, results: [{weight: 1}]}]\n")},
		"packs/a.yml":      {Data: []byte("events:\n  - id: first\n    base_weight: 1\n    choices: [{label: ok, results: [{weight: 1}]}]\n")},
		"packs/notes.txt":  {Data: []byte("not yaml")},
		"packs/sub/c.yaml": {Data: []byte("events: []\n")},
	}

	pack, err := LoadDir(fsys, "packs")
	require.NoError(t, err)
	require.Len(t, pack.Events, 2)
	assert.Equal(t, "first", pack.Events[0].ID)
	assert.Equal(t, "second", pack.Events[1].ID)

	_, err = LoadDir(fsys, "missing")
	assert.Error(t, err)
}

func TestLint(t *testing.T) {
	conds := conditionals.NewRegistry(nil)
	conditionals.RegisterBuiltins(conds)
	sits := situations.NewCalculator(conds, nil)
	situations.RegisterBuiltins(sits)

	cat := NewCatalog(nil)
	require.NoError(t, cat.Register(Template{
		ID:                 "bad_refs",
		BaseWeight:         1,
		RequiredConditions: []conditionals.ID{"IsBlizard"},
		RequiredSituations: []situations.ID{"haunted"},
		Choices: []Choice{{
			Label:   "Go",
			Results: []Result{{Weight: 1, ChainEvent: "bad_ref"}},
		}},
	}))

	problems := Lint(cat, conds, sits)
	require.Len(t, problems, 3)
	assert.Equal(t, "IsBlizard", problems[0].Ref)
	assert.Equal(t, "IsBlizzard", problems[0].Suggestion)
	assert.Equal(t, "haunted", problems[1].Ref)
	assert.Equal(t, "bad_ref", problems[2].Ref)
	assert.Equal(t, "bad_refs", problems[2].Suggestion)
	assert.Contains(t, problems[0].String(), `did you mean "IsBlizzard"`)
}
