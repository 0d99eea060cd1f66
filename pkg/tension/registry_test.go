package tension

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() Table {
	return Table{
		"Stalked": {Escalating: 0.4, Critical: 0.7},
		"Fever":   {Escalating: 0.3, Critical: 0.6},
	}
}

func TestStageOf_Monotonic(t *testing.T) {
	table := testTable()
	for _, key := range []string{"Stalked", "Fever", "Unlisted"} {
		prev := Absent
		for i := 0; i <= 1000; i++ {
			s := float64(i) / 1000
			stage := table.StageOf(key, s)
			assert.GreaterOrEqual(t, stage, prev, "%s stage regressed at severity %v", key, s)
			prev = stage
		}
		assert.Equal(t, Critical, prev, "%s should reach Critical at severity 1", key)
	}
}

func TestStageOf_PerTypeCutPoints(t *testing.T) {
	table := testTable()
	tests := []struct {
		key      string
		severity float64
		want     Stage
	}{
		{"Stalked", 0.0, Building},
		{"Stalked", 0.39, Building},
		{"Stalked", 0.4, Escalating},
		{"Stalked", 0.69, Escalating},
		{"Stalked", 0.7, Critical},
		{"Fever", 0.35, Escalating},
		{"Fever", 0.6, Critical},
		{"Unlisted", 0.5, Escalating},
		{"Stalked", 3.0, Critical},
		{"Stalked", -1, Building},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, table.StageOf(tt.key, tt.severity), "%s@%v", tt.key, tt.severity)
	}
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds.Validate())
	assert.Error(t, Thresholds{Escalating: 0.8, Critical: 0.5}.Validate())
	assert.Error(t, Thresholds{Escalating: 0, Critical: 0.5}.Validate())
	assert.Error(t, Table{"Bad": {Escalating: 0.5, Critical: 1.5}}.Validate())
}

func TestRegistry_StalkedEscalationScenario(t *testing.T) {
	r := NewRegistry(testTable(), nil)

	stage := r.Create(Spec{TypeKey: "Stalked", Severity: 0.3, AnimalType: "wolf"})
	assert.Equal(t, Building, stage)
	r.Flush()

	stage, ok := r.Escalate("Stalked", 0.2)
	require.True(t, ok)
	assert.Equal(t, Escalating, stage)
	assert.InDelta(t, 0.5, r.Severity("Stalked"), 1e-9)

	changes := r.Flush()
	require.Len(t, changes, 1)
	assert.Equal(t, StageChange{TypeKey: "Stalked", Previous: Building, Current: Escalating}, changes[0])
	assert.True(t, changes[0].Worsened())

	assert.Empty(t, r.Flush(), "changes are reported once")
}

func TestRegistry_CreateReportsCreation(t *testing.T) {
	r := NewRegistry(testTable(), nil)
	r.Create(Spec{TypeKey: "Fever", Severity: 0.65})

	changes := r.Flush()
	require.Len(t, changes, 1)
	assert.True(t, changes[0].IsCreation)
	assert.Equal(t, Absent, changes[0].Previous)
	assert.Equal(t, Critical, changes[0].Current)
}

func TestRegistry_CreateMergesExisting(t *testing.T) {
	r := NewRegistry(testTable(), nil)
	r.Create(Spec{TypeKey: "Stalked", Severity: 0.5, CreatedAt: 10})
	r.Create(Spec{TypeKey: "Stalked", Severity: 0.2, AnimalType: "bear", CreatedAt: 20})

	got, ok := r.Get("Stalked")
	require.True(t, ok)
	assert.InDelta(t, 0.5, got.Severity, 1e-9, "lower severity must not reduce the tension")
	assert.Equal(t, "bear", got.AnimalType, "empty metadata is filled")
	assert.Equal(t, int64(10), got.CreatedAt)
	assert.Equal(t, 1, r.Len())

	r.Create(Spec{TypeKey: "Stalked", Severity: 0.9})
	assert.InDelta(t, 0.9, r.Severity("Stalked"), 1e-9)
}

func TestRegistry_SeverityClamped(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Create(Spec{TypeKey: "DeadlyCold", Severity: 1.7})
	assert.Equal(t, 1.0, r.Severity("DeadlyCold"))

	r.Escalate("DeadlyCold", -5)
	assert.Equal(t, 0.0, r.Severity("DeadlyCold"))
	assert.True(t, r.Has("DeadlyCold"), "zero severity does not resolve a tension")
}

func TestRegistry_ResolveIdempotent(t *testing.T) {
	r := NewRegistry(testTable(), nil)
	assert.False(t, r.Resolve("Stalked"))
	assert.False(t, r.Resolve("Stalked"))
	assert.Empty(t, r.Flush())

	_, ok := r.Escalate("Stalked", 0.3)
	assert.False(t, ok, "escalating an absent tension is a no-op")
	assert.False(t, r.Has("Stalked"))
}

func TestRegistry_EscalateResolveRoundTrip(t *testing.T) {
	r := NewRegistry(testTable(), nil)
	r.Create(Spec{TypeKey: "Stalked", Severity: 0.3})
	r.Escalate("Stalked", 0.2)
	assert.True(t, r.Resolve("Stalked"))

	assert.False(t, r.Has("Stalked"))
	_, ok := r.Get("Stalked")
	assert.False(t, ok)
	assert.Equal(t, Absent, r.StageOf("Stalked"))
	assert.Empty(t, r.Flush(), "created and resolved in one step nets to no change")
}

func TestRegistry_NetTransitionOnly(t *testing.T) {
	r := NewRegistry(testTable(), nil)
	r.Create(Spec{TypeKey: "Stalked", Severity: 0.3})
	r.Flush()

	r.Escalate("Stalked", 0.5) // Critical
	r.Escalate("Stalked", -0.2)
	changes := r.Flush()
	require.Len(t, changes, 1)
	assert.Equal(t, Building, changes[0].Previous)
	assert.Equal(t, Escalating, changes[0].Current)

	r.Escalate("Stalked", 0.3) // Critical
	r.Escalate("Stalked", -0.3)
	assert.Empty(t, r.Flush(), "round trip within a step is not reported")

	r.Resolve("Stalked")
	changes = r.Flush()
	require.Len(t, changes, 1)
	assert.True(t, changes[0].IsResolution)
	assert.False(t, changes[0].Worsened())
}

func TestRegistry_FlushOrderFollowsFirstTouch(t *testing.T) {
	r := NewRegistry(testTable(), nil)
	r.Create(Spec{TypeKey: "Fever", Severity: 0.1})
	r.Create(Spec{TypeKey: "Stalked", Severity: 0.1})
	r.Escalate("Fever", 0.1)

	changes := r.Flush()
	require.Len(t, changes, 2)
	assert.Equal(t, "Fever", changes[0].TypeKey)
	assert.Equal(t, "Stalked", changes[1].TypeKey)
}

func TestRegistry_Decay(t *testing.T) {
	r := NewRegistry(testTable(), nil)
	r.Create(Spec{TypeKey: "Stalked", Severity: 0.5})
	r.Create(Spec{TypeKey: "Fever", Severity: 0.5})

	r.Decay(-0.1, map[string]float64{"Fever": -0.3})
	assert.InDelta(t, 0.4, r.Severity("Stalked"), 1e-9)
	assert.InDelta(t, 0.2, r.Severity("Fever"), 1e-9)
}

func TestRegistry_JSONRoundTrip(t *testing.T) {
	r := NewRegistry(testTable(), nil)
	r.Create(Spec{TypeKey: "Stalked", Severity: 0.55, AnimalType: "wolf", SourceLocation: "ridge", CreatedAt: 42})

	data, err := json.Marshal(r)
	require.NoError(t, err)

	restored := NewRegistry(testTable(), nil)
	require.NoError(t, json.Unmarshal(data, restored))

	got, ok := restored.Get("Stalked")
	require.True(t, ok)
	assert.Equal(t, Escalating, got.Stage)
	assert.Equal(t, "wolf", got.AnimalType)
	assert.Equal(t, "ridge", got.SourceLocation)
	assert.Equal(t, int64(42), got.CreatedAt)
}

func TestParseStage(t *testing.T) {
	s, err := ParseStage(" Escalating ")
	require.NoError(t, err)
	assert.Equal(t, Escalating, s)

	_, err = ParseStage("panicking")
	assert.Error(t, err)
}
