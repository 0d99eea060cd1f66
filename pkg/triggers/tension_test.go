package triggers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/wilds-engine/pkg/tension"
)

var stalkedTable = StageTable{
	OnCreate:     "stalked_first_sign",
	OnEscalating: "stalked_closer",
	OnCritical:   "stalked_confrontation",
}

func TestStageTable(t *testing.T) {
	tests := []struct {
		name   string
		change tension.StageChange
		want   string
	}{
		{"creation", tension.StageChange{TypeKey: "Stalked", Previous: tension.Absent, Current: tension.Building, IsCreation: true}, "stalked_first_sign"},
		{"escalating", tension.StageChange{TypeKey: "Stalked", Previous: tension.Building, Current: tension.Escalating}, "stalked_closer"},
		{"critical", tension.StageChange{TypeKey: "Stalked", Previous: tension.Building, Current: tension.Critical}, "stalked_confrontation"},
		{"ease is silent", tension.StageChange{TypeKey: "Stalked", Previous: tension.Critical, Current: tension.Building}, ""},
		{"resolution is silent", tension.StageChange{TypeKey: "Stalked", Previous: tension.Building, Current: tension.Absent, IsResolution: true}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := stalkedTable.OnStageChange(tt.change)
			assert.Equal(t, tt.want, id)
			assert.Equal(t, tt.want != "", ok)
		})
	}

	noCreate := StageTable{OnCritical: "fever_delirium"}
	id, ok := noCreate.OnStageChange(tension.StageChange{TypeKey: "Fever", Current: tension.Critical, IsCreation: true})
	assert.True(t, ok)
	assert.Equal(t, "fever_delirium", id, "creation falls back to the stage handler")
}

func TestHandlers_Triggers(t *testing.T) {
	h := NewHandlers()
	require.NoError(t, h.Register("Stalked", stalkedTable))
	require.NoError(t, h.Register("Fever", HandlerFunc(func(c tension.StageChange) (string, bool) {
		return "fever_" + c.Current.String(), c.Worsened()
	})))
	assert.Error(t, h.Register("", stalkedTable))
	assert.Error(t, h.Register("Fever", nil))

	got := h.Triggers([]tension.StageChange{
		{TypeKey: "Unregistered", Previous: tension.Building, Current: tension.Critical},
		{TypeKey: "Fever", Previous: tension.Building, Current: tension.Escalating},
		{TypeKey: "Stalked", Previous: tension.Escalating, Current: tension.Building},
		{TypeKey: "Stalked", Previous: tension.Building, Current: tension.Escalating},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "fever_Escalating", got[0].EventID)
	assert.Equal(t, "stalked_closer", got[1].EventID)
	assert.Equal(t, SourceTension, got[1].Source)
	require.NotNil(t, got[1].Tension)
	assert.Equal(t, tension.Escalating, got[1].Tension.Current)
}
