package cooldown

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReady(t *testing.T) {
	tr := New()
	tr.Record("wolf_tracks", 10)

	tests := []struct {
		name     string
		id       string
		cooldown int64
		now      int64
		want     bool
		left     int64
	}{
		{"never fired", "other", 5, 0, true, 0},
		{"no cooldown", "wolf_tracks", 0, 10, true, 0},
		{"negative cooldown", "wolf_tracks", -3, 10, true, 0},
		{"same tick", "wolf_tracks", 5, 10, false, 5},
		{"one short", "wolf_tracks", 5, 14, false, 1},
		{"exactly elapsed", "wolf_tracks", 5, 15, true, 0},
		{"long after", "wolf_tracks", 5, 100, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.Ready(tt.id, tt.cooldown, tt.now))
			assert.Equal(t, tt.left, tr.Remaining(tt.id, tt.cooldown, tt.now))
		})
	}
}

func TestRecordOverwrites(t *testing.T) {
	tr := New()
	tr.Record("a", 3)
	tr.Record("a", 8)

	last, ok := tr.LastFired("a")
	require.True(t, ok)
	assert.Equal(t, int64(8), last)
	assert.False(t, tr.Ready("a", 4, 10))

	tr.Reset("a")
	_, ok = tr.LastFired("a")
	assert.False(t, ok)
	assert.Zero(t, tr.Len())
}

func TestJSON(t *testing.T) {
	tr := New()
	tr.Record("a", 3)
	tr.Record("b", 42)

	data, err := json.Marshal(tr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":3,"b":42}`, string(data))

	restored := New()
	require.NoError(t, json.Unmarshal(data, restored))
	last, ok := restored.LastFired("b")
	require.True(t, ok)
	assert.Equal(t, int64(42), last)
}

func TestClone(t *testing.T) {
	tr := New()
	tr.Record("a", 1)
	c := tr.Clone()
	c.Record("a", 9)

	last, _ := tr.LastFired("a")
	assert.Equal(t, int64(1), last)
}
