package narrate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwebster45206/wilds-engine/pkg/state"
	"github.com/jwebster45206/wilds-engine/pkg/tension"
)

func TestHumanize(t *testing.T) {
	tests := map[string]string{
		"deadly_cold":       "Deadly Cold",
		"DeadlyCold":        "Deadly Cold",
		"deadly-cold":       "Deadly Cold",
		"Stalked":           "Stalked",
		"predator_pressure": "Predator Pressure",
		"WoundedPrey":       "Wounded Prey",
		"  odd__spacing ":   "Odd Spacing",
		"":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Humanize(in), "Humanize(%q)", in)
	}
}

func TestRender(t *testing.T) {
	vars := Vars{"animal": "grey wolf", "location": "Pine Ridge"}

	tests := []struct {
		in   string
		want string
	}{
		{"The {animal} watches you.", "The grey wolf watches you."},
		{"{Animal} tracks circle the camp.", "Grey wolf tracks circle the camp."},
		{"A {ANIMAL}!", "A GREY WOLF!"},
		{"You are near {location}.", "You are near Pine Ridge."},
		{"Unknown {thing} stays.", "Unknown {thing} stays."},
		{"No placeholders here.", "No placeholders here."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Render(tt.in, vars))
	}
	assert.Equal(t, "The {animal}.", Render("The {animal}.", nil))
}

func TestVarsFor(t *testing.T) {
	snap := &state.Snapshot{
		Location: state.Location{Name: "Frozen Creek"},
		Weather:  state.Weather{Condition: state.WeatherWhiteout},
	}
	tn := &tension.Tension{TypeKey: "WoundedPrey", AnimalType: "elk", SourceLocation: "Birch Hollow"}

	vars := VarsFor(snap, tn)
	assert.Equal(t, Vars{
		"location": "Frozen Creek",
		"weather":  "whiteout",
		"tension":  "wounded prey",
		"animal":   "elk",
		"origin":   "Birch Hollow",
	}, vars)

	assert.Equal(t, "The elk fled from Birch Hollow into the whiteout.",
		Render("The {animal} fled from {origin} into the {weather}.", vars))
	assert.Empty(t, VarsFor(nil, nil))
}
