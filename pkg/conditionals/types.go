package conditionals

import (
	"fmt"
	"slices"

	"github.com/jwebster45206/wilds-engine/pkg/state"
)

// When is a declarative predicate. Every populated field must hold; list
// fields hold when any listed value matches. A When with nothing populated
// never holds.
type When struct {
	Activities     []state.Activity          `yaml:"activity,omitempty" json:"activity,omitempty"`         // Any listed activity
	Weather        []state.Condition         `yaml:"weather,omitempty" json:"weather,omitempty"`           // Any listed weather condition
	LocationName   string                    `yaml:"location,omitempty" json:"location,omitempty"`         // Exact location name
	LocationTag    string                    `yaml:"location_tag,omitempty" json:"location_tag,omitempty"` // Location must carry tag
	Vars           map[string]string         `yaml:"vars,omitempty" json:"vars,omitempty"`                 // All variables must match
	MinTick        *int64                    `yaml:"min_tick,omitempty" json:"min_tick,omitempty"`         // Tick >= this value
	StatBelow      map[state.StatKey]float64 `yaml:"stat_below,omitempty" json:"stat_below,omitempty"`     // Stat percent < value
	StatAbove      map[state.StatKey]float64 `yaml:"stat_above,omitempty" json:"stat_above,omitempty"`     // Stat percent > value
	Items          []string                  `yaml:"items,omitempty" json:"items,omitempty"`               // Carries all items
	TensionAtLeast map[string]float64        `yaml:"tension_at_least,omitempty" json:"tension_at_least,omitempty"`
	Night          *bool                     `yaml:"night,omitempty" json:"night,omitempty"`
	OnExpedition   *bool                     `yaml:"on_expedition,omitempty" json:"on_expedition,omitempty"`
}

// IsEmpty reports whether no field is populated.
func (w When) IsEmpty() bool {
	return len(w.Activities) == 0 &&
		len(w.Weather) == 0 &&
		w.LocationName == "" &&
		w.LocationTag == "" &&
		len(w.Vars) == 0 &&
		w.MinTick == nil &&
		len(w.StatBelow) == 0 &&
		len(w.StatAbove) == 0 &&
		len(w.Items) == 0 &&
		len(w.TensionAtLeast) == 0 &&
		w.Night == nil &&
		w.OnExpedition == nil
}

// Matches checks if all populated conditions hold for snap.
func (w When) Matches(snap *state.Snapshot) bool {
	if snap == nil || w.IsEmpty() {
		return false
	}

	if len(w.Activities) > 0 && !slices.Contains(w.Activities, snap.Activity) {
		return false
	}

	if len(w.Weather) > 0 && !slices.Contains(w.Weather, snap.Weather.Condition) {
		return false
	}

	if w.LocationName != "" && snap.Location.Name != w.LocationName {
		return false
	}

	if w.LocationTag != "" && !snap.HasTag(w.LocationTag) {
		return false
	}

	for name, expected := range w.Vars {
		actual, ok := snap.Vars[name]
		if !ok || actual != expected {
			return false
		}
	}

	if w.MinTick != nil && snap.Tick < *w.MinTick {
		return false
	}

	for stat, limit := range w.StatBelow {
		if snap.StatPercent(stat) >= limit {
			return false
		}
	}

	for stat, limit := range w.StatAbove {
		if snap.StatPercent(stat) <= limit {
			return false
		}
	}

	for _, item := range w.Items {
		if !snap.Has(item) {
			return false
		}
	}

	for key, min := range w.TensionAtLeast {
		if !snap.HasTension(key) || snap.TensionSeverity(key) < min {
			return false
		}
	}

	if w.Night != nil && snap.IsNight() != *w.Night {
		return false
	}

	if w.OnExpedition != nil && snap.OnExpedition != *w.OnExpedition {
		return false
	}

	return true
}

// Func adapts w to a registry predicate.
func (w When) Func() Func {
	return w.Matches
}

// Definition is a content-authored condition: either a declarative When or
// a Lua script.
type Definition struct {
	ID   ID     `yaml:"id" json:"id"`
	When *When  `yaml:"when,omitempty" json:"when,omitempty"`
	Lua  string `yaml:"lua,omitempty" json:"lua,omitempty"`
}

// RegisterDefinition compiles def and registers it.
func (r *Registry) RegisterDefinition(def Definition) error {
	switch {
	case def.When != nil && def.Lua != "":
		return fmt.Errorf("condition %s: define either when or lua, not both", def.ID)
	case def.When != nil:
		if def.When.IsEmpty() {
			return fmt.Errorf("condition %s: empty when clause", def.ID)
		}
		return r.Register(def.ID, def.When.Func())
	case def.Lua != "":
		fn, err := CompileScript(def.ID, def.Lua)
		if err != nil {
			return err
		}
		return r.Register(def.ID, fn)
	default:
		return fmt.Errorf("condition %s: missing when or lua", def.ID)
	}
}
