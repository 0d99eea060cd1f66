package outcome

import (
	"github.com/jwebster45206/wilds-engine/pkg/events"
)

// ConsumeStatus reports how much of a requested resource was available.
type ConsumeStatus int

const (
	ConsumeSuccess ConsumeStatus = iota // full amount consumed
	ConsumePartial                      // clamped to what was available
	ConsumeFailure                      // nothing available
)

func (s ConsumeStatus) String() string {
	switch s {
	case ConsumeSuccess:
		return "success"
	case ConsumePartial:
		return "partial"
	case ConsumeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Body receives damage.
type Body interface {
	ApplyDamage(amount float64, damageType, target string)
}

// Effects receives status effects.
type Effects interface {
	ApplyStatusEffect(effect events.StatusEffect)
}

// Inventory consumes resources. Implementations clamp consumption to what
// is available and report it through the status; they never fail hard.
type Inventory interface {
	ConsumeResource(resource string, amount float64) ConsumeStatus
}

// Rewards grants items from a named pool.
type Rewards interface {
	GrantReward(pool string, multiplier float64)
}

// Encounters spawns actors near the survivor.
type Encounters interface {
	SpawnEncounter(actor string, distance, boldness float64)
}

// Activity aborts whatever the survivor is doing.
type Activity interface {
	AbortCurrentActivity()
}

// Collaborators bundles the subsystems a result's effects reach. A nil
// member skips that kind of effect.
type Collaborators struct {
	Body       Body
	Effects    Effects
	Inventory  Inventory
	Rewards    Rewards
	Encounters Encounters
	Activity   Activity
}

// Nop implements every collaborator and ignores all calls.
type Nop struct{}

func (Nop) ApplyDamage(float64, string, string)           {}
func (Nop) ApplyStatusEffect(events.StatusEffect)         {}
func (Nop) ConsumeResource(string, float64) ConsumeStatus { return ConsumeSuccess }
func (Nop) GrantReward(string, float64)                   {}
func (Nop) SpawnEncounter(string, float64, float64)       {}
func (Nop) AbortCurrentActivity()                         {}

// NopCollaborators returns Collaborators backed by Nop.
func NopCollaborators() Collaborators {
	n := Nop{}
	return Collaborators{Body: n, Effects: n, Inventory: n, Rewards: n, Encounters: n, Activity: n}
}
