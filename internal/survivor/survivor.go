// Package survivor is the player character: a d20 actor for the body, plus
// survival stats, inventory, equipment and status effects. A Survivor
// carries out event outcomes for the engine and projects itself into
// snapshots.
package survivor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"

	"github.com/jwebster45206/d20"

	"github.com/jwebster45206/wilds-engine/pkg/events"
	"github.com/jwebster45206/wilds-engine/pkg/outcome"
	"github.com/jwebster45206/wilds-engine/pkg/state"
)

// threatGiveUpDistance is how far a threat drifts before it is forgotten.
const threatGiveUpDistance = 50

// Damage types that open a bleeding wound.
var bleedingDamage = []string{"bite", "claw", "laceration", "gore"}

// Spec is the serializable description of a survivor.
type Spec struct {
	ID              string             `json:"id" yaml:"id"`
	Name            string             `json:"name,omitempty" yaml:"name,omitempty"`
	HP              int                `json:"hp,omitempty" yaml:"hp,omitempty"` // current HP, defaults to MaxHP
	MaxHP           int                `json:"max_hp" yaml:"max_hp"`
	AC              int                `json:"ac,omitempty" yaml:"ac,omitempty"`
	Attributes      map[string]int     `json:"attributes,omitempty" yaml:"attributes,omitempty"` // survival, strength, ...
	CombatModifiers map[string]int     `json:"combat_modifiers,omitempty" yaml:"combat_modifiers,omitempty"`
	Stats           state.Stats        `json:"stats" yaml:"stats"`
	Inventory       map[string]float64 `json:"inventory,omitempty" yaml:"inventory,omitempty"`
	Equipment       map[string]float64 `json:"equipment,omitempty" yaml:"equipment,omitempty"`
	Injuries        []string           `json:"injuries,omitempty" yaml:"injuries,omitempty"`
	Bleeding        bool               `json:"bleeding,omitempty" yaml:"bleeding,omitempty"`
	Effects         []Effect           `json:"effects,omitempty" yaml:"effects,omitempty"`
	Threats         []Threat           `json:"threats,omitempty" yaml:"threats,omitempty"`
	Activity        state.Activity     `json:"activity,omitempty" yaml:"activity,omitempty"`
}

// DefaultSpec is a fresh survivor with basic kit.
func DefaultSpec() Spec {
	return Spec{
		ID:         "survivor",
		Name:       "Survivor",
		MaxHP:      20,
		AC:         10,
		Attributes: map[string]int{"survival": 2, "strength": 1},
		Stats:      state.Stats{Energy: 100, Calories: 85, Hydration: 90, Warmth: 80},
		Inventory:  map[string]float64{"spear": 1, "knife": 1, "firewood": 2, "water": 2, "cordage": 2},
		Equipment:  map[string]float64{"spear": 0.9, "knife": 0.8, "clothing": 0.6},
		Activity:   state.ActivityCamp,
	}
}

// Effect is an active status effect.
type Effect struct {
	Name             string  `json:"name" yaml:"name"`
	Severity         float64 `json:"severity" yaml:"severity"`
	RemainingMinutes int     `json:"remaining_minutes" yaml:"remaining_minutes"`
}

// Threat is an actor spawned near the survivor.
type Threat struct {
	Actor    string  `json:"actor" yaml:"actor"`
	Distance float64 `json:"distance" yaml:"distance"`
	Boldness float64 `json:"boldness" yaml:"boldness"`
}

// Survivor is the runtime player character.
type Survivor struct {
	spec    Spec
	actor   *d20.Actor
	rewards Rewards
	aborted int
	logger  *slog.Logger
}

// Ensure Survivor carries out every outcome effect
var (
	_ outcome.Body       = (*Survivor)(nil)
	_ outcome.Effects    = (*Survivor)(nil)
	_ outcome.Inventory  = (*Survivor)(nil)
	_ outcome.Rewards    = (*Survivor)(nil)
	_ outcome.Encounters = (*Survivor)(nil)
	_ outcome.Activity   = (*Survivor)(nil)
)

// New builds a survivor from spec.
func New(spec Spec, rewards Rewards, logger *slog.Logger) (*Survivor, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if rewards == nil {
		rewards = DefaultRewards()
	}
	actor, err := buildActor(spec)
	if err != nil {
		return nil, err
	}

	spec.Inventory = cloneOrEmpty(spec.Inventory)
	spec.Equipment = cloneOrEmpty(spec.Equipment)
	if spec.Activity == "" {
		spec.Activity = state.ActivityCamp
	}
	return &Survivor{spec: spec, actor: actor, rewards: rewards, logger: logger}, nil
}

func buildActor(spec Spec) (*d20.Actor, error) {
	if spec.MaxHP <= 0 {
		return nil, fmt.Errorf("max_hp must be positive, got %d", spec.MaxHP)
	}
	actor, err := d20.NewActor(spec.ID).
		WithHP(spec.MaxHP).
		WithAC(spec.AC).
		WithAttributes(maps.Clone(spec.Attributes)).
		WithCombatModifiers(maps.Clone(spec.CombatModifiers)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}
	if spec.HP > 0 && spec.HP != spec.MaxHP {
		if err := actor.SetHP(min(spec.HP, spec.MaxHP)); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}
	return actor, nil
}

func cloneOrEmpty(m map[string]float64) map[string]float64 {
	if m == nil {
		return make(map[string]float64)
	}
	return maps.Clone(m)
}

// Name returns the survivor's display name.
func (s *Survivor) Name() string {
	if s.spec.Name != "" {
		return s.spec.Name
	}
	return s.spec.ID
}

// Health is current HP as a fraction of max.
func (s *Survivor) Health() float64 {
	return float64(s.actor.HP()) / float64(s.actor.MaxHP())
}

// Alive reports whether the survivor has HP left.
func (s *Survivor) Alive() bool {
	return s.actor.HP() > 0
}

func (s *Survivor) Stats() state.Stats { return s.spec.Stats }

func (s *Survivor) Activity() state.Activity { return s.spec.Activity }

func (s *Survivor) Effects() []Effect { return slices.Clone(s.spec.Effects) }

func (s *Survivor) Threats() []Threat { return slices.Clone(s.spec.Threats) }

func (s *Survivor) Quantity(item string) float64 { return s.spec.Inventory[item] }

// Aborted counts how many activities outcomes have cut short.
func (s *Survivor) Aborted() int { return s.aborted }

// SetActivity changes what the survivor is doing.
func (s *Survivor) SetActivity(a state.Activity) {
	s.spec.Activity = a
}

// Collaborators routes every outcome effect to s.
func (s *Survivor) Collaborators() outcome.Collaborators {
	return outcome.Collaborators{
		Body:       s,
		Effects:    s,
		Inventory:  s,
		Rewards:    s,
		Encounters: s,
		Activity:   s,
	}
}

// Project writes the survivor's side of the world into snap.
func (s *Survivor) Project(snap *state.Snapshot) {
	snap.Activity = s.spec.Activity
	snap.Stats = s.spec.Stats
	snap.Inventory = maps.Clone(s.spec.Inventory)
	snap.Equipment = maps.Clone(s.spec.Equipment)
	snap.Body = state.Body{
		Health:   s.Health(),
		Bleeding: s.spec.Bleeding,
		Injuries: slices.Clone(s.spec.Injuries),
	}
}

// ApplyDamage takes amount as a fraction of max HP. Any positive amount
// costs at least one HP.
func (s *Survivor) ApplyDamage(amount float64, damageType, target string) {
	if amount <= 0 {
		return
	}
	loss := max(1, int(math.Round(amount*float64(s.actor.MaxHP()))))
	s.setHP(s.actor.HP() - loss)

	injury := damageType
	if target != "" {
		injury += ":" + target
	}
	s.spec.Injuries = append(s.spec.Injuries, injury)
	if slices.Contains(bleedingDamage, damageType) {
		s.spec.Bleeding = true
	}
	s.logger.Debug("Survivor took damage", "hp_lost", loss, "type", damageType, "target", target, "hp", s.actor.HP())
}

func (s *Survivor) setHP(hp int) {
	hp = max(0, min(hp, s.actor.MaxHP()))
	if err := s.actor.SetHP(hp); err != nil {
		s.logger.Error("Failed to set HP", "hp", hp, "error", err)
	}
}

// ApplyStatusEffect adds effect or refreshes an existing one with the same
// name, keeping the higher severity and the longer duration.
func (s *Survivor) ApplyStatusEffect(effect events.StatusEffect) {
	for i := range s.spec.Effects {
		e := &s.spec.Effects[i]
		if e.Name == effect.Name {
			e.Severity = max(e.Severity, effect.Severity)
			e.RemainingMinutes = max(e.RemainingMinutes, effect.DurationMinutes)
			return
		}
	}
	s.spec.Effects = append(s.spec.Effects, Effect{
		Name:             effect.Name,
		Severity:         effect.Severity,
		RemainingMinutes: effect.DurationMinutes,
	})
}

// ConsumeResource draws from a survival stat when resource names one, and
// from the inventory otherwise.
func (s *Survivor) ConsumeResource(resource string, amount float64) outcome.ConsumeStatus {
	if amount <= 0 {
		return outcome.ConsumeSuccess
	}
	if stat := s.stat(state.StatKey(resource)); stat != nil {
		return consume(stat, amount)
	}

	have := s.spec.Inventory[resource]
	status := consume(&have, amount)
	if have <= 0 {
		delete(s.spec.Inventory, resource)
	} else {
		s.spec.Inventory[resource] = have
	}
	return status
}

func consume(have *float64, amount float64) outcome.ConsumeStatus {
	switch {
	case *have <= 0:
		return outcome.ConsumeFailure
	case *have < amount:
		*have = 0
		return outcome.ConsumePartial
	default:
		*have -= amount
		return outcome.ConsumeSuccess
	}
}

func (s *Survivor) stat(key state.StatKey) *float64 {
	switch key {
	case state.StatEnergy:
		return &s.spec.Stats.Energy
	case state.StatCalories:
		return &s.spec.Stats.Calories
	case state.StatHydration:
		return &s.spec.Stats.Hydration
	case state.StatWarmth:
		return &s.spec.Stats.Warmth
	}
	return nil
}

// Adjust changes a survival stat by delta, keeping it within 0..100.
func (s *Survivor) Adjust(key state.StatKey, delta float64) {
	if stat := s.stat(key); stat != nil {
		*stat = max(0, min(100, *stat+delta))
	}
}

// GrantReward hands out a reward pool, scaled by multiplier and by the
// survivor's survival attribute.
func (s *Survivor) GrantReward(pool string, multiplier float64) {
	grants, ok := s.rewards[pool]
	if !ok {
		s.logger.Warn("Unknown reward pool", "pool", pool)
		return
	}
	skill, _ := s.actor.Attribute("survival")
	scale := multiplier * (1 + float64(skill)/20)
	for _, g := range grants {
		amount := g.Amount * scale
		if stat := s.stat(state.StatKey(g.Item)); stat != nil {
			*stat = min(100, *stat+amount)
			continue
		}
		s.spec.Inventory[g.Item] += amount
	}
}

// SpawnEncounter puts a threat near the survivor.
func (s *Survivor) SpawnEncounter(actor string, distance, boldness float64) {
	s.spec.Threats = append(s.spec.Threats, Threat{Actor: actor, Distance: distance, Boldness: boldness})
	s.logger.Info("Threat spawned", "actor", actor, "distance", distance)
}

// AbortCurrentActivity stops whatever the survivor was doing and sits them
// down to rest.
func (s *Survivor) AbortCurrentActivity() {
	if s.spec.Activity == state.ActivityResting || s.spec.Activity == state.ActivitySleeping {
		return
	}
	s.spec.Activity = state.ActivityResting
	s.aborted++
}

// Pass advances the survivor's own clocks: effects run down, bleeding
// costs HP and threats lose interest.
func (s *Survivor) Pass(minutes int) {
	if minutes <= 0 {
		return
	}
	s.spec.Effects = slices.DeleteFunc(s.spec.Effects, func(e Effect) bool {
		return e.RemainingMinutes <= minutes
	})
	for i := range s.spec.Effects {
		s.spec.Effects[i].RemainingMinutes -= minutes
	}

	if s.spec.Bleeding {
		s.setHP(s.actor.HP() - max(1, minutes/60))
	}

	for i := range s.spec.Threats {
		t := &s.spec.Threats[i]
		t.Distance += float64(minutes) * (1 - t.Boldness)
	}
	s.spec.Threats = slices.DeleteFunc(s.spec.Threats, func(t Threat) bool {
		return t.Distance >= threatGiveUpDistance
	})
}

// Treat binds wounds, using one cordage if carried.
func (s *Survivor) Treat() bool {
	if !s.spec.Bleeding || s.ConsumeResource("cordage", 1) == outcome.ConsumeFailure {
		return false
	}
	s.spec.Bleeding = false
	return true
}

// Spec returns the survivor's current state as a spec.
func (s *Survivor) Spec() Spec {
	out := s.spec
	out.HP = s.actor.HP()
	out.MaxHP = s.actor.MaxHP()
	out.AC = s.actor.AC()
	out.Inventory = maps.Clone(s.spec.Inventory)
	out.Equipment = maps.Clone(s.spec.Equipment)
	out.Injuries = slices.Clone(s.spec.Injuries)
	out.Effects = slices.Clone(s.spec.Effects)
	out.Threats = slices.Clone(s.spec.Threats)

	out.Attributes = make(map[string]int, len(s.spec.Attributes))
	for key := range s.spec.Attributes {
		if val, ok := s.actor.Attribute(key); ok {
			out.Attributes[key] = val
		}
	}
	out.CombatModifiers = make(map[string]int)
	for _, mod := range s.actor.GetCombatModifiers() {
		out.CombatModifiers[mod.Reason] = mod.Value
	}
	return out
}

// MarshalJSON writes the current state, reading HP back from the actor.
func (s *Survivor) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Spec())
}

// UnmarshalJSON rebuilds the survivor and its actor. Reward pools default
// when unset.
func (s *Survivor) UnmarshalJSON(data []byte) error {
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return fmt.Errorf("failed to unmarshal survivor: %w", err)
	}
	rebuilt, err := New(spec, s.rewards, s.logger)
	if err != nil {
		return err
	}
	*s = *rebuilt
	return nil
}
