// Package events holds the event catalog and the probabilistic selector.
// Templates are registered at load time and never mutated afterwards; the
// only runtime state an event has is its cooldown entry, which lives in a
// cooldown.Tracker owned by the caller.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/wilds-engine/pkg/conditionals"
	"github.com/jwebster45206/wilds-engine/pkg/situations"
)

var (
	ErrDuplicateEvent  = errors.New("duplicate event id")
	ErrInvalidTemplate = errors.New("invalid event template")
)

// Template describes one event.
type Template struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title,omitempty" json:"title,omitempty"`
	Text  string `yaml:"text,omitempty" json:"text,omitempty"`

	BaseWeight             float64                           `yaml:"base_weight" json:"base_weight"`
	RequiredConditions     []conditionals.ID                 `yaml:"required_conditions,omitempty" json:"required_conditions,omitempty"`
	ExcludedConditions     []conditionals.ID                 `yaml:"excluded_conditions,omitempty" json:"excluded_conditions,omitempty"`
	ConditionWeightFactors map[conditionals.ID]float64       `yaml:"condition_weights,omitempty" json:"condition_weights,omitempty"`
	SituationWeightFactors map[situations.ID]SituationFactor `yaml:"situation_weights,omitempty" json:"situation_weights,omitempty"`
	RequiredSituations     []situations.ID                   `yaml:"required_situations,omitempty" json:"required_situations,omitempty"`
	ExcludedSituations     []situations.ID                   `yaml:"excluded_situations,omitempty" json:"excluded_situations,omitempty"`
	LocationName           string                            `yaml:"location,omitempty" json:"location,omitempty"`
	LocationTag            string                            `yaml:"location_tag,omitempty" json:"location_tag,omitempty"`
	CooldownTicks          *int64                            `yaml:"cooldown_ticks,omitempty" json:"cooldown_ticks,omitempty"`
	OncePerSession         bool                              `yaml:"once_per_session,omitempty" json:"once_per_session,omitempty"`
	Tags                   []string                          `yaml:"tags,omitempty" json:"tags,omitempty"`
	Choices                []Choice                          `yaml:"choices" json:"choices"`
}

// Cooldown returns the cooldown in ticks, 0 when unset.
func (t *Template) Cooldown() int64 {
	if t.CooldownTicks == nil {
		return 0
	}
	return *t.CooldownTicks
}

// Choice is one option offered to the player.
type Choice struct {
	Label              string            `yaml:"label" json:"label"`
	Text               string            `yaml:"text,omitempty" json:"text,omitempty"`
	RequiredConditions []conditionals.ID `yaml:"required_conditions,omitempty" json:"required_conditions,omitempty"`
	Results            []Result          `yaml:"results" json:"results"`
}

// Result is one weighted consequence of a choice.
type Result struct {
	Weight          float64        `yaml:"weight" json:"weight"`
	Text            string         `yaml:"text,omitempty" json:"text,omitempty"`
	TimeCostMinutes int            `yaml:"time_cost_minutes,omitempty" json:"time_cost_minutes,omitempty"`
	Costs           []Cost         `yaml:"costs,omitempty" json:"costs,omitempty"`
	Damage          *Damage        `yaml:"damage,omitempty" json:"damage,omitempty"`
	StatusEffects   []StatusEffect `yaml:"status_effects,omitempty" json:"status_effects,omitempty"`
	Tensions        []TensionOp    `yaml:"tensions,omitempty" json:"tensions,omitempty"`
	Reward          *Reward        `yaml:"reward,omitempty" json:"reward,omitempty"`
	Encounter       *Encounter     `yaml:"encounter,omitempty" json:"encounter,omitempty"`
	ChainEvent      string         `yaml:"chain,omitempty" json:"chain,omitempty"`
	AbortActivity   bool           `yaml:"abort_activity,omitempty" json:"abort_activity,omitempty"`
}

// Cost consumes a resource from the inventory.
type Cost struct {
	Resource string  `yaml:"resource" json:"resource"`
	Amount   float64 `yaml:"amount" json:"amount"`
}

// Damage is applied to the body.
type Damage struct {
	Amount float64 `yaml:"amount" json:"amount"`
	Type   string  `yaml:"type" json:"type"`
	Target string  `yaml:"target,omitempty" json:"target,omitempty"`
}

// StatusEffect is handed to the effects subsystem.
type StatusEffect struct {
	Name            string  `yaml:"name" json:"name"`
	Severity        float64 `yaml:"severity,omitempty" json:"severity,omitempty"`
	DurationMinutes int     `yaml:"duration_minutes,omitempty" json:"duration_minutes,omitempty"`
}

// Reward grants from a reward pool.
type Reward struct {
	Pool       string  `yaml:"pool" json:"pool"`
	Multiplier float64 `yaml:"multiplier,omitempty" json:"multiplier,omitempty"`
}

// Scale returns the multiplier, treating an unset value as 1.
func (r Reward) Scale() float64 {
	if r.Multiplier == 0 {
		return 1
	}
	return r.Multiplier
}

// Encounter spawns an actor near the survivor.
type Encounter struct {
	Actor    string  `yaml:"actor" json:"actor"`
	Distance float64 `yaml:"distance,omitempty" json:"distance,omitempty"`
	Boldness float64 `yaml:"boldness,omitempty" json:"boldness,omitempty"`
}

// TensionOpKind is the operation a result performs on a tension.
type TensionOpKind string

const (
	TensionCreate   TensionOpKind = "create"
	TensionEscalate TensionOpKind = "escalate"
	TensionResolve  TensionOpKind = "resolve"
)

// TensionOp mutates the tension registry.
type TensionOp struct {
	Op          TensionOpKind `yaml:"op" json:"op"`
	Type        string        `yaml:"type" json:"type"`
	Severity    float64       `yaml:"severity,omitempty" json:"severity,omitempty"` // create
	Delta       float64       `yaml:"delta,omitempty" json:"delta,omitempty"`       // escalate
	AnimalType  string        `yaml:"animal,omitempty" json:"animal,omitempty"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
}

// FactorMode selects how a situation factor is applied.
type FactorMode string

const (
	// ModeGate multiplies by Multiplier while the situation is active.
	ModeGate FactorMode = "gate"
	// ModeLevel multiplies by 1 + (Multiplier-1) * level.
	ModeLevel FactorMode = "level"
)

// SituationFactor weights an event by a situation. In YAML and JSON a bare
// number is shorthand for a gate factor.
type SituationFactor struct {
	Multiplier float64    `yaml:"multiplier" json:"multiplier"`
	Mode       FactorMode `yaml:"mode,omitempty" json:"mode,omitempty"`
}

// Factor returns the multiplier to apply given the situation state.
func (f SituationFactor) Factor(active bool, level float64) float64 {
	if f.Mode == ModeLevel {
		return 1 + (f.Multiplier-1)*level
	}
	if active {
		return f.Multiplier
	}
	return 1
}

func (f *SituationFactor) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var m float64
		if err := node.Decode(&m); err != nil {
			return err
		}
		*f = SituationFactor{Multiplier: m, Mode: ModeGate}
		return nil
	}
	type plain SituationFactor
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*f = SituationFactor(p)
	if f.Mode == "" {
		f.Mode = ModeGate
	}
	return nil
}

func (f *SituationFactor) UnmarshalJSON(data []byte) error {
	var m float64
	if err := json.Unmarshal(data, &m); err == nil {
		*f = SituationFactor{Multiplier: m, Mode: ModeGate}
		return nil
	}
	type plain SituationFactor
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = SituationFactor(p)
	if f.Mode == "" {
		f.Mode = ModeGate
	}
	return nil
}

// Validate checks the template's structure. References to conditions,
// situations and chained events are checked separately by Lint.
func (t *Template) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if t.ID == "" {
		add("id is required")
	}
	if !finite(t.BaseWeight) || t.BaseWeight < 0 {
		add("base_weight must be a finite value >= 0, got %v", t.BaseWeight)
	}
	if t.CooldownTicks != nil && *t.CooldownTicks < 0 {
		add("cooldown_ticks cannot be negative")
	}
	for id, f := range t.ConditionWeightFactors {
		if !finite(f) || f < 0 {
			add("condition weight %s must be a finite value >= 0, got %v", id, f)
		}
	}
	for id, f := range t.SituationWeightFactors {
		if !finite(f.Multiplier) || f.Multiplier < 0 {
			add("situation weight %s must be a finite value >= 0, got %v", id, f.Multiplier)
		}
		if f.Mode != "" && f.Mode != ModeGate && f.Mode != ModeLevel {
			add("situation weight %s has unknown mode %q", id, f.Mode)
		}
	}
	if len(t.Choices) == 0 {
		add("at least one choice is required")
	}
	for i, c := range t.Choices {
		if c.Label == "" {
			add("choice %d: label is required", i)
		}
		if len(c.Results) == 0 {
			add("choice %d: at least one result is required", i)
		}
		for j, r := range c.Results {
			if err := r.validate(); err != nil {
				add("choice %d result %d: %w", i, j, err)
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	name := t.ID
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Errorf("%w %s: %w", ErrInvalidTemplate, name, errors.Join(errs...))
}

func (r *Result) validate() error {
	var errs []error
	if !finite(r.Weight) || r.Weight <= 0 {
		errs = append(errs, fmt.Errorf("weight must be a finite value > 0, got %v", r.Weight))
	}
	if r.TimeCostMinutes < 0 {
		errs = append(errs, fmt.Errorf("time_cost_minutes cannot be negative"))
	}
	for _, c := range r.Costs {
		if c.Resource == "" || c.Amount < 0 {
			errs = append(errs, fmt.Errorf("cost needs a resource and a non-negative amount"))
		}
	}
	if r.Damage != nil && (r.Damage.Amount < 0 || r.Damage.Type == "") {
		errs = append(errs, fmt.Errorf("damage needs a type and a non-negative amount"))
	}
	for _, e := range r.StatusEffects {
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("status effect name is required"))
		}
	}
	if r.Reward != nil && (r.Reward.Pool == "" || r.Reward.Multiplier < 0) {
		errs = append(errs, fmt.Errorf("reward needs a pool and a non-negative multiplier"))
	}
	if r.Encounter != nil && r.Encounter.Actor == "" {
		errs = append(errs, fmt.Errorf("encounter actor is required"))
	}
	for _, op := range r.Tensions {
		if op.Type == "" {
			errs = append(errs, fmt.Errorf("tension op needs a type"))
		}
		switch op.Op {
		case TensionCreate, TensionEscalate, TensionResolve:
		default:
			errs = append(errs, fmt.Errorf("unknown tension op %q", op.Op))
		}
	}
	return errors.Join(errs...)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
