// Package situations combines primitive conditions and continuous
// indicators into named situations. A situation is read two ways: as a
// boolean gate and as a level in [0,1].
package situations

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/jwebster45206/wilds-engine/pkg/conditionals"
	"github.com/jwebster45206/wilds-engine/pkg/state"
)

// ID names a situation.
type ID string

// Indicator contributes Weight * clamp01(Level(snap)) to a situation's level.
type Indicator struct {
	Name   string
	Weight float64
	Level  func(snap *state.Snapshot) float64
}

// Situation is a composite predicate. It is active when every AllOf
// condition holds, at least one AnyOf condition holds (if any are listed)
// and Gate (if set) returns true. A situation with none of those is active
// whenever its level is positive.
type Situation struct {
	ID         ID
	AllOf      []conditionals.ID
	AnyOf      []conditionals.ID
	Gate       func(snap *state.Snapshot) bool
	Indicators []Indicator
}

func (s *Situation) hasGate() bool {
	return len(s.AllOf) > 0 || len(s.AnyOf) > 0 || s.Gate != nil
}

// Calculator evaluates registered situations. It holds no per-step state.
type Calculator struct {
	conds      *conditionals.Registry
	situations map[ID]*Situation
	logger     *slog.Logger
}

// NewCalculator creates a calculator that resolves conditions through conds.
func NewCalculator(conds *conditionals.Registry, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Calculator{
		conds:      conds,
		situations: make(map[ID]*Situation),
		logger:     logger,
	}
}

// Register adds or replaces a situation.
func (c *Calculator) Register(s Situation) error {
	if s.ID == "" {
		return fmt.Errorf("situation id cannot be empty")
	}
	if !s.hasGate() && len(s.Indicators) == 0 {
		return fmt.Errorf("situation %s: needs conditions, a gate or indicators", s.ID)
	}
	for _, ind := range s.Indicators {
		if ind.Level == nil {
			return fmt.Errorf("situation %s: indicator %q has no level func", s.ID, ind.Name)
		}
		if ind.Weight < 0 || math.IsNaN(ind.Weight) {
			return fmt.Errorf("situation %s: indicator %q has invalid weight %v", s.ID, ind.Name, ind.Weight)
		}
	}
	for _, id := range slices.Concat(s.AllOf, s.AnyOf) {
		if c.conds != nil && !c.conds.Has(id) {
			c.logger.Warn("Situation references unknown condition",
				"situation", s.ID,
				"condition", id,
				"suggestion", c.conds.Suggest(id))
		}
	}
	c.situations[s.ID] = &s
	return nil
}

// MustRegister is Register for static registrations.
func (c *Calculator) MustRegister(s Situation) {
	if err := c.Register(s); err != nil {
		panic(err)
	}
}

// Has reports whether id is registered.
func (c *Calculator) Has(id ID) bool {
	_, ok := c.situations[id]
	return ok
}

// IDs returns registered situation ids sorted.
func (c *Calculator) IDs() []ID {
	ids := make([]ID, 0, len(c.situations))
	for id := range c.situations {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Active reports whether situation id holds for snap. Unknown ids are false.
func (c *Calculator) Active(id ID, snap *state.Snapshot) bool {
	s, ok := c.situations[id]
	if !ok || snap == nil {
		return false
	}
	if !s.hasGate() {
		return c.level(s, snap) > 0
	}
	if c.conds != nil {
		if !c.conds.All(s.AllOf, snap) {
			return false
		}
		if len(s.AnyOf) > 0 && !c.conds.Any(s.AnyOf, snap) {
			return false
		}
	} else if len(s.AllOf) > 0 || len(s.AnyOf) > 0 {
		return false
	}
	if s.Gate != nil && !c.safeGate(s, snap) {
		return false
	}
	return true
}

// Level returns the situation's level in [0,1]. A situation without
// indicators reads 1 while active and 0 otherwise. Unknown ids are 0.
func (c *Calculator) Level(id ID, snap *state.Snapshot) float64 {
	s, ok := c.situations[id]
	if !ok || snap == nil {
		return 0
	}
	if len(s.Indicators) == 0 {
		if c.Active(id, snap) {
			return 1
		}
		return 0
	}
	return c.level(s, snap)
}

func (c *Calculator) level(s *Situation, snap *state.Snapshot) float64 {
	total := 0.0
	for _, ind := range s.Indicators {
		total += clamp01(c.safeLevel(s.ID, ind, snap)) * ind.Weight
	}
	return clamp01(total)
}

func (c *Calculator) safeGate(s *Situation, snap *state.Snapshot) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Warn("Situation gate panicked, treated as inactive", "situation", s.ID, "panic", fmt.Sprint(rec))
			ok = false
		}
	}()
	return s.Gate(snap)
}

func (c *Calculator) safeLevel(id ID, ind Indicator, snap *state.Snapshot) (v float64) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Warn("Situation indicator panicked, contributing 0",
				"situation", id,
				"indicator", ind.Name,
				"panic", fmt.Sprint(rec))
			v = 0
		}
	}()
	return ind.Level(snap)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 1:
		return 1
	default:
		return v
	}
}
