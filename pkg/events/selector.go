package events

import (
	"log/slog"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/jwebster45206/wilds-engine/pkg/conditionals"
	"github.com/jwebster45206/wilds-engine/pkg/cooldown"
	"github.com/jwebster45206/wilds-engine/pkg/situations"
	"github.com/jwebster45206/wilds-engine/pkg/state"
	"github.com/jwebster45206/wilds-engine/pkg/weighted"
)

// Candidate is an eligible template with its effective weight.
type Candidate struct {
	Template *Template
	Weight   float64
}

// Selector picks at most one eligible event per step.
type Selector struct {
	catalog    *Catalog
	conditions *conditionals.Registry
	situations *situations.Calculator
	logger     *slog.Logger
}

// NewSelector wires a selector over the given registries.
func NewSelector(catalog *Catalog, conds *conditionals.Registry, sits *situations.Calculator, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Selector{
		catalog:    catalog,
		conditions: conds,
		situations: sits,
		logger:     logger,
	}
}

// Catalog returns the selector's catalog.
func (s *Selector) Catalog() *Catalog {
	return s.catalog
}

// Eligible reports whether t may be drawn for snap: location, cooldown and
// condition requirements hold and at least one choice can be offered. The
// weight is not considered here.
func (s *Selector) Eligible(t *Template, snap *state.Snapshot, cooldowns *cooldown.Tracker) bool {
	if t == nil || snap == nil {
		return false
	}
	if t.LocationName != "" && !strings.EqualFold(snap.Location.Name, t.LocationName) {
		return false
	}
	if t.LocationTag != "" && !snap.HasTag(t.LocationTag) {
		return false
	}
	if cooldowns != nil {
		if t.OncePerSession {
			if _, fired := cooldowns.LastFired(t.ID); fired {
				return false
			}
		}
		if !cooldowns.Ready(t.ID, t.Cooldown(), snap.Tick) {
			return false
		}
	}
	if !s.conditions.All(t.RequiredConditions, snap) {
		return false
	}
	if len(t.ExcludedConditions) > 0 && s.conditions.Any(t.ExcludedConditions, snap) {
		return false
	}
	for _, id := range t.RequiredSituations {
		if !s.situationActive(id, snap) {
			return false
		}
	}
	for _, id := range t.ExcludedSituations {
		if s.situationActive(id, snap) {
			return false
		}
	}
	return len(s.AvailableChoices(t, snap)) > 0
}

// EffectiveWeight is the base weight times every satisfied condition factor
// and every situation factor. Factors are applied in sorted key order so
// that results are reproducible bit for bit.
func (s *Selector) EffectiveWeight(t *Template, snap *state.Snapshot) float64 {
	w := t.BaseWeight
	if w <= 0 {
		return 0
	}
	for _, id := range slices.Sorted(maps.Keys(t.ConditionWeightFactors)) {
		if s.conditions.Evaluate(id, snap) {
			w *= t.ConditionWeightFactors[id]
		}
	}
	for _, id := range slices.Sorted(maps.Keys(t.SituationWeightFactors)) {
		f := t.SituationWeightFactors[id]
		var active bool
		var level float64
		if s.situations != nil {
			if f.Mode == ModeLevel {
				level = s.situations.Level(id, snap)
			} else {
				active = s.situations.Active(id, snap)
			}
		}
		w *= f.Factor(active, level)
	}
	if math.IsNaN(w) || w < 0 {
		return 0
	}
	return w
}

// Candidates returns every eligible template with its effective weight, in
// catalog order.
func (s *Selector) Candidates(snap *state.Snapshot, cooldowns *cooldown.Tracker) []Candidate {
	var out []Candidate
	for _, t := range s.catalog.All() {
		if !s.Eligible(t, snap, cooldowns) {
			continue
		}
		out = append(out, Candidate{Template: t, Weight: s.EffectiveWeight(t, snap)})
	}
	return out
}

// Select draws one candidate in proportion to its weight and records the
// draw in cooldowns. It reports false when nothing is eligible or all
// weights are zero, which is a normal outcome.
func (s *Selector) Select(snap *state.Snapshot, cooldowns *cooldown.Tracker, rng weighted.Source) (*Template, bool) {
	cands := s.Candidates(snap, cooldowns)
	opts := make([]weighted.Option[*Template], len(cands))
	for i, c := range cands {
		opts[i] = weighted.Option[*Template]{Weight: c.Weight, Value: c.Template}
	}

	t, _, ok := weighted.Pick(rng, opts)
	if !ok {
		s.logger.Debug("No event this step", "tick", snap.Tick, "candidates", len(cands))
		return nil, false
	}
	if cooldowns != nil {
		cooldowns.Record(t.ID, snap.Tick)
	}
	s.logger.Debug("Event selected",
		"event_id", t.ID,
		"tick", snap.Tick,
		"candidates", len(cands),
		"total_weight", weighted.Total(opts))
	return t, true
}

// AvailableChoices returns the indexes of t's choices whose required
// conditions hold.
func (s *Selector) AvailableChoices(t *Template, snap *state.Snapshot) []int {
	var out []int
	for i := range t.Choices {
		if s.ChoiceAvailable(t, i, snap) {
			out = append(out, i)
		}
	}
	return out
}

// ChoiceAvailable reports whether choice i of t may be offered.
func (s *Selector) ChoiceAvailable(t *Template, i int, snap *state.Snapshot) bool {
	if t == nil || i < 0 || i >= len(t.Choices) {
		return false
	}
	return s.conditions.All(t.Choices[i].RequiredConditions, snap)
}

func (s *Selector) situationActive(id situations.ID, snap *state.Snapshot) bool {
	return s.situations != nil && s.situations.Active(id, snap)
}
