package events

import (
	"fmt"
	"maps"
	"slices"

	"github.com/jwebster45206/wilds-engine/pkg/conditionals"
	"github.com/jwebster45206/wilds-engine/pkg/situations"
)

// Problem is a dangling reference found by Lint.
type Problem struct {
	EventID    string
	Field      string
	Ref        string
	Suggestion string
}

func (p Problem) String() string {
	msg := fmt.Sprintf("%s: %s references unknown %q", p.EventID, p.Field, p.Ref)
	if p.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", p.Suggestion)
	}
	return msg
}

// Lint checks every template's condition, situation and chain references
// against the registries. The selector tolerates dangling references by
// failing closed; Lint is how authors find them.
func Lint(catalog *Catalog, conds *conditionals.Registry, sits *situations.Calculator) []Problem {
	var problems []Problem
	checkCond := func(eventID, field string, ids []conditionals.ID) {
		for _, id := range ids {
			if !conds.Has(id) {
				problems = append(problems, Problem{eventID, field, string(id), string(conds.Suggest(id))})
			}
		}
	}
	checkSit := func(eventID, field string, ids []situations.ID) {
		for _, id := range ids {
			if sits == nil || !sits.Has(id) {
				problems = append(problems, Problem{EventID: eventID, Field: field, Ref: string(id)})
			}
		}
	}

	for _, t := range catalog.All() {
		checkCond(t.ID, "required_conditions", t.RequiredConditions)
		checkCond(t.ID, "excluded_conditions", t.ExcludedConditions)
		checkCond(t.ID, "condition_weights", slices.Sorted(maps.Keys(t.ConditionWeightFactors)))
		checkSit(t.ID, "required_situations", t.RequiredSituations)
		checkSit(t.ID, "excluded_situations", t.ExcludedSituations)
		checkSit(t.ID, "situation_weights", slices.Sorted(maps.Keys(t.SituationWeightFactors)))

		for i, c := range t.Choices {
			checkCond(t.ID, fmt.Sprintf("choices[%d].required_conditions", i), c.RequiredConditions)
			for j, r := range c.Results {
				if r.ChainEvent != "" && !catalog.Has(r.ChainEvent) {
					problems = append(problems, Problem{
						EventID:    t.ID,
						Field:      fmt.Sprintf("choices[%d].results[%d].chain", i, j),
						Ref:        r.ChainEvent,
						Suggestion: catalog.Suggest(r.ChainEvent),
					})
				}
			}
		}
	}
	return problems
}
