// Package outcome resolves a chosen option into one weighted result and
// applies that result's effects through collaborator interfaces.
package outcome

import (
	"log/slog"

	"github.com/jwebster45206/wilds-engine/pkg/events"
	"github.com/jwebster45206/wilds-engine/pkg/state"
	"github.com/jwebster45206/wilds-engine/pkg/tension"
	"github.com/jwebster45206/wilds-engine/pkg/weighted"
)

// ConsumeReport records one resource cost.
type ConsumeReport struct {
	Resource string        `json:"resource"`
	Amount   float64       `json:"amount"`
	Status   ConsumeStatus `json:"status"`
}

// TensionReport records one tension operation.
type TensionReport struct {
	Op      events.TensionOpKind `json:"op"`
	Type    string               `json:"type"`
	Stage   tension.Stage        `json:"stage"`
	Applied bool                 `json:"applied"` // false for no-op escalate/resolve on an absent tension
}

// Outcome is what happened when a result was applied.
type Outcome struct {
	ResultIndex     int               `json:"result_index"`
	Result          *events.Result    `json:"-"`
	Text            string            `json:"text,omitempty"`
	TimeCostMinutes int               `json:"time_cost_minutes,omitempty"`
	Consumption     []ConsumeReport   `json:"consumption,omitempty"`
	Tensions        []TensionReport   `json:"tensions,omitempty"`
	Encounter       *events.Encounter `json:"encounter,omitempty"`
	Chained         *events.Template  `json:"-"`
	Aborted         bool              `json:"aborted,omitempty"`
}

// Resolver applies results.
type Resolver struct {
	catalog *events.Catalog
	collab  Collaborators
	logger  *slog.Logger
}

// NewResolver creates a resolver. catalog resolves chained event ids.
func NewResolver(catalog *events.Catalog, collab Collaborators, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		catalog: catalog,
		collab:  collab,
		logger:  logger,
	}
}

// Resolve draws one of choice's results by weight and applies it. Effects
// apply in a fixed order: costs, damage, status effects, tension operations,
// reward, encounter, chained event lookup, then the abort flag. It reports
// false only when choice has nothing to draw from.
func (r *Resolver) Resolve(choice *events.Choice, snap *state.Snapshot, tensions *tension.Registry, rng weighted.Source) (*Outcome, bool) {
	if choice == nil || snap == nil {
		return nil, false
	}
	opts := make([]weighted.Option[*events.Result], len(choice.Results))
	for i := range choice.Results {
		opts[i] = weighted.Option[*events.Result]{Weight: choice.Results[i].Weight, Value: &choice.Results[i]}
	}
	res, idx, ok := weighted.Pick(rng, opts)
	if !ok {
		r.logger.Warn("Choice has no drawable results", "choice", choice.Label)
		return nil, false
	}
	return r.Apply(res, idx, snap, tensions), true
}

// Apply applies res without drawing. Resolve uses it after the draw; forced
// outcomes can call it directly.
func (r *Resolver) Apply(res *events.Result, idx int, snap *state.Snapshot, tensions *tension.Registry) *Outcome {
	out := &Outcome{
		ResultIndex:     idx,
		Result:          res,
		Text:            res.Text,
		TimeCostMinutes: res.TimeCostMinutes,
	}

	for _, c := range res.Costs {
		status := ConsumeSuccess
		if r.collab.Inventory != nil {
			status = r.collab.Inventory.ConsumeResource(c.Resource, c.Amount)
		}
		if status != ConsumeSuccess {
			r.logger.Debug("Resource cost clamped", "resource", c.Resource, "amount", c.Amount, "status", status.String())
		}
		out.Consumption = append(out.Consumption, ConsumeReport{Resource: c.Resource, Amount: c.Amount, Status: status})
	}

	if res.Damage != nil && r.collab.Body != nil {
		r.collab.Body.ApplyDamage(res.Damage.Amount, res.Damage.Type, res.Damage.Target)
	}

	if r.collab.Effects != nil {
		for _, e := range res.StatusEffects {
			r.collab.Effects.ApplyStatusEffect(e)
		}
	}

	if tensions != nil {
		for _, op := range res.Tensions {
			out.Tensions = append(out.Tensions, applyTension(tensions, op, snap))
		}
	}

	if res.Reward != nil && r.collab.Rewards != nil {
		r.collab.Rewards.GrantReward(res.Reward.Pool, res.Reward.Scale())
	}

	if res.Encounter != nil {
		out.Encounter = res.Encounter
		if r.collab.Encounters != nil {
			r.collab.Encounters.SpawnEncounter(res.Encounter.Actor, res.Encounter.Distance, res.Encounter.Boldness)
		}
	}

	if res.ChainEvent != "" {
		if t, ok := r.catalog.Get(res.ChainEvent); ok {
			out.Chained = t
		}
	}

	if res.AbortActivity {
		out.Aborted = true
		if r.collab.Activity != nil {
			r.collab.Activity.AbortCurrentActivity()
		}
	}

	return out
}

func applyTension(reg *tension.Registry, op events.TensionOp, snap *state.Snapshot) TensionReport {
	rep := TensionReport{Op: op.Op, Type: op.Type}
	switch op.Op {
	case events.TensionCreate:
		rep.Stage = reg.Create(tension.Spec{
			TypeKey:        op.Type,
			Severity:       op.Severity,
			AnimalType:     op.AnimalType,
			SourceLocation: snap.Location.Name,
			Description:    op.Description,
			CreatedAt:      snap.Tick,
		})
		rep.Applied = true
	case events.TensionEscalate:
		rep.Stage, rep.Applied = reg.Escalate(op.Type, op.Delta)
	case events.TensionResolve:
		rep.Applied = reg.Resolve(op.Type)
		rep.Stage = tension.Absent
	}
	return rep
}
