package triggers

import (
	"fmt"

	"github.com/jwebster45206/wilds-engine/pkg/tension"
)

// Handler maps a stage change of one tension type to an event id. Returning
// false means the change passes silently, which is normal for decay and
// resolution.
type Handler interface {
	OnStageChange(change tension.StageChange) (eventID string, ok bool)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(change tension.StageChange) (string, bool)

func (f HandlerFunc) OnStageChange(change tension.StageChange) (string, bool) {
	return f(change)
}

// StageTable is a declarative Handler.
type StageTable struct {
	OnCreate     string `yaml:"on_create,omitempty" json:"on_create,omitempty"`
	OnEscalating string `yaml:"on_escalating,omitempty" json:"on_escalating,omitempty"`
	OnCritical   string `yaml:"on_critical,omitempty" json:"on_critical,omitempty"`
	OnEase       string `yaml:"on_ease,omitempty" json:"on_ease,omitempty"`
	OnResolve    string `yaml:"on_resolve,omitempty" json:"on_resolve,omitempty"`
}

// OnStageChange picks the event for change. A creation uses OnCreate when
// set and otherwise the handler for the stage it was created at.
func (t StageTable) OnStageChange(change tension.StageChange) (string, bool) {
	var id string
	switch {
	case change.IsResolution:
		id = t.OnResolve
	case change.IsCreation && t.OnCreate != "":
		id = t.OnCreate
	case change.Worsened():
		switch change.Current {
		case tension.Escalating:
			id = t.OnEscalating
		case tension.Critical:
			id = t.OnCritical
		}
	default:
		id = t.OnEase
	}
	return id, id != ""
}

// EventIDs lists every event the table can produce.
func (t StageTable) EventIDs() []string {
	var ids []string
	for _, id := range []string{t.OnCreate, t.OnEscalating, t.OnCritical, t.OnEase, t.OnResolve} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Handlers routes stage changes to the handler registered for their type.
type Handlers struct {
	byType map[string]Handler
}

// NewHandlers creates an empty handler registry.
func NewHandlers() *Handlers {
	return &Handlers{byType: make(map[string]Handler)}
}

// Register sets the handler for typeKey.
func (h *Handlers) Register(typeKey string, handler Handler) error {
	if typeKey == "" {
		return fmt.Errorf("tension type key cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("tension %s: nil handler", typeKey)
	}
	h.byType[typeKey] = handler
	return nil
}

// Has reports whether typeKey has a handler.
func (h *Handlers) Has(typeKey string) bool {
	_, ok := h.byType[typeKey]
	return ok
}

// Triggers converts stage changes into triggers. Changes for unregistered
// types and changes a handler declines produce nothing.
func (h *Handlers) Triggers(changes []tension.StageChange) []Trigger {
	var out []Trigger
	for _, c := range changes {
		handler, ok := h.byType[c.TypeKey]
		if !ok {
			continue
		}
		id, ok := handler.OnStageChange(c)
		if !ok {
			continue
		}
		change := c
		out = append(out, Trigger{
			EventID: id,
			Source:  SourceTension,
			Reason:  fmt.Sprintf("%s %s -> %s", c.TypeKey, c.Previous, c.Current),
			Tension: &change,
		})
	}
	return out
}
