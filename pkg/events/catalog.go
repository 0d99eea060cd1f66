package events

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/agnivade/levenshtein"

	"github.com/jwebster45206/wilds-engine/pkg/situations"
)

// Catalog is the registry of event templates.
type Catalog struct {
	templates map[string]*Template
	order     []string
	logger    *slog.Logger
}

// NewCatalog creates an empty catalog.
func NewCatalog(logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Catalog{
		templates: make(map[string]*Template),
		logger:    logger,
	}
}

// Register validates t and adds it to the catalog.
func (c *Catalog) Register(t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, exists := c.templates[t.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEvent, t.ID)
	}
	if len(t.SituationWeightFactors) > 0 {
		factors := make(map[situations.ID]SituationFactor, len(t.SituationWeightFactors))
		for id, f := range t.SituationWeightFactors {
			if f.Mode == "" {
				f.Mode = ModeGate
			}
			factors[id] = f
		}
		t.SituationWeightFactors = factors
	}
	c.templates[t.ID] = &t
	c.order = append(c.order, t.ID)
	return nil
}

// MustRegister is Register for static registrations.
func (c *Catalog) MustRegister(t Template) {
	if err := c.Register(t); err != nil {
		panic(err)
	}
}

// Get returns the template for id. A miss is a content problem, logged
// with the closest known id, and reported as not found.
func (c *Catalog) Get(id string) (*Template, bool) {
	t, ok := c.templates[id]
	if !ok {
		c.logger.Warn("Unknown event id", "event_id", id, "suggestion", c.Suggest(id))
		return nil, false
	}
	return t, true
}

// Has reports whether id is registered, without logging.
func (c *Catalog) Has(id string) bool {
	_, ok := c.templates[id]
	return ok
}

// All returns templates in registration order. Callers must not modify them.
func (c *Catalog) All() []*Template {
	out := make([]*Template, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.templates[id])
	}
	return out
}

// IDs returns event ids in registration order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Suggest returns the registered id closest to id, or "".
func (c *Catalog) Suggest(id string) string {
	best, bestDist := "", -1
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	for _, known := range ids {
		d := levenshtein.ComputeDistance(id, known)
		if d > max(2, len(known)/3) {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = known, d
		}
	}
	return best
}
