// Package conditionals evaluates named boolean predicates against a state
// snapshot. Evaluation is fail-closed: an unknown or misbehaving predicate
// evaluates to false instead of disturbing the caller.
package conditionals

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/jwebster45206/wilds-engine/pkg/state"
)

// ID names a condition.
type ID string

// Func is a predicate over a snapshot. It must not mutate the snapshot.
type Func func(snap *state.Snapshot) bool

// Registry maps condition IDs to predicates. Registration happens at load
// time; Evaluate is safe for concurrent use once loading is done.
type Registry struct {
	funcs  map[ID]Func
	logger *slog.Logger

	mu     sync.Mutex
	warned map[ID]bool
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		funcs:  make(map[ID]Func),
		logger: logger,
		warned: make(map[ID]bool),
	}
}

// Register adds or replaces a predicate.
func (r *Registry) Register(id ID, fn Func) error {
	if id == "" {
		return fmt.Errorf("condition id cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("condition %s: nil predicate", id)
	}
	r.funcs[id] = fn
	return nil
}

// MustRegister is Register for static registrations; it panics on error.
func (r *Registry) MustRegister(id ID, fn Func) {
	if err := r.Register(id, fn); err != nil {
		panic(err)
	}
}

// Has reports whether id is registered.
func (r *Registry) Has(id ID) bool {
	_, ok := r.funcs[id]
	return ok
}

// IDs returns all registered IDs sorted.
func (r *Registry) IDs() []ID {
	ids := make([]ID, 0, len(r.funcs))
	for id := range r.funcs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Evaluate runs the predicate for id. Unknown IDs, nil snapshots and
// panicking predicates all evaluate to false.
func (r *Registry) Evaluate(id ID, snap *state.Snapshot) (result bool) {
	fn, ok := r.funcs[id]
	if !ok {
		r.warnOnce(id, "Unknown condition evaluated as false", "suggestion", r.Suggest(id))
		return false
	}
	if snap == nil {
		return false
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.warnOnce(id, "Condition panicked, evaluated as false", "panic", fmt.Sprint(rec))
			result = false
		}
	}()
	return fn(snap)
}

// All reports whether every id holds. An empty list holds.
func (r *Registry) All(ids []ID, snap *state.Snapshot) bool {
	for _, id := range ids {
		if !r.Evaluate(id, snap) {
			return false
		}
	}
	return true
}

// Any reports whether at least one id holds. An empty list does not hold.
func (r *Registry) Any(ids []ID, snap *state.Snapshot) bool {
	for _, id := range ids {
		if r.Evaluate(id, snap) {
			return true
		}
	}
	return false
}

// None reports whether no id holds.
func (r *Registry) None(ids []ID, snap *state.Snapshot) bool {
	return !r.Any(ids, snap)
}

// Suggest returns the closest registered ID to id, or "" when nothing is
// reasonably close.
func (r *Registry) Suggest(id ID) ID {
	type scored struct {
		id   ID
		dist int
	}
	var cands []scored
	for known := range r.funcs {
		d := levenshtein.ComputeDistance(string(id), string(known))
		if d <= suggestLimit(len(known)) {
			cands = append(cands, scored{known, d})
		}
	}
	if len(cands) == 0 {
		return ""
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist == cands[j].dist {
			return cands[i].id < cands[j].id
		}
		return cands[i].dist < cands[j].dist
	})
	return cands[0].id
}

func (r *Registry) warnOnce(id ID, msg string, args ...any) {
	r.mu.Lock()
	seen := r.warned[id]
	r.warned[id] = true
	r.mu.Unlock()
	if seen {
		return
	}
	r.logger.Warn(msg, append([]any{"condition", id}, args...)...)
}

func suggestLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
