// Package tension tracks persistent escalating dangers and reports the stage
// transitions their severity changes cause.
package tension

import (
	"encoding/json"
	"log/slog"
	"slices"
)

// Tension is a read-only copy of an active tension. Stage is derived from
// TypeKey and Severity each time a copy is made.
type Tension struct {
	TypeKey        string  `json:"type_key"`
	Severity       float64 `json:"severity"`
	Stage          Stage   `json:"-"`
	AnimalType     string  `json:"animal_type,omitempty"`
	SourceLocation string  `json:"source_location,omitempty"`
	Description    string  `json:"description,omitempty"`
	CreatedAt      int64   `json:"created_at"`
}

// Spec describes a tension to create.
type Spec struct {
	TypeKey        string
	Severity       float64
	AnimalType     string
	SourceLocation string
	Description    string
	CreatedAt      int64
}

// StageChange is the net stage transition of one tension over one step.
type StageChange struct {
	TypeKey      string `json:"type_key"`
	Previous     Stage  `json:"previous"`
	Current      Stage  `json:"current"`
	IsCreation   bool   `json:"is_creation,omitempty"`
	IsResolution bool   `json:"is_resolution,omitempty"`
}

// Worsened reports whether the transition moved to a higher stage.
func (c StageChange) Worsened() bool {
	return c.Current > c.Previous
}

// Registry is the keyed store of active tensions. There is at most one
// tension per type key. It is owned by a single simulation loop and is not
// safe for concurrent use.
type Registry struct {
	table    Table
	tensions map[string]*Tension
	baseline map[string]Stage
	touched  []string
	logger   *slog.Logger
}

// NewRegistry creates an empty registry using table for stage mapping.
func NewRegistry(table Table, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if table == nil {
		table = Table{}
	}
	return &Registry{
		table:    table,
		tensions: make(map[string]*Tension),
		baseline: make(map[string]Stage),
		logger:   logger,
	}
}

// Table returns the threshold table used by the registry.
func (r *Registry) Table() Table {
	return r.table
}

// SetTable replaces the threshold table, e.g. after loading from storage.
func (r *Registry) SetTable(table Table) {
	if table == nil {
		table = Table{}
	}
	r.table = table
}

// SetLogger replaces the registry logger.
func (r *Registry) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Create adds a tension, or merges into the active one of the same type by
// keeping the higher severity and filling any empty metadata. It returns the
// resulting stage.
func (r *Registry) Create(spec Spec) Stage {
	if spec.TypeKey == "" {
		r.logger.Warn("Ignoring tension create without type key")
		return Absent
	}
	r.touch(spec.TypeKey)

	severity := Clamp(spec.Severity)
	if existing, ok := r.tensions[spec.TypeKey]; ok {
		if severity > existing.Severity {
			existing.Severity = severity
		}
		if existing.AnimalType == "" {
			existing.AnimalType = spec.AnimalType
		}
		if existing.SourceLocation == "" {
			existing.SourceLocation = spec.SourceLocation
		}
		if existing.Description == "" {
			existing.Description = spec.Description
		}
		r.logger.Debug("Merged tension", "type", spec.TypeKey, "severity", existing.Severity)
		return r.stage(existing)
	}

	t := &Tension{
		TypeKey:        spec.TypeKey,
		Severity:       severity,
		AnimalType:     spec.AnimalType,
		SourceLocation: spec.SourceLocation,
		Description:    spec.Description,
		CreatedAt:      spec.CreatedAt,
	}
	r.tensions[spec.TypeKey] = t
	r.logger.Debug("Created tension", "type", spec.TypeKey, "severity", severity)
	return r.stage(t)
}

// Escalate adds delta to the severity of an active tension. Negative deltas
// de-escalate. Escalating an absent tension is a no-op and returns false.
func (r *Registry) Escalate(typeKey string, delta float64) (Stage, bool) {
	t, ok := r.tensions[typeKey]
	if !ok {
		return Absent, false
	}
	r.touch(typeKey)
	t.Severity = Clamp(t.Severity + delta)
	return r.stage(t), true
}

// Resolve removes a tension. Resolving an absent tension is a no-op.
func (r *Registry) Resolve(typeKey string) bool {
	if _, ok := r.tensions[typeKey]; !ok {
		return false
	}
	r.touch(typeKey)
	delete(r.tensions, typeKey)
	r.logger.Debug("Resolved tension", "type", typeKey)
	return true
}

// Decay applies delta (normally negative) to every active tension, using
// rates[typeKey] in place of delta where a rate is configured.
func (r *Registry) Decay(delta float64, rates map[string]float64) {
	for _, key := range r.keys() {
		d := delta
		if rate, ok := rates[key]; ok {
			d = rate
		}
		if d == 0 {
			continue
		}
		r.Escalate(key, d)
	}
}

// Get returns a copy of the active tension for typeKey.
func (r *Registry) Get(typeKey string) (Tension, bool) {
	t, ok := r.tensions[typeKey]
	if !ok {
		return Tension{}, false
	}
	out := *t
	out.Stage = r.stage(t)
	return out, true
}

// Has reports whether a tension of typeKey is active.
func (r *Registry) Has(typeKey string) bool {
	_, ok := r.tensions[typeKey]
	return ok
}

// Severity returns the severity of typeKey, or 0 when absent.
func (r *Registry) Severity(typeKey string) float64 {
	if t, ok := r.tensions[typeKey]; ok {
		return t.Severity
	}
	return 0
}

// StageOf returns the current stage of typeKey, Absent when inactive.
func (r *Registry) StageOf(typeKey string) Stage {
	if t, ok := r.tensions[typeKey]; ok {
		return r.stage(t)
	}
	return Absent
}

// Active returns copies of all active tensions sorted by type key.
func (r *Registry) Active() []Tension {
	out := make([]Tension, 0, len(r.tensions))
	for _, key := range r.keys() {
		t, _ := r.Get(key)
		out = append(out, t)
	}
	return out
}

// Len returns the number of active tensions.
func (r *Registry) Len() int {
	return len(r.tensions)
}

// Flush returns the net stage transitions since the previous Flush, in the
// order the tensions were first touched, and starts a new step. Tensions
// whose stage ended where it started are not reported.
func (r *Registry) Flush() []StageChange {
	var changes []StageChange
	for _, key := range r.touched {
		prev := r.baseline[key]
		cur := r.StageOf(key)
		if prev == cur {
			continue
		}
		changes = append(changes, StageChange{
			TypeKey:      key,
			Previous:     prev,
			Current:      cur,
			IsCreation:   prev == Absent,
			IsResolution: cur == Absent,
		})
	}
	clear(r.baseline)
	r.touched = r.touched[:0]
	return changes
}

func (r *Registry) touch(typeKey string) {
	if _, seen := r.baseline[typeKey]; seen {
		return
	}
	r.baseline[typeKey] = r.StageOf(typeKey)
	r.touched = append(r.touched, typeKey)
}

func (r *Registry) stage(t *Tension) Stage {
	return r.table.StageOf(t.TypeKey, t.Severity)
}

func (r *Registry) keys() []string {
	keys := make([]string, 0, len(r.tensions))
	for k := range r.tensions {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// MarshalJSON writes active tensions only. Stages are recomputed on load.
func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Active())
}

// UnmarshalJSON replaces the active tensions. The threshold table is left
// as is; call SetTable when restoring into a zero Registry.
func (r *Registry) UnmarshalJSON(data []byte) error {
	var list []Tension
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.table == nil {
		r.table = Table{}
	}
	r.tensions = make(map[string]*Tension, len(list))
	r.baseline = make(map[string]Stage)
	r.touched = nil
	for i := range list {
		t := list[i]
		if t.TypeKey == "" {
			continue
		}
		t.Severity = Clamp(t.Severity)
		r.tensions[t.TypeKey] = &t
	}
	return nil
}
