// Package cooldown tracks when each event last fired.
package cooldown

import (
	"encoding/json"
	"maps"
)

// Tracker maps event ids to the tick they last fired. The zero value is not
// usable; call New.
type Tracker struct {
	last map[string]int64
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{last: make(map[string]int64)}
}

// Record marks id as fired at tick.
func (t *Tracker) Record(id string, tick int64) {
	t.last[id] = tick
}

// LastFired returns the tick id last fired.
func (t *Tracker) LastFired(id string) (int64, bool) {
	tick, ok := t.last[id]
	return tick, ok
}

// Ready reports whether id may fire at now. Events that never fired, and
// cooldowns of zero or less, are always ready.
func (t *Tracker) Ready(id string, cooldownTicks, now int64) bool {
	return t.Remaining(id, cooldownTicks, now) == 0
}

// Remaining returns how many ticks are left before id is ready.
func (t *Tracker) Remaining(id string, cooldownTicks, now int64) int64 {
	if cooldownTicks <= 0 {
		return 0
	}
	last, ok := t.last[id]
	if !ok {
		return 0
	}
	if elapsed := now - last; elapsed < cooldownTicks {
		return cooldownTicks - elapsed
	}
	return 0
}

// Reset forgets id.
func (t *Tracker) Reset(id string) {
	delete(t.last, id)
}

// Len returns the number of tracked ids.
func (t *Tracker) Len() int {
	return len(t.last)
}

// MarshalJSON writes the tracker as an id -> tick object.
func (t *Tracker) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.last)
}

// UnmarshalJSON replaces the tracker contents.
func (t *Tracker) UnmarshalJSON(data []byte) error {
	last := make(map[string]int64)
	if err := json.Unmarshal(data, &last); err != nil {
		return err
	}
	t.last = last
	return nil
}

// Clone returns an independent copy.
func (t *Tracker) Clone() *Tracker {
	return &Tracker{last: maps.Clone(t.last)}
}
