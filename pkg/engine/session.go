package engine

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/jwebster45206/wilds-engine/pkg/cooldown"
	"github.com/jwebster45206/wilds-engine/pkg/tension"
	"github.com/jwebster45206/wilds-engine/pkg/triggers"
	"github.com/jwebster45206/wilds-engine/pkg/weighted"
)

// Session is the mutable state of one playthrough. It is owned by a single
// simulation loop; nothing in it is safe for concurrent use.
type Session struct {
	ID        uuid.UUID
	Seed      int64
	Tensions  *tension.Registry
	Cooldowns *cooldown.Tracker
	Triggers  *triggers.State

	// Pending holds stage changes not yet handed to the trigger factories.
	Pending []tension.StageChange

	// Encounter is the event awaiting a choice, if any.
	Encounter *Encounter

	// Clock is where the world clock stood at the last step. Cooldowns hold
	// absolute ticks, so a resumed run continues from it.
	Clock Clock

	pcg *rand.PCG
	rng *rand.Rand
}

// NewSession starts a session whose randomness derives from seed.
func NewSession(seed int64, table tension.Table) *Session {
	pcg := weighted.NewPCG(seed)
	return &Session{
		ID:        uuid.New(),
		Seed:      seed,
		Tensions:  tension.NewRegistry(table, nil),
		Cooldowns: cooldown.New(),
		Triggers:  triggers.NewState(),
		pcg:       pcg,
		rng:       rand.New(pcg),
	}
}

// Rand returns the session's random source.
func (s *Session) Rand() *rand.Rand {
	if s.rng == nil {
		s.pcg = weighted.NewPCG(s.Seed)
		s.rng = rand.New(s.pcg)
	}
	return s.rng
}

// Clock is a point on the world clock.
type Clock struct {
	Tick   int64 `json:"tick"`
	Minute int64 `json:"minute"` // since the start of the run
}

type sessionJSON struct {
	ID        uuid.UUID             `json:"id"`
	Seed      int64                 `json:"seed"`
	RNG       []byte                `json:"rng"`
	Tensions  *tension.Registry     `json:"tensions"`
	Cooldowns *cooldown.Tracker     `json:"cooldowns"`
	Triggers  *triggers.State       `json:"triggers"`
	Pending   []tension.StageChange `json:"pending,omitempty"`
	Encounter *Encounter            `json:"encounter,omitempty"`
	Clock     Clock                 `json:"clock"`
}

// MarshalJSON includes the generator state so a restored session continues
// the same random sequence.
func (s *Session) MarshalJSON() ([]byte, error) {
	s.Rand()
	rng, err := s.pcg.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rng state: %w", err)
	}
	return json.Marshal(sessionJSON{
		ID:        s.ID,
		Seed:      s.Seed,
		RNG:       rng,
		Tensions:  s.Tensions,
		Cooldowns: s.Cooldowns,
		Triggers:  s.Triggers,
		Pending:   s.Pending,
		Encounter: s.Encounter,
		Clock:     s.Clock,
	})
}

// UnmarshalJSON restores a session. The tension threshold table is not
// stored; Engine re-attaches it on the next Step or Resolve.
func (s *Session) UnmarshalJSON(data []byte) error {
	aux := sessionJSON{
		Tensions:  tension.NewRegistry(nil, nil),
		Cooldowns: cooldown.New(),
		Triggers:  triggers.NewState(),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	pcg := weighted.NewPCG(aux.Seed)
	if len(aux.RNG) > 0 {
		if err := pcg.UnmarshalBinary(aux.RNG); err != nil {
			return fmt.Errorf("failed to restore rng state: %w", err)
		}
	}
	if aux.Triggers.Thresholds == nil {
		aux.Triggers.Thresholds = make(triggers.ThresholdState)
	}

	*s = Session{
		ID:        aux.ID,
		Seed:      aux.Seed,
		Tensions:  aux.Tensions,
		Cooldowns: aux.Cooldowns,
		Triggers:  aux.Triggers,
		Pending:   aux.Pending,
		Encounter: aux.Encounter,
		Clock:     aux.Clock,
		pcg:       pcg,
		rng:       rand.New(pcg),
	}
	return nil
}

// mergeChanges folds next into prev so that each tension appears once with
// its net transition. Transitions that cancel out are dropped.
func mergeChanges(prev, next []tension.StageChange) []tension.StageChange {
	if len(next) == 0 {
		return prev
	}
	out := append([]tension.StageChange(nil), prev...)
	for _, c := range next {
		i := indexOfChange(out, c.TypeKey)
		if i < 0 {
			out = append(out, c)
			continue
		}
		merged := tension.StageChange{
			TypeKey:  c.TypeKey,
			Previous: out[i].Previous,
			Current:  c.Current,
		}
		merged.IsCreation = merged.Previous == tension.Absent
		merged.IsResolution = merged.Current == tension.Absent
		out[i] = merged
	}
	return compactChanges(out)
}

func indexOfChange(list []tension.StageChange, key string) int {
	for i, c := range list {
		if c.TypeKey == key {
			return i
		}
	}
	return -1
}

func compactChanges(list []tension.StageChange) []tension.StageChange {
	out := list[:0]
	for _, c := range list {
		if c.Previous != c.Current {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
