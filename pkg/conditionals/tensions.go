package conditionals

import (
	"github.com/jwebster45206/wilds-engine/pkg/state"
	"github.com/jwebster45206/wilds-engine/pkg/tension"
)

// Suffixes of the derived per-tension conditions.
const (
	SuffixActive     = "Active"
	SuffixBuilding   = "Building"
	SuffixEscalating = "Escalating"
	SuffixCritical   = "Critical"
	SuffixHigh       = "High"
)

// TensionCondition returns the derived condition id for a tension type, e.g.
// TensionCondition("Stalked", SuffixCritical) is "StalkedCritical".
func TensionCondition(typeKey, suffix string) ID {
	return ID(typeKey + suffix)
}

// RegisterTensionConditions derives stage conditions for each type key. The
// stage comes from the snapshot's tension view, which maps severity through
// the registry's per-type threshold table:
//
//	<Key>Active      any stage
//	<Key>Building    exactly Building
//	<Key>Escalating  exactly Escalating
//	<Key>Critical    exactly Critical
//	<Key>High        Escalating or Critical
func RegisterTensionConditions(r *Registry, typeKeys ...string) {
	for _, key := range typeKeys {
		r.MustRegister(TensionCondition(key, SuffixActive), func(s *state.Snapshot) bool {
			return s.HasTension(key)
		})
		r.MustRegister(TensionCondition(key, SuffixBuilding), stageIs(key, tension.Building))
		r.MustRegister(TensionCondition(key, SuffixEscalating), stageIs(key, tension.Escalating))
		r.MustRegister(TensionCondition(key, SuffixCritical), stageIs(key, tension.Critical))
		r.MustRegister(TensionCondition(key, SuffixHigh), func(s *state.Snapshot) bool {
			return s.TensionStage(key) >= tension.Escalating
		})
	}
}

func stageIs(key string, want tension.Stage) Func {
	return func(s *state.Snapshot) bool { return s.TensionStage(key) == want }
}
