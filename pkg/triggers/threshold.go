package triggers

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/wilds-engine/pkg/state"
)

// StatStage is a discretized survival stat.
type StatStage int

const (
	StatHealthy StatStage = iota
	StatNormal
	StatSevere
	StatCritical
)

func (s StatStage) String() string {
	switch s {
	case StatHealthy:
		return "Healthy"
	case StatNormal:
		return "Normal"
	case StatSevere:
		return "Severe"
	case StatCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

func (s StatStage) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

func (s *StatStage) UnmarshalText(b []byte) error {
	for _, st := range []StatStage{StatHealthy, StatNormal, StatSevere, StatCritical} {
		if strings.EqualFold(string(b), st.String()) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown stat stage %q", string(b))
}

// Bands are the lower bounds, in percent, of the Healthy, Normal and
// Severe stages. Anything below Severe is Critical.
type Bands struct {
	Healthy float64 `yaml:"healthy" json:"healthy"`
	Normal  float64 `yaml:"normal" json:"normal"`
	Severe  float64 `yaml:"severe" json:"severe"`
}

// DefaultBands: Healthy >= 75, Normal >= 25, Severe >= 10, Critical < 10.
var DefaultBands = Bands{Healthy: 75, Normal: 25, Severe: 10}

// StageOf discretizes a stat percentage.
func (b Bands) StageOf(pct float64) StatStage {
	switch {
	case pct >= b.Healthy:
		return StatHealthy
	case pct >= b.Normal:
		return StatNormal
	case pct >= b.Severe:
		return StatSevere
	default:
		return StatCritical
	}
}

// StatEvents names the events fired when a stat worsens into Severe or
// Critical.
type StatEvents struct {
	Severe   string `yaml:"severe,omitempty" json:"severe,omitempty"`
	Critical string `yaml:"critical,omitempty" json:"critical,omitempty"`
}

func (e StatEvents) forStage(s StatStage) string {
	switch s {
	case StatSevere:
		return e.Severe
	case StatCritical:
		return e.Critical
	}
	return ""
}

// StatRule tracks one stat.
type StatRule struct {
	Stat   state.StatKey `yaml:"stat" json:"stat"`
	Events StatEvents    `yaml:"events" json:"events"`
}

// ThresholdState is the last observed stage per stat. It must persist
// across steps; a stat never seen before is treated as Healthy.
type ThresholdState map[state.StatKey]StatStage

// ThresholdFactory fires once when a stat worsens into Severe or Critical.
// Recovery never fires, and staying in a stage never fires again. Only the
// last observed stage is kept, so a stat that recovers out of a stage and
// then worsens back into it fires that stage's event again, as in
// Critical -> Severe -> Critical.
type ThresholdFactory struct {
	Bands Bands
	Rules []StatRule
}

// Check compares snap against st, updates st and returns any triggers in
// rule order.
func (f *ThresholdFactory) Check(st ThresholdState, snap *state.Snapshot) []Trigger {
	var out []Trigger
	for _, rule := range f.Rules {
		cur := f.Bands.StageOf(snap.StatPercent(rule.Stat))
		prev, seen := st[rule.Stat]
		if !seen {
			prev = StatHealthy
		}
		st[rule.Stat] = cur

		if cur <= prev || cur < StatSevere {
			continue
		}
		id := rule.Events.forStage(cur)
		if id == "" {
			continue
		}
		out = append(out, Trigger{
			EventID: id,
			Source:  SourceThreshold,
			Reason:  fmt.Sprintf("%s %s -> %s", rule.Stat, prev, cur),
			Stat:    rule.Stat,
		})
	}
	return out
}
