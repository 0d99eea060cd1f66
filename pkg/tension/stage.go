package tension

import (
	"fmt"
	"math"
	"strings"
)

// Stage is a discretized severity band. Absent sorts below every active stage.
type Stage int

const (
	Absent Stage = iota
	Building
	Escalating
	Critical
)

func (s Stage) String() string {
	switch s {
	case Absent:
		return "Absent"
	case Building:
		return "Building"
	case Escalating:
		return "Escalating"
	case Critical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// ParseStage parses a stage name case-insensitively.
func ParseStage(s string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "absent", "":
		return Absent, nil
	case "building":
		return Building, nil
	case "escalating":
		return Escalating, nil
	case "critical":
		return Critical, nil
	default:
		return Absent, fmt.Errorf("unknown tension stage %q", s)
	}
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	parsed, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Thresholds are the severity cut points at which a tension enters the
// Escalating and Critical stages. Anything below Escalating is Building.
type Thresholds struct {
	Escalating float64 `json:"escalating" yaml:"escalating"`
	Critical   float64 `json:"critical" yaml:"critical"`
}

// DefaultThresholds applies to tension types without their own entry.
var DefaultThresholds = Thresholds{Escalating: 0.4, Critical: 0.7}

// Validate reports cut points that would break the monotonic mapping.
func (t Thresholds) Validate() error {
	if t.Escalating <= 0 || t.Escalating > 1 {
		return fmt.Errorf("escalating threshold %v out of range (0,1]", t.Escalating)
	}
	if t.Critical <= 0 || t.Critical > 1 {
		return fmt.Errorf("critical threshold %v out of range (0,1]", t.Critical)
	}
	if t.Escalating > t.Critical {
		return fmt.Errorf("escalating threshold %v above critical threshold %v", t.Escalating, t.Critical)
	}
	return nil
}

// StageFor maps a severity to a stage. Severity is clamped first.
func (t Thresholds) StageFor(severity float64) Stage {
	severity = Clamp(severity)
	switch {
	case severity >= t.Critical:
		return Critical
	case severity >= t.Escalating:
		return Escalating
	default:
		return Building
	}
}

// Table holds per-type thresholds.
type Table map[string]Thresholds

// For returns the thresholds for typeKey, falling back to DefaultThresholds.
func (t Table) For(typeKey string) Thresholds {
	if th, ok := t[typeKey]; ok {
		return th
	}
	return DefaultThresholds
}

// StageOf is the pure stage function for an active tension.
func (t Table) StageOf(typeKey string, severity float64) Stage {
	return t.For(typeKey).StageFor(severity)
}

// Validate checks every entry in the table.
func (t Table) Validate() error {
	for key, th := range t {
		if err := th.Validate(); err != nil {
			return fmt.Errorf("tension %s: %w", key, err)
		}
	}
	return nil
}

// Clamp bounds a severity to [0,1]. NaN becomes 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
