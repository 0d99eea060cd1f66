// Package triggers produces intentional events: guaranteed follow-ups to
// tension stage changes, survival stats worsening past a band, and weather
// transitions. Intentional triggers bypass the probabilistic selector and
// are checked before it every step.
package triggers

import (
	"fmt"

	"github.com/jwebster45206/wilds-engine/pkg/state"
	"github.com/jwebster45206/wilds-engine/pkg/tension"
)

// Source identifies which factory produced a trigger. Lower values win
// when several triggers compete for the same step.
type Source int

const (
	SourceTension Source = iota
	SourceThreshold
	SourceWeather
)

func (s Source) String() string {
	switch s {
	case SourceTension:
		return "tension"
	case SourceThreshold:
		return "threshold"
	case SourceWeather:
		return "weather"
	default:
		return "unknown"
	}
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(b []byte) error {
	switch string(b) {
	case "tension":
		*s = SourceTension
	case "threshold":
		*s = SourceThreshold
	case "weather":
		*s = SourceWeather
	default:
		return fmt.Errorf("unknown trigger source %q", string(b))
	}
	return nil
}

// Trigger is a pending intentional event.
type Trigger struct {
	EventID string               `json:"event_id"`
	Source  Source               `json:"source"`
	Reason  string               `json:"reason,omitempty"`
	Tension *tension.StageChange `json:"tension,omitempty"`
	Stat    state.StatKey        `json:"stat,omitempty"`
	Tick    int64                `json:"tick"` // step the trigger was raised
	Seq     int64                `json:"seq"`
}
