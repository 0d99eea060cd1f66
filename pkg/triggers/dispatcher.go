package triggers

import (
	"log/slog"
	"slices"

	"github.com/jwebster45206/wilds-engine/pkg/state"
	"github.com/jwebster45206/wilds-engine/pkg/tension"
)

// State is the per-session memory of the trigger factories.
type State struct {
	Thresholds ThresholdState `json:"thresholds"`
	Weather    WeatherState   `json:"weather"`
	Deferred   []Trigger      `json:"deferred,omitempty"`
	Seq        int64          `json:"seq"`
}

// NewState returns an empty state.
func NewState() *State {
	return &State{Thresholds: make(ThresholdState)}
}

// Dispatcher runs the three factories each step and hands out at most one
// trigger, tension first, then threshold, then weather, oldest first within
// a source. Triggers that lose out wait in State.Deferred.
type Dispatcher struct {
	handlers   *Handlers
	thresholds *ThresholdFactory
	weather    *WeatherFactory
	logger     *slog.Logger
}

// NewDispatcher creates a dispatcher. Any factory may be nil.
func NewDispatcher(handlers *Handlers, thresholds *ThresholdFactory, weather *WeatherFactory, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		handlers:   handlers,
		thresholds: thresholds,
		weather:    weather,
		logger:     logger,
	}
}

// Collect runs every factory against snap and queues the results. changes
// are the stage changes flushed at the end of the previous step.
func (d *Dispatcher) Collect(st *State, changes []tension.StageChange, snap *state.Snapshot) {
	if st.Thresholds == nil {
		st.Thresholds = make(ThresholdState)
	}

	var fresh []Trigger
	if d.handlers != nil {
		fresh = append(fresh, d.handlers.Triggers(changes)...)
	}
	if d.thresholds != nil {
		fresh = append(fresh, d.thresholds.Check(st.Thresholds, snap)...)
	}
	if d.weather != nil {
		fresh = append(fresh, d.weather.Check(&st.Weather, snap)...)
	}

	for _, t := range fresh {
		st.Seq++
		t.Seq = st.Seq
		t.Tick = snap.Tick
		st.Deferred = append(st.Deferred, t)
		d.logger.Debug("Intentional trigger raised",
			"event_id", t.EventID,
			"source", t.Source.String(),
			"reason", t.Reason)
	}
	slices.SortStableFunc(st.Deferred, func(a, b Trigger) int {
		if a.Source != b.Source {
			return int(a.Source) - int(b.Source)
		}
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
}

// Pop removes and returns the highest priority queued trigger.
func (d *Dispatcher) Pop(st *State) (Trigger, bool) {
	if len(st.Deferred) == 0 {
		return Trigger{}, false
	}
	t := st.Deferred[0]
	st.Deferred = slices.Delete(st.Deferred, 0, 1)
	return t, true
}

// Next is Collect followed by Pop.
func (d *Dispatcher) Next(st *State, changes []tension.StageChange, snap *state.Snapshot) (Trigger, bool) {
	d.Collect(st, changes, snap)
	return d.Pop(st)
}
