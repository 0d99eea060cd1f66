package worldsim

import (
	"math/rand/v2"

	"github.com/jwebster45206/wilds-engine/internal/survivor"
	"github.com/jwebster45206/wilds-engine/pkg/engine"
	"github.com/jwebster45206/wilds-engine/pkg/state"
	"github.com/jwebster45206/wilds-engine/pkg/weighted"
)

// Camp is the survivor's home base.
var Camp = state.Location{Name: "Camp", Tags: []string{"camp", "forest"}, Features: []string{"shelter", "fire"}}

// DefaultSites are the expedition destinations.
var DefaultSites = []Site{
	{Location: state.Location{Name: "Pine Ridge", Tags: []string{"forest"}}, Work: state.ActivityForaging},
	{Location: state.Location{Name: "Frozen Creek", Tags: []string{"river", "forest"}}, Work: state.ActivityForaging},
	{Location: state.Location{Name: "Open Tundra", Tags: []string{"tundra", "open"}}, Work: state.ActivityHunting},
	{Location: state.Location{Name: "Rock Hollow", Tags: []string{"rock"}, Features: []string{"cave"}}, Work: state.ActivityHunting},
}

// Site is a destination and what the survivor does there.
type Site struct {
	Location state.Location
	Work     state.Activity
}

// Phase is where the survivor is in the day plan.
type Phase int

const (
	PhaseCamp Phase = iota
	PhaseOutbound
	PhaseWorking
	PhaseReturn
)

func (p Phase) String() string {
	switch p {
	case PhaseOutbound:
		return "outbound"
	case PhaseWorking:
		return "working"
	case PhaseReturn:
		return "return"
	default:
		return "camp"
	}
}

// Plan lengths in minutes.
const (
	travelMinutes = 90
	workMinutes   = 180
	restMinutes   = 30
)

// World advances time and keeps the day plan.
type World struct {
	Climate     *Climate
	Sites       []Site
	TickMinutes int

	tick      int64
	minute    int64 // since the start of the run, which begins at 06:00
	phase     Phase
	phaseLeft int
	site      int
	rng       *rand.Rand
}

// New creates a world. Its randomness is independent of the engine's.
func New(seed int64, tickMinutes int) *World {
	return &World{
		Climate:     NewClimate(seed),
		Sites:       DefaultSites,
		TickMinutes: tickMinutes,
		minute:      6 * 60,
		rng:         weighted.NewRand(seed ^ 0x5eed),
	}
}

// Clock returns the current tick and minutes since the start of the run.
func (w *World) Clock() engine.Clock {
	return engine.Clock{Tick: w.tick, Minute: w.minute}
}

// Restore moves the clock to c, which must come from an earlier Clock
// call. The day plan restarts at camp.
func (w *World) Restore(c engine.Clock) {
	if c.Tick <= 0 {
		return
	}
	w.tick = c.Tick
	w.minute = max(c.Minute, 6*60)
	w.phase, w.phaseLeft = PhaseCamp, 0
}

// Tick returns the number of ticks advanced so far.
func (w *World) Tick() int64 { return w.tick }

// Phase returns the current plan phase.
func (w *World) Phase() Phase { return w.phase }

// MinuteOfDay returns the clock time in minutes past midnight.
func (w *World) MinuteOfDay() int {
	return int(w.minute % (24 * 60))
}

// Day returns the day number, starting at 1.
func (w *World) Day() int {
	return int(w.minute/(24*60)) + 1
}

// Advance moves the world forward one tick plus extra minutes spent
// resolving events, updates the survivor and returns the new snapshot.
func (w *World) Advance(s *survivor.Survivor, extraMinutes int) *state.Snapshot {
	minutes := w.TickMinutes + max(0, extraMinutes)
	w.tick++
	w.minute += int64(minutes)

	w.plan(s, minutes)
	weather := w.Climate.At(w.minute)
	w.drain(s, weather, minutes)
	s.Pass(minutes)

	return w.Snapshot(s)
}

// Snapshot projects the current world and survivor.
func (w *World) Snapshot(s *survivor.Survivor) *state.Snapshot {
	snap := &state.Snapshot{
		Tick:         w.tick,
		Minute:       w.MinuteOfDay(),
		Location:     w.location(),
		Weather:      w.Climate.At(w.minute),
		OnExpedition: w.phase != PhaseCamp,
		AtCamp:       w.phase == PhaseCamp,
	}
	s.Project(snap)
	return snap
}

func (w *World) location() state.Location {
	if w.phase == PhaseCamp || len(w.Sites) == 0 {
		return Camp
	}
	return w.Sites[w.site].Location
}

func (w *World) plan(s *survivor.Survivor, minutes int) {
	// An aborted activity cuts the expedition short.
	if s.Activity() == state.ActivityResting && (w.phase == PhaseOutbound || w.phase == PhaseWorking) {
		w.phase, w.phaseLeft = PhaseReturn, travelMinutes+restMinutes
		return
	}

	w.phaseLeft -= minutes
	if w.phaseLeft > 0 {
		return
	}

	night := w.MinuteOfDay() >= 20*60 || w.MinuteOfDay() < 6*60
	switch w.phase {
	case PhaseCamp:
		if night || s.Stats().Energy < 30 || len(w.Sites) == 0 {
			if night {
				s.SetActivity(state.ActivitySleeping)
			} else {
				s.SetActivity(state.ActivityResting)
			}
			w.phaseLeft = 0
			return
		}
		w.site = w.rng.IntN(len(w.Sites))
		w.phase, w.phaseLeft = PhaseOutbound, travelMinutes
		s.SetActivity(state.ActivityTraveling)
	case PhaseOutbound:
		w.phase, w.phaseLeft = PhaseWorking, workMinutes
		s.SetActivity(w.Sites[w.site].Work)
	case PhaseWorking:
		w.phase, w.phaseLeft = PhaseReturn, travelMinutes
		s.SetActivity(state.ActivityTraveling)
	case PhaseReturn:
		w.phase, w.phaseLeft = PhaseCamp, 0
		s.SetActivity(state.ActivityCamp)
	}
}

// Hourly stat rates by activity.
var energyPerHour = map[state.Activity]float64{
	state.ActivityCamp:      2,
	state.ActivitySleeping:  10,
	state.ActivityResting:   5,
	state.ActivityTraveling: -6,
	state.ActivityForaging:  -4,
	state.ActivityHunting:   -7,
	state.ActivityCrafting:  -2,
}

const (
	caloriesPerHour  = -3.0
	hydrationPerHour = -4.0
	warmthPull       = 0.2 // share of the gap to target warmth closed per hour
)

func (w *World) drain(s *survivor.Survivor, weather state.Weather, minutes int) {
	hours := float64(minutes) / 60
	s.Adjust(state.StatEnergy, energyPerHour[s.Activity()]*hours)
	s.Adjust(state.StatCalories, caloriesPerHour*hours)
	s.Adjust(state.StatHydration, hydrationPerHour*hours)

	target := 60 + weather.TemperatureC*2 - weather.WindKph/4
	if w.phase == PhaseCamp {
		target += 35 // shelter and fire
	}
	gap := min(100, target) - s.Stats().Warmth
	s.Adjust(state.StatWarmth, gap*min(1, warmthPull*hours))

	if w.phase == PhaseCamp {
		w.tendCamp(s)
	}
}

// tendCamp eats and drinks from stores when the survivor is back at camp.
func (w *World) tendCamp(s *survivor.Survivor) {
	stats := s.Stats()
	if stats.Calories < 50 {
		for _, food := range []string{"meat", "berries"} {
			if s.Quantity(food) >= 1 {
				s.ConsumeResource(food, 1)
				s.Adjust(state.StatCalories, 25)
				break
			}
		}
	}
	if stats.Hydration < 50 && s.Quantity("water") >= 1 {
		s.ConsumeResource("water", 1)
		s.Adjust(state.StatHydration, 30)
	}
	s.Treat()
}
