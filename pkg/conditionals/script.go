package conditionals

import (
	"fmt"
	"sync"

	lua "github.com/Shopify/go-lua"

	"github.com/jwebster45206/wilds-engine/pkg/state"
)

// CompileScript turns a Lua chunk into a predicate. The chunk sees a global
// `snapshot` table and the helper functions has(item), tag(name),
// feature(name), severity(tension) and stage(tension); it must return a
// boolean. Syntax errors are reported here; runtime errors and non-boolean
// results evaluate to false.
func CompileScript(id ID, src string) (Func, error) {
	l := lua.NewState()
	lua.OpenLibraries(l)
	if err := lua.LoadString(l, src); err != nil {
		return nil, fmt.Errorf("condition %s: compile lua: %w", id, err)
	}
	l.Pop(1)

	s := &script{id: id, src: src, l: l}
	return s.eval, nil
}

type script struct {
	id  ID
	src string

	mu sync.Mutex
	l  *lua.State
}

func (s *script) eval(snap *state.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.l
	l.SetTop(0)
	pushSnapshot(l, snap)
	l.SetGlobal("snapshot")
	registerHelpers(l, snap)

	if err := lua.LoadString(l, s.src); err != nil {
		return false
	}
	if err := l.ProtectedCall(0, 1, 0); err != nil {
		l.SetTop(0)
		return false
	}
	defer l.SetTop(0)

	if l.TypeOf(-1) != lua.TypeBoolean {
		return false
	}
	return l.ToBoolean(-1)
}

func pushSnapshot(l *lua.State, snap *state.Snapshot) {
	l.NewTable()

	l.PushInteger(int(snap.Tick))
	l.SetField(-2, "tick")
	l.PushInteger(snap.Minute)
	l.SetField(-2, "minute")
	l.PushString(string(snap.Activity))
	l.SetField(-2, "activity")
	l.PushString(snap.Location.Name)
	l.SetField(-2, "location")
	l.PushBoolean(snap.OnExpedition)
	l.SetField(-2, "on_expedition")
	l.PushBoolean(snap.AtCamp)
	l.SetField(-2, "at_camp")
	l.PushBoolean(snap.IsNight())
	l.SetField(-2, "night")

	l.NewTable()
	l.PushString(string(snap.Weather.Condition))
	l.SetField(-2, "condition")
	l.PushNumber(snap.Weather.TemperatureC)
	l.SetField(-2, "temperature")
	l.PushNumber(snap.Weather.WindKph)
	l.SetField(-2, "wind")
	l.PushNumber(snap.Weather.Precipitation)
	l.SetField(-2, "precipitation")
	l.SetField(-2, "weather")

	l.NewTable()
	l.PushNumber(snap.Stats.Energy)
	l.SetField(-2, "energy")
	l.PushNumber(snap.Stats.Calories)
	l.SetField(-2, "calories")
	l.PushNumber(snap.Stats.Hydration)
	l.SetField(-2, "hydration")
	l.PushNumber(snap.Stats.Warmth)
	l.SetField(-2, "warmth")
	l.SetField(-2, "stats")

	l.NewTable()
	l.PushNumber(snap.Body.Health)
	l.SetField(-2, "health")
	l.PushBoolean(snap.Body.Bleeding)
	l.SetField(-2, "bleeding")
	l.PushInteger(len(snap.Body.Injuries))
	l.SetField(-2, "injuries")
	l.SetField(-2, "body")
}

func registerHelpers(l *lua.State, snap *state.Snapshot) {
	l.Register("has", func(l *lua.State) int {
		l.PushBoolean(snap.Has(lua.CheckString(l, 1)))
		return 1
	})
	l.Register("tag", func(l *lua.State) int {
		l.PushBoolean(snap.HasTag(lua.CheckString(l, 1)))
		return 1
	})
	l.Register("feature", func(l *lua.State) int {
		l.PushBoolean(snap.HasFeature(lua.CheckString(l, 1)))
		return 1
	})
	l.Register("severity", func(l *lua.State) int {
		l.PushNumber(snap.TensionSeverity(lua.CheckString(l, 1)))
		return 1
	})
	l.Register("stage", func(l *lua.State) int {
		l.PushString(snap.TensionStage(lua.CheckString(l, 1)).String())
		return 1
	})
}
