// Package sim drives a survivor through the world one tick at a time,
// handing each snapshot to the engine and feeding resolved outcomes back.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/wilds-engine/internal/survivor"
	"github.com/jwebster45206/wilds-engine/internal/worldsim"
	"github.com/jwebster45206/wilds-engine/pkg/content"
	"github.com/jwebster45206/wilds-engine/pkg/engine"
	"github.com/jwebster45206/wilds-engine/pkg/state"
)

// ErrSurvivorDead is returned by Tick once the survivor has died.
var ErrSurvivorDead = errors.New("survivor is dead")

// Saver persists a session. storage.Store satisfies it.
type Saver interface {
	SaveSession(ctx context.Context, sess *engine.Session) error
}

// Options configures a Runner. Session is optional; a new one is started
// from Seed when it is nil.
type Options struct {
	Bundle      *content.Bundle
	Survivor    *survivor.Survivor
	Session     *engine.Session
	Seed        int64
	TickMinutes int
	Recorder    engine.Recorder
	Saver       Saver
	Logger      *slog.Logger
}

// Runner owns one playthrough.
type Runner struct {
	engine   *engine.Engine
	bundle   *content.Bundle
	world    *worldsim.World
	survivor *survivor.Survivor
	session  *engine.Session
	saver    Saver
	logger   *slog.Logger

	snap      *state.Snapshot
	spentTime int // minutes spent on choices since the last tick
}

// New wires an engine to the survivor and world.
func New(opts Options) (*Runner, error) {
	if opts.Bundle == nil {
		return nil, fmt.Errorf("sim: content bundle is required")
	}
	if opts.Survivor == nil {
		return nil, fmt.Errorf("sim: survivor is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tickMinutes := opts.TickMinutes
	if tickMinutes <= 0 {
		tickMinutes = 15
	}

	eng, err := engine.New(opts.Bundle.EngineConfig(opts.Survivor.Collaborators(), opts.Recorder, logger))
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	sess := opts.Session
	if sess == nil {
		sess = eng.NewSession(opts.Seed)
	}
	world := worldsim.New(sess.Seed, tickMinutes)
	world.Restore(sess.Clock)

	return &Runner{
		engine:   eng,
		bundle:   opts.Bundle,
		world:    world,
		survivor: opts.Survivor,
		session:  sess,
		saver:    opts.Saver,
		logger:   logger.With("session_id", sess.ID.String()),
		snap:     world.Snapshot(opts.Survivor),
	}, nil
}

func (r *Runner) Session() *engine.Session { return r.session }
func (r *Runner) Survivor() *survivor.Survivor { return r.survivor }
func (r *Runner) World() *worldsim.World { return r.world }
func (r *Runner) Snapshot() *state.Snapshot { return r.snap }
func (r *Runner) Pending() *engine.Encounter { return r.session.Encounter }
func (r *Runner) Engine() *engine.Engine { return r.engine }

// Tick decays tensions, advances the world by one tick plus any time spent
// on choices, and asks the engine for an event. It returns nil when the
// tick passes quietly, and the open encounter without advancing when one is
// still waiting for a choice.
func (r *Runner) Tick(ctx context.Context) (*engine.Encounter, error) {
	if !r.survivor.Alive() {
		return nil, ErrSurvivorDead
	}
	// Time stands still while a choice is waiting.
	if enc := r.session.Encounter; enc != nil {
		return enc, nil
	}
	r.session.Tensions.Decay(0, r.bundle.DecayRates)
	r.snap = r.world.Advance(r.survivor, r.spentTime)
	r.spentTime = 0
	r.session.Clock = r.world.Clock()

	enc, err := r.engine.Step(ctx, r.session, r.snap)
	if err != nil {
		return nil, fmt.Errorf("step tick %d: %w", r.snap.Tick, err)
	}
	return enc, nil
}

// Choose resolves the pending encounter. The snapshot is refreshed from
// the survivor afterwards so a chained encounter sees the new state.
func (r *Runner) Choose(ctx context.Context, choice int) (*engine.Resolution, error) {
	res, err := r.engine.Resolve(ctx, r.session, r.snap, choice)
	if err != nil {
		return nil, err
	}
	r.spentTime += res.Outcome.TimeCostMinutes
	r.survivor.Project(r.snap)
	return res, nil
}

// AutoChoose picks one of enc's available choices with the session's
// random source.
func (r *Runner) AutoChoose(enc *engine.Encounter) int {
	if len(enc.Choices) == 0 {
		return -1
	}
	return enc.Choices[r.session.Rand().IntN(len(enc.Choices))]
}

// Play runs ticks until n have passed or the survivor dies, resolving
// every encounter with AutoChoose. visit, when set, sees each resolution.
func (r *Runner) Play(ctx context.Context, n int, visit func(*engine.Encounter, *engine.Resolution)) error {
	for range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		enc, err := r.Tick(ctx)
		if errors.Is(err, ErrSurvivorDead) {
			r.logger.Info("Survivor died", "tick", r.world.Tick())
			return nil
		}
		if err != nil {
			return err
		}
		for enc != nil {
			res, err := r.Choose(ctx, r.AutoChoose(enc))
			if err != nil {
				return err
			}
			if visit != nil {
				visit(enc, res)
			}
			enc = res.Next
		}
	}
	return nil
}

// Save persists the session when a saver is configured.
func (r *Runner) Save(ctx context.Context) error {
	if r.saver == nil {
		return nil
	}
	if err := r.saver.SaveSession(ctx, r.session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
