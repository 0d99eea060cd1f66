// Package engine runs one simulation step at a time: intentional triggers
// first, then the probabilistic selector, then resolution of the player's
// choice and any chained follow-ups.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwebster45206/wilds-engine/pkg/conditionals"
	"github.com/jwebster45206/wilds-engine/pkg/events"
	"github.com/jwebster45206/wilds-engine/pkg/narrate"
	"github.com/jwebster45206/wilds-engine/pkg/outcome"
	"github.com/jwebster45206/wilds-engine/pkg/situations"
	"github.com/jwebster45206/wilds-engine/pkg/state"
	"github.com/jwebster45206/wilds-engine/pkg/tension"
	"github.com/jwebster45206/wilds-engine/pkg/triggers"
)

// DefaultMaxChainDepth bounds how many chained events one resolution may
// lead to.
const DefaultMaxChainDepth = 5

const tracerName = "github.com/jwebster45206/wilds-engine/pkg/engine"

var (
	ErrNoEncounter       = errors.New("no encounter awaiting a choice")
	ErrChoiceUnavailable = errors.New("choice unavailable")
	ErrUnknownEvent      = errors.New("encounter references an unknown event")
)

// Encounter sources.
const (
	SourceRandom = "random"
	SourceChain  = "chain"
)

// Encounter is an event offered to the player.
type Encounter struct {
	Event   *events.Template  `json:"-"`
	EventID string            `json:"event_id"`
	Source  string            `json:"source"` // random, chain, or a trigger source
	Trigger *triggers.Trigger `json:"trigger,omitempty"`
	Choices []int             `json:"choices"` // indexes of choices that may be picked
	Depth   int               `json:"depth,omitempty"`
	Tick    int64             `json:"tick"`
	Title   string            `json:"title,omitempty"`
	Text    string            `json:"text,omitempty"`
}

// Resolution is the result of picking a choice.
type Resolution struct {
	EventID     string           `json:"event_id"`
	ChoiceIndex int              `json:"choice_index"`
	Choice      string           `json:"choice"`
	Outcome     *outcome.Outcome `json:"outcome"`
	Text        string           `json:"text,omitempty"`
	Next        *Encounter       `json:"next,omitempty"`
}

// Recorder receives every encounter and resolution, e.g. for a journal.
type Recorder interface {
	RecordEncounter(ctx context.Context, sessionID uuid.UUID, enc *Encounter) error
	RecordResolution(ctx context.Context, sessionID uuid.UUID, tick int64, res *Resolution) error
}

// Config wires an Engine.
type Config struct {
	Catalog       *events.Catalog
	Conditions    *conditionals.Registry
	Situations    *situations.Calculator
	Tensions      tension.Table
	Handlers      *triggers.Handlers
	Thresholds    *triggers.ThresholdFactory
	Weather       *triggers.WeatherFactory
	Collaborators outcome.Collaborators
	Recorder      Recorder
	Logger        *slog.Logger
	MaxChainDepth int
}

// Engine is stateless between calls; all mutable state lives in Session.
type Engine struct {
	catalog       *events.Catalog
	selector      *events.Selector
	resolver      *outcome.Resolver
	dispatcher    *triggers.Dispatcher
	table         tension.Table
	recorder      Recorder
	tracer        trace.Tracer
	logger        *slog.Logger
	maxChainDepth int
}

// New builds an engine from cfg.
func New(cfg Config) (*Engine, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("engine: catalog is required")
	}
	if cfg.Conditions == nil {
		return nil, fmt.Errorf("engine: condition registry is required")
	}
	if err := cfg.Tensions.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	depth := cfg.MaxChainDepth
	if depth <= 0 {
		depth = DefaultMaxChainDepth
	}

	return &Engine{
		catalog:       cfg.Catalog,
		selector:      events.NewSelector(cfg.Catalog, cfg.Conditions, cfg.Situations, logger),
		resolver:      outcome.NewResolver(cfg.Catalog, cfg.Collaborators, logger),
		dispatcher:    triggers.NewDispatcher(cfg.Handlers, cfg.Thresholds, cfg.Weather, logger),
		table:         cfg.Tensions,
		recorder:      cfg.Recorder,
		tracer:        otel.Tracer(tracerName),
		logger:        logger,
		maxChainDepth: depth,
	}, nil
}

// NewSession starts a session using the engine's tension thresholds.
func (e *Engine) NewSession(seed int64) *Session {
	s := NewSession(seed, e.table)
	s.Tensions.SetLogger(e.logger)
	return s
}

// Selector exposes the engine's selector.
func (e *Engine) Selector() *events.Selector {
	return e.selector
}

// Step picks at most one event for snap. Stage changes from earlier
// resolutions reach the trigger factories first; only when no intentional
// trigger fires does the probabilistic selector run. Step returns nil, nil
// when nothing happens. An encounter still awaiting a choice is returned
// again unchanged; no triggers are collected and nothing is drawn until it
// is resolved. snap.Tensions is pointed at the session registry.
func (e *Engine) Step(ctx context.Context, sess *Session, snap *state.Snapshot) (*Encounter, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Step", trace.WithAttributes(
		attribute.String("session.id", sess.ID.String()),
		attribute.Int64("tick", snap.Tick),
	))
	defer span.End()

	e.attach(sess, snap)
	if sess.Encounter != nil {
		span.SetAttributes(
			attribute.Bool("fired", false),
			attribute.String("event.pending", sess.Encounter.EventID))
		return sess.Encounter, nil
	}
	logger := e.logger.With("session_id", sess.ID.String(), "tick", snap.Tick)

	changes := mergeChanges(sess.Pending, sess.Tensions.Flush())
	sess.Pending = nil

	enc := e.intentional(sess, snap, changes, logger)
	if enc == nil {
		if t, ok := e.selector.Select(snap, sess.Cooldowns, sess.Rand()); ok {
			enc = e.encounter(t, snap, SourceRandom, nil, 0)
		}
	}
	if enc == nil {
		span.SetAttributes(attribute.Bool("fired", false))
		return nil, nil
	}

	e.render(enc, sess, snap)
	sess.Encounter = enc
	span.SetAttributes(
		attribute.Bool("fired", true),
		attribute.String("event.id", enc.EventID),
		attribute.String("event.source", enc.Source),
	)
	logger.Info("Event fired", "event_id", enc.EventID, "source", enc.Source)
	e.record(ctx, sess, func(r Recorder) error { return r.RecordEncounter(ctx, sess.ID, enc) })
	return enc, nil
}

// Resolve applies the player's choice for the session's current encounter.
// A chained follow-up, if any, becomes the new current encounter and is
// returned in Resolution.Next.
func (e *Engine) Resolve(ctx context.Context, sess *Session, snap *state.Snapshot, choice int) (*Resolution, error) {
	enc := sess.Encounter
	if enc == nil {
		return nil, ErrNoEncounter
	}

	ctx, span := e.tracer.Start(ctx, "engine.Resolve", trace.WithAttributes(
		attribute.String("session.id", sess.ID.String()),
		attribute.Int64("tick", snap.Tick),
		attribute.String("event.id", enc.EventID),
		attribute.Int("choice", choice),
	))
	defer span.End()

	e.attach(sess, snap)
	logger := e.logger.With("session_id", sess.ID.String(), "tick", snap.Tick)

	t := enc.Event
	if t == nil {
		var ok bool
		if t, ok = e.catalog.Get(enc.EventID); !ok {
			span.SetStatus(codes.Error, "unknown event")
			sess.Encounter = nil
			return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, enc.EventID)
		}
		enc.Event = t
	}
	if !e.selector.ChoiceAvailable(t, choice, snap) {
		span.SetStatus(codes.Error, "choice unavailable")
		return nil, fmt.Errorf("%w: %s choice %d", ErrChoiceUnavailable, enc.EventID, choice)
	}

	// Placeholders describe the world as the player saw it when choosing.
	vars := e.vars(enc, sess, snap)
	out, ok := e.resolver.Resolve(&t.Choices[choice], snap, sess.Tensions, sess.Rand())
	if !ok {
		span.SetStatus(codes.Error, "no result")
		return nil, fmt.Errorf("%w: %s choice %d has no results", ErrChoiceUnavailable, enc.EventID, choice)
	}
	sess.Pending = mergeChanges(sess.Pending, sess.Tensions.Flush())
	sess.Encounter = nil

	res := &Resolution{
		EventID:     enc.EventID,
		ChoiceIndex: choice,
		Choice:      t.Choices[choice].Label,
		Outcome:     out,
		Text:        narrate.Render(out.Text, vars),
	}

	if out.Chained != nil {
		if next := e.chain(out.Chained, enc, snap, logger); next != nil {
			sess.Cooldowns.Record(next.EventID, snap.Tick)
			e.render(next, sess, snap)
			sess.Encounter = next
			res.Next = next
		}
	}

	span.SetAttributes(attribute.Int("result", out.ResultIndex))
	logger.Info("Choice resolved",
		"event_id", enc.EventID,
		"choice", choice,
		"result", out.ResultIndex,
		"aborted", out.Aborted)
	e.record(ctx, sess, func(r Recorder) error { return r.RecordResolution(ctx, sess.ID, snap.Tick, res) })
	if res.Next != nil {
		e.record(ctx, sess, func(r Recorder) error { return r.RecordEncounter(ctx, sess.ID, res.Next) })
	}
	return res, nil
}

// intentional drains queued triggers until one names a usable event.
func (e *Engine) intentional(sess *Session, snap *state.Snapshot, changes []tension.StageChange, logger *slog.Logger) *Encounter {
	e.dispatcher.Collect(sess.Triggers, changes, snap)
	for {
		trig, ok := e.dispatcher.Pop(sess.Triggers)
		if !ok {
			return nil
		}
		t, ok := e.catalog.Get(trig.EventID)
		if !ok {
			continue
		}
		enc := e.encounter(t, snap, trig.Source.String(), &trig, 0)
		if len(enc.Choices) == 0 {
			logger.Warn("Intentional event has no available choice, skipping", "event_id", t.ID, "reason", trig.Reason)
			continue
		}
		sess.Cooldowns.Record(t.ID, snap.Tick)
		return enc
	}
}

// chain builds the follow-up encounter for a chained event, or nil when the
// chain is too deep or the event cannot be offered.
func (e *Engine) chain(t *events.Template, parent *Encounter, snap *state.Snapshot, logger *slog.Logger) *Encounter {
	depth := parent.Depth + 1
	if depth > e.maxChainDepth {
		logger.Warn("Chain depth exceeded, dropping chained event",
			"event_id", t.ID,
			"parent", parent.EventID,
			"max_depth", e.maxChainDepth)
		return nil
	}
	enc := e.encounter(t, snap, SourceChain, parent.Trigger, depth)
	if len(enc.Choices) == 0 {
		logger.Warn("Chained event has no available choice, dropping", "event_id", t.ID)
		return nil
	}
	return enc
}

func (e *Engine) encounter(t *events.Template, snap *state.Snapshot, source string, trig *triggers.Trigger, depth int) *Encounter {
	return &Encounter{
		Event:   t,
		EventID: t.ID,
		Source:  source,
		Trigger: trig,
		Choices: e.selector.AvailableChoices(t, snap),
		Depth:   depth,
		Tick:    snap.Tick,
	}
}

func (e *Engine) render(enc *Encounter, sess *Session, snap *state.Snapshot) {
	vars := e.vars(enc, sess, snap)
	enc.Title = narrate.Render(enc.Event.Title, vars)
	enc.Text = narrate.Render(enc.Event.Text, vars)
}

// vars picks the tension an encounter is about: the one behind its trigger,
// otherwise the most severe active tension.
func (e *Engine) vars(enc *Encounter, sess *Session, snap *state.Snapshot) narrate.Vars {
	var focus *tension.Tension
	if enc.Trigger != nil && enc.Trigger.Tension != nil {
		if t, ok := sess.Tensions.Get(enc.Trigger.Tension.TypeKey); ok {
			focus = &t
		} else {
			focus = &tension.Tension{TypeKey: enc.Trigger.Tension.TypeKey}
		}
	} else {
		for _, t := range sess.Tensions.Active() {
			if focus == nil || t.Severity > focus.Severity {
				focus = &t
			}
		}
	}
	return narrate.VarsFor(snap, focus)
}

func (e *Engine) attach(sess *Session, snap *state.Snapshot) {
	sess.Tensions.SetTable(e.table)
	sess.Tensions.SetLogger(e.logger)
	if sess.Triggers == nil {
		sess.Triggers = triggers.NewState()
	}
	snap.Tensions = sess.Tensions
}

func (e *Engine) record(ctx context.Context, sess *Session, fn func(Recorder) error) {
	if e.recorder == nil {
		return
	}
	if err := fn(e.recorder); err != nil {
		e.logger.ErrorContext(ctx, "Failed to record to journal", "session_id", sess.ID.String(), "error", err)
	}
}
