package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/wilds-engine/internal/config"
	"github.com/jwebster45206/wilds-engine/internal/journal"
	"github.com/jwebster45206/wilds-engine/internal/logger"
	"github.com/jwebster45206/wilds-engine/internal/sim"
	"github.com/jwebster45206/wilds-engine/internal/storage"
	"github.com/jwebster45206/wilds-engine/internal/survivor"
	"github.com/jwebster45206/wilds-engine/internal/telemetry"
	"github.com/jwebster45206/wilds-engine/pkg/content"
	"github.com/jwebster45206/wilds-engine/pkg/engine"
	"github.com/jwebster45206/wilds-engine/pkg/state"
)

const wrapWidth = 78

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

func main() {
	resume := flag.String("resume", "", "session id to resume from storage")
	ticks := flag.Int("ticks", 0, "ticks to run (overrides TICKS)")
	quiet := flag.Bool("quiet", false, "print only the summary")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if *ticks > 0 {
		cfg.Ticks = *ticks
	}
	log := logger.Setup(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *resume, *quiet, os.Stdout); err != nil {
		log.Error("Simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, resume string, quiet bool, out io.Writer) error {
	shutdown, err := telemetry.Setup(ctx, cfg.OTLPURL, cfg.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down telemetry", "error", err)
		}
	}()

	bundle, err := content.Default(log)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}
	if cfg.EventsDir != "" {
		if err := bundle.Extend(os.DirFS(cfg.EventsDir), "."); err != nil {
			return fmt.Errorf("load events from %s: %w", cfg.EventsDir, err)
		}
		log.Info("Loaded extra events", "dir", cfg.EventsDir, "catalog_size", bundle.Catalog.Len())
	}
	for _, p := range bundle.Lint() {
		log.Warn("Content problem", "problem", p.String())
	}

	opts := sim.Options{
		Bundle:      bundle,
		Seed:        cfg.Seed,
		TickMinutes: cfg.TickMinutes,
		Logger:      log,
	}

	if cfg.RedisURL != "" {
		store, err := storage.NewRedisStore(cfg.RedisURL, cfg.SessionTTL, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error("Error closing storage", "error", err)
			}
		}()
		if err := store.WaitForConnection(ctx, 10, time.Second); err != nil {
			return err
		}
		opts.Saver = store

		if resume != "" {
			id, err := uuid.Parse(resume)
			if err != nil {
				return fmt.Errorf("invalid session id %q: %w", resume, err)
			}
			sess, err := store.LoadSession(ctx, id)
			if err != nil {
				return err
			}
			opts.Session = sess
			log.Info("Resuming session", "session_id", id.String(), "tensions", sess.Tensions.Len())
		}
	} else if resume != "" {
		return errors.New("resuming requires REDIS_URL")
	}

	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := j.Close(); err != nil {
				log.Error("Error closing journal", "error", err)
			}
		}()
		opts.Recorder = j
	}

	surv, err := survivor.New(survivor.DefaultSpec(), survivor.DefaultRewards(), log)
	if err != nil {
		return err
	}
	opts.Survivor = surv

	runner, err := sim.New(opts)
	if err != nil {
		return err
	}
	log.Info("Starting simulation",
		"session_id", runner.Session().ID.String(),
		"seed", runner.Session().Seed,
		"ticks", cfg.Ticks,
		"catalog_size", bundle.Catalog.Len())

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("WILDS  session %s  seed %d", runner.Session().ID, runner.Session().Seed)))

	var visit func(*engine.Encounter, *engine.Resolution)
	if !quiet {
		visit = func(enc *engine.Encounter, res *engine.Resolution) {
			printEncounter(out, runner, enc, res)
		}
	}
	playErr := runner.Play(ctx, cfg.Ticks, visit)

	if err := runner.Save(context.WithoutCancel(ctx)); err != nil {
		log.Error("Failed to save session", "error", err)
	}
	printSummary(out, runner)
	if errors.Is(playErr, context.Canceled) {
		return nil
	}
	return playErr
}

func printEncounter(out io.Writer, r *sim.Runner, enc *engine.Encounter, res *engine.Resolution) {
	w := r.World()
	clock := fmt.Sprintf("day %d %02d:%02d", w.Day(), w.MinuteOfDay()/60, w.MinuteOfDay()%60)
	title := enc.Title
	if title == "" {
		title = enc.EventID
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("[%s  %s  %s]", clock, w.Phase(), enc.Source)))
	fmt.Fprintln(out, titleStyle.Render(title))
	if enc.Text != "" {
		fmt.Fprintln(out, wordwrap.String(enc.Text, wrapWidth))
	}
	fmt.Fprintln(out, choiceStyle.Render("> "+res.Choice))
	if res.Text != "" {
		fmt.Fprintln(out, resultStyle.Render(wordwrap.String(res.Text, wrapWidth)))
	}
}

func printSummary(out io.Writer, r *sim.Runner) {
	s := r.Survivor()
	snap := r.Snapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "After %d ticks (day %d): %s\n", r.World().Tick(), r.World().Day(), status(s))
	fmt.Fprintf(&b, "  health %.0f%%  energy %.0f  calories %.0f  hydration %.0f  warmth %.0f\n",
		s.Health()*100, snap.Stats.Energy, snap.Stats.Calories, snap.Stats.Hydration, snap.Stats.Warmth)
	fmt.Fprintf(&b, "  weather %s %.1fC\n", snap.Weather.Condition, snap.Weather.TemperatureC)
	for _, t := range r.Session().Tensions.Active() {
		fmt.Fprintf(&b, "  tension %s %.2f (%s)\n", t.TypeKey, t.Severity, t.Stage)
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, headerStyle.Render("SUMMARY")+"\n"+b.String())
}

func status(s *survivor.Survivor) string {
	if !s.Alive() {
		return "dead"
	}
	if s.Activity() == state.ActivitySleeping {
		return "asleep"
	}
	return "alive"
}
