// Package content carries the built-in wilderness content: tension types,
// stat and weather triggers, condition definitions and the event pack. All
// of it is embedded YAML so authored content can be edited without touching
// Go code.
package content

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/wilds-engine/pkg/conditionals"
	"github.com/jwebster45206/wilds-engine/pkg/engine"
	"github.com/jwebster45206/wilds-engine/pkg/events"
	"github.com/jwebster45206/wilds-engine/pkg/outcome"
	"github.com/jwebster45206/wilds-engine/pkg/situations"
	"github.com/jwebster45206/wilds-engine/pkg/tension"
	"github.com/jwebster45206/wilds-engine/pkg/triggers"
)

//go:embed data
var data embed.FS

// TensionType is one tension type as authored.
type TensionType struct {
	Type       string              `yaml:"type"`
	Thresholds tension.Thresholds  `yaml:"thresholds"`
	Decay      float64             `yaml:"decay,omitempty"` // severity change per tick, normally negative
	Stages     triggers.StageTable `yaml:"stages,omitempty"`
}

type tensionFile struct {
	Tensions []TensionType `yaml:"tensions"`
}

type triggerFile struct {
	Bands   triggers.Bands      `yaml:"bands"`
	Stats   []triggers.StatRule `yaml:"stats"`
	Weather struct {
		Onset    string `yaml:"onset"`
		Fog      string `yaml:"fog"`
		Clearing string `yaml:"clearing"`
	} `yaml:"weather"`
}

// Bundle is everything an engine needs, wired together.
type Bundle struct {
	Conditions *conditionals.Registry
	Situations *situations.Calculator
	Catalog    *events.Catalog
	Tensions   tension.Table
	Handlers   *triggers.Handlers
	Thresholds *triggers.ThresholdFactory
	Weather    *triggers.WeatherFactory
	DecayRates map[string]float64
	Types      []TensionType
}

// Default loads the embedded content.
func Default(logger *slog.Logger) (*Bundle, error) {
	return Load(data, logger)
}

// Load builds a bundle from fsys, which must hold tensions.yaml,
// triggers.yaml and an events directory, all under data/.
func Load(fsys fs.FS, logger *slog.Logger) (*Bundle, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var tf tensionFile
	if err := decodeFile(fsys, "data/tensions.yaml", &tf); err != nil {
		return nil, err
	}
	var trf triggerFile
	if err := decodeFile(fsys, "data/triggers.yaml", &trf); err != nil {
		return nil, err
	}

	b := &Bundle{
		Conditions: conditionals.NewRegistry(logger),
		Catalog:    events.NewCatalog(logger),
		Tensions:   make(tension.Table, len(tf.Tensions)),
		Handlers:   triggers.NewHandlers(),
		Thresholds: &triggers.ThresholdFactory{Bands: trf.Bands, Rules: trf.Stats},
		Weather: &triggers.WeatherFactory{
			Rules: triggers.DefaultWeatherRules(trf.Weather.Onset, trf.Weather.Fog, trf.Weather.Clearing),
		},
		DecayRates: make(map[string]float64),
		Types:      tf.Tensions,
	}

	keys := make([]string, 0, len(tf.Tensions))
	for _, tt := range tf.Tensions {
		if _, dup := b.Tensions[tt.Type]; dup {
			return nil, fmt.Errorf("duplicate tension type %q", tt.Type)
		}
		b.Tensions[tt.Type] = tt.Thresholds
		if tt.Decay != 0 {
			b.DecayRates[tt.Type] = tt.Decay
		}
		if err := b.Handlers.Register(tt.Type, tt.Stages); err != nil {
			return nil, err
		}
		keys = append(keys, tt.Type)
	}
	if err := b.Tensions.Validate(); err != nil {
		return nil, err
	}

	conditionals.RegisterBuiltins(b.Conditions)
	conditionals.RegisterTensionConditions(b.Conditions, keys...)
	b.Situations = situations.NewCalculator(b.Conditions, logger)
	situations.RegisterBuiltins(b.Situations)

	if err := b.Extend(fsys, "data/events"); err != nil {
		return nil, err
	}
	return b, nil
}

// Extend installs every pack file in dir on top of the bundle's content.
func (b *Bundle) Extend(fsys fs.FS, dir string) error {
	pack, err := events.LoadDir(fsys, dir)
	if err != nil {
		return err
	}
	if err := pack.Install(b.Catalog, b.Conditions); err != nil {
		return fmt.Errorf("failed to install %s: %w", dir, err)
	}
	return nil
}

// TriggerEventIDs lists every event id a trigger can fire, sorted.
func (b *Bundle) TriggerEventIDs() []string {
	ids := make(map[string]struct{})
	for _, tt := range b.Types {
		for _, id := range tt.Stages.EventIDs() {
			ids[id] = struct{}{}
		}
	}
	for _, rule := range b.Thresholds.Rules {
		for _, id := range []string{rule.Events.Severe, rule.Events.Critical} {
			if id != "" {
				ids[id] = struct{}{}
			}
		}
	}
	for _, rule := range b.Weather.Rules {
		if rule.EventID != "" {
			ids[rule.EventID] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(ids))
}

// Lint reports dangling references in events and triggers.
func (b *Bundle) Lint() []events.Problem {
	problems := events.Lint(b.Catalog, b.Conditions, b.Situations)
	for _, id := range b.TriggerEventIDs() {
		if !b.Catalog.Has(id) {
			problems = append(problems, events.Problem{
				EventID:    id,
				Field:      "trigger",
				Ref:        id,
				Suggestion: b.Catalog.Suggest(id),
			})
		}
	}
	return problems
}

// EngineConfig returns an engine configuration over the bundle.
func (b *Bundle) EngineConfig(collab outcome.Collaborators, recorder engine.Recorder, logger *slog.Logger) engine.Config {
	return engine.Config{
		Catalog:       b.Catalog,
		Conditions:    b.Conditions,
		Situations:    b.Situations,
		Tensions:      b.Tensions,
		Handlers:      b.Handlers,
		Thresholds:    b.Thresholds,
		Weather:       b.Weather,
		Collaborators: collab,
		Recorder:      recorder,
		Logger:        logger,
	}
}

func decodeFile(fsys fs.FS, name string, v any) error {
	f, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}
