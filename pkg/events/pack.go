package events

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/wilds-engine/pkg/conditionals"
)

// Pack is a unit of authored content: condition definitions and event
// templates. A YAML file may hold several pack documents separated by ---.
type Pack struct {
	Conditions []conditionals.Definition `yaml:"conditions,omitempty"`
	Events     []Template                `yaml:"events,omitempty"`
}

// LoadYAML decodes every document in r into one pack. Unknown fields are
// rejected.
func LoadYAML(r io.Reader) (*Pack, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	pack := &Pack{}
	for doc := 1; ; doc++ {
		var p Pack
		err := dec.Decode(&p)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		pack.Merge(&p)
	}
	return pack, nil
}

// LoadDir loads every .yaml and .yml file in dir, in lexical order.
func LoadDir(fsys fs.FS, dir string) (*Pack, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read event directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	pack := &Pack{}
	for _, name := range names {
		p, err := loadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		pack.Merge(p)
	}
	return pack, nil
}

func loadFile(fsys fs.FS, name string) (*Pack, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	p, err := LoadYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}

// Merge appends other's content to p.
func (p *Pack) Merge(other *Pack) {
	p.Conditions = append(p.Conditions, other.Conditions...)
	p.Events = append(p.Events, other.Events...)
}

// Install registers the pack's conditions with conds and its events with
// catalog. Conditions go first so events can reference them. Every problem
// is collected rather than stopping at the first.
func (p *Pack) Install(catalog *Catalog, conds *conditionals.Registry) error {
	var errs []error
	for _, def := range p.Conditions {
		if err := conds.RegisterDefinition(def); err != nil {
			errs = append(errs, err)
		}
	}
	for _, t := range p.Events {
		if err := catalog.Register(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
