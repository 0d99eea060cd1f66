package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/wilds-engine/internal/survivor"
	"github.com/jwebster45206/wilds-engine/pkg/content"
	"github.com/jwebster45206/wilds-engine/pkg/events"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <events-dir> [events-dir...]\n", os.Args[0])
		os.Exit(1)
	}

	validator := NewPackValidator()

	failed := false
	for _, dir := range os.Args[1:] {
		if err := validator.validateDir(dir); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}

	fmt.Println("Event packs are valid!")
}

// PackValidator checks authored event packs against the built-in content.
// Each directory is checked against a fresh copy of it.
type PackValidator struct {
	bundle  *content.Bundle
	rewards survivor.Rewards
	errors  []string
}

func NewPackValidator() *PackValidator {
	return &PackValidator{rewards: survivor.DefaultRewards()}
}

func (v *PackValidator) validateDir(dir string) error {
	fmt.Printf("Validating %s...\n", dir)
	v.errors = nil

	b, err := content.Default(nil)
	if err != nil {
		return fmt.Errorf("failed to load built-in content: %w", err)
	}
	v.bundle = b

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		if !isValidPackFilename(strings.TrimSuffix(e.Name(), ext)) {
			v.addError(fmt.Sprintf("pack filename '%s' must be lowercase snake_case", e.Name()))
		}
	}

	pack, err := events.LoadDir(os.DirFS(dir), ".")
	if err != nil {
		return fmt.Errorf("%s failed strict YAML decoding: %w", dir, err)
	}
	v.validatePack(pack)

	if err := pack.Install(v.bundle.Catalog, v.bundle.Conditions); err != nil {
		v.addError(err.Error())
	} else {
		for _, p := range v.bundle.Lint() {
			v.addError(p.String())
		}
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", dir, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *PackValidator) validatePack(p *events.Pack) {
	for _, def := range p.Conditions {
		if !isValidConditionID(string(def.ID)) {
			v.addError(fmt.Sprintf("condition '%s' should be UpperCamelCase", def.ID))
		}
	}

	for i := range p.Events {
		t := &p.Events[i]
		v.validateIDFormat("event ID", t.ID)
		if len(t.Choices) == 0 {
			v.addError(fmt.Sprintf("event %s has no choices", t.ID))
		}
		for ci, c := range t.Choices {
			if len(c.Results) == 0 {
				v.addError(fmt.Sprintf("event %s choice %d (%s) has no results", t.ID, ci, c.Label))
			}
			for _, r := range c.Results {
				v.validateResult(t.ID, ci, &r)
			}
		}
	}
}

func (v *PackValidator) validateResult(eventID string, choice int, r *events.Result) {
	where := fmt.Sprintf("event %s choice %d", eventID, choice)
	for _, op := range r.Tensions {
		if _, ok := v.bundle.Tensions[op.Type]; !ok {
			v.addError(fmt.Sprintf("%s uses unknown tension type '%s' (known: %s)", where, op.Type, strings.Join(v.tensionTypes(), ", ")))
		}
	}
	if r.Reward != nil {
		if _, ok := v.rewards[r.Reward.Pool]; !ok {
			v.addError(fmt.Sprintf("%s grants from unknown reward pool '%s'", where, r.Reward.Pool))
		}
	}
	if r.ChainEvent != "" {
		v.validateIDFormat(where+" chain", r.ChainEvent)
	}
}

func (v *PackValidator) tensionTypes() []string {
	var keys []string
	for k := range v.bundle.Tensions {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (v *PackValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		v.addError(fmt.Sprintf("%s is empty", fieldName))
		return
	}
	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *PackValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var (
	validIDRegex        = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validConditionRegex = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidConditionID(id string) bool {
	return validConditionRegex.MatchString(id)
}

func isValidPackFilename(name string) bool {
	// Allow 'x.' prefix for experimental packs
	name = strings.TrimPrefix(name, "x.")
	return validIDRegex.MatchString(name)
}
