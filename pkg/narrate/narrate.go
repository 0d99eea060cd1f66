// Package narrate turns content keys into display text and fills narrative
// placeholders such as {animal} and {location}.
package narrate

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/wilds-engine/pkg/state"
	"github.com/jwebster45206/wilds-engine/pkg/tension"
)

var placeholder = regexp.MustCompile(`\{([A-Za-z_]+)\}`)

// Vars maps lowercase placeholder names to replacement text.
type Vars map[string]string

// Humanize turns an identifier such as "deadly_cold", "DeadlyCold" or
// "deadly-cold" into "Deadly Cold".
func Humanize(key string) string {
	var b strings.Builder
	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
			continue
		case i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]):
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return cases.Title(language.English).String(strings.Join(strings.Fields(b.String()), " "))
}

// Render replaces every {name} placeholder found in vars. The case of the
// placeholder carries over: {animal} gives "wolf", {Animal} gives "Wolf"
// and {ANIMAL} gives "WOLF". Unknown placeholders are left untouched.
func Render(text string, vars Vars) string {
	if len(vars) == 0 || !strings.Contains(text, "{") {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := vars[strings.ToLower(name)]
		if !ok {
			return match
		}
		return applyCase(name, value)
	})
}

// VarsFor builds the standard placeholder set for a snapshot and, when
// given, the tension an event is about.
func VarsFor(snap *state.Snapshot, t *tension.Tension) Vars {
	vars := Vars{}
	if snap != nil {
		if snap.Location.Name != "" {
			vars["location"] = snap.Location.Name
		}
		if snap.Weather.Condition != "" {
			vars["weather"] = strings.ToLower(Humanize(string(snap.Weather.Condition)))
		}
	}
	if t != nil {
		vars["tension"] = strings.ToLower(Humanize(t.TypeKey))
		if t.AnimalType != "" {
			vars["animal"] = strings.ToLower(Humanize(t.AnimalType))
		}
		if t.SourceLocation != "" {
			vars["origin"] = t.SourceLocation
		}
	}
	return vars
}

// applyCase applies the case pattern of name to value.
func applyCase(name, value string) string {
	switch {
	case value == "":
		return value
	case strings.ToUpper(name) == name:
		return strings.ToUpper(value)
	case strings.ToLower(name) == name:
		return value
	case unicode.IsUpper([]rune(name)[0]):
		r := []rune(value)
		r[0] = unicode.ToUpper(r[0])
		return string(r)
	default:
		return value
	}
}
