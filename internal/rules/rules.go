// Package rules holds the predecessor rule table: for each activity type,
// the ordered list of allowed predecessor types with their spatial
// thresholds. The table is configuration, loaded once per run and read-only
// afterward.
package rules

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Vertical is an elevation window between a predecessor's top and the
// activity's base: the base must sit strictly inside
// (top - Below, top + Above).
type Vertical struct {
	Below float64 `toml:"below"`
	Above float64 `toml:"above"`
}

// Rule is one allowed predecessor type for an activity type.
type Rule struct {
	Type       string    `toml:"type"`
	Horizontal float64   `toml:"horizontal"`
	Vertical   *Vertical `toml:"vertical"`
}

// Table maps an activity type to its ordered allowed predecessor rules.
// Lookup is case-insensitive. A missing entry means no predecessor checks
// are configured for that type; that is a documented terminal case, not an
// error.
type Table struct {
	entries map[string][]Rule // keyed by normalized type
}

// fallbackHorizontal applies to override pairs with no default counterpart.
const fallbackHorizontal = 0.8

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// New builds a table from a type → rule-list map.
func New(entries map[string][]Rule) *Table {
	t := &Table{entries: make(map[string][]Rule, len(entries))}
	for typ, list := range entries {
		t.entries[norm(typ)] = list
	}
	return t
}

// Default returns the shipped rule table. Thresholds and vertical windows
// mirror observed engineering precedence: concrete and piling before
// equipment, trays and conduits before electrical runs.
func Default() *Table {
	onGrade := &Vertical{Below: 0.5, Above: 0.2}
	return New(map[string][]Rule{
		"Equipment": {
			{Type: "Concrete", Horizontal: 0.8, Vertical: onGrade},
			{Type: "Piling", Horizontal: 0.8, Vertical: onGrade},
			{Type: "Civil Works", Horizontal: 0.8, Vertical: onGrade},
		},
		"Grout":             {{Type: "Concrete", Horizontal: 0.8, Vertical: &Vertical{Below: 0.2, Above: 0.2}}},
		"Piling":            {},
		"Concrete":          {},
		"Civil Works":       {},
		"Piping":            {{Type: "Concrete", Horizontal: 0.8, Vertical: onGrade}},
		"Piping Insulation": {{Type: "Piping", Horizontal: 0.8}},
		"Cable Tray":        {{Type: "Concrete", Horizontal: 0.8, Vertical: onGrade}},
		"Electrical": {
			{Type: "Cable Tray", Horizontal: 0.6},
			{Type: "UG Conduit", Horizontal: 0.6},
		},
		"Instrumentation": {{Type: "Piping", Horizontal: 0.6}},
		"UG Conduit":      {{Type: "Civil Works", Horizontal: 0.6}},
		"Transformer":     {{Type: "Concrete", Horizontal: 0.8, Vertical: onGrade}},
	})
}

// Lookup returns the ordered predecessor rules for an activity type. The
// second return is false when the type has no entry at all.
func (t *Table) Lookup(actType string) ([]Rule, bool) {
	list, ok := t.entries[norm(actType)]
	return list, ok
}

// pair returns the rule for a (type, predecessorType) pair, if configured.
func (t *Table) pair(actType, predType string) (Rule, bool) {
	for _, r := range t.entries[norm(actType)] {
		if norm(r.Type) == norm(predType) {
			return r, true
		}
	}
	return Rule{}, false
}

// WithOverrides returns a new table where each overridden type checks
// exactly the listed predecessor types, in the listed order. Duplicate
// names (case-insensitive) are dropped after the first. A pair present in
// the base table keeps its thresholds; an unknown pair gets the fallback
// horizontal threshold and no vertical window. Types absent from the
// overrides keep their base rules.
func (t *Table) WithOverrides(overrides map[string][]string) *Table {
	merged := &Table{entries: make(map[string][]Rule, len(t.entries))}
	for k, v := range t.entries {
		merged.entries[k] = v
	}
	for typ, preds := range overrides {
		seen := make(map[string]bool)
		var list []Rule
		for _, p := range preds {
			key := norm(p)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			if base, ok := t.pair(typ, p); ok {
				list = append(list, base)
			} else {
				list = append(list, Rule{Type: p, Horizontal: fallbackHorizontal})
			}
		}
		merged.entries[norm(typ)] = list
	}
	return merged
}

// LoadOverrides reads a TOML override file mapping activity types to
// predecessor type name lists, e.g.
//
//	Equipment = ["Concrete", "Piling"]
//	"Cable Tray" = ["Civil Works"]
func LoadOverrides(path string) (map[string][]string, error) {
	var overrides map[string][]string
	if _, err := toml.DecodeFile(path, &overrides); err != nil {
		return nil, fmt.Errorf("parse rule overrides %s: %w", path, err)
	}
	return overrides, nil
}
