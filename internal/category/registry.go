// Package category provides the asset category enum and the per-category
// rule table driving validation and attachment bucketing. The table is
// authored as CUE data in rules.cue and frozen at Init time.
package category

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed rules.cue
var rulesCUE []byte

// Category is the top-level asset type tag. Set once at load time from
// the fetched record; it selects which sections render and which rules
// apply for the whole edit session.
type Category string

const (
	Land                 Category = "Land"
	Building             Category = "Building"
	Vehicle              Category = "Vehicle"
	LeaseholdImprovement Category = "Leasehold Improvement"
	FurnitureFixtures    Category = "Furniture & Fixtures"
	ITEquipment          Category = "IT Equipment"
	MachineryEquipment   Category = "Machinery & Equipment"
	ToolsInstruments     Category = "Tools & Instruments"
	Meter                Category = "Meter"
)

// FieldRef names one required core field with its display label.
type FieldRef struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// SectionFieldRef names one required category-specific field that lives
// in the extra-field map under its section group.
type SectionFieldRef struct {
	Group string `json:"group"`
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Rules is the required-field set for one category.
type Rules struct {
	Base     []FieldRef        `json:"base"`
	Location []FieldRef        `json:"location"`
	Warranty []FieldRef        `json:"warranty"`
	Specific []SectionFieldRef `json:"specific"`
}

type ruleTable struct {
	Categories map[string]Rules `json:"categories"`
	Loaned     []string         `json:"loaned"`
	UsefulLife []string         `json:"usefulLife"`
}

var (
	rulesByCategory map[Category]Rules
	loanedSet       map[Category]bool
	usefulLifeSet   map[Category]bool
	allCategories   []Category
)

// Init parses the embedded CUE table and builds the lookup maps. Must be
// called once during startup before any lookup.
func Init() error {
	ctx := cuecontext.New()
	val := ctx.CompileBytes(rulesCUE, cue.Filename("rules.cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("compiling rule table: %w", err)
	}
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validating rule table: %w", err)
	}

	var table ruleTable
	if err := val.Decode(&table); err != nil {
		return fmt.Errorf("decoding rule table: %w", err)
	}
	if len(table.Categories) == 0 {
		return fmt.Errorf("rule table has no categories")
	}

	rulesByCategory = make(map[Category]Rules, len(table.Categories))
	allCategories = allCategories[:0]
	for name, r := range table.Categories {
		rulesByCategory[Category(name)] = r
		allCategories = append(allCategories, Category(name))
	}
	sort.Slice(allCategories, func(i, j int) bool { return allCategories[i] < allCategories[j] })

	loanedSet = make(map[Category]bool, len(table.Loaned))
	for _, name := range table.Loaned {
		if _, ok := rulesByCategory[Category(name)]; !ok {
			return fmt.Errorf("loaned allow-list names unknown category %q", name)
		}
		loanedSet[Category(name)] = true
	}
	usefulLifeSet = make(map[Category]bool, len(table.UsefulLife))
	for _, name := range table.UsefulLife {
		if _, ok := rulesByCategory[Category(name)]; !ok {
			return fmt.Errorf("useful-life allow-list names unknown category %q", name)
		}
		usefulLifeSet[Category(name)] = true
	}
	return nil
}

// All returns the known categories in stable order.
func All() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// Valid reports whether c is a known category.
func Valid(c Category) bool {
	_, ok := rulesByCategory[c]
	return ok
}

// Lookup returns the rule set for a category. Pure lookup, no side
// effects; ok=false for categories not in the table.
func Lookup(c Category) (Rules, bool) {
	r, ok := rulesByCategory[c]
	return r, ok
}

// LoanAllowed reports whether the asset-loaned block applies to c.
func LoanAllowed(c Category) bool { return loanedSet[c] }

// DepreciationApplies reports whether the useful-life block applies to c.
func DepreciationApplies(c Category) bool { return usefulLifeSet[c] }

// KnownGroup reports whether group is a category-specific section of c.
// Extra-field entries in unknown groups are orphaned custom fields.
func KnownGroup(c Category, group string) bool {
	r, ok := rulesByCategory[c]
	if !ok {
		return false
	}
	for _, f := range r.Specific {
		if f.Group == group {
			return true
		}
	}
	return false
}

// AttachmentKey derives the normalized bucket prefix for a category:
// lowercase with spaces and ampersands stripped. "Furniture & Fixtures"
// becomes "furniturefixtures".
func AttachmentKey(c Category) string {
	k := strings.ToLower(string(c))
	k = strings.ReplaceAll(k, "&", "")
	k = strings.ReplaceAll(k, " ", "")
	return k
}
