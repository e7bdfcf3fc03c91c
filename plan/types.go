/*
Package plan is the meal-planning layer on top of the list engine:
weekplan entries, shopping templates, and imported recipes, plus the
service that drives the reconciler whenever an entry changes.
*/
package plan

import (
	"errors"

	"github.com/lka/einkaufsliste/list"
)

// =============================================================================
// BINDINGS - What a plan entry can point at
// =============================================================================

type BindingKind string

const (
	BindingNone     BindingKind = ""
	BindingTemplate BindingKind = "template"
	BindingRecipe   BindingKind = "recipe"
)

// =============================================================================
// DOMAIN TYPES
// =============================================================================

// Entry is one weekplan slot: a date, a meal, free display text, and an
// optional binding whose contributions feed the shopping list.
type Entry struct {
	ID        string
	Date      list.Date
	Meal      list.Meal
	Text      string
	Binding   BindingKind
	BindingID string
	StoreID   string // "" selects the directory's default store
	Deltas    list.Deltas
}

// Template is a reusable named shopping set. Item quantities assume
// PersonCount people; entries may scale them via their deltas.
type Template struct {
	ID          string
	Name        string
	PersonCount int
	Items       []list.Contribution
}

// DefaultPersonCount is assumed when a template doesn't state one.
const DefaultPersonCount = 2

// Recipe is an imported recipe: its ingredients stay as free text and
// are parsed into contributions at binding time.
type Recipe struct {
	ID          string
	Name        string
	Category    string
	Ingredients string
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrEntryNotFound     = errors.New("plan entry not found")
	ErrTemplateNotFound  = errors.New("template not found")
	ErrRecipeNotFound    = errors.New("recipe not found")
	ErrDuplicateTemplate = errors.New("template name already in use")
)
