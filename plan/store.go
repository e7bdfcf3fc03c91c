package plan

import (
	"context"

	"github.com/lka/einkaufsliste/list"
)

// =============================================================================
// PERSISTENCE INTERFACES
// =============================================================================

// EntryStore persists weekplan entries. Lookups for missing IDs return
// (nil, nil), not an error.
type EntryStore interface {
	Entry(ctx context.Context, id string) (*Entry, error)
	EntriesBetween(ctx context.Context, from, to list.Date) ([]Entry, error)
	SaveEntry(ctx context.Context, entry Entry) error
	DeleteEntry(ctx context.Context, id string) error
}

type TemplateStore interface {
	Template(ctx context.Context, id string) (*Template, error)
	Templates(ctx context.Context) ([]Template, error)
	SaveTemplate(ctx context.Context, tpl Template) error
	DeleteTemplate(ctx context.Context, id string) error
}

type RecipeStore interface {
	Recipe(ctx context.Context, id string) (*Recipe, error)
	Recipes(ctx context.Context) ([]Recipe, error)
	SaveRecipe(ctx context.Context, rec Recipe) error
	DeleteRecipe(ctx context.Context, id string) error
}

// StoreDirectory names the grocery store entries attach their items to
// when they don't carry one themselves.
type StoreDirectory interface {
	// DefaultStore returns the ID of the default grocery store, or ""
	// when none is configured (reconciliation then no-ops).
	DefaultStore(ctx context.Context) (string, error)
}
