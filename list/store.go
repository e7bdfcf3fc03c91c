/*
store.go - Persistence interfaces the engine reconciles against

PURPOSE:
  Defines the boundary between the reconciliation engine and its host.
  The engine only ever needs three things from persistence: the lines
  visible for a (store, date) trip, an upsert/remove primitive for one
  line, and a record of each plan entry's last-applied contributions.

CONCURRENCY CONTRACT:
  Merging is read-modify-write over shared state. The engine serializes
  all operations touching one (store, date) trip; implementations only
  need each individual call to be atomic. Operations on distinct trips
  may run in parallel.

IMPLEMENTATIONS:
  - list/store/memory.go: In-memory, for tests and dev
  - store/sqlite:         Production SQLite
*/
package list

import "context"

// ItemStore persists shopping-list lines. Each call must be
// individually atomic; cross-call serialization per (store, date) is
// the engine's job.
type ItemStore interface {
	// Lines returns every line on the shared list.
	Lines(ctx context.Context) ([]Line, error)

	// LinesFor returns the lines for one store and shopping date -
	// the merge candidates for that trip. A zero date selects the
	// undated lines.
	LinesFor(ctx context.Context, storeID string, date Date) ([]Line, error)

	// SaveLine inserts or updates a line by ID.
	SaveLine(ctx context.Context, line Line) error

	// RemoveLine deletes a line. Removing a missing line is not an error.
	RemoveLine(ctx context.Context, id string) error

	// RemoveLinesBefore deletes lines with a shopping date strictly
	// before the given date, optionally limited to one store. Returns
	// the removed line IDs so the host can broadcast deletions.
	RemoveLinesBefore(ctx context.Context, before Date, storeID string) ([]string, error)
}

// ContributionStore records each plan entry's last-applied contribution
// vector. Record replaces the whole vector for an entry.
type ContributionStore interface {
	Record(ctx context.Context, entryID string, rows []Applied) error
	Recorded(ctx context.Context, entryID string) ([]Applied, error)
	Clear(ctx context.Context, entryID string) error
}

// Catalog is the read-only product lookup the engine consumes.
type Catalog interface {
	// Lookup finds a product by exact (case-insensitive) name within a
	// store. Returns nil when the catalog does not know the name.
	Lookup(ctx context.Context, storeID, name string) (*CatalogEntry, error)

	// Entries returns all products of a store, for fuzzy suggestion.
	Entries(ctx context.Context, storeID string) ([]CatalogEntry, error)
}
