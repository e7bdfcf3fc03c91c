package list

// =============================================================================
// SHOPPING-LIST LINE - One entry on the shared list
// =============================================================================

// Line is a single shopping-list entry. The list is a shared ledger:
// there is no per-user scoping. A line is keyed by its display name
// within a store and shopping date; it is deleted the moment its
// quantity expression becomes empty.
type Line struct {
	ID           string
	Name         string
	Quantity     string // expression per quantity.go; never empty when stored
	StoreID      string
	ShoppingDate Date   // zero = unscheduled
	ProductID    string // link into the store catalog, if resolved
	Manufacturer string
}

// =============================================================================
// CONTRIBUTIONS - What a binding adds to the list
// =============================================================================

// Contribution is one (name, quantity) pair a binding contributes.
type Contribution struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// Deltas are a plan entry's per-instance overrides relative to its
// binding's defaults: removed default items, ad-hoc additions, and an
// optional headcount override (0 = no override).
type Deltas struct {
	RemovedNames []string       `json:"removed_names,omitempty"`
	AddedItems   []Contribution `json:"added_items,omitempty"`
	PersonCount  int            `json:"person_count,omitempty"`
}

// ResolvedBinding is a template or recipe resolved to concrete
// contributions. Exists is false when the binding vanished underneath
// the plan entry; reconciliation then degrades to a silent no-op.
type ResolvedBinding struct {
	Items       []Contribution
	PersonCount int // base headcount the item quantities assume; 0 = unknown
	Exists      bool
}

// Applied is one recorded row of a plan entry's last-applied
// contribution vector. Retraction negates exactly these rows rather
// than re-deriving them from a binding that may have changed since.
type Applied struct {
	EntryID      string
	Name         string
	Quantity     string
	StoreID      string
	ShoppingDate Date
}

// PlanContext carries the plan-entry coordinates a reconciliation
// operates under.
type PlanContext struct {
	EntryID  string
	MealDate Date
	Meal     Meal
	StoreID  string
}

// =============================================================================
// CATALOG - External, read-only product knowledge
// =============================================================================

// CatalogEntry is what the engine needs to know about a product:
// whether the name is catalog-verbatim (forces exact matching), which
// department it sorts under, and whether it is a fresh good.
type CatalogEntry struct {
	ID           string
	Name         string
	StoreID      string
	DepartmentID string
	Fresh        bool
	Manufacturer string
}
