/*
reconcile.go - Binding reconciliation

PURPOSE:
  Keeps the shared shopping list a correct, incrementally-updated
  materialized view over the meal plan. When a plan entry is bound to a
  template or recipe, its contributions are merged onto the list; when
  the binding or its deltas change, exactly the difference is applied;
  when the entry dies, everything it contributed is retracted. The list
  is never wiped and rebuilt.

RECORDED CONTRIBUTIONS:
  Every Apply records the entry's applied contribution vector in the
  ContributionStore. Update diffs the new target vector against that
  record, and Retract negates exactly the recorded rows. This keeps
  retraction correct even when the template or recipe was edited (or
  deleted) between apply and retract.

INVARIANT:
  At every point, the sum of applied-and-not-retracted contributions of
  a plan entry equals what its current deltas would produce from
  scratch.

SILENT NO-OPS (by contract, not accident):
  - the entry's meal date lies in the past
  - no store exists to attach items to
  - the binding vanished underneath the entry (Retract still works: it
    reads the recorded vector, not the binding)

CONCURRENCY:
  All merges touching one (store, shopping date) trip are serialized
  through a keyed lock; merge is read-modify-write and two concurrent
  "+300 g" must not both read the same base. Distinct trips proceed in
  parallel. Each item's persistence is its own atomic step: a failure
  on item 3 of 5 leaves the other four applied and is reported per item.

SEE ALSO:
  - quantity.go: The merge/negate algebra
  - identity.go: Exact-vs-fuzzy line matching
  - schedule.go: Purchase-date placement
*/
package list

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler applies and retracts binding contributions against the
// shopping list. All fields must be set; use NewReconciler.
type Reconciler struct {
	Items         ItemStore
	Contributions ContributionStore
	Catalog       Catalog
	Notifier      Notifier
	Cadence       CadenceConfig

	// Now returns "today" for scheduling; overridable in tests.
	Now func() Date

	locks tripLocks
}

func NewReconciler(items ItemStore, contributions ContributionStore, catalog Catalog, notifier Notifier, cadence CadenceConfig) *Reconciler {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Reconciler{
		Items:         items,
		Contributions: contributions,
		Catalog:       catalog,
		Notifier:      notifier,
		Cadence:       cadence,
		Now:           Today,
	}
}

func (r *Reconciler) today() Date {
	if r.Now != nil {
		return r.Now()
	}
	return Today()
}

// skip reports the silent no-op conditions shared by Apply and Update.
func (r *Reconciler) skip(pc PlanContext) bool {
	return pc.StoreID == "" || pc.MealDate.Before(r.today())
}

// =============================================================================
// OPERATIONS - Apply / Update / Retract
// =============================================================================

// Apply resolves a freshly created plan entry's binding into
// contributions, schedules and merges each onto the list, and records
// the applied vector. Returns the affected line identities.
func (r *Reconciler) Apply(ctx context.Context, pc PlanContext, binding ResolvedBinding, deltas Deltas) ([]string, error) {
	if r.skip(pc) || !binding.Exists {
		return nil, nil
	}

	target := r.resolveTarget(ctx, pc, binding, deltas)

	var (
		affected []string
		applied  []Applied
		rerr     ReconcileError
	)
	for _, row := range target {
		identity, err := r.applyRow(ctx, row, false)
		if err != nil {
			rerr.Items = append(rerr.Items, &ItemError{Name: row.Name, Err: err})
			continue
		}
		applied = append(applied, row)
		if identity != "" {
			affected = append(affected, identity)
		}
	}

	if err := r.Contributions.Record(ctx, pc.EntryID, applied); err != nil {
		rerr.Items = append(rerr.Items, &ItemError{Name: "(contribution record)", Err: err})
	}
	return dedup(affected), rerr.orNil()
}

// Update reconciles a plan entry whose deltas (or binding) changed:
// identities that left the target vector are retracted, new ones are
// applied, and identities whose quantity, store, or date changed are
// retracted and re-applied. Unchanged identities are not touched.
func (r *Reconciler) Update(ctx context.Context, pc PlanContext, binding ResolvedBinding, deltas Deltas) ([]string, error) {
	if r.skip(pc) || !binding.Exists {
		return nil, nil
	}

	target := r.resolveTarget(ctx, pc, binding, deltas)
	recorded, err := r.Contributions.Recorded(ctx, pc.EntryID)
	if err != nil {
		return nil, err
	}

	oldIdx := groupByIdentity(recorded)
	newIdx := groupByIdentity(target)

	var (
		affected []string
		next     []Applied
		rerr     ReconcileError
	)

	// Retract identities that left the vector or changed.
	for key, oldRows := range oldIdx {
		if newRows, ok := newIdx[key]; ok && sameVector(oldRows, newRows) {
			continue
		}
		for _, row := range oldRows {
			identity, err := r.applyRow(ctx, row, true)
			if err != nil {
				// Retraction failed: keep the row recorded so a later
				// retry can still settle it.
				next = append(next, row)
				rerr.Items = append(rerr.Items, &ItemError{Name: row.Name, Err: err})
				continue
			}
			if identity != "" {
				affected = append(affected, identity)
			}
		}
	}

	// Apply identities that are new or changed.
	for key, newRows := range newIdx {
		if oldRows, ok := oldIdx[key]; ok && sameVector(oldRows, newRows) {
			next = append(next, oldRows...)
			continue
		}
		for _, row := range newRows {
			identity, err := r.applyRow(ctx, row, false)
			if err != nil {
				rerr.Items = append(rerr.Items, &ItemError{Name: row.Name, Err: err})
				continue
			}
			next = append(next, row)
			if identity != "" {
				affected = append(affected, identity)
			}
		}
	}

	if err := r.Contributions.Record(ctx, pc.EntryID, next); err != nil {
		rerr.Items = append(rerr.Items, &ItemError{Name: "(contribution record)", Err: err})
	}
	return dedup(affected), rerr.orNil()
}

// Retract negates everything the entry has recorded and clears the
// record. It deliberately never consults the binding: the template or
// recipe may have been edited or deleted since the contributions were
// applied, and the entry must remain deletable regardless.
func (r *Reconciler) Retract(ctx context.Context, entryID string) ([]string, error) {
	recorded, err := r.Contributions.Recorded(ctx, entryID)
	if err != nil {
		return nil, err
	}

	var (
		affected  []string
		remaining []Applied
		rerr      ReconcileError
	)
	for _, row := range recorded {
		identity, err := r.applyRow(ctx, row, true)
		if err != nil {
			remaining = append(remaining, row)
			rerr.Items = append(rerr.Items, &ItemError{Name: row.Name, Err: err})
			continue
		}
		if identity != "" {
			affected = append(affected, identity)
		}
	}

	if len(remaining) > 0 {
		if err := r.Contributions.Record(ctx, entryID, remaining); err != nil {
			rerr.Items = append(rerr.Items, &ItemError{Name: "(contribution record)", Err: err})
		}
	} else if err := r.Contributions.Clear(ctx, entryID); err != nil {
		rerr.Items = append(rerr.Items, &ItemError{Name: "(contribution record)", Err: err})
	}
	return dedup(affected), rerr.orNil()
}

// =============================================================================
// TARGET RESOLUTION - Binding + deltas -> contribution vector
// =============================================================================

// resolveTarget turns a binding and its deltas into the scheduled
// contribution vector Apply/Update work toward.
func (r *Reconciler) resolveTarget(ctx context.Context, pc PlanContext, binding ResolvedBinding, deltas Deltas) []Applied {
	removed := make(map[string]bool, len(deltas.RemovedNames))
	for _, n := range deltas.RemovedNames {
		removed[Normalize(StripParenthetical(n))] = true
	}

	today := r.today()
	var rows []Applied

	add := func(name, quantity string, scaled bool) {
		name = StripParenthetical(name)
		if name == "" {
			return
		}
		if quantity == "" {
			// Default to a concrete "1" so retraction has something
			// to negate.
			quantity = "1"
		}
		if scaled {
			quantity = ScaleQuantity(quantity, binding.PersonCount, deltas.PersonCount)
		}
		date := ScheduleDate(pc.MealDate, pc.Meal, r.isFresh(ctx, pc.StoreID, name), today, r.Cadence)
		rows = append(rows, Applied{
			EntryID:      pc.EntryID,
			Name:         name,
			Quantity:     quantity,
			StoreID:      pc.StoreID,
			ShoppingDate: date,
		})
	}

	for _, item := range binding.Items {
		if removed[Normalize(StripParenthetical(item.Name))] {
			continue
		}
		add(item.Name, item.Quantity, true)
	}
	for _, item := range deltas.AddedItems {
		// Ad-hoc additions are taken literally, never headcount-scaled.
		add(item.Name, item.Quantity, false)
	}
	return rows
}

func (r *Reconciler) isFresh(ctx context.Context, storeID, name string) bool {
	entry, err := r.Catalog.Lookup(ctx, storeID, name)
	if err != nil {
		log.Printf("[Reconciler] catalog lookup %q failed: %v", name, err)
		return false
	}
	return entry != nil && entry.Fresh
}

// =============================================================================
// SINGLE-LINE MERGE - The one write path for items
// =============================================================================

// applyRow merges one recorded contribution, negated for retraction.
// Returns the affected line identity, or "" when nothing changed.
func (r *Reconciler) applyRow(ctx context.Context, row Applied, negate bool) (string, error) {
	quantity := row.Quantity
	if negate {
		quantity = NegateQuantity(quantity)
		if quantity == "" {
			return "", nil
		}
	}
	line, err := r.MergeLine(ctx, row.Name, quantity, row.StoreID, row.ShoppingDate)
	if err != nil {
		return "", err
	}
	if line.ID == "" {
		return "", nil
	}
	return line.Name, nil
}

// MergeLine is the create-or-merge primitive for a single line on one
// (store, date) trip. It is also the host's path for manual item
// creation, so the manual and reconciled flows share one set of rules:
//
//   - catalog-verbatim names merge exactly; others merge fuzzily (0.8)
//   - a merge that empties the expression deletes the line
//   - a subtraction with no matching line is a no-op
//   - new lines get a fuzzy catalog product suggestion (0.6)
//
// The returned line has an empty Quantity when it was deleted, and an
// empty ID when no line existed and none was created.
func (r *Reconciler) MergeLine(ctx context.Context, name, quantity, storeID string, date Date) (Line, error) {
	unlock := r.locks.lock(tripKey(storeID, date))
	defer unlock()

	candidates, err := r.Items.LinesFor(ctx, storeID, date)
	if err != nil {
		return Line{}, err
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}

	if idx := r.policyFor(ctx, storeID, name).Match(name, names); idx >= 0 {
		line := candidates[idx]
		merged := MergeQuantity(line.Quantity, quantity)
		if merged == "" {
			if err := r.Items.RemoveLine(ctx, line.ID); err != nil {
				return Line{}, err
			}
			line.Quantity = ""
			r.Notifier.Broadcast(Event{Type: EventDeleted, Line: line})
			return line, nil
		}
		line.Quantity = merged
		if err := r.Items.SaveLine(ctx, line); err != nil {
			return Line{}, err
		}
		r.Notifier.Broadcast(Event{Type: EventUpdated, Line: line})
		return line, nil
	}

	merged := MergeQuantity("", quantity)
	if merged == "" {
		// Subtracting from nothing: no line to touch.
		return Line{Name: name, StoreID: storeID, ShoppingDate: date}, nil
	}

	line := Line{
		ID:           uuid.NewString(),
		Name:         name,
		Quantity:     merged,
		StoreID:      storeID,
		ShoppingDate: date,
	}
	r.suggestProduct(ctx, &line)
	if err := r.Items.SaveLine(ctx, line); err != nil {
		return Line{}, err
	}
	r.Notifier.Broadcast(Event{Type: EventAdded, Line: line})
	return line, nil
}

// policyFor selects the match policy: a name the store catalog knows
// verbatim only ever merges exactly ("Kürbiskerne" must not absorb
// "Kürbiskernöl"); fuzzy matching is the fallback for unknown names.
func (r *Reconciler) policyFor(ctx context.Context, storeID, name string) MatchPolicy {
	entry, err := r.Catalog.Lookup(ctx, storeID, name)
	if err == nil && entry != nil {
		return ExactPolicy{}
	}
	return FuzzyPolicy{Threshold: MergeThreshold}
}

// suggestProduct links a brand-new line to the closest catalog product,
// if any scores at least the suggestion threshold.
func (r *Reconciler) suggestProduct(ctx context.Context, line *Line) {
	entries, err := r.Catalog.Entries(ctx, line.StoreID)
	if err != nil || len(entries) == 0 {
		return
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	if idx := (FuzzyPolicy{Threshold: SuggestThreshold}).Match(line.Name, names); idx >= 0 {
		line.ProductID = entries[idx].ID
		line.Manufacturer = entries[idx].Manufacturer
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// groupByIdentity buckets contribution rows by their comparison
// identity (normalized, parentheses stripped).
func groupByIdentity(rows []Applied) map[string][]Applied {
	idx := make(map[string][]Applied, len(rows))
	for _, row := range rows {
		key := Normalize(StripParenthetical(row.Name))
		idx[key] = append(idx[key], row)
	}
	return idx
}

// sameVector reports whether two row sets are equal as multisets of
// (quantity, store, date).
func sameVector(a, b []Applied) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, row := range a {
		counts[row.Quantity+"|"+row.StoreID+"|"+row.ShoppingDate.String()]++
	}
	for _, row := range b {
		key := row.Quantity + "|" + row.StoreID + "|" + row.ShoppingDate.String()
		counts[key]--
		if counts[key] < 0 {
			return false
		}
	}
	return true
}

func dedup(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// tripLocks serializes merges per (store, shopping date) trip.
type tripLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (t *tripLocks) lock(key string) func() {
	t.mu.Lock()
	if t.m == nil {
		t.m = make(map[string]*sync.Mutex)
	}
	l, ok := t.m[key]
	if !ok {
		l = &sync.Mutex{}
		t.m[key] = l
	}
	t.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func tripKey(storeID string, date Date) string {
	return storeID + "|" + date.String()
}
