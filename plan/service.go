/*
service.go - Weekplan orchestration

PURPOSE:
  The write path for plan entries. Every mutation persists the entry
  first, then drives the reconciler so the shopping list tracks the
  plan:

    CreateEntry  -> Apply
    UpdateEntry  -> Update (same coordinates) or Retract+Apply (moved)
    DeleteEntry  -> Retract

  Reconciliation failures are returned to the caller but never block
  the entry mutation itself: the entry row is the source of truth, the
  list is the derived view.
*/
package plan

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/lka/einkaufsliste/list"
)

// Service coordinates entry/template/recipe persistence with list
// reconciliation.
type Service struct {
	Entries    EntryStore
	Templates  TemplateStore
	Recipes    RecipeStore
	Stores     StoreDirectory
	Reconciler *list.Reconciler

	// Units overrides the ingredient unit vocabulary; nil selects
	// list.DefaultUnits.
	Units []string
}

func NewService(entries EntryStore, templates TemplateStore, recipes RecipeStore, stores StoreDirectory, reconciler *list.Reconciler) *Service {
	return &Service{
		Entries:    entries,
		Templates:  templates,
		Recipes:    recipes,
		Stores:     stores,
		Reconciler: reconciler,
	}
}

// =============================================================================
// ENTRIES
// =============================================================================

func (s *Service) CreateEntry(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if !list.ValidMeal(string(entry.Meal)) {
		return Entry{}, list.ErrInvalidMeal
	}
	if entry.Date.IsZero() {
		return Entry{}, list.ErrInvalidDate
	}

	if err := s.Entries.SaveEntry(ctx, entry); err != nil {
		return Entry{}, err
	}

	pc, err := s.planContext(ctx, entry)
	if err != nil {
		return entry, err
	}
	binding, err := s.resolveBinding(ctx, entry)
	if err != nil {
		return entry, err
	}
	_, err = s.Reconciler.Apply(ctx, pc, binding, entry.Deltas)
	return entry, err
}

func (s *Service) UpdateEntry(ctx context.Context, entry Entry) (Entry, error) {
	prev, err := s.Entries.Entry(ctx, entry.ID)
	if err != nil {
		return Entry{}, err
	}
	if prev == nil {
		return Entry{}, ErrEntryNotFound
	}
	if !list.ValidMeal(string(entry.Meal)) {
		return Entry{}, list.ErrInvalidMeal
	}
	if entry.Date.IsZero() {
		return Entry{}, list.ErrInvalidDate
	}

	if err := s.Entries.SaveEntry(ctx, entry); err != nil {
		return Entry{}, err
	}

	pc, err := s.planContext(ctx, entry)
	if err != nil {
		return entry, err
	}
	binding, err := s.resolveBinding(ctx, entry)
	if err != nil {
		return entry, err
	}

	if sameCoordinates(*prev, entry) {
		_, err = s.Reconciler.Update(ctx, pc, binding, entry.Deltas)
		return entry, err
	}

	// The entry moved (date, meal, store, or binding): its recorded
	// contributions belong to the old coordinates and cannot be diffed
	// in place.
	if _, err := s.Reconciler.Retract(ctx, entry.ID); err != nil {
		return entry, err
	}
	_, err = s.Reconciler.Apply(ctx, pc, binding, entry.Deltas)
	return entry, err
}

func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	prev, err := s.Entries.Entry(ctx, id)
	if err != nil {
		return err
	}
	if prev == nil {
		return ErrEntryNotFound
	}

	// Retraction works from the recorded vector, so it succeeds even if
	// the entry's template or recipe is long gone.
	if _, err := s.Reconciler.Retract(ctx, id); err != nil {
		return err
	}
	return s.Entries.DeleteEntry(ctx, id)
}

// EntriesForWeek returns the entries of the seven days starting at from.
func (s *Service) EntriesForWeek(ctx context.Context, from list.Date) ([]Entry, error) {
	return s.Entries.EntriesBetween(ctx, from, from.AddDays(6))
}

func sameCoordinates(a, b Entry) bool {
	return a.Date.Equal(b.Date) &&
		a.Meal == b.Meal &&
		a.StoreID == b.StoreID &&
		a.Binding == b.Binding &&
		a.BindingID == b.BindingID
}

func (s *Service) planContext(ctx context.Context, entry Entry) (list.PlanContext, error) {
	storeID := entry.StoreID
	if storeID == "" {
		var err error
		storeID, err = s.Stores.DefaultStore(ctx)
		if err != nil {
			return list.PlanContext{}, err
		}
	}
	return list.PlanContext{
		EntryID:  entry.ID,
		MealDate: entry.Date,
		Meal:     entry.Meal,
		StoreID:  storeID,
	}, nil
}

// resolveBinding turns the entry's binding into concrete contributions.
// A dangling binding resolves to Exists=false, never an error.
func (s *Service) resolveBinding(ctx context.Context, entry Entry) (list.ResolvedBinding, error) {
	switch entry.Binding {
	case BindingTemplate:
		tpl, err := s.Templates.Template(ctx, entry.BindingID)
		if err != nil {
			return list.ResolvedBinding{}, err
		}
		if tpl == nil {
			return list.ResolvedBinding{}, nil
		}
		persons := tpl.PersonCount
		if persons <= 0 {
			persons = DefaultPersonCount
		}
		return list.ResolvedBinding{Items: tpl.Items, PersonCount: persons, Exists: true}, nil

	case BindingRecipe:
		rec, err := s.Recipes.Recipe(ctx, entry.BindingID)
		if err != nil {
			return list.ResolvedBinding{}, err
		}
		if rec == nil {
			return list.ResolvedBinding{}, nil
		}
		items := list.ParseIngredients(rec.Ingredients, s.Units)
		return list.ResolvedBinding{Items: items, Exists: true}, nil

	default:
		// A bare text entry contributes nothing by itself, but its
		// ad-hoc added items still count.
		return list.ResolvedBinding{Exists: true}, nil
	}
}

// =============================================================================
// TEMPLATES
// =============================================================================

func (s *Service) SaveTemplate(ctx context.Context, tpl Template) (Template, error) {
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	if tpl.PersonCount <= 0 {
		tpl.PersonCount = DefaultPersonCount
	}

	existing, err := s.Templates.Templates(ctx)
	if err != nil {
		return Template{}, err
	}
	for _, other := range existing {
		if other.ID != tpl.ID && strings.EqualFold(other.Name, tpl.Name) {
			return Template{}, ErrDuplicateTemplate
		}
	}

	if err := s.Templates.SaveTemplate(ctx, tpl); err != nil {
		return Template{}, err
	}
	return tpl, nil
}

func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	tpl, err := s.Templates.Template(ctx, id)
	if err != nil {
		return err
	}
	if tpl == nil {
		return ErrTemplateNotFound
	}
	return s.Templates.DeleteTemplate(ctx, id)
}

// =============================================================================
// RECIPES
// =============================================================================

func (s *Service) SaveRecipe(ctx context.Context, rec Recipe) (Recipe, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := s.Recipes.SaveRecipe(ctx, rec); err != nil {
		return Recipe{}, err
	}
	return rec, nil
}

func (s *Service) DeleteRecipe(ctx context.Context, id string) error {
	rec, err := s.Recipes.Recipe(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrRecipeNotFound
	}
	return s.Recipes.DeleteRecipe(ctx, id)
}

// SearchRecipes returns recipes whose name contains the query,
// case-insensitively. An empty query returns everything.
func (s *Service) SearchRecipes(ctx context.Context, query string) ([]Recipe, error) {
	all, err := s.Recipes.Recipes(ctx)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return all, nil
	}
	q := strings.ToLower(query)
	var out []Recipe
	for _, r := range all {
		if strings.Contains(strings.ToLower(r.Name), q) {
			out = append(out, r)
		}
	}
	return out, nil
}
