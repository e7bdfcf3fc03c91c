/*
sqlite_test.go - Persistence tests against an in-memory database

Tests for:
- Line round-trips, trip filters and expiry deletion
- Contribution vectors (record, replace, clear)
- Catalog lookup semantics (case-insensitive, nil on miss)
- Template uniqueness and plan entry JSON columns
*/
package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lka/einkaufsliste/list"
	"github.com/lka/einkaufsliste/plan"
	"github.com/lka/einkaufsliste/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLines_RoundTrip(t *testing.T) {
	// GIVEN: A saved line
	store := newStore(t)
	ctx := context.Background()

	line := list.Line{
		ID:           "line-1",
		Name:         "Milch",
		Quantity:     "1 l",
		StoreID:      "shop-1",
		ShoppingDate: list.NewDate(2025, time.March, 12),
	}
	require.NoError(t, store.SaveLine(ctx, line))

	// WHEN: Reading it back
	lines, err := store.Lines(ctx)
	require.NoError(t, err)

	// THEN: All fields survive
	require.Len(t, lines, 1)
	assert.Equal(t, line, lines[0])
}

func TestSaveLine_UpsertsByID(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	line := list.Line{ID: "line-1", Name: "Mehl", Quantity: "500 g"}
	require.NoError(t, store.SaveLine(ctx, line))

	line.Quantity = "800 g"
	require.NoError(t, store.SaveLine(ctx, line))

	lines, err := store.Lines(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "800 g", lines[0].Quantity)
}

func TestLinesFor_FiltersOneTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	wednesday := list.NewDate(2025, time.March, 12)
	friday := list.NewDate(2025, time.March, 14)

	require.NoError(t, store.SaveLine(ctx, list.Line{ID: "a", Name: "Milch", Quantity: "1", StoreID: "shop-1", ShoppingDate: wednesday}))
	require.NoError(t, store.SaveLine(ctx, list.Line{ID: "b", Name: "Fisch", Quantity: "1", StoreID: "shop-1", ShoppingDate: friday}))
	require.NoError(t, store.SaveLine(ctx, list.Line{ID: "c", Name: "Brot", Quantity: "1", StoreID: "shop-2", ShoppingDate: wednesday}))

	lines, err := store.LinesFor(ctx, "shop-1", wednesday)
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, "Milch", lines[0].Name)
}

func TestRemoveLinesBefore_SkipsUndatedLines(t *testing.T) {
	// GIVEN: A past line, an upcoming line and one without a date
	store := newStore(t)
	ctx := context.Background()

	today := list.NewDate(2025, time.March, 10)
	require.NoError(t, store.SaveLine(ctx, list.Line{ID: "past", Name: "Alt", Quantity: "1", ShoppingDate: today.AddDays(-3)}))
	require.NoError(t, store.SaveLine(ctx, list.Line{ID: "future", Name: "Neu", Quantity: "1", ShoppingDate: today.AddDays(2)}))
	require.NoError(t, store.SaveLine(ctx, list.Line{ID: "undated", Name: "Lose", Quantity: "1"}))

	// WHEN: Removing everything before today
	removed, err := store.RemoveLinesBefore(ctx, today, "")
	require.NoError(t, err)

	// THEN: Only the dated past line is gone
	assert.Equal(t, []string{"past"}, removed)
	lines, err := store.Lines(ctx)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestContributions_RecordReplacesVector(t *testing.T) {
	// GIVEN: A recorded contribution vector for an entry
	store := newStore(t)
	ctx := context.Background()

	date := list.NewDate(2025, time.March, 12)
	first := []list.Applied{
		{EntryID: "entry-1", Name: "Milch", Quantity: "1 l", StoreID: "shop-1", ShoppingDate: date},
		{EntryID: "entry-1", Name: "Eier", Quantity: "2", StoreID: "shop-1", ShoppingDate: date},
	}
	require.NoError(t, store.Record(ctx, "entry-1", first))

	// WHEN: Recording a new vector for the same entry
	second := []list.Applied{
		{EntryID: "entry-1", Name: "Milch", Quantity: "2 l", StoreID: "shop-1", ShoppingDate: date},
	}
	require.NoError(t, store.Record(ctx, "entry-1", second))

	// THEN: Only the new vector is recorded
	recorded, err := store.Recorded(ctx, "entry-1")
	require.NoError(t, err)
	assert.Equal(t, second, recorded)

	// AND: Clear removes it entirely
	require.NoError(t, store.Clear(ctx, "entry-1"))
	recorded, err = store.Recorded(ctx, "entry-1")
	require.NoError(t, err)
	assert.Empty(t, recorded)
}

func TestLookup_CaseInsensitiveAndNilOnMiss(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveShop(ctx, sqlite.Shop{ID: "shop-1", Name: "Rewe"}))
	require.NoError(t, store.SaveProduct(ctx, sqlite.Product{
		ID: "prod-1", ShopID: "shop-1", Name: "Möhren", Fresh: false,
	}))

	entry, err := store.Lookup(ctx, "shop-1", "möhren")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "prod-1", entry.ID)

	miss, err := store.Lookup(ctx, "shop-1", "Sellerie")
	require.NoError(t, err)
	assert.Nil(t, miss, "unknown names are not an error")
}

func TestDefaultStore_PrefersFlaggedShop(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	// No shops yet: empty ID, no error
	id, err := store.DefaultStore(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, store.SaveShop(ctx, sqlite.Shop{ID: "shop-1", Name: "Rewe"}))
	require.NoError(t, store.SaveShop(ctx, sqlite.Shop{ID: "shop-2", Name: "Edeka", IsDefault: true}))

	id, err = store.DefaultStore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "shop-2", id)
}

func TestSaveTemplate_DuplicateNameRejected(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTemplate(ctx, plan.Template{
		ID: "tpl-1", Name: "Frühstück", PersonCount: 2,
		Items: []list.Contribution{{Name: "Brot", Quantity: "1"}},
	}))

	err := store.SaveTemplate(ctx, plan.Template{ID: "tpl-2", Name: "frühstück", PersonCount: 2})
	assert.ErrorIs(t, err, plan.ErrDuplicateTemplate)
}

func TestTemplates_ItemsSurviveRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	tpl := plan.Template{
		ID: "tpl-1", Name: "Frühstück", PersonCount: 3,
		Items: []list.Contribution{
			{Name: "Milch", Quantity: "1 l"},
			{Name: "Brötchen", Quantity: "4"},
		},
	}
	require.NoError(t, store.SaveTemplate(ctx, tpl))

	got, err := store.Template(ctx, "tpl-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, tpl, *got)
}

func TestEntries_DeltasSurviveRoundTrip(t *testing.T) {
	// GIVEN: A plan entry with per-entry adjustments
	store := newStore(t)
	ctx := context.Background()

	entry := plan.Entry{
		ID:        "entry-1",
		Date:      list.NewDate(2025, time.March, 14),
		Meal:      list.MealDinner,
		Binding:   plan.BindingRecipe,
		BindingID: "rec-1",
		StoreID:   "shop-1",
		Deltas: list.Deltas{
			RemovedNames: []string{"Salz"},
			AddedItems:   []list.Contribution{{Name: "Sahne", Quantity: "200 ml"}},
			PersonCount:  4,
		},
	}
	require.NoError(t, store.SaveEntry(ctx, entry))

	// WHEN: Reading it back
	got, err := store.Entry(ctx, "entry-1")
	require.NoError(t, err)

	// THEN: The JSON columns round-trip
	require.NotNil(t, got)
	assert.Equal(t, entry, *got)
}

func TestEntriesBetween_InclusiveRange(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	monday := list.NewDate(2025, time.March, 10)
	for i, id := range []string{"e-0", "e-1", "e-2"} {
		require.NoError(t, store.SaveEntry(ctx, plan.Entry{
			ID: id, Date: monday.AddDays(i * 4), Meal: list.MealDinner,
		}))
	}

	entries, err := store.EntriesBetween(ctx, monday, monday.AddDays(6))
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "e-0", entries[0].ID)
	assert.Equal(t, "e-1", entries[1].ID)
}

func TestRelinkProduct_UpdatesMatchingLines(t *testing.T) {
	// GIVEN: Two same-named lines and one unrelated line
	store := newStore(t)
	ctx := context.Background()

	date := list.NewDate(2025, time.March, 12)
	require.NoError(t, store.SaveLine(ctx, list.Line{ID: "a", Name: "Bergkäse", Quantity: "200 g", StoreID: "shop-1", ShoppingDate: date}))
	require.NoError(t, store.SaveLine(ctx, list.Line{ID: "b", Name: "bergkäse", Quantity: "100 g", StoreID: "shop-1", ShoppingDate: date.AddDays(7)}))
	require.NoError(t, store.SaveLine(ctx, list.Line{ID: "c", Name: "Milch", Quantity: "1 l", StoreID: "shop-1", ShoppingDate: date}))

	// WHEN: Relinking the name to a product
	require.NoError(t, store.RelinkProduct(ctx, "shop-1", "Bergkäse", "prod-1", "Alpenhof"))

	// THEN: Both same-named lines carry the link, the other does not
	lines, err := store.Lines(ctx)
	require.NoError(t, err)
	for _, l := range lines {
		if l.Name == "Milch" {
			assert.Empty(t, l.ProductID)
			continue
		}
		assert.Equal(t, "prod-1", l.ProductID)
		assert.Equal(t, "Alpenhof", l.Manufacturer)
	}
}

func TestRecipes_RoundTripAndDelete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rec := plan.Recipe{ID: "rec-1", Name: "Pfannkuchen", Category: "Süßes", Ingredients: "250 g Mehl\n3 Eier"}
	require.NoError(t, store.SaveRecipe(ctx, rec))

	got, err := store.Recipe(ctx, "rec-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)

	require.NoError(t, store.DeleteRecipe(ctx, "rec-1"))
	got, err = store.Recipe(ctx, "rec-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
