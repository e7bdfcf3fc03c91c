/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Create-or-merge of list lines over HTTP
- Trip filters and deletion endpoints
- Catalog promotion and autocomplete
- Template conflicts and weekplan-driven reconciliation
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lka/einkaufsliste/config"
	"github.com/lka/einkaufsliste/list"
	"github.com/lka/einkaufsliste/plan"
	"github.com/lka/einkaufsliste/store/sqlite"
)

// Fixed clock for every test: Monday 2025-03-10. The configured cadence
// puts the main shop on Wednesday and fresh goods on Friday.
var (
	testToday     = list.NewDate(2025, time.March, 10)
	testWednesday = list.NewDate(2025, time.March, 12)
)

type testEnv struct {
	store  *sqlite.Store
	hub    *Hub
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	hub := NewHub()

	reconciler := list.NewReconciler(store, store, store, hub, cfg.Cadence())
	reconciler.Now = func() list.Date { return testToday }

	planSvc := plan.NewService(store, store, store, store, reconciler)
	handler := NewHandler(store, planSvc, reconciler, hub, cfg)

	server := httptest.NewServer(NewRouter(handler, hub))
	t.Cleanup(server.Close)

	return &testEnv{store: store, hub: hub, server: server}
}

func (e *testEnv) defaultShop(t *testing.T) string {
	t.Helper()
	shop := sqlite.Shop{ID: "shop-rewe", Name: "Rewe", IsDefault: true}
	if err := e.store.SaveShop(context.Background(), shop); err != nil {
		t.Fatalf("Failed to save shop: %v", err)
	}
	return shop.ID
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return out
}

func TestCreateItem_MergesQuantities(t *testing.T) {
	// GIVEN: A default shop and one line on the Wednesday trip
	env := newTestEnv(t)
	shopID := env.defaultShop(t)

	resp := env.do(t, http.MethodPost, "/api/items", CreateItemRequest{
		Name: "Mehl", Quantity: "500 g", ShopID: shopID, ShoppingDate: "2025-03-12",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	first := decode[LineDTO](t, resp)

	// WHEN: The same name is posted again for the same trip
	resp = env.do(t, http.MethodPost, "/api/items", CreateItemRequest{
		Name: "Mehl", Quantity: "300 g", ShopID: shopID, ShoppingDate: "2025-03-12",
	})
	merged := decode[LineDTO](t, resp)

	// THEN: The quantities were added on the existing line
	if merged.ID != first.ID {
		t.Errorf("Expected merge into line %s, got %s", first.ID, merged.ID)
	}
	if merged.Quantity != "800 g" {
		t.Errorf("Expected quantity '800 g', got %q", merged.Quantity)
	}
}

func TestCreateItem_SubtractionDeletesLine(t *testing.T) {
	// GIVEN: A line with 2 on the list
	env := newTestEnv(t)
	shopID := env.defaultShop(t)

	env.do(t, http.MethodPost, "/api/items", CreateItemRequest{
		Name: "Eier", Quantity: "2", ShopID: shopID, ShoppingDate: "2025-03-12",
	}).Body.Close()

	// WHEN: The full amount is subtracted
	resp := env.do(t, http.MethodPost, "/api/items", CreateItemRequest{
		Name: "Eier", Quantity: "-2", ShopID: shopID, ShoppingDate: "2025-03-12",
	})
	line := decode[LineDTO](t, resp)

	// THEN: The quantity is empty and the line is gone from the list
	if line.Quantity != "" {
		t.Errorf("Expected empty quantity, got %q", line.Quantity)
	}
	listResp := env.do(t, http.MethodGet, "/api/items", nil)
	lines := decode[[]LineDTO](t, listResp)
	if len(lines) != 0 {
		t.Errorf("Expected empty list, got %d lines", len(lines))
	}
}

func TestCreateItem_RejectsMissingName(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/items", CreateItemRequest{Quantity: "1"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestListItems_FiltersByTrip(t *testing.T) {
	// GIVEN: Lines on two different trips
	env := newTestEnv(t)
	shopID := env.defaultShop(t)

	env.do(t, http.MethodPost, "/api/items", CreateItemRequest{
		Name: "Milch", Quantity: "1 l", ShopID: shopID, ShoppingDate: "2025-03-12",
	}).Body.Close()
	env.do(t, http.MethodPost, "/api/items", CreateItemRequest{
		Name: "Fisch", Quantity: "300 g", ShopID: shopID, ShoppingDate: "2025-03-14",
	}).Body.Close()

	// WHEN: Filtering on the Wednesday trip
	resp := env.do(t, http.MethodGet, "/api/items?shop="+shopID+"&date=2025-03-12", nil)
	lines := decode[[]LineDTO](t, resp)

	// THEN: Only the Wednesday line is returned
	if len(lines) != 1 || lines[0].Name != "Milch" {
		t.Errorf("Expected only Milch, got %+v", lines)
	}
}

func TestDeleteItem_RemovesLine(t *testing.T) {
	env := newTestEnv(t)
	shopID := env.defaultShop(t)

	resp := env.do(t, http.MethodPost, "/api/items", CreateItemRequest{
		Name: "Butter", Quantity: "1", ShopID: shopID, ShoppingDate: "2025-03-12",
	})
	line := decode[LineDTO](t, resp)

	del := env.do(t, http.MethodDelete, "/api/items/"+line.ID, nil)
	del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", del.StatusCode)
	}

	lines := decode[[]LineDTO](t, env.do(t, http.MethodGet, "/api/items", nil))
	if len(lines) != 0 {
		t.Errorf("Expected empty list, got %d lines", len(lines))
	}
}

func TestDeleteExpiredItems_RemovesPastTrips(t *testing.T) {
	// GIVEN: One past and one upcoming trip
	env := newTestEnv(t)
	shopID := env.defaultShop(t)

	env.do(t, http.MethodPost, "/api/items", CreateItemRequest{
		Name: "Alt", Quantity: "1", ShopID: shopID, ShoppingDate: "2025-03-05",
	}).Body.Close()
	env.do(t, http.MethodPost, "/api/items", CreateItemRequest{
		Name: "Neu", Quantity: "1", ShopID: shopID, ShoppingDate: "2025-03-12",
	}).Body.Close()

	// WHEN: Deleting everything before today
	resp := env.do(t, http.MethodDelete, "/api/items/expired?before=2025-03-10", nil)
	result := decode[map[string]int](t, resp)

	// THEN: Only the past trip's line is gone
	if result["removed"] != 1 {
		t.Errorf("Expected 1 removed, got %d", result["removed"])
	}
	lines := decode[[]LineDTO](t, env.do(t, http.MethodGet, "/api/items", nil))
	if len(lines) != 1 || lines[0].Name != "Neu" {
		t.Errorf("Expected only Neu to survive, got %+v", lines)
	}
}

func TestConvertToProduct_RelinksLine(t *testing.T) {
	// GIVEN: A plain line without a product
	env := newTestEnv(t)
	shopID := env.defaultShop(t)

	resp := env.do(t, http.MethodPost, "/api/items", CreateItemRequest{
		Name: "Bergkäse", Quantity: "200 g", ShopID: shopID, ShoppingDate: "2025-03-14",
	})
	line := decode[LineDTO](t, resp)

	// WHEN: Converting it into a catalog product
	conv := env.do(t, http.MethodPost, "/api/items/"+line.ID+"/product", ConvertToProductRequest{
		Manufacturer: "Alpenhof", Fresh: true,
	})
	if conv.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", conv.StatusCode)
	}
	product := decode[ProductDTO](t, conv)

	// THEN: The line carries the product link afterwards
	lines := decode[[]LineDTO](t, env.do(t, http.MethodGet, "/api/items", nil))
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}
	if lines[0].ProductID != product.ID {
		t.Errorf("Expected product link %s, got %q", product.ID, lines[0].ProductID)
	}
	if lines[0].Manufacturer != "Alpenhof" {
		t.Errorf("Expected manufacturer Alpenhof, got %q", lines[0].Manufacturer)
	}
}

func TestAutocomplete_RanksPrefixMatchesFirst(t *testing.T) {
	// GIVEN: A catalog with a few products
	env := newTestEnv(t)
	shopID := env.defaultShop(t)

	ctx := context.Background()
	for i, name := range []string{"Milch", "Vollmilch", "Butter"} {
		p := sqlite.Product{ID: fmt.Sprintf("p-%d", i), ShopID: shopID, Name: name}
		if err := env.store.SaveProduct(ctx, p); err != nil {
			t.Fatalf("Failed to save product: %v", err)
		}
	}

	// WHEN: Completing a typed prefix
	resp := env.do(t, http.MethodGet, "/api/items/autocomplete?q=mil&shop="+shopID, nil)
	suggestions := decode[[]SuggestionDTO](t, resp)

	// THEN: The prefix match ranks first and Butter does not appear
	if len(suggestions) == 0 || suggestions[0].Name != "Milch" {
		t.Fatalf("Expected Milch first, got %+v", suggestions)
	}
	for _, s := range suggestions {
		if s.Name == "Butter" {
			t.Errorf("Butter should not match 'mil'")
		}
	}
}

func TestTemplates_DuplicateNameConflicts(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/templates", SaveTemplateRequest{
		Name: "Frühstück", Items: []list.Contribution{{Name: "Brot", Quantity: "1"}},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}

	dup := env.do(t, http.MethodPost, "/api/templates", SaveTemplateRequest{Name: "frühstück"})
	dup.Body.Close()
	if dup.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate name, got %d", dup.StatusCode)
	}
}

func TestWeekplan_EntryFeedsShoppingList(t *testing.T) {
	// GIVEN: A default shop and a breakfast template
	env := newTestEnv(t)
	env.defaultShop(t)

	tplResp := env.do(t, http.MethodPost, "/api/templates", SaveTemplateRequest{
		Name:        "Frühstück",
		PersonCount: 2,
		Items:       []list.Contribution{{Name: "Milch", Quantity: "1 l"}},
	})
	tpl := decode[TemplateDTO](t, tplResp)

	// WHEN: Planning it for Friday dinner
	resp := env.do(t, http.MethodPost, "/api/weekplan", SaveEntryRequest{
		Date: "2025-03-14", Meal: "dinner", Binding: "template", BindingID: tpl.ID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	entry := decode[EntryDTO](t, resp)

	// THEN: The milk lands on the Wednesday trip
	lines := decode[[]LineDTO](t, env.do(t, http.MethodGet, "/api/items", nil))
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}
	if lines[0].Name != "Milch" || lines[0].ShoppingDate != testWednesday.String() {
		t.Errorf("Expected Milch on %s, got %+v", testWednesday, lines[0])
	}

	// AND: Deleting the entry retracts the contribution
	del := env.do(t, http.MethodDelete, "/api/weekplan/"+entry.ID, nil)
	del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", del.StatusCode)
	}
	lines = decode[[]LineDTO](t, env.do(t, http.MethodGet, "/api/items", nil))
	if len(lines) != 0 {
		t.Errorf("Expected empty list after retraction, got %+v", lines)
	}
}

func TestWeekplan_InvalidMealRejected(t *testing.T) {
	env := newTestEnv(t)
	env.defaultShop(t)

	resp := env.do(t, http.MethodPost, "/api/weekplan", SaveEntryRequest{
		Date: "2025-03-14", Meal: "brunch",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid meal, got %d", resp.StatusCode)
	}
}

func TestWeekplan_UpdateMissingEntryIs404(t *testing.T) {
	env := newTestEnv(t)
	env.defaultShop(t)

	resp := env.do(t, http.MethodPut, "/api/weekplan/nope", SaveEntryRequest{
		Date: "2025-03-14", Meal: "dinner",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestGetConfig_ReturnsCadenceAndUnits(t *testing.T) {
	env := newTestEnv(t)

	cfg := decode[ConfigDTO](t, env.do(t, http.MethodGet, "/api/config", nil))

	if cfg.MainShoppingDay != 2 || cfg.FreshProductsDay != 4 {
		t.Errorf("Expected default cadence 2/4, got %d/%d", cfg.MainShoppingDay, cfg.FreshProductsDay)
	}
	if len(cfg.Units) == 0 {
		t.Errorf("Expected the built-in unit vocabulary")
	}
}
