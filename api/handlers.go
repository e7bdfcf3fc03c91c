/*
handlers.go - HTTP API handlers for the shopping-list server

PURPOSE:
  Exposes the list engine and meal plan via REST. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Items:
    GET    /api/items                     List all lines (?shop=&date= filters one trip)
    POST   /api/items                     Create-or-merge a line
    DELETE /api/items/{id}                Delete a line
    DELETE /api/items/expired             Delete lines before a date (?before=&shop=)
    POST   /api/items/{id}/product        Convert a line into a catalog product
    GET    /api/items/autocomplete        Name completion (?q=&shop=)

  Catalog:
    GET    /api/shops                     List shops
    POST   /api/shops                     Create shop
    GET    /api/shops/{id}/departments    List departments
    POST   /api/shops/{id}/departments    Create department
    GET    /api/shops/{id}/products       List products
    POST   /api/shops/{id}/products       Create product
    DELETE /api/products/{id}             Delete product

  Templates / Recipes:
    GET    /api/templates                 POST, PUT /{id}, DELETE /{id}
    GET    /api/recipes                   (?q= substring search) POST, PUT /{id}, DELETE /{id}

  Weekplan:
    GET    /api/weekplan                  Entries of one week (?start=, default today)
    POST   /api/weekplan                  Create entry (drives reconciliation)
    PUT    /api/weekplan/{id}             Update entry
    DELETE /api/weekplan/{id}             Delete entry (retracts contributions)

  Misc:
    GET    /api/config                    Cadence weekdays and unit vocabulary
    GET    /api/events                    SSE stream of list changes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicate template name)
  - 500: Internal errors (including partial reconciliation failures,
         which carry per-item detail)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lka/einkaufsliste/config"
	"github.com/lka/einkaufsliste/list"
	"github.com/lka/einkaufsliste/plan"
	"github.com/lka/einkaufsliste/store/sqlite"
)

const autocompleteLimit = 10

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all request-handling dependencies.
type Handler struct {
	Store      *sqlite.Store
	Plan       *plan.Service
	Reconciler *list.Reconciler
	Notifier   list.Notifier
	Config     config.Config
}

// NewHandler wires a handler around the store, plan service and engine.
func NewHandler(store *sqlite.Store, planSvc *plan.Service, reconciler *list.Reconciler, notifier list.Notifier, cfg config.Config) *Handler {
	if notifier == nil {
		notifier = list.NopNotifier{}
	}
	return &Handler{
		Store:      store,
		Plan:       planSvc,
		Reconciler: reconciler,
		Notifier:   notifier,
		Config:     cfg,
	}
}

// =============================================================================
// ITEMS
// =============================================================================

// ListItems returns all lines, or the lines of one (shop, date) trip.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	shopID := r.URL.Query().Get("shop")
	dateStr := r.URL.Query().Get("date")

	var (
		lines []list.Line
		err   error
	)
	if shopID != "" || dateStr != "" {
		date, perr := list.ParseDate(dateStr)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid date", perr)
			return
		}
		lines, err = h.Store.LinesFor(r.Context(), shopID, date)
	} else {
		lines, err = h.Store.Lines(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load items", err)
		return
	}

	dtos := make([]LineDTO, 0, len(lines))
	for _, l := range lines {
		dtos = append(dtos, toLineDTO(l))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateItem creates or merges one line. The returned line has an empty
// quantity when the merge deleted it, and an empty ID when a
// subtraction found nothing to subtract from.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	date, err := list.ParseDate(req.ShoppingDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid shopping date", err)
		return
	}

	shopID := req.ShopID
	if shopID == "" {
		shopID, err = h.Store.DefaultStore(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to resolve shop", err)
			return
		}
	}

	quantity := req.Quantity
	if quantity == "" {
		quantity = "1"
	}

	line, err := h.Reconciler.MergeLine(r.Context(), req.Name, quantity, shopID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save item", err)
		return
	}
	writeJSON(w, http.StatusOK, toLineDTO(line))
}

// DeleteItem removes a line outright, regardless of its quantity.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.RemoveLine(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete item", err)
		return
	}
	h.Notifier.Broadcast(list.Event{Type: list.EventDeleted, Line: list.Line{ID: id}})
	w.WriteHeader(http.StatusNoContent)
}

// DeleteExpiredItems removes lines from trips before a given date.
func (h *Handler) DeleteExpiredItems(w http.ResponseWriter, r *http.Request) {
	before, err := list.ParseDate(r.URL.Query().Get("before"))
	if err != nil || before.IsZero() {
		writeError(w, http.StatusBadRequest, "valid 'before' date is required", err)
		return
	}

	removed, err := h.Store.RemoveLinesBefore(r.Context(), before, r.URL.Query().Get("shop"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete items", err)
		return
	}
	for _, id := range removed {
		h.Notifier.Broadcast(list.Event{Type: list.EventDeleted, Line: list.Line{ID: id}})
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": len(removed)})
}

// ConvertToProduct promotes a line's name into the shop catalog and
// relinks every same-named line to the new product.
func (h *Handler) ConvertToProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ConvertToProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	line, err := h.lineByID(r, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load item", err)
		return
	}
	if line == nil {
		writeError(w, http.StatusNotFound, "item not found", nil)
		return
	}

	product := sqlite.Product{
		ID:           uuid.NewString(),
		ShopID:       line.StoreID,
		DepartmentID: req.DepartmentID,
		Name:         line.Name,
		Fresh:        req.Fresh,
		Manufacturer: req.Manufacturer,
	}
	if err := h.Store.SaveProduct(r.Context(), product); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save product", err)
		return
	}
	if err := h.Store.RelinkProduct(r.Context(), line.StoreID, line.Name, product.ID, product.Manufacturer); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to relink items", err)
		return
	}

	writeJSON(w, http.StatusCreated, ProductDTO{
		ID:           product.ID,
		ShopID:       product.ShopID,
		DepartmentID: product.DepartmentID,
		Name:         product.Name,
		Fresh:        product.Fresh,
		Manufacturer: product.Manufacturer,
	})
}

// Autocomplete completes a typed prefix against product and line names.
func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusOK, []SuggestionDTO{})
		return
	}
	shopID := r.URL.Query().Get("shop")

	var names []string
	if entries, err := h.Store.Entries(r.Context(), shopID); err == nil {
		for _, e := range entries {
			names = append(names, e.Name)
		}
	}
	if lines, err := h.Store.Lines(r.Context()); err == nil {
		for _, l := range lines {
			names = append(names, l.Name)
		}
	}

	q := list.Normalize(query)
	seen := make(map[string]bool)
	var suggestions []SuggestionDTO
	for _, name := range names {
		n := list.Normalize(name)
		if seen[n] {
			continue
		}
		score := list.Similarity(q, n)
		if strings.HasPrefix(n, q) {
			score += list.AutocompletePrefixBonus
			if score > 1.0 {
				score = 1.0
			}
		}
		if score < list.AutocompleteThreshold {
			continue
		}
		seen[n] = true
		suggestions = append(suggestions, SuggestionDTO{Name: name, Score: score})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Name < suggestions[j].Name
	})
	if len(suggestions) > autocompleteLimit {
		suggestions = suggestions[:autocompleteLimit]
	}
	if suggestions == nil {
		suggestions = []SuggestionDTO{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

func (h *Handler) lineByID(r *http.Request, id string) (*list.Line, error) {
	lines, err := h.Store.Lines(r.Context())
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, nil
}

// =============================================================================
// SHOPS, DEPARTMENTS, PRODUCTS
// =============================================================================

func (h *Handler) ListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.Store.Shops(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load shops", err)
		return
	}
	dtos := make([]ShopDTO, 0, len(shops))
	for _, s := range shops {
		dtos = append(dtos, toShopDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateShop(w http.ResponseWriter, r *http.Request) {
	var req CreateShopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	shop := sqlite.Shop{ID: uuid.NewString(), Name: req.Name, IsDefault: req.IsDefault}
	if err := h.Store.SaveShop(r.Context(), shop); err != nil {
		writeError(w, http.StatusConflict, "failed to save shop", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShopDTO(shop))
}

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	deps, err := h.Store.Departments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load departments", err)
		return
	}
	dtos := make([]DepartmentDTO, 0, len(deps))
	for _, d := range deps {
		dtos = append(dtos, toDepartmentDTO(d))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req CreateDepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	dep := sqlite.Department{
		ID:        uuid.NewString(),
		ShopID:    chi.URLParam(r, "id"),
		Name:      req.Name,
		SortOrder: req.SortOrder,
	}
	if err := h.Store.SaveDepartment(r.Context(), dep); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save department", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDepartmentDTO(dep))
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.Entries(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load products", err)
		return
	}
	dtos := make([]ProductDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toProductDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	product := sqlite.Product{
		ID:           uuid.NewString(),
		ShopID:       chi.URLParam(r, "id"),
		DepartmentID: req.DepartmentID,
		Name:         req.Name,
		Fresh:        req.Fresh,
		Manufacturer: req.Manufacturer,
	}
	if err := h.Store.SaveProduct(r.Context(), product); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save product", err)
		return
	}
	writeJSON(w, http.StatusCreated, ProductDTO{
		ID:           product.ID,
		ShopID:       product.ShopID,
		DepartmentID: product.DepartmentID,
		Name:         product.Name,
		Fresh:        product.Fresh,
		Manufacturer: product.Manufacturer,
	})
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TEMPLATES
// =============================================================================

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Plan.Templates.Templates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load templates", err)
		return
	}
	dtos := make([]TemplateDTO, 0, len(templates))
	for _, t := range templates {
		dtos = append(dtos, toTemplateDTO(t))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	h.saveTemplate(w, r, "")
}

func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	h.saveTemplate(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) saveTemplate(w http.ResponseWriter, r *http.Request, id string) {
	var req SaveTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	tpl, err := h.Plan.SaveTemplate(r.Context(), plan.Template{
		ID:          id,
		Name:        req.Name,
		PersonCount: req.PersonCount,
		Items:       req.Items,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, toTemplateDTO(tpl))
}

func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.Plan.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RECIPES
// =============================================================================

func (h *Handler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.Plan.SearchRecipes(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load recipes", err)
		return
	}
	dtos := make([]RecipeDTO, 0, len(recipes))
	for _, rec := range recipes {
		dtos = append(dtos, toRecipeDTO(rec))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	h.saveRecipe(w, r, "")
}

func (h *Handler) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	h.saveRecipe(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) saveRecipe(w http.ResponseWriter, r *http.Request, id string) {
	var req SaveRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	rec, err := h.Plan.SaveRecipe(r.Context(), plan.Recipe{
		ID:          id,
		Name:        req.Name,
		Category:    req.Category,
		Ingredients: req.Ingredients,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, toRecipeDTO(rec))
}

func (h *Handler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	if err := h.Plan.DeleteRecipe(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// WEEKPLAN
// =============================================================================

func (h *Handler) ListWeekplan(w http.ResponseWriter, r *http.Request) {
	start, err := list.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date", err)
		return
	}
	if start.IsZero() {
		start = list.Today()
	}

	entries, err := h.Plan.EntriesForWeek(r.Context(), start)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load weekplan", err)
		return
	}
	dtos := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.decodeEntry(w, r, "")
	if !ok {
		return
	}
	created, err := h.Plan.CreateEntry(r.Context(), entry)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(created))
}

func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.decodeEntry(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	updated, err := h.Plan.UpdateEntry(r.Context(), entry)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(updated))
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.Plan.DeleteEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeEntry(w http.ResponseWriter, r *http.Request, id string) (plan.Entry, bool) {
	var req SaveEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return plan.Entry{}, false
	}

	date, err := list.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return plan.Entry{}, false
	}

	return plan.Entry{
		ID:        id,
		Date:      date,
		Meal:      list.Meal(req.Meal),
		Text:      req.Text,
		Binding:   plan.BindingKind(req.Binding),
		BindingID: req.BindingID,
		StoreID:   req.ShopID,
		Deltas:    req.Deltas,
	}, true
}

// =============================================================================
// MISC
// =============================================================================

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	units := h.Config.Units
	if len(units) == 0 {
		units = list.DefaultUnits
	}
	writeJSON(w, http.StatusOK, ConfigDTO{
		MainShoppingDay:  h.Config.MainShoppingDay,
		FreshProductsDay: h.Config.FreshProductsDay,
		Units:            units,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, list.ErrInvalidMeal), errors.Is(err, list.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid input", err)
	case errors.Is(err, plan.ErrEntryNotFound),
		errors.Is(err, plan.ErrTemplateNotFound),
		errors.Is(err, plan.ErrRecipeNotFound):
		writeError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, plan.ErrDuplicateTemplate):
		writeError(w, http.StatusConflict, "duplicate name", err)
	default:
		var rerr *list.ReconcileError
		if errors.As(err, &rerr) {
			writeError(w, http.StatusInternalServerError, "reconciliation incomplete", rerr)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}
