/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures of the API contract, decoupled from the domain types.
  Dates travel as ISO strings (YYYY-MM-DD); an empty string means
  "no date".

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/lka/einkaufsliste/list"
	"github.com/lka/einkaufsliste/plan"
	"github.com/lka/einkaufsliste/store/sqlite"
)

// =============================================================================
// SHOPPING LIST
// =============================================================================

type LineDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Quantity     string `json:"quantity"`
	ShopID       string `json:"shop_id,omitempty"`
	ShoppingDate string `json:"shopping_date,omitempty"`
	ProductID    string `json:"product_id,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
}

func toLineDTO(l list.Line) LineDTO {
	return LineDTO{
		ID:           l.ID,
		Name:         l.Name,
		Quantity:     l.Quantity,
		ShopID:       l.StoreID,
		ShoppingDate: l.ShoppingDate.String(),
		ProductID:    l.ProductID,
		Manufacturer: l.Manufacturer,
	}
}

// CreateItemRequest is the create-or-merge payload. Quantity follows
// the expression grammar; a negative quantity subtracts.
type CreateItemRequest struct {
	Name         string `json:"name"`
	Quantity     string `json:"quantity"`
	ShopID       string `json:"shop_id"`
	ShoppingDate string `json:"shopping_date"`
}

// ConvertToProductRequest promotes a line's name into the shop catalog.
type ConvertToProductRequest struct {
	DepartmentID string `json:"department_id"`
	Manufacturer string `json:"manufacturer"`
	Fresh        bool   `json:"fresh"`
}

type SuggestionDTO struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// =============================================================================
// CATALOG
// =============================================================================

type ShopDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

func toShopDTO(s sqlite.Shop) ShopDTO {
	return ShopDTO{ID: s.ID, Name: s.Name, IsDefault: s.IsDefault}
}

type CreateShopRequest struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

type DepartmentDTO struct {
	ID        string `json:"id"`
	ShopID    string `json:"shop_id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

func toDepartmentDTO(d sqlite.Department) DepartmentDTO {
	return DepartmentDTO{ID: d.ID, ShopID: d.ShopID, Name: d.Name, SortOrder: d.SortOrder}
}

type CreateDepartmentRequest struct {
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

type ProductDTO struct {
	ID           string `json:"id"`
	ShopID       string `json:"shop_id"`
	DepartmentID string `json:"department_id,omitempty"`
	Name         string `json:"name"`
	Fresh        bool   `json:"fresh"`
	Manufacturer string `json:"manufacturer,omitempty"`
}

func toProductDTO(e list.CatalogEntry) ProductDTO {
	return ProductDTO{
		ID:           e.ID,
		ShopID:       e.StoreID,
		DepartmentID: e.DepartmentID,
		Name:         e.Name,
		Fresh:        e.Fresh,
		Manufacturer: e.Manufacturer,
	}
}

type CreateProductRequest struct {
	Name         string `json:"name"`
	DepartmentID string `json:"department_id"`
	Fresh        bool   `json:"fresh"`
	Manufacturer string `json:"manufacturer"`
}

// =============================================================================
// TEMPLATES AND RECIPES
// =============================================================================

type TemplateDTO struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	PersonCount int                 `json:"person_count"`
	Items       []list.Contribution `json:"items"`
}

func toTemplateDTO(t plan.Template) TemplateDTO {
	items := t.Items
	if items == nil {
		items = []list.Contribution{}
	}
	return TemplateDTO{ID: t.ID, Name: t.Name, PersonCount: t.PersonCount, Items: items}
}

type SaveTemplateRequest struct {
	Name        string              `json:"name"`
	PersonCount int                 `json:"person_count"`
	Items       []list.Contribution `json:"items"`
}

type RecipeDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Ingredients string `json:"ingredients"`
}

func toRecipeDTO(r plan.Recipe) RecipeDTO {
	return RecipeDTO{ID: r.ID, Name: r.Name, Category: r.Category, Ingredients: r.Ingredients}
}

type SaveRecipeRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Ingredients string `json:"ingredients"`
}

// =============================================================================
// WEEKPLAN
// =============================================================================

type EntryDTO struct {
	ID        string      `json:"id"`
	Date      string      `json:"date"`
	Meal      string      `json:"meal"`
	Text      string      `json:"text,omitempty"`
	Binding   string      `json:"binding,omitempty"`
	BindingID string      `json:"binding_id,omitempty"`
	ShopID    string      `json:"shop_id,omitempty"`
	Deltas    list.Deltas `json:"deltas"`
}

func toEntryDTO(e plan.Entry) EntryDTO {
	return EntryDTO{
		ID:        e.ID,
		Date:      e.Date.String(),
		Meal:      string(e.Meal),
		Text:      e.Text,
		Binding:   string(e.Binding),
		BindingID: e.BindingID,
		ShopID:    e.StoreID,
		Deltas:    e.Deltas,
	}
}

// SaveEntryRequest creates or updates a weekplan entry.
type SaveEntryRequest struct {
	Date      string      `json:"date"`
	Meal      string      `json:"meal"`
	Text      string      `json:"text"`
	Binding   string      `json:"binding"`
	BindingID string      `json:"binding_id"`
	ShopID    string      `json:"shop_id"`
	Deltas    list.Deltas `json:"deltas"`
}

// =============================================================================
// MISC
// =============================================================================

// ConfigDTO exposes the cadence settings the clients render.
type ConfigDTO struct {
	MainShoppingDay  int      `json:"main_shopping_day"`
	FreshProductsDay int      `json:"fresh_products_day"`
	Units            []string `json:"units"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
