/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements every persistence interface of the application using one
  SQLite database file. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  list.ItemStore:          Shopping-list lines
  list.ContributionStore:  Recorded per-entry contribution vectors
  list.Catalog:            Product lookup for the reconciler
  plan.EntryStore:         Weekplan entries
  plan.TemplateStore:      Shopping templates
  plan.RecipeStore:        Imported recipes
  plan.StoreDirectory:     Default grocery store resolution

KEY TABLES:
  items:         The shared shopping list, keyed by line ID
  contributions: Each plan entry's last-applied contribution vector
  shops:         Grocery stores, one may be flagged default
  departments:   Sort groups within a shop
  products:      Catalog entries with the fresh flag
  templates:     Named shopping sets (items stored as JSON)
  recipes:       Imported recipes with their raw ingredient text
  plan_entries:  Weekplan slots (deltas stored as JSON)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety; the engine additionally
  serializes merges per shopping trip above this layer.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better
  concurrency: multiple readers don't block, single writer at a time,
  better crash recovery.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - list/store.go:       Engine-side interface definitions
  - plan/store.go:       Plan-side interface definitions
  - list/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lka/einkaufsliste/list"
	"github.com/lka/einkaufsliste/plan"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Grocery stores
	CREATE TABLE IF NOT EXISTS shops (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		is_default BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	-- Departments (sort groups within a shop)
	CREATE TABLE IF NOT EXISTS departments (
		id TEXT PRIMARY KEY,
		shop_id TEXT NOT NULL,
		name TEXT NOT NULL,
		sort_order INTEGER DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_departments_shop
		ON departments(shop_id, sort_order);

	-- Product catalog
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		shop_id TEXT NOT NULL,
		department_id TEXT,
		name TEXT NOT NULL,
		fresh BOOLEAN DEFAULT FALSE,
		manufacturer TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_products_shop
		ON products(shop_id);
	CREATE INDEX IF NOT EXISTS idx_products_shop_name
		ON products(shop_id, name COLLATE NOCASE);

	-- The shared shopping list
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		quantity TEXT NOT NULL,
		shop_id TEXT NOT NULL DEFAULT '',
		shopping_date TEXT NOT NULL DEFAULT '',
		product_id TEXT NOT NULL DEFAULT '',
		manufacturer TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Merge-candidate lookup (hot path: one read per applied item)
	CREATE INDEX IF NOT EXISTS idx_items_trip
		ON items(shop_id, shopping_date);

	-- Recorded contribution vectors per plan entry
	CREATE TABLE IF NOT EXISTS contributions (
		entry_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		quantity TEXT NOT NULL,
		shop_id TEXT NOT NULL DEFAULT '',
		shopping_date TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (entry_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_contributions_entry
		ON contributions(entry_id);

	-- Shopping templates
	CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE,
		person_count INTEGER NOT NULL DEFAULT 2,
		items_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Imported recipes
	CREATE TABLE IF NOT EXISTS recipes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		ingredients TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_recipes_name
		ON recipes(name COLLATE NOCASE);

	-- Weekplan entries
	CREATE TABLE IF NOT EXISTS plan_entries (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		meal TEXT NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		binding_kind TEXT NOT NULL DEFAULT '',
		binding_id TEXT NOT NULL DEFAULT '',
		shop_id TEXT NOT NULL DEFAULT '',
		deltas_json TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_plan_entries_date
		ON plan_entries(date);
	`

	_, err := s.db.Exec(schema)
	return err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// =============================================================================
// ITEM STORE (list.ItemStore interface)
// =============================================================================

const itemColumns = "id, name, quantity, shop_id, shopping_date, product_id, manufacturer"

// Lines returns every line on the shared list.
func (s *Store) Lines(ctx context.Context) ([]list.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + itemColumns + " FROM items ORDER BY shopping_date ASC, name ASC"
	return s.queryLines(ctx, query)
}

// LinesFor returns the merge candidates of one (shop, date) trip.
func (s *Store) LinesFor(ctx context.Context, storeID string, date list.Date) ([]list.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + itemColumns + ` FROM items
		WHERE shop_id = ? AND shopping_date = ?
		ORDER BY name ASC`
	return s.queryLines(ctx, query, storeID, date.String())
}

// SaveLine inserts or updates a line by ID.
func (s *Store) SaveLine(ctx context.Context, line list.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO items (id, name, quantity, shop_id, shopping_date, product_id, manufacturer, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			quantity = excluded.quantity,
			shop_id = excluded.shop_id,
			shopping_date = excluded.shopping_date,
			product_id = excluded.product_id,
			manufacturer = excluded.manufacturer,
			updated_at = excluded.updated_at
	`
	ts := now()
	_, err := s.db.ExecContext(ctx, query,
		line.ID, line.Name, line.Quantity, line.StoreID,
		line.ShoppingDate.String(), line.ProductID, line.Manufacturer,
		ts, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}

// RemoveLine deletes a line. Removing a missing line is not an error.
func (s *Store) RemoveLine(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	return err
}

// RemoveLinesBefore deletes dated lines with a shopping date strictly
// before the given date, optionally limited to one shop.
func (s *Store) RemoveLinesBefore(ctx context.Context, before list.Date, storeID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := "SELECT id FROM items WHERE shopping_date != '' AND shopping_date < ?"
	args := []any{before.String()}
	if storeID != "" {
		query += " AND shop_id = ?"
		args = append(args, storeID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func (s *Store) queryLines(ctx context.Context, query string, args ...any) ([]list.Line, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var lines []list.Line
	for rows.Next() {
		var line list.Line
		var dateStr string
		if err := rows.Scan(&line.ID, &line.Name, &line.Quantity,
			&line.StoreID, &dateStr, &line.ProductID, &line.Manufacturer); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		line.ShoppingDate, err = list.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt shopping date %q: %w", dateStr, err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// =============================================================================
// CONTRIBUTION STORE (list.ContributionStore interface)
// =============================================================================

// Record replaces the entry's whole contribution vector atomically.
func (s *Store) Record(ctx context.Context, entryID string, rowsIn []list.Applied) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM contributions WHERE entry_id = ?", entryID); err != nil {
		return err
	}
	for i, row := range rowsIn {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO contributions (entry_id, position, name, quantity, shop_id, shopping_date)
			VALUES (?, ?, ?, ?, ?, ?)`,
			entryID, i, row.Name, row.Quantity, row.StoreID, row.ShoppingDate.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to record contribution: %w", err)
		}
	}
	return tx.Commit()
}

// Recorded returns the entry's last-applied contribution vector.
func (s *Store) Recorded(ctx context.Context, entryID string) ([]list.Applied, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, quantity, shop_id, shopping_date
		FROM contributions
		WHERE entry_id = ?
		ORDER BY position ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []list.Applied
	for rows.Next() {
		row := list.Applied{EntryID: entryID}
		var dateStr string
		if err := rows.Scan(&row.Name, &row.Quantity, &row.StoreID, &dateStr); err != nil {
			return nil, err
		}
		row.ShoppingDate, err = list.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt shopping date %q: %w", dateStr, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Clear drops the entry's recorded vector.
func (s *Store) Clear(ctx context.Context, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM contributions WHERE entry_id = ?", entryID)
	return err
}

// =============================================================================
// CATALOG (list.Catalog interface)
// =============================================================================

const productColumns = "id, name, shop_id, COALESCE(department_id, ''), fresh, COALESCE(manufacturer, '')"

// Lookup finds a product by exact (case-insensitive) name within a shop.
func (s *Store) Lookup(ctx context.Context, storeID, name string) (*list.CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var e list.CatalogEntry
	err := s.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE shop_id = ? AND name = ? COLLATE NOCASE",
		storeID, name,
	).Scan(&e.ID, &e.Name, &e.StoreID, &e.DepartmentID, &e.Fresh, &e.Manufacturer)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Entries returns all products of a shop.
func (s *Store) Entries(ctx context.Context, storeID string) ([]list.CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE shop_id = ? ORDER BY name ASC", storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []list.CatalogEntry
	for rows.Next() {
		var e list.CatalogEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.StoreID, &e.DepartmentID, &e.Fresh, &e.Manufacturer); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// SHOPS, DEPARTMENTS, PRODUCTS - Host catalog records
// =============================================================================

// Shop is a grocery store record.
type Shop struct {
	ID        string
	Name      string
	IsDefault bool
}

// Department is a sort group within a shop.
type Department struct {
	ID        string
	ShopID    string
	Name      string
	SortOrder int
}

// Product is a catalog product record.
type Product struct {
	ID           string
	ShopID       string
	DepartmentID string
	Name         string
	Fresh        bool
	Manufacturer string
}

// SaveShop inserts or updates a shop.
func (s *Store) SaveShop(ctx context.Context, shop Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO shops (id, name, is_default, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			is_default = excluded.is_default
	`
	_, err := s.db.ExecContext(ctx, query, shop.ID, shop.Name, shop.IsDefault, now())
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("shop name %q already exists", shop.Name)
	}
	return err
}

// Shops returns all shops, default first.
func (s *Store) Shops(ctx context.Context) ([]Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, is_default FROM shops ORDER BY is_default DESC, name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shops []Shop
	for rows.Next() {
		var sh Shop
		if err := rows.Scan(&sh.ID, &sh.Name, &sh.IsDefault); err != nil {
			return nil, err
		}
		shops = append(shops, sh)
	}
	return shops, rows.Err()
}

// DefaultStore implements plan.StoreDirectory: the flagged default shop,
// or the oldest one, or "" when no shop exists.
func (s *Store) DefaultStore(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM shops ORDER BY is_default DESC, created_at ASC LIMIT 1",
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// SaveDepartment inserts or updates a department.
func (s *Store) SaveDepartment(ctx context.Context, d Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO departments (id, shop_id, name, sort_order, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			sort_order = excluded.sort_order
	`
	_, err := s.db.ExecContext(ctx, query, d.ID, d.ShopID, d.Name, d.SortOrder, now())
	return err
}

// Departments returns a shop's departments in sort order.
func (s *Store) Departments(ctx context.Context, shopID string) ([]Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, shop_id, name, sort_order FROM departments WHERE shop_id = ? ORDER BY sort_order ASC, name ASC",
		shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deps []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.ShopID, &d.Name, &d.SortOrder); err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

// SaveProduct inserts or updates a catalog product.
func (s *Store) SaveProduct(ctx context.Context, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO products (id, shop_id, department_id, name, fresh, manufacturer, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			shop_id = excluded.shop_id,
			department_id = excluded.department_id,
			name = excluded.name,
			fresh = excluded.fresh,
			manufacturer = excluded.manufacturer
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.ShopID, p.DepartmentID, p.Name, p.Fresh, p.Manufacturer, now())
	return err
}

// DeleteProduct removes a catalog product.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	return err
}

// =============================================================================
// PLAN ENTRY STORE (plan.EntryStore interface)
// =============================================================================

const entryColumns = "id, date, meal, text, binding_kind, binding_id, shop_id, deltas_json"

// Entry retrieves a plan entry by ID; (nil, nil) when missing.
func (s *Store) Entry(ctx context.Context, id string) (*plan.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM plan_entries WHERE id = ?", id)

	entry, err := scanEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// EntriesBetween returns the entries within [from, to], ordered by date.
func (s *Store) EntriesBetween(ctx context.Context, from, to list.Date) ([]plan.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM plan_entries WHERE date >= ? AND date <= ? ORDER BY date ASC, id ASC",
		from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []plan.Entry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func scanEntry(scan func(dest ...any) error) (*plan.Entry, error) {
	var e plan.Entry
	var dateStr, meal, kind, deltasJSON string
	if err := scan(&e.ID, &dateStr, &meal, &e.Text, &kind, &e.BindingID, &e.StoreID, &deltasJSON); err != nil {
		return nil, err
	}

	var err error
	e.Date, err = list.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt entry date %q: %w", dateStr, err)
	}
	e.Meal = list.Meal(meal)
	e.Binding = plan.BindingKind(kind)
	if err := json.Unmarshal([]byte(deltasJSON), &e.Deltas); err != nil {
		return nil, fmt.Errorf("corrupt deltas for entry %s: %w", e.ID, err)
	}
	return &e, nil
}

// SaveEntry inserts or updates a plan entry.
func (s *Store) SaveEntry(ctx context.Context, entry plan.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deltasJSON, err := json.Marshal(entry.Deltas)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO plan_entries (id, date, meal, text, binding_kind, binding_id, shop_id, deltas_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			meal = excluded.meal,
			text = excluded.text,
			binding_kind = excluded.binding_kind,
			binding_id = excluded.binding_id,
			shop_id = excluded.shop_id,
			deltas_json = excluded.deltas_json,
			updated_at = excluded.updated_at
	`
	ts := now()
	_, err = s.db.ExecContext(ctx, query,
		entry.ID, entry.Date.String(), string(entry.Meal), entry.Text,
		string(entry.Binding), entry.BindingID, entry.StoreID,
		string(deltasJSON), ts, ts,
	)
	return err
}

// DeleteEntry removes a plan entry.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM plan_entries WHERE id = ?", id)
	return err
}

// =============================================================================
// TEMPLATE STORE (plan.TemplateStore interface)
// =============================================================================

// Template retrieves a template by ID; (nil, nil) when missing.
func (s *Store) Template(ctx context.Context, id string) (*plan.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t plan.Template
	var itemsJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, person_count, items_json FROM templates WHERE id = ?", id,
	).Scan(&t.ID, &t.Name, &t.PersonCount, &itemsJSON)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(itemsJSON), &t.Items); err != nil {
		return nil, fmt.Errorf("corrupt items for template %s: %w", t.ID, err)
	}
	return &t, nil
}

// Templates returns all templates ordered by name.
func (s *Store) Templates(ctx context.Context) ([]plan.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, person_count, items_json FROM templates ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []plan.Template
	for rows.Next() {
		var t plan.Template
		var itemsJSON string
		if err := rows.Scan(&t.ID, &t.Name, &t.PersonCount, &itemsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(itemsJSON), &t.Items); err != nil {
			return nil, fmt.Errorf("corrupt items for template %s: %w", t.ID, err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// SaveTemplate inserts or updates a template.
func (s *Store) SaveTemplate(ctx context.Context, tpl plan.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	itemsJSON, err := json.Marshal(tpl.Items)
	if err != nil {
		return err
	}
	if tpl.Items == nil {
		itemsJSON = []byte("[]")
	}

	query := `
		INSERT INTO templates (id, name, person_count, items_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			person_count = excluded.person_count,
			items_json = excluded.items_json,
			updated_at = excluded.updated_at
	`
	ts := now()
	_, err = s.db.ExecContext(ctx, query,
		tpl.ID, tpl.Name, tpl.PersonCount, string(itemsJSON), ts, ts)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return plan.ErrDuplicateTemplate
	}
	return err
}

// DeleteTemplate removes a template.
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM templates WHERE id = ?", id)
	return err
}

// =============================================================================
// RECIPE STORE (plan.RecipeStore interface)
// =============================================================================

// Recipe retrieves a recipe by ID; (nil, nil) when missing.
func (s *Store) Recipe(ctx context.Context, id string) (*plan.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r plan.Recipe
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, category, ingredients FROM recipes WHERE id = ?", id,
	).Scan(&r.ID, &r.Name, &r.Category, &r.Ingredients)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Recipes returns all recipes ordered by name.
func (s *Store) Recipes(ctx context.Context) ([]plan.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, category, ingredients FROM recipes ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipes []plan.Recipe
	for rows.Next() {
		var r plan.Recipe
		if err := rows.Scan(&r.ID, &r.Name, &r.Category, &r.Ingredients); err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, rows.Err()
}

// SaveRecipe inserts or updates a recipe.
func (s *Store) SaveRecipe(ctx context.Context, rec plan.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO recipes (id, name, category, ingredients, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			ingredients = excluded.ingredients
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Name, rec.Category, rec.Ingredients, now())
	return err
}

// DeleteRecipe removes a recipe.
func (s *Store) DeleteRecipe(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM recipes WHERE id = ?", id)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// RelinkProduct points every line sharing the given name (within the
// shop) at the product. Used by convert-line-to-product.
func (s *Store) RelinkProduct(ctx context.Context, shopID, name, productID, manufacturer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE items SET product_id = ?, manufacturer = ?, updated_at = ?
		WHERE shop_id = ? AND name = ? COLLATE NOCASE`,
		productID, manufacturer, now(), shopID, name)
	return err
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"items", "contributions", "plan_entries", "templates", "recipes", "products", "departments", "shops"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
