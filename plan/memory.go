package plan

import (
	"context"
	"sort"
	"sync"

	"github.com/lka/einkaufsliste/list"
)

// =============================================================================
// MEMORY STORES - For testing/dev
// =============================================================================

type MemoryEntries struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryEntries() *MemoryEntries {
	return &MemoryEntries{entries: make(map[string]Entry)}
}

func (m *MemoryEntries) Entry(_ context.Context, id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok {
		return &e, nil
	}
	return nil, nil
}

func (m *MemoryEntries) EntriesBetween(_ context.Context, from, to list.Date) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for _, e := range m.entries {
		if e.Date.AfterOrEqual(from) && e.Date.BeforeOrEqual(to) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryEntries) SaveEntry(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
	return nil
}

func (m *MemoryEntries) DeleteEntry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

type MemoryTemplates struct {
	mu        sync.RWMutex
	templates map[string]Template
}

func NewMemoryTemplates() *MemoryTemplates {
	return &MemoryTemplates{templates: make(map[string]Template)}
}

func (m *MemoryTemplates) Template(_ context.Context, id string) (*Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.templates[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (m *MemoryTemplates) Templates(_ context.Context) ([]Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Template, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryTemplates) SaveTemplate(_ context.Context, tpl Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[tpl.ID] = tpl
	return nil
}

func (m *MemoryTemplates) DeleteTemplate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.templates, id)
	return nil
}

type MemoryRecipes struct {
	mu      sync.RWMutex
	recipes map[string]Recipe
}

func NewMemoryRecipes() *MemoryRecipes {
	return &MemoryRecipes{recipes: make(map[string]Recipe)}
}

func (m *MemoryRecipes) Recipe(_ context.Context, id string) (*Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.recipes[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *MemoryRecipes) Recipes(_ context.Context) ([]Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Recipe, 0, len(m.recipes))
	for _, r := range m.recipes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryRecipes) SaveRecipe(_ context.Context, rec Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recipes[rec.ID] = rec
	return nil
}

func (m *MemoryRecipes) DeleteRecipe(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recipes, id)
	return nil
}

// FixedStore is a StoreDirectory that always answers with one store ID.
type FixedStore string

func (f FixedStore) DefaultStore(context.Context) (string, error) {
	return string(f), nil
}
