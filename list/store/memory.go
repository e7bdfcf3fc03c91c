// Package store provides in-memory implementations of the list
// persistence interfaces, for testing and development.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/lka/einkaufsliste/list"
)

// =============================================================================
// MEMORY ITEM STORE
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	lines map[string]list.Line
}

func NewMemory() *Memory {
	return &Memory{lines: make(map[string]list.Line)}
}

func (m *Memory) Lines(_ context.Context) ([]list.Line, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]list.Line, 0, len(m.lines))
	for _, line := range m.lines {
		result = append(result, line)
	}
	sortLines(result)
	return result, nil
}

func (m *Memory) LinesFor(_ context.Context, storeID string, date list.Date) ([]list.Line, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []list.Line
	for _, line := range m.lines {
		if line.StoreID == storeID && line.ShoppingDate.Equal(date) {
			result = append(result, line)
		}
	}
	sortLines(result)
	return result, nil
}

func (m *Memory) SaveLine(_ context.Context, line list.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[line.ID] = line
	return nil
}

func (m *Memory) RemoveLine(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lines, id)
	return nil
}

func (m *Memory) RemoveLinesBefore(_ context.Context, before list.Date, storeID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for id, line := range m.lines {
		if line.ShoppingDate.IsZero() || !line.ShoppingDate.Before(before) {
			continue
		}
		if storeID != "" && line.StoreID != storeID {
			continue
		}
		delete(m.lines, id)
		removed = append(removed, id)
	}
	sort.Strings(removed)
	return removed, nil
}

func sortLines(lines []list.Line) {
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].ShoppingDate.Equal(lines[j].ShoppingDate) {
			return lines[i].ShoppingDate.Before(lines[j].ShoppingDate)
		}
		return lines[i].Name < lines[j].Name
	})
}

// =============================================================================
// MEMORY CONTRIBUTION STORE
// =============================================================================

type MemoryContributions struct {
	mu       sync.RWMutex
	recorded map[string][]list.Applied
}

func NewMemoryContributions() *MemoryContributions {
	return &MemoryContributions{recorded: make(map[string][]list.Applied)}
}

func (m *MemoryContributions) Record(_ context.Context, entryID string, rows []list.Applied) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded[entryID] = append([]list.Applied{}, rows...)
	return nil
}

func (m *MemoryContributions) Recorded(_ context.Context, entryID string) ([]list.Applied, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]list.Applied{}, m.recorded[entryID]...), nil
}

func (m *MemoryContributions) Clear(_ context.Context, entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recorded, entryID)
	return nil
}

// =============================================================================
// MEMORY CATALOG
// =============================================================================

type MemoryCatalog struct {
	mu      sync.RWMutex
	entries map[string][]list.CatalogEntry // keyed by store ID
}

func NewMemoryCatalog(entries ...list.CatalogEntry) *MemoryCatalog {
	c := &MemoryCatalog{entries: make(map[string][]list.CatalogEntry)}
	for _, e := range entries {
		c.entries[e.StoreID] = append(c.entries[e.StoreID], e)
	}
	return c
}

func (c *MemoryCatalog) Add(entry list.CatalogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.StoreID] = append(c.entries[entry.StoreID], entry)
}

func (c *MemoryCatalog) Lookup(_ context.Context, storeID, name string) (*list.CatalogEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.entries[storeID] {
		if strings.EqualFold(e.Name, name) {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

func (c *MemoryCatalog) Entries(_ context.Context, storeID string) ([]list.CatalogEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]list.CatalogEntry{}, c.entries[storeID]...), nil
}
