/*
janitor.go - Automated cleanup of past shopping trips

PURPOSE:
  Periodically removes list lines whose shopping date is in the past.
  A trip that has happened is done; its leftovers only clutter the list.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Deletes lines dated strictly before today, across all shops
  - Lines without a shopping date are never touched
  - Broadcasts a deletion event per removed line so open views update

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether the janitor is active (default: true)

USAGE:
  janitor := NewJanitor(store, hub)
  janitor.Start()
  // ... later
  janitor.Stop()

SEE ALSO:
  - handlers.go: DeleteExpiredItems endpoint (manual cleanup)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lka/einkaufsliste/list"
	"github.com/lka/einkaufsliste/store/sqlite"
)

// Janitor removes lines of past shopping trips in the background.
type Janitor struct {
	Store         *sqlite.Store
	Notifier      list.Notifier
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewJanitor creates a new janitor.
func NewJanitor(store *sqlite.Store, notifier list.Notifier) *Janitor {
	if notifier == nil {
		notifier = list.NopNotifier{}
	}
	return &Janitor{
		Store:         store,
		Notifier:      notifier,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the janitor.
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.Enabled {
		log.Println("[Janitor] Disabled, not starting")
		return
	}

	j.ticker = time.NewTicker(j.CheckInterval)
	j.wg.Add(1)

	go j.run()

	log.Printf("[Janitor] Started with check interval: %v", j.CheckInterval)
}

// Stop stops the janitor.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.ticker != nil {
		j.ticker.Stop()
		close(j.stop)
		j.wg.Wait()
		log.Println("[Janitor] Stopped")
	}
}

func (j *Janitor) run() {
	defer j.wg.Done()

	// Run immediately on start
	j.sweep()

	for {
		select {
		case <-j.ticker.C:
			j.sweep()
		case <-j.stop:
			return
		}
	}
}

func (j *Janitor) sweep() {
	ctx := context.Background()
	today := list.Today()

	removed, err := j.Store.RemoveLinesBefore(ctx, today, "")
	if err != nil {
		log.Printf("[Janitor] Cleanup failed: %v", err)
		return
	}
	if len(removed) == 0 {
		return
	}

	log.Printf("[Janitor] Removed %d lines from trips before %s", len(removed), today)
	for _, id := range removed {
		j.Notifier.Broadcast(list.Event{Type: list.EventDeleted, Line: list.Line{ID: id}})
	}
}
