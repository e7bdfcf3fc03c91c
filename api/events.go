/*
events.go - Server-sent events for live list updates

PURPOSE:
  In-process broadcaster connecting the reconciler's change events to
  any number of SSE clients (every open shopping-list view). Stands in
  for an external pub/sub.

DELIVERY CONTRACT:
  Broadcast never blocks: a slow client's buffer simply drops events.
  Clients are expected to refetch the list on reconnect anyway, so a
  dropped event costs one stale render, never a wrong write.
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/lka/einkaufsliste/list"
)

const clientBuffer = 16

// Hub fans list events out to subscribed SSE clients. Implements
// list.Notifier.
type Hub struct {
	mu      sync.Mutex
	clients map[chan list.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan list.Event]struct{})}
}

// Broadcast sends the event to every client, dropping it for clients
// whose buffer is full.
func (h *Hub) Broadcast(e list.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.clients {
		select {
		case ch <- e:
		default:
		}
	}
}

func (h *Hub) subscribe() chan list.Event {
	ch := make(chan list.Event, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan list.Event) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP streams events to one client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-ch:
			payload, err := json.Marshal(toLineDTO(e.Line))
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, payload)
			flusher.Flush()
		}
	}
}
