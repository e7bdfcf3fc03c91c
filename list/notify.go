package list

// =============================================================================
// CHANGE NOTIFICATIONS - Fire-and-forget, never on the critical path
// =============================================================================

type EventType string

const (
	EventAdded   EventType = "item:added"
	EventUpdated EventType = "item:updated"
	EventDeleted EventType = "item:deleted"
)

// Event describes one shopping-list change. For deletions only the
// line's ID is meaningful.
type Event struct {
	Type EventType
	Line Line
}

// Notifier broadcasts list changes to interested clients. Broadcast
// must not block: a slow or failed delivery never undoes or delays an
// already-applied quantity change.
type Notifier interface {
	Broadcast(Event)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Broadcast(Event) {}
