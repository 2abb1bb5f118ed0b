package ticket

import "time"

// Ticket is one stored ticket.
type Ticket struct {
	ID      uint64 `json:"id"`
	OwnerID uint64 `json:"owner_id"`
	Title   string `json:"title"`
}

// ForCreate is the input to Store.Create.
type ForCreate struct {
	Title string `json:"title"`
}

// EventKind names a store mutation.
type EventKind string

const (
	// EventCreated is published after Create.
	EventCreated EventKind = "ticket.created"
	// EventDeleted is published after a successful Delete.
	EventDeleted EventKind = "ticket.deleted"
)

// Event describes a committed store mutation.
type Event struct {
	Kind    EventKind
	Ticket  Ticket
	ActorID uint64
	At      time.Time
}

// Publisher receives committed mutations. Publish must not block.
type Publisher interface {
	Publish(Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

// Publish calls f(ev).
func (f PublisherFunc) Publish(ev Event) { f(ev) }

// Stats is a point-in-time view of the slot table.
type Stats struct {
	Slots    int
	Occupied int
}
