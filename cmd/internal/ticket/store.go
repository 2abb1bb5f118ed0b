package ticket

import (
	"context"
	"sync"
	"time"

	"ticketd/cmd/internal/auth"
)

// Store is the mutex-guarded ticket slot table. A nil slot is a deleted ticket.
// Share a *Store; never copy it.
type Store struct {
	pub Publisher
	now func() time.Time

	mu       sync.Mutex
	slots    []*Ticket
	occupied int
}

// Option configures a Store.
type Option func(*Store)

// WithPublisher sends committed mutations to p.
func WithPublisher(p Publisher) Option {
	return func(s *Store) {
		if p != nil {
			s.pub = p
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:   func() time.Time { return time.Now().UTC() },
		slots: make([]*Ticket, 0, 64),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Create appends a ticket owned by id. Its id is the current slot count.
// It only fails when ctx is already done, in which case nothing is stored.
func (s *Store) Create(ctx context.Context, id auth.Identity, in ForCreate) (Ticket, error) {
	if err := ctx.Err(); err != nil {
		return Ticket{}, err
	}

	t := s.insert(id.UserID, in.Title)
	s.publish(EventCreated, t, id)
	return t, nil
}

func (s *Store) insert(ownerID uint64, title string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := Ticket{
		ID:      uint64(len(s.slots)),
		OwnerID: ownerID,
		Title:   title,
	}
	s.slots = append(s.slots, &t)
	s.occupied++
	return t
}

// List returns a snapshot of every live ticket in ascending id order.
func (s *Store) List(ctx context.Context, _ auth.Identity) ([]Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Ticket, 0, s.occupied)
	for _, t := range s.slots {
		if t != nil {
			out = append(out, *t)
		}
	}
	return out, nil
}

// Delete empties slot ticketID and returns the ticket that occupied it.
// An out-of-range or already empty slot yields *NotFoundError and changes nothing.
func (s *Store) Delete(ctx context.Context, id auth.Identity, ticketID uint64) (Ticket, error) {
	if err := ctx.Err(); err != nil {
		return Ticket{}, err
	}

	t, err := s.take(ticketID)
	if err != nil {
		return Ticket{}, err
	}

	s.publish(EventDeleted, t, id)
	return t, nil
}

func (s *Store) take(ticketID uint64) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticketID >= uint64(len(s.slots)) || s.slots[ticketID] == nil {
		return Ticket{}, &NotFoundError{ID: ticketID}
	}

	t := *s.slots[ticketID]
	s.slots[ticketID] = nil
	s.occupied--
	return t, nil
}

// Stats returns the slot table size and the number of live tickets.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Slots: len(s.slots), Occupied: s.occupied}
}

// publish runs without s.mu held, so cross-caller event order is best effort.
func (s *Store) publish(kind EventKind, t Ticket, actor auth.Identity) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(Event{Kind: kind, Ticket: t, ActorID: actor.UserID, At: s.now()})
}
