package realtime

import (
	"time"

	"ticketd/cmd/internal/ticket"
	v1 "ticketd/shared/contracts/feed/v1"
)

// Envelope is one frame on the ticket event feed.
type Envelope = v1.Envelope

// Version is the feed envelope version.
const Version = v1.Version

// TypeReady is the first frame of every session.
const TypeReady = v1.TypeReady

func envelopeFromEvent(ev ticket.Event) Envelope {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return Envelope{
		V:       Version,
		Type:    string(ev.Kind),
		ID:      envelopeID(ts),
		TS:      ts,
		Ticket:  wireTicket(ev.Ticket),
		ActorID: ev.ActorID,
	}
}

func wireTicket(t ticket.Ticket) *v1.Ticket {
	return &v1.Ticket{ID: t.ID, OwnerID: t.OwnerID, Title: t.Title}
}

func envelopeID(ts time.Time) string {
	id, err := NewEnvelopeID(ts)
	if err != nil {
		return ""
	}
	return id
}
