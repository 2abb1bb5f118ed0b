// Package v1 defines the ticket event feed protocol v1 contract.
//
// It is shared between the server and clients so the wire format has one
// authoritative definition. Keep it free of server-internal imports.
package v1

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Version is the protocol version embedded into every envelope.
const Version = 1

// Subprotocol is the WebSocket subprotocol negotiated for v1.
const Subprotocol = "ticketd.events.v1"

// Type constants (wire-stable). Every frame flows server -> client.
const (
	// TypeReady is the first frame of every session and carries the session id.
	TypeReady = "feed.ready"
	// TypeTicketCreated reports a newly stored ticket.
	TypeTicketCreated = "ticket.created"
	// TypeTicketDeleted reports a removed ticket, with its last content.
	TypeTicketDeleted = "ticket.deleted"
)

var allowedTypes = map[string]struct{}{
	TypeReady:         {},
	TypeTicketCreated: {},
	TypeTicketDeleted: {},
}

// Ticket is the wire form of a stored ticket.
type Ticket struct {
	ID      uint64 `json:"id"`
	OwnerID uint64 `json:"owner_id"`
	Title   string `json:"title"`
}

// Envelope is the canonical wire wrapper.
type Envelope struct {
	V       int       `json:"v"`
	Type    string    `json:"type"`
	ID      string    `json:"id"`
	TS      time.Time `json:"ts"`
	Ticket  *Ticket   `json:"ticket,omitempty"`
	ActorID uint64    `json:"actor_id,omitempty"`
	Session string    `json:"session_id,omitempty"`
}

// Validate performs strict structural validation for an Envelope.
func (e Envelope) Validate() error {
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %d", e.V)
	}
	if _, ok := allowedTypes[e.Type]; !ok {
		return fmt.Errorf("unsupported type: %q", e.Type)
	}
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("missing field: id")
	}
	if e.TS.IsZero() {
		return errors.New("missing field: ts")
	}

	switch e.Type {
	case TypeReady:
		if strings.TrimSpace(e.Session) == "" {
			return errors.New("feed.ready: missing field: session_id")
		}
	case TypeTicketCreated, TypeTicketDeleted:
		if e.Ticket == nil {
			return fmt.Errorf("%s: missing field: ticket", e.Type)
		}
	}
	return nil
}
