package audit

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"ticketd/cmd/identity/ids"
)

// Actions recorded by the service.
const (
	ActionLoginSuccess  = "auth.login.success"
	ActionLoginFailed   = "auth.login.failed"
	ActionLoginThrottle = "auth.login.rate_limited"
	ActionLogoff        = "auth.logoff"
	ActionTicketCreated = "ticket.created"
	ActionTicketDeleted = "ticket.deleted"
)

// ErrInvalidEvent is returned for events without an action or with a caller-supplied id that is not a ULID.
var ErrInvalidEvent = errors.New("audit: invalid event")

// Event is one audit trail entry.
type Event struct {
	ID        string
	Action    string
	UserID    *uint64
	IP        net.IP
	UserAgent string
	Meta      map[string]any
	At        time.Time
}

// Recorder persists audit events.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// UserID is a helper for the optional Event.UserID field.
func UserID(id uint64) *uint64 { return &id }

// normalize fills the id and timestamp and validates the action.
func normalize(ev Event) (Event, error) {
	ev.Action = strings.TrimSpace(ev.Action)
	if ev.Action == "" {
		return Event{}, ErrInvalidEvent
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if ev.ID == "" {
		id, err := ids.NewULID(ev.At)
		if err != nil {
			return Event{}, err
		}
		ev.ID = id
	} else if !ids.Valid(ev.ID) {
		return Event{}, ErrInvalidEvent
	}
	ev.UserAgent = strings.TrimSpace(ev.UserAgent)
	return ev, nil
}

// NopRecorder drops every event.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, Event) error { return nil }

// LogRecorder writes events to a structured logger.
type LogRecorder struct {
	log *slog.Logger
}

// NewLogRecorder returns a LogRecorder. A nil log uses slog.Default.
func NewLogRecorder(log *slog.Logger) *LogRecorder {
	if log == nil {
		log = slog.Default()
	}
	return &LogRecorder{log: log}
}

// Record implements Recorder.
func (r *LogRecorder) Record(ctx context.Context, ev Event) error {
	ev, err := normalize(ev)
	if err != nil {
		return err
	}

	attrs := []any{"audit_id", ev.ID, "action", ev.Action, "at", ev.At}
	if ev.UserID != nil {
		attrs = append(attrs, "user_id", *ev.UserID)
	}
	if ev.IP != nil {
		attrs = append(attrs, "ip", ev.IP.String())
	}
	if ev.UserAgent != "" {
		attrs = append(attrs, "user_agent", ev.UserAgent)
	}
	if len(ev.Meta) > 0 {
		attrs = append(attrs, "meta", ev.Meta)
	}
	r.log.InfoContext(ctx, "audit.record", attrs...)
	return nil
}

// Tee records every event to each recorder in order and joins their errors.
func Tee(recorders ...Recorder) Recorder {
	out := make(tee, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type tee []Recorder

func (t tee) Record(ctx context.Context, ev Event) error {
	ev, err := normalize(ev)
	if err != nil {
		return err
	}

	var errs []error
	for _, r := range t {
		if err := r.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
