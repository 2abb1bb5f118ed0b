package audit

import (
	"context"
	"net"
	"sync"
	"time"
)

// DefaultMemoryCapacity is the event count a MemoryRecorder keeps by default.
const DefaultMemoryCapacity = 4096

// MemoryRecorder keeps the most recent events in process memory. It backs
// login throttling when no database is configured.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
}

// NewMemoryRecorder returns a recorder holding at most capacity events.
// capacity <= 0 uses DefaultMemoryCapacity.
func NewMemoryRecorder(capacity int) *MemoryRecorder {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryRecorder{events: make([]Event, capacity)}
}

// Record implements Recorder. The oldest event is overwritten when full.
func (r *MemoryRecorder) Record(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev, err := normalize(ev)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[r.next] = ev
	r.next++
	if r.next == len(r.events) {
		r.next = 0
		r.full = true
	}
	return nil
}

// Events returns the retained events, oldest first.
func (r *MemoryRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		return append([]Event(nil), r.events[:r.next]...)
	}
	out := make([]Event, 0, len(r.events))
	out = append(out, r.events[r.next:]...)
	return append(out, r.events[:r.next]...)
}

// FailuresSince returns the timestamps of retained action events from ip at or
// after since, newest first.
func (r *MemoryRecorder) FailuresSince(ctx context.Context, action string, ip net.IP, since time.Time) ([]time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ip == nil {
		return nil, nil
	}

	events := r.Events()
	var out []time.Time
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Action == action && ev.IP.Equal(ip) && !ev.At.Before(since) {
			out = append(out, ev.At)
		}
	}
	return out, nil
}
