package realtime

import (
	"time"

	"ticketd/cmd/identity/ids"
)

// NewSessionID returns a ULID used as feed session id.
func NewSessionID(now time.Time) (string, error) {
	return ids.NewULID(now)
}

// NewEnvelopeID returns a ULID used as envelope id.
// ULIDs order by time, which keeps client-side dedup and logs simple.
func NewEnvelopeID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
