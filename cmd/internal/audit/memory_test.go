package audit

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecorder_KeepsMostRecent(t *testing.T) {
	t.Parallel()

	rec := NewMemoryRecorder(3)
	ctx := context.Background()
	for _, action := range []string{"a", "b", "c", "d"} {
		require.NoError(t, rec.Record(ctx, Event{Action: action}))
	}

	var got []string
	for _, ev := range rec.Events() {
		got = append(got, ev.Action)
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.At.IsZero())
	}
	assert.Equal(t, []string{"b", "c", "d"}, got)
}

func TestMemoryRecorder_RejectsInvalidEvent(t *testing.T) {
	t.Parallel()

	rec := NewMemoryRecorder(0)
	require.ErrorIs(t, rec.Record(context.Background(), Event{Action: "  "}), ErrInvalidEvent)
	assert.Empty(t, rec.Events())
}

func TestMemoryRecorder_FailuresSince(t *testing.T) {
	t.Parallel()

	rec := NewMemoryRecorder(16)
	ctx := context.Background()
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	ip := net.ParseIP("192.0.2.1")
	other := net.ParseIP("192.0.2.2")

	events := []Event{
		{Action: ActionLoginFailed, IP: ip, At: now.Add(-10 * time.Minute)},
		{Action: ActionLoginFailed, IP: ip, At: now.Add(-2 * time.Minute)},
		{Action: ActionLoginFailed, IP: other, At: now.Add(-1 * time.Minute)},
		{Action: ActionLoginSuccess, IP: ip, At: now.Add(-1 * time.Minute)},
		{Action: ActionLoginFailed, IP: ip, At: now.Add(-30 * time.Second)},
	}
	for _, ev := range events {
		require.NoError(t, rec.Record(ctx, ev))
	}

	got, err := rec.FailuresSince(ctx, ActionLoginFailed, ip, now.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{now.Add(-30 * time.Second), now.Add(-2 * time.Minute)}, got)

	got, err = rec.FailuresSince(ctx, ActionLoginFailed, nil, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}
