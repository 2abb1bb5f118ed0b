package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketd/cmd/internal/audit"
)

func TestEvaluateWindowThrottle(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	failures := []time.Time{
		now.Add(-1 * time.Minute),
		now.Add(-2 * time.Minute),
		now.Add(-6 * time.Minute),
	}

	blocked, retry := evaluateWindowThrottle(now, failures, 2, 5*time.Minute)
	assert.True(t, blocked)
	assert.Equal(t, 3*time.Minute, retry)

	blocked, retry = evaluateWindowThrottle(now, failures, 3, 5*time.Minute)
	assert.False(t, blocked)
	assert.Zero(t, retry)

	blocked, _ = evaluateWindowThrottle(now, failures, 0, 5*time.Minute)
	assert.False(t, blocked, "zero max disables the throttle")

	blocked, retry = evaluateWindowThrottle(now, []time.Time{now.Add(-5 * time.Minute)}, 1, 5*time.Minute)
	assert.True(t, blocked)
	assert.Equal(t, time.Second, retry, "retry never drops below one second")
}

func TestLogin_ThrottledAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	mem := audit.NewMemoryRecorder(64)
	f := newFixture(t, Config{LoginIPMax: 2, LoginIPWindow: time.Minute}, WithAuditRecorder(mem), WithFailureLog(mem))

	for range 2 {
		rr := f.do(t, http.MethodPost, "/api/login", `{"username":"demo1","pwd":"bad"}`, "")
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	}

	rr := f.do(t, http.MethodPost, "/api/login", `{"username":"demo1","pwd":"welcome"}`, "")
	require.Equal(t, http.StatusTooManyRequests, rr.Code, rr.Body.String())
	assert.Equal(t, CodeRateLimited, decodeError(t, rr).Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.Nil(t, sessionCookie(rr))

	var actions []string
	for _, ev := range mem.Events() {
		actions = append(actions, ev.Action)
	}
	assert.Equal(t, []string{audit.ActionLoginFailed, audit.ActionLoginFailed, audit.ActionLoginThrottle}, actions)
}

func TestLogin_ThrottleIsPerAddress(t *testing.T) {
	t.Parallel()

	mem := audit.NewMemoryRecorder(64)
	f := newFixture(t, Config{LoginIPMax: 1, LoginIPWindow: time.Minute}, WithAuditRecorder(mem), WithFailureLog(mem))

	require.NoError(t, mem.Record(context.Background(), audit.Event{
		Action: audit.ActionLoginFailed,
		IP:     net.ParseIP("198.51.100.7"),
		At:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}))

	rr := f.do(t, http.MethodPost, "/api/login", `{"username":"demo1","pwd":"welcome"}`, "")
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

type brokenFailureLog struct{}

func (brokenFailureLog) FailuresSince(context.Context, string, net.IP, time.Time) ([]time.Time, error) {
	return nil, errors.New("db down")
}

func TestLogin_ThrottleLookupFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{LoginIPMax: 1}, WithFailureLog(brokenFailureLog{}))

	rr := f.do(t, http.MethodPost, "/api/login", `{"username":"demo1","pwd":"welcome"}`, "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, CodeServiceBusy, decodeError(t, rr).Code)
	assert.Empty(t, f.audit.actions())
}
