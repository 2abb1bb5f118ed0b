package web

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"ticketd/cmd/internal/audit"
)

// FailureLog reports recent audit events by client address, newest first.
// audit.MemoryRecorder and audit.PostgresRecorder implement it.
type FailureLog interface {
	FailuresSince(ctx context.Context, action string, ip net.IP, since time.Time) ([]time.Time, error)
}

// checkLoginIPThrottle reports whether ip has too many recent login failures
// and, if so, how long until the oldest one leaves the window.
func (h *Handler) checkLoginIPThrottle(ctx context.Context, ip net.IP, now time.Time) (bool, time.Duration, error) {
	if h.failures == nil || ip == nil || h.cfg.LoginIPMax <= 0 {
		return false, 0, nil
	}
	failures, err := h.failures.FailuresSince(ctx, audit.ActionLoginFailed, ip, now.Add(-h.cfg.LoginIPWindow))
	if err != nil {
		return false, 0, err
	}
	blocked, retry := evaluateWindowThrottle(now, failures, h.cfg.LoginIPMax, h.cfg.LoginIPWindow)
	return blocked, retry, nil
}

// evaluateWindowThrottle blocks once max failures fall inside window.
// Retry is when the oldest counted failure expires.
func evaluateWindowThrottle(now time.Time, failures []time.Time, max int, window time.Duration) (bool, time.Duration) {
	if max <= 0 || window <= 0 {
		return false, 0
	}

	cut := now.Add(-window)
	count := 0
	var oldest time.Time
	for _, at := range failures {
		if at.Before(cut) || at.After(now) {
			continue
		}
		count++
		if oldest.IsZero() || at.Before(oldest) {
			oldest = at
		}
	}
	if count < max {
		return false, 0
	}

	retry := oldest.Add(window).Sub(now)
	if retry < time.Second {
		retry = time.Second
	}
	return true, retry
}

func writeRateLimited(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int64((retryAfter + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	writeError(w, r, http.StatusTooManyRequests, CodeRateLimited, "too many attempts")
}
