package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"ticketd/cmd/identity"
	"ticketd/cmd/internal/audit"
	"ticketd/cmd/internal/auth"
	"ticketd/cmd/security/token"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"pwd"`
}

type loginResult struct {
	Success bool `json:"success"`
}

type logoffRequest struct {
	Logoff bool `json:"logoff"`
}

type logoffResult struct {
	LoggedOff bool `json:"logged_off"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.Fail(w, r, err)
		return
	}

	username := identity.NormalizeUsername(req.Username)
	if username == "" || req.Password == "" {
		h.Fail(w, r, fmt.Errorf("%w: username and pwd are required", ErrBadRequest))
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	if blocked, retryAfter, err := h.checkLoginIPThrottle(ctx, ip, h.now()); err != nil {
		h.log.Error("auth.login.throttle_ip.fail", "request_id", RequestIDFrom(ctx), "err", err)
		writeError(w, r, http.StatusServiceUnavailable, CodeServiceBusy, "please retry later")
		return
	} else if blocked {
		h.log.Warn("auth.login.rate_limited", "request_id", RequestIDFrom(ctx), "ip", ip.String(), "retry_after", retryAfter)
		h.record(ctx, audit.Event{
			Action:    audit.ActionLoginThrottle,
			IP:        ip,
			UserAgent: ua,
			Meta:      map[string]any{"username": username, "retry_after_s": int64(retryAfter / time.Second)},
		})
		writeRateLimited(w, r, retryAfter)
		return
	}

	acc, err := h.directory.Authenticate(ctx, username, req.Password)
	if err != nil {
		h.log.Info("auth.login.fail", "request_id", RequestIDFrom(ctx), "username", username, "err", err)
		if identity.IsInvalidCredentials(err) {
			h.record(ctx, audit.Event{
				Action:    audit.ActionLoginFailed,
				At:        h.now(),
				IP:        ip,
				UserAgent: ua,
				Meta:      map[string]any{"username": username},
			})
		}
		h.Fail(w, r, err)
		return
	}

	exp := h.now().Add(h.cfg.SessionTTL)
	h.cookie.Set(w, token.Issue(acc.UserID, exp, []byte(h.cfg.SigningKey)), exp)

	h.record(ctx, audit.Event{
		Action:    audit.ActionLoginSuccess,
		UserID:    audit.UserID(acc.UserID),
		IP:        ip,
		UserAgent: ua,
	})
	h.log.Info("auth.login.ok", "request_id", RequestIDFrom(ctx), "user_id", acc.UserID)

	writeJSON(w, http.StatusOK, resultResponse{Result: loginResult{Success: true}})
}

func (h *Handler) handleLogoff(w http.ResponseWriter, r *http.Request) {
	var req logoffRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.Fail(w, r, err)
		return
	}

	if req.Logoff {
		h.cookie.Expire(w)

		ev := audit.Event{
			Action:    audit.ActionLogoff,
			IP:        clientIP(r, h.cfg.TrustProxy),
			UserAgent: strings.TrimSpace(r.UserAgent()),
		}
		if id, err := auth.IdentityFrom(r.Context()); err == nil {
			ev.UserID = audit.UserID(id.UserID)
		}
		h.record(r.Context(), ev)
	}

	writeJSON(w, http.StatusOK, resultResponse{Result: logoffResult{LoggedOff: req.Logoff}})
}

// record writes ev to the audit trail. Failures are logged, never surfaced.
func (h *Handler) record(ctx context.Context, ev audit.Event) {
	if err := h.audit.Record(ctx, ev); err != nil {
		h.log.Error("audit.record.fail", "request_id", RequestIDFrom(ctx), "action", ev.Action, "err", err)
	}
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
