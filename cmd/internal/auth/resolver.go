package auth

import (
	"io"
	"log/slog"
	"net/http"

	"ticketd/cmd/security/token"
)

// Resolver is the context-resolution middleware stage.
type Resolver struct {
	log     *slog.Logger
	cookie  CookieConfig
	observe func(Outcome)
}

// ResolverOption configures optional Resolver behavior.
type ResolverOption func(*Resolver)

// WithObserver registers fn to be told every outcome (metrics).
func WithObserver(fn func(Outcome)) ResolverOption {
	return func(rs *Resolver) {
		if rs == nil || fn == nil {
			return
		}
		rs.observe = fn
	}
}

// NewResolver constructs a Resolver for the given session cookie.
func NewResolver(log *slog.Logger, cookie CookieConfig, opts ...ResolverOption) *Resolver {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	rs := &Resolver{log: log, cookie: cookie.normalized()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(rs)
	}
	return rs
}

// Cookie returns the session cookie settings the resolver reads.
func (rs *Resolver) Cookie() CookieConfig { return rs.cookie }

// Resolve derives the Resolution for r without side effects.
func (rs *Resolver) Resolve(r *http.Request) Resolution {
	raw, ok := rs.cookie.Read(r)
	if !ok {
		return Unresolved()
	}

	sess, err := token.Parse(raw)
	if err != nil {
		return MalformedBy(err)
	}
	return ResolvedAs(Identity{UserID: sess.UserID})
}

// Middleware attaches the Resolution to the request context and always calls next.
// A malformed cookie is expired on the response; a missing one is left alone.
func (rs *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := rs.Resolve(r)

		if res.Outcome == Malformed {
			rs.cookie.Expire(w)
			rs.log.Info("auth.resolve.malformed", "path", r.URL.Path, "err", res.Err)
		} else {
			rs.log.Debug("auth.resolve", "outcome", res.Outcome.String(), "user_id", res.Identity.UserID)
		}

		if rs.observe != nil {
			rs.observe(res.Outcome)
		}

		next.ServeHTTP(w, r.WithContext(WithResolution(r.Context(), res)))
	})
}
