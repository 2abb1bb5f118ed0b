package auth

import (
	"context"
	"strconv"
)

// Identity is the authenticated caller for one request.
type Identity struct {
	UserID uint64
}

func (i Identity) String() string { return "user-" + strconv.FormatUint(i.UserID, 10) }

// Outcome tags a Resolution.
type Outcome uint8

const (
	// Resolved means the cookie parsed into an Identity.
	Resolved Outcome = iota + 1
	// NoToken means the request carried no session cookie.
	NoToken
	// Malformed means the session cookie was present but did not parse.
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case NoToken:
		return "no_token"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of deriving an Identity from a request.
// Identity is set only for Resolved; Err is set for every other outcome.
type Resolution struct {
	Outcome  Outcome
	Identity Identity
	Err      error
}

// ResolvedAs builds a Resolved resolution for id.
func ResolvedAs(id Identity) Resolution {
	return Resolution{Outcome: Resolved, Identity: id}
}

// Unresolved builds a NoToken resolution.
func Unresolved() Resolution {
	return Resolution{Outcome: NoToken, Err: ErrNoAuthTokenCookie}
}

// MalformedBy builds a Malformed resolution carrying reason.
func MalformedBy(reason error) Resolution {
	err := ErrTokenWrongFormat
	if reason != nil {
		err = &malformedError{reason: reason}
	}
	return Resolution{Outcome: Malformed, Err: err}
}

// Result returns the Identity, or the failure for non-Resolved outcomes.
func (r Resolution) Result() (Identity, error) {
	if r.Outcome == Resolved {
		return r.Identity, nil
	}
	if r.Err != nil {
		return Identity{}, r.Err
	}
	return Identity{}, ErrCtxNotInRequest
}

type malformedError struct{ reason error }

func (e *malformedError) Error() string { return ErrTokenWrongFormat.Error() + ": " + e.reason.Error() }

func (e *malformedError) Unwrap() []error { return []error{ErrTokenWrongFormat, e.reason} }

type resolutionKey struct{}

// WithResolution returns a copy of ctx carrying res.
func WithResolution(ctx context.Context, res Resolution) context.Context {
	return context.WithValue(ctx, resolutionKey{}, res)
}

// ResolutionFrom returns the Resolution attached to ctx, if any.
func ResolutionFrom(ctx context.Context) (Resolution, bool) {
	res, ok := ctx.Value(resolutionKey{}).(Resolution)
	return res, ok
}

// IdentityFrom returns the resolved Identity from ctx.
// It fails with ErrCtxNotInRequest when no Resolution is attached and with the
// resolution's own error when the request is not authenticated.
func IdentityFrom(ctx context.Context) (Identity, error) {
	res, ok := ResolutionFrom(ctx)
	if !ok {
		return Identity{}, ErrCtxNotInRequest
	}
	return res.Result()
}
