package auth

import (
	"errors"
	"fmt"
)

// ErrAuthFail is the parent of every authentication failure.
var ErrAuthFail = errors.New("auth failed")

var (
	// ErrNoAuthTokenCookie means the request carried no session cookie.
	ErrNoAuthTokenCookie = fmt.Errorf("%w: no auth token cookie", ErrAuthFail)

	// ErrTokenWrongFormat means the session cookie did not parse.
	ErrTokenWrongFormat = fmt.Errorf("%w: token wrong format", ErrAuthFail)

	// ErrCtxNotInRequest means no Resolution was attached, i.e. the resolver did not run
	// before the gate or extractor. It is a wiring bug, not a client error.
	ErrCtxNotInRequest = fmt.Errorf("%w: ctx not in request", ErrAuthFail)
)

// IsAuthFail reports whether err is any authentication failure.
func IsAuthFail(err error) bool { return errors.Is(err, ErrAuthFail) }
