package token

import "errors"

// Public, stable errors for callers.
var (
	ErrWrongFormat     = errors.New("token wrong format")
	ErrSigningKeyShort = errors.New("token signing key too short")
)
