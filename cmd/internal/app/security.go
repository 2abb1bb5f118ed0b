package app

import (
	"errors"
	"fmt"
	"strings"

	"ticketd/cmd/security/token"
)

// ValidateSecurityConfig enforces the security policy at startup.
// It fails fast rather than run with a weaker token signature than required.
func ValidateSecurityConfig(cfg Config) error {
	if strings.EqualFold(strings.TrimSpace(cfg.Cookie.SameSite), "none") && !cfg.Cookie.Secure {
		return errors.New("security policy: TICKETD_COOKIE_SAMESITE=none requires TICKETD_COOKIE_SECURE=true")
	}

	if !cfg.RequireSigningKey {
		return nil
	}

	// Measured in bytes, not runes: the key is used as raw HMAC key material.
	key := []byte(cfg.Web.SigningKey)
	if len(key) == 0 {
		return errors.New("security policy: TICKETD_REQUIRE_SIGNING_KEY=true but TICKETD_SIGNING_KEY is missing")
	}
	if err := token.CheckSigningKey(key); err != nil {
		return fmt.Errorf("security policy: TICKETD_SIGNING_KEY is too short (min %d bytes): %w", token.MinSigningKeyBytes, err)
	}
	return nil
}
