package auth

import (
	"net/http"
	"strings"
	"time"
)

// DefaultCookieName is the session cookie name used when none is configured.
const DefaultCookieName = "auth-token"

// CookieConfig describes the session cookie. Env tags allow embedding with an envPrefix.
type CookieConfig struct {
	Name     string `env:"NAME" envDefault:"auth-token"`
	Path     string `env:"PATH" envDefault:"/"`
	Domain   string `env:"DOMAIN"`
	Secure   bool   `env:"SECURE" envDefault:"false"`
	SameSite string `env:"SAMESITE" envDefault:"lax"`
}

// DefaultCookieConfig returns the development cookie settings.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{Name: DefaultCookieName, Path: "/", SameSite: "lax"}
}

func (c CookieConfig) normalized() CookieConfig {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		c.Name = DefaultCookieName
	}
	if strings.TrimSpace(c.Path) == "" {
		c.Path = "/"
	}
	return c
}

func (c CookieConfig) sameSite() http.SameSite {
	switch strings.ToLower(strings.TrimSpace(c.SameSite)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Read returns the session cookie value as sent, or false when the cookie is absent.
// A present but empty value is reported as present; the token parser rejects it.
func (c CookieConfig) Read(r *http.Request) (string, bool) {
	ck, err := r.Cookie(c.normalized().Name)
	if err != nil {
		return "", false
	}
	return ck.Value, true
}

// Set writes the session cookie.
func (c CookieConfig) Set(w http.ResponseWriter, value string, exp time.Time) {
	c = c.normalized()
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  exp,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	})
}

// Expire instructs the client to drop the session cookie.
func (c CookieConfig) Expire(w http.ResponseWriter) {
	c = c.normalized()
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	})
}
