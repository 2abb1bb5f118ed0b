package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"time"
)

// ExpirationLayout is the layout used for the expiration segment of issued tokens.
// It contains no dots so the segment boundaries stay unambiguous.
const ExpirationLayout = "20060102T150405Z"

// MinSigningKeyBytes is the minimum key size accepted by CheckSigningKey.
const MinSigningKeyBytes = 32

var sessionRE = regexp.MustCompile(`^user-(\d+)\.(.+)\.(.+)`)

// Session is a decoded session token.
type Session struct {
	UserID     uint64
	Expiration string
	Signature  string
}

// String re-encodes s in wire form.
func (s Session) String() string {
	return payload(s.UserID, s.Expiration) + "." + s.Signature
}

// Parse decodes a raw session token. It is purely syntactic.
func Parse(raw string) (Session, error) {
	m := sessionRE.FindStringSubmatch(raw)
	if m == nil {
		return Session{}, ErrWrongFormat
	}

	userID, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return Session{}, ErrWrongFormat
	}

	return Session{
		UserID:     userID,
		Expiration: m[2],
		Signature:  m[3],
	}, nil
}

// Issue builds a session token for userID that nominally expires at exp.
func Issue(userID uint64, exp time.Time, key []byte) string {
	s := Session{UserID: userID, Expiration: exp.UTC().Format(ExpirationLayout)}
	s.Signature = Sign(payload(s.UserID, s.Expiration), key)
	return s.String()
}

// Sign returns the hex signature for payload: HMAC-SHA256 with key, SHA-256 without.
func Sign(payload string, key []byte) string {
	if len(key) == 0 {
		return HashSHA256Hex(payload)
	}
	return HashHMACSHA256Hex(payload, key)
}

// CheckSigningKey enforces the minimum signing key size.
func CheckSigningKey(key []byte) error {
	if len(key) < MinSigningKeyBytes {
		return ErrSigningKeyShort
	}
	return nil
}

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

func payload(userID uint64, exp string) string {
	return "user-" + strconv.FormatUint(userID, 10) + "." + exp
}
