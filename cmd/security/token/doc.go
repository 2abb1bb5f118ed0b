// Package token parses and issues ticketd session tokens.
//
// Wire shape:
//
//	user-<user id>.<expiration>.<signature>
//
// The user id must be a decimal integer that fits uint64. Expiration and signature
// are opaque segments: Parse carries them through unchanged and never validates them.
//
// Issue produces the signature segment as:
// - HMAC-SHA256(payload, key) hex when a signing key is configured.
// - SHA-256(payload) hex otherwise (dev mode).
package token
