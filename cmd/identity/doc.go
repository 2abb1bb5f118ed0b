// Package identity holds the login account directory.
//
// Accounts map a username to the numeric user id carried in session tokens.
// Passwords are stored only as Argon2id hashes (cmd/security/password).
// The directory is memory-only and is seeded at startup from configuration.
package identity
