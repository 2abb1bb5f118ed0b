// Package audit records security-relevant actions (logins, logoffs, ticket
// mutations). Recorders write to the structured log, to Postgres, or both.
package audit
