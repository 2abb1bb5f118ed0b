// Package auth resolves the caller's identity from the session cookie and threads it
// through the request context.
//
// Pipeline:
//
//	Resolver.Middleware  every request; reads the cookie, parses the token, stores a
//	                     Resolution in the context and always calls next.
//	RequireAuth          protected routes only; rejects unless the Resolution is Resolved.
//	IdentityFrom         handler side accessor for the resolved Identity.
//
// Resolution failures are data, not early returns, so public routes share the same
// resolver stage and stay reachable without a valid cookie.
//
// Token expiration and signature are carried but not verified.
package auth
