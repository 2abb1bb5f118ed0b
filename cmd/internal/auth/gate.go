package auth

import "net/http"

// FailFunc renders an authentication failure. err is always an ErrAuthFail.
type FailFunc func(w http.ResponseWriter, r *http.Request, err error)

// RequireAuth returns middleware that lets a request through only when the attached
// Resolution is Resolved. It must be composed after Resolver.Middleware; when no
// Resolution is found the request fails with ErrCtxNotInRequest.
func RequireAuth(fail FailFunc) func(http.Handler) http.Handler {
	if fail == nil {
		fail = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := IdentityFrom(r.Context()); err != nil {
				fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
