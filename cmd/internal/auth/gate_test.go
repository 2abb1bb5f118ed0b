package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failRecorder struct {
	err error
}

func (f *failRecorder) fail(w http.ResponseWriter, _ *http.Request, err error) {
	f.err = err
	w.WriteHeader(http.StatusUnauthorized)
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		ctx      func(context.Context) context.Context
		wantNext bool
		wantErr  error
	}{
		{
			name:    "no resolution attached",
			ctx:     func(ctx context.Context) context.Context { return ctx },
			wantErr: ErrCtxNotInRequest,
		},
		{
			name:    "no token",
			ctx:     func(ctx context.Context) context.Context { return WithResolution(ctx, Unresolved()) },
			wantErr: ErrNoAuthTokenCookie,
		},
		{
			name: "malformed",
			ctx: func(ctx context.Context) context.Context {
				return WithResolution(ctx, MalformedBy(errors.New("bad shape")))
			},
			wantErr: ErrTokenWrongFormat,
		},
		{
			name:     "resolved",
			ctx:      func(ctx context.Context) context.Context { return WithResolution(ctx, ResolvedAs(Identity{UserID: 3})) },
			wantNext: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fr := &failRecorder{}
			called := false
			h := RequireAuth(fr.fail)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
			req = req.WithContext(tc.ctx(req.Context()))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tc.wantNext, called)
			if tc.wantErr != nil {
				require.ErrorIs(t, fr.err, tc.wantErr)
				assert.True(t, IsAuthFail(fr.err))
				assert.Equal(t, http.StatusUnauthorized, rr.Code)
				return
			}
			assert.NoError(t, fr.err)
			assert.Equal(t, http.StatusOK, rr.Code)
		})
	}
}

func TestRequireAuth_DefaultFail(t *testing.T) {
	t.Parallel()

	h := RequireAuth(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next must not be called")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestResolverThenGate(t *testing.T) {
	t.Parallel()

	rs := NewResolver(nil, DefaultCookieConfig())
	var got Identity
	h := rs.Middleware(RequireAuth(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := IdentityFrom(r.Context())
		require.NoError(t, err)
		got = id
		w.WriteHeader(http.StatusOK)
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, withCookie("user-7.exp.sig"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, Identity{UserID: 7}, got)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, withCookie("bogus"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotNil(t, sessionCookieIn(rr), "removal survives the gate rejection")
}
