package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityFrom(t *testing.T) {
	t.Parallel()

	_, err := IdentityFrom(context.Background())
	require.ErrorIs(t, err, ErrCtxNotInRequest)

	ctx := WithResolution(context.Background(), ResolvedAs(Identity{UserID: 42}))
	id, err := IdentityFrom(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id.UserID)
	assert.Equal(t, "user-42", id.String())

	ctx = WithResolution(context.Background(), Unresolved())
	_, err = IdentityFrom(ctx)
	require.ErrorIs(t, err, ErrNoAuthTokenCookie)

	reason := errors.New("no match")
	ctx = WithResolution(context.Background(), MalformedBy(reason))
	_, err = IdentityFrom(ctx)
	require.ErrorIs(t, err, ErrTokenWrongFormat)
	require.ErrorIs(t, err, reason)
	assert.Contains(t, err.Error(), "no match")
}

func TestResolutionResult_ZeroValue(t *testing.T) {
	t.Parallel()

	_, err := Resolution{}.Result()
	require.ErrorIs(t, err, ErrCtxNotInRequest)

	_, err = MalformedBy(nil).Result()
	require.ErrorIs(t, err, ErrTokenWrongFormat)
}
