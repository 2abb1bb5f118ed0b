package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap keeps the suite fast; production defaults come from DefaultParams.
func cheap() Params {
	return Params{MemoryKiB: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(cheap())
	require.NoError(t, err)
	return h
}

func TestHashAndVerify(t *testing.T) {
	t.Parallel()

	h := newTestHasher(t)

	enc, err := h.Hash("welcome")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(enc, "$argon2id$v=19$m=64,t=1,p=1$"), enc)

	ok, err := h.Verify(enc, "welcome")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(enc, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHash_SaltIsRandom(t *testing.T) {
	t.Parallel()

	h := newTestHasher(t)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHash_RejectsBadInput(t *testing.T) {
	t.Parallel()

	h := newTestHasher(t)

	_, err := h.Hash("")
	require.ErrorIs(t, err, ErrEmptyPassword)

	_, err = h.Hash(strings.Repeat("x", MaxPasswordBytes+1))
	require.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestVerify_InvalidHash(t *testing.T) {
	t.Parallel()

	h := newTestHasher(t)

	for _, enc := range []string{
		"not-a-hash",
		"$argon2i$v=19$m=64,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=16$m=64,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=64,t=1,p=1$!!!$a2V5a2V5a2V5a2V5a2V5a2V5",
	} {
		ok, err := h.Verify(enc, "whatever")
		require.ErrorIs(t, err, ErrInvalidHash, enc)
		assert.False(t, ok)
	}
}

func TestVerify_RefusesCostlierHash(t *testing.T) {
	t.Parallel()

	strong, err := NewHasher(Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	enc, err := strong.Hash("welcome")
	require.NoError(t, err)

	ok, err := newTestHasher(t).Verify(enc, "welcome")
	require.ErrorIs(t, err, ErrInvalidHash)
	assert.False(t, ok)
}

func TestParamsValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultParams().Validate())

	bad := []Params{
		{MemoryKiB: 1, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{MemoryKiB: 64, Iterations: 0, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{MemoryKiB: 64, Iterations: 1, Parallelism: 0, SaltLength: 16, KeyLength: 32},
		{MemoryKiB: 64, Iterations: 1, Parallelism: 1, SaltLength: 4, KeyLength: 32},
		{MemoryKiB: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 8},
	}
	for _, p := range bad {
		_, err := NewHasher(p)
		require.ErrorIs(t, err, ErrInvalidParams, "%+v", p)
	}
}
