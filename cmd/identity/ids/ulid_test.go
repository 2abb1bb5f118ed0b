package ids

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID(t *testing.T) {
	t.Parallel()

	a, err := NewULID(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	b, err := NewULID(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Len(t, a, 26)
	assert.True(t, Valid(a))
	assert.Less(t, a, b, "ulids sort by timestamp")

	z, err := NewULID(time.Time{})
	require.NoError(t, err)
	assert.True(t, Valid(z))
}

func TestNew(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		id := New()
		require.True(t, Valid(id))
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
	assert.False(t, Valid("not-a-ulid"))
}
