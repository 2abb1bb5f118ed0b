package ticket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"ticketd/cmd/internal/auth"
)

var (
	alice = auth.Identity{UserID: 42}
	bob   = auth.Identity{UserID: 7}
)

func TestStore_CreateAssignsSequentialIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()

	const n = 25
	for i := 0; i < n; i++ {
		tk, err := s.Create(ctx, alice, ForCreate{Title: "t"})
		require.NoError(t, err)
		assert.Equal(t, uint64(i), tk.ID)
		assert.Equal(t, alice.UserID, tk.OwnerID)
	}

	list, err := s.List(ctx, bob)
	require.NoError(t, err)
	require.Len(t, list, n)
	for i, tk := range list {
		assert.Equal(t, uint64(i), tk.ID)
	}
	assert.Equal(t, Stats{Slots: n, Occupied: n}, s.Stats())
}

func TestStore_EndToEndScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()

	created, err := s.Create(ctx, alice, ForCreate{Title: "fix bug"})
	require.NoError(t, err)
	assert.Equal(t, Ticket{ID: 0, OwnerID: 42, Title: "fix bug"}, created)

	list, err := s.List(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []Ticket{{ID: 0, OwnerID: 42, Title: "fix bug"}}, list)

	deleted, err := s.Delete(ctx, alice, 0)
	require.NoError(t, err)
	assert.Equal(t, created, deleted)

	list, err = s.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.Delete(ctx, alice, 0)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, uint64(0), nf.ID)
	assert.True(t, IsNotFound(err))
	assert.EqualError(t, err, "ticket not found: id 0")
}

func TestStore_DeleteTombstonesSlot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()
	for _, title := range []string{"a", "b", "c"} {
		_, err := s.Create(ctx, alice, ForCreate{Title: title})
		require.NoError(t, err)
	}

	_, err := s.Delete(ctx, bob, 1)
	require.NoError(t, err, "delete does not check ownership")

	list, err := s.List(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []Ticket{{ID: 0, OwnerID: 42, Title: "a"}, {ID: 2, OwnerID: 42, Title: "c"}}, list)

	next, err := s.Create(ctx, alice, ForCreate{Title: "d"})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), next.ID, "deleted ids are never reused")
	assert.Equal(t, Stats{Slots: 4, Occupied: 3}, s.Stats())
}

func TestStore_DeleteMissingLeavesStoreUnchanged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()
	_, err := s.Create(ctx, alice, ForCreate{Title: "a"})
	require.NoError(t, err)
	_, err = s.Delete(ctx, alice, 0)
	require.NoError(t, err)
	before := s.Stats()

	for _, id := range []uint64{0, 1, 99, ^uint64(0)} {
		_, err := s.Delete(ctx, alice, id)
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, id, nf.ID)
	}
	assert.Equal(t, before, s.Stats())
}

func TestStore_ListReturnsSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()
	_, err := s.Create(ctx, alice, ForCreate{Title: "a"})
	require.NoError(t, err)

	list, err := s.List(ctx, alice)
	require.NoError(t, err)
	list[0].Title = "mutated"

	again, err := s.List(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].Title)
}

func TestStore_ConcurrentCreatesGetUniqueIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()

	const pre = 5
	for i := 0; i < pre; i++ {
		_, err := s.Create(ctx, alice, ForCreate{Title: "seed"})
		require.NoError(t, err)
	}

	const m = 200
	var (
		mu  sync.Mutex
		ids = make(map[uint64]struct{}, m)
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < m; i++ {
		g.Go(func() error {
			tk, err := s.Create(gctx, auth.Identity{UserID: uint64(i)}, ForCreate{Title: "c"})
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if _, dup := ids[tk.ID]; dup {
				t.Errorf("duplicate id %d", tk.ID)
			}
			ids[tk.ID] = struct{}{}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, ids, m)
	assert.Equal(t, Stats{Slots: pre + m, Occupied: pre + m}, s.Stats())
}

func TestStore_ConcurrentMixedOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()

	const n = 100
	for i := 0; i < n; i++ {
		_, err := s.Create(ctx, alice, ForCreate{Title: "x"})
		require.NoError(t, err)
	}

	var g errgroup.Group
	var deleted sync.Map
	for i := 0; i < n; i++ {
		g.Go(func() error {
			// Every id is deleted twice concurrently; exactly one attempt wins.
			for j := 0; j < 2; j++ {
				if _, err := s.Delete(ctx, bob, uint64(i)); err == nil {
					if _, loaded := deleted.LoadOrStore(i, true); loaded {
						t.Errorf("id %d deleted twice", i)
					}
				} else if !IsNotFound(err) {
					return err
				}
			}
			_, err := s.List(ctx, bob)
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, Stats{Slots: n, Occupied: 0}, s.Stats())
}

func TestStore_CancelledContextDoesNotMutate(t *testing.T) {
	t.Parallel()

	s := NewStore()
	_, err := s.Create(context.Background(), alice, ForCreate{Title: "keep"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Create(ctx, alice, ForCreate{Title: "lost"})
	require.ErrorIs(t, err, context.Canceled)
	_, err = s.Delete(ctx, alice, 0)
	require.ErrorIs(t, err, context.Canceled)
	_, err = s.List(ctx, alice)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, Stats{Slots: 1, Occupied: 1}, s.Stats())
}

func TestStore_PublishesCommittedMutations(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var events []Event
	s := NewStore(
		WithPublisher(PublisherFunc(func(ev Event) { events = append(events, ev) })),
		WithClock(func() time.Time { return at }),
	)
	ctx := context.Background()

	tk, err := s.Create(ctx, alice, ForCreate{Title: "a"})
	require.NoError(t, err)
	_, err = s.Delete(ctx, bob, tk.ID)
	require.NoError(t, err)
	_, err = s.Delete(ctx, bob, tk.ID)
	require.Error(t, err)

	require.Len(t, events, 2, "failed deletes publish nothing")
	assert.Equal(t, Event{Kind: EventCreated, Ticket: tk, ActorID: 42, At: at}, events[0])
	assert.Equal(t, Event{Kind: EventDeleted, Ticket: tk, ActorID: 7, At: at}, events[1])
}

func TestStore_CallerEventsKeepCallOrder(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		events []Event
	)
	s := NewStore(WithPublisher(PublisherFunc(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})))

	const callers = 32
	g, ctx := errgroup.WithContext(context.Background())
	for i := range callers {
		caller := auth.Identity{UserID: uint64(i)}
		g.Go(func() error {
			tk, err := s.Create(ctx, caller, ForCreate{Title: "t"})
			if err != nil {
				return err
			}
			_, err = s.Delete(ctx, caller, tk.ID)
			return err
		})
	}
	require.NoError(t, g.Wait())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2*callers)

	created := make(map[uint64]int, callers)
	for i, ev := range events {
		switch ev.Kind {
		case EventCreated:
			created[ev.Ticket.ID] = i
		case EventDeleted:
			at, ok := created[ev.Ticket.ID]
			require.True(t, ok, "delete of ticket %d seen before its create", ev.Ticket.ID)
			assert.Less(t, at, i)
		}
	}
	assert.Len(t, created, callers)
}
