package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fantasystreet/league-backend/internal/draft"
	"github.com/fantasystreet/league-backend/internal/room"
	"github.com/fantasystreet/league-backend/internal/store"
	"github.com/fantasystreet/league-backend/internal/wire"
)

func seededStore() *store.Memory {
	st := store.NewMemory()
	st.SeedLeague("L1", "Test League", []store.Member{
		{UserID: "A", DisplayName: "Alice", Position: 0},
		{UserID: "B", DisplayName: "Bob", Position: 1},
	})
	return st
}

func TestEnsure_SameRoomPointer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := New(ctx, Config{Store: seededStore(), Rules: draft.Rules{PicksPerMember: 1, TurnTimeout: time.Minute}})

	rm1, err := reg.Ensure(ctx, "L1", room.KindChat)
	require.NoError(t, err)
	rm2, err := reg.Ensure(ctx, "L1", room.KindChat)
	require.NoError(t, err)
	require.Same(t, rm1, rm2)

	// Chat and draft rooms for the same league are distinct.
	rm3, err := reg.Ensure(ctx, "L1", room.KindDraft)
	require.NoError(t, err)
	require.NotSame(t, rm1, rm3)
}

func TestEnsure_UnknownLeague(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := New(ctx, Config{Store: store.NewMemory()})

	_, err := reg.Ensure(ctx, "nope", room.KindChat)
	require.ErrorIs(t, err, store.ErrLeagueNotFound)
	require.Nil(t, reg.Get("nope", room.KindChat))
}

func TestEnsure_RoomSeesRoster(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := New(ctx, Config{Store: seededStore()})

	rm, err := reg.Ensure(ctx, "L1", room.KindChat)
	require.NoError(t, err)

	out := make(chan wire.Frame, 4)
	rm.Inbox() <- room.Join{UserID: "A", ConnID: "c1", Outbox: out}

	select {
	case snap := <-out:
		require.Equal(t, wire.TypeState, snap.Type)
		require.Equal(t, []string{"A", "B"}, snap.AllUsers)
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
}

func TestShutdown_UnblocksLateCallers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := New(ctx, Config{Store: seededStore()})

	_, err := reg.Ensure(ctx, "L1", room.KindChat)
	require.NoError(t, err)

	reg.Shutdown()

	// The registry loop is gone; callers must not block forever.
	require.Eventually(t, func() bool {
		_, err := reg.Ensure(ctx, "L1", room.KindChat)
		return err != nil
	}, time.Second, 10*time.Millisecond)
	require.Nil(t, reg.Get("L1", room.KindChat))
}

func TestEmptyRoomIsReaped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := New(ctx, Config{Store: seededStore()})

	rm, err := reg.Ensure(ctx, "L1", room.KindChat)
	require.NoError(t, err)

	out := make(chan wire.Frame, 4)
	rm.Inbox() <- room.Join{UserID: "A", ConnID: "c1", Outbox: out}
	rm.Inbox() <- room.Leave{UserID: "A", ConnID: "c1"}

	require.Eventually(t, func() bool {
		return reg.Get("L1", room.KindChat) == nil
	}, time.Second, 10*time.Millisecond, "empty room should be removed from the registry")
}
