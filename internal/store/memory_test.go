package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	m.SeedLeague("lg1", "Test League", []Member{
		{UserID: "carol", DisplayName: "Carol", Position: 3},
		{UserID: "alice", DisplayName: "Alice", Position: 1},
		{UserID: "bob", DisplayName: "Bob", Position: 2},
	})
	return m
}

func TestMembers_OrderedByPosition(t *testing.T) {
	m := seeded(t)

	roster, err := m.Members(context.Background(), "lg1")
	require.NoError(t, err)

	got := make([]string, len(roster))
	for i, mem := range roster {
		got[i] = mem.UserID
	}
	assert.Equal(t, []string{"alice", "bob", "carol"}, got)
}

func TestMembers_UnknownLeague(t *testing.T) {
	m := seeded(t)

	_, err := m.Members(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrLeagueNotFound))
}

func TestSetDraftPhase(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	require.NoError(t, m.SetDraftPhase(ctx, "lg1", "IN_PROGRESS"))
	assert.Equal(t, "IN_PROGRESS", m.DraftPhase("lg1"))

	err := m.SetDraftPhase(ctx, "nope", "IN_PROGRESS")
	assert.True(t, errors.Is(err, ErrLeagueNotFound))
}

func TestAddStock_DuplicateTickerRejected(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	require.NoError(t, m.AddStock(ctx, Stock{LeagueID: "lg1", MemberID: "alice", Ticker: "AAPL"}))

	// Same ticker, any member.
	err := m.AddStock(ctx, Stock{LeagueID: "lg1", MemberID: "bob", Ticker: "AAPL"})
	assert.True(t, errors.Is(err, ErrDuplicateStock))

	// Same ticker in another league is fine.
	assert.NoError(t, m.AddStock(ctx, Stock{LeagueID: "lg2", MemberID: "bob", Ticker: "AAPL"}))
}

func TestRemoveStock(t *testing.T) {
	m := seeded(t)
	ctx := context.Background()

	require.NoError(t, m.AddStock(ctx, Stock{LeagueID: "lg1", MemberID: "alice", Ticker: "TSLA"}))

	// Bob does not own it.
	err := m.RemoveStock(ctx, Stock{LeagueID: "lg1", MemberID: "bob", Ticker: "TSLA"})
	assert.True(t, errors.Is(err, ErrStockNotOwned))

	require.NoError(t, m.RemoveStock(ctx, Stock{LeagueID: "lg1", MemberID: "alice", Ticker: "TSLA"}))

	// Ticker is free again after removal.
	assert.NoError(t, m.AddStock(ctx, Stock{LeagueID: "lg1", MemberID: "bob", Ticker: "TSLA"}))
}
