// Package store is the relational collaborator behind the realtime layer:
// league rosters, draft phase mirroring, and the per-league stock book. The
// realtime code only sees the Store interface; tests run against Memory.
package store

import (
	"context"
	"errors"
)

var ErrLeagueNotFound = errors.New("league not found")
var ErrDuplicateStock = errors.New("stock already drafted in this league")
var ErrStockNotOwned = errors.New("member does not own this stock")

// Member is one roster entry. Position fixes the draft order.
type Member struct {
	UserID      string
	DisplayName string
	Position    int
}

type Stock struct {
	LeagueID string
	MemberID string
	Ticker   string
}

type Store interface {
	// Members returns the league roster ordered by draft position.
	Members(ctx context.Context, leagueID string) ([]Member, error)

	// SetDraftPhase mirrors the room's draft phase into the league record.
	SetDraftPhase(ctx context.Context, leagueID, phase string) error

	// AddStock drafts a ticker for a member. A ticker can be held by at
	// most one member per league.
	AddStock(ctx context.Context, s Stock) error

	// RemoveStock releases a ticker the member owns.
	RemoveStock(ctx context.Context, s Stock) error
}
