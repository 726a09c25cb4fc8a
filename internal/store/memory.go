package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is the in-process Store used by tests and by the server when no
// database is configured.
type Memory struct {
	mu      sync.RWMutex
	leagues map[string]*League
	members map[string][]Member // leagueID -> roster
	stocks  map[string]map[string]string
	// stocks: leagueID -> ticker -> owning memberID
}

func NewMemory() *Memory {
	return &Memory{
		leagues: map[string]*League{},
		members: map[string][]Member{},
		stocks:  map[string]map[string]string{},
	}
}

// SeedLeague installs a league and its roster. Test/dev helper.
func (m *Memory) SeedLeague(leagueID, name string, members []Member) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leagues[leagueID] = &League{ID: leagueID, Name: name, DraftPhase: "NOT_STARTED"}
	roster := append([]Member(nil), members...)
	sort.SliceStable(roster, func(i, j int) bool { return roster[i].Position < roster[j].Position })
	m.members[leagueID] = roster
}

func (m *Memory) Members(_ context.Context, leagueID string) ([]Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roster, ok := m.members[leagueID]
	if !ok || len(roster) == 0 {
		return nil, ErrLeagueNotFound
	}
	return append([]Member(nil), roster...), nil
}

func (m *Memory) SetDraftPhase(_ context.Context, leagueID, phase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lg, ok := m.leagues[leagueID]
	if !ok {
		return ErrLeagueNotFound
	}
	lg.DraftPhase = phase
	return nil
}

// DraftPhase reads back the mirrored phase. Test helper.
func (m *Memory) DraftPhase(leagueID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if lg, ok := m.leagues[leagueID]; ok {
		return lg.DraftPhase
	}
	return ""
}

func (m *Memory) AddStock(_ context.Context, s Stock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	book := m.stocks[s.LeagueID]
	if book == nil {
		book = map[string]string{}
		m.stocks[s.LeagueID] = book
	}
	if _, taken := book[s.Ticker]; taken {
		return ErrDuplicateStock
	}
	book[s.Ticker] = s.MemberID
	return nil
}

func (m *Memory) RemoveStock(_ context.Context, s Stock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	book := m.stocks[s.LeagueID]
	if owner, ok := book[s.Ticker]; !ok || owner != s.MemberID {
		return ErrStockNotOwned
	}
	delete(book, s.Ticker)
	return nil
}
