package client

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/fantasystreet/league-backend/internal/wire"
)

// Message is one rendered chat line.
type Message struct {
	UserID string
	Text   string
	TS     string
}

// State is everything the UI reads. Reduce returns a fresh value per event,
// so a snapshot handed out is never mutated behind the caller's back.
type State struct {
	AllUsers        []string
	Active          map[string]bool
	Messages        []Message
	DraftState      string
	RoundNum        int
	CurrentTurnUser string
	Deadline        time.Time
	// ProtocolErrors counts frames that could not be understood. They are
	// reported, not fatal: the connection stays up.
	ProtocolErrors int
	LastError      string
}

func NewState() State {
	return State{Active: map[string]bool{}}
}

// Reduce folds one raw inbound payload into the state: one case per frame
// type, nothing else. Malformed payloads surface as a protocol error rather
// than a crash or a bogus chat line.
func Reduce(s State, raw []byte) State {
	frame, err := wire.Decode(raw)
	if err != nil {
		s.ProtocolErrors++
		s.LastError = err.Error()
		return s
	}

	switch frame.Type {
	case wire.TypeState:
		s.AllUsers = slices.Clone(frame.AllUsers)
		active := make(map[string]bool, len(frame.AllUsers))
		for _, u := range frame.AllUsers {
			active[u] = false
		}
		for _, u := range frame.ActiveUsers {
			active[u] = true
		}
		s.Active = active

	case wire.TypePresenceJoin:
		s.Active = cloneWith(s.Active, frame.UserID, true)

	case wire.TypePresenceLeave:
		s.Active = cloneWith(s.Active, frame.UserID, false)

	case wire.TypeChatMessage:
		s.Messages = append(slices.Clone(s.Messages), Message{UserID: frame.UserID, Text: frame.Text, TS: frame.TS})

	case wire.TypeDraftStateChange:
		s.DraftState = frame.DraftState

	case wire.TypeDraftInfo, wire.TypeDraftTurnStart:
		// A turn for a user we have never heard of is an ordering
		// violation; drop it rather than corrupt the turn display.
		if len(s.AllUsers) > 0 && !slices.Contains(s.AllUsers, frame.CurrentUser) {
			return s
		}
		s.RoundNum = frame.RoundNum
		s.CurrentTurnUser = frame.CurrentUser
		s.DraftState = frame.DraftState
		if dl, err := time.Parse(time.RFC3339, frame.Deadline); err == nil {
			s.Deadline = dl
		}

	case wire.TypeDraftTurnEnd:
		s.CurrentTurnUser = ""

	case wire.TypeError:
		s.LastError = frame.Error
	}

	return s
}

func cloneWith(m map[string]bool, key string, val bool) map[string]bool {
	out := make(map[string]bool, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[key] = val
	return out
}

// Session ties a Conn to the reducer and exposes the outbound actions. Safe
// for one UI goroutine reading snapshots while Run consumes the stream.
type Session struct {
	conn *Conn

	mu sync.RWMutex
	st State
}

func NewSession(conn *Conn) *Session {
	return &Session{conn: conn, st: NewState()}
}

// Run consumes inbound frames until the connection ends or ctx is
// cancelled.
func (s *Session) Run(ctx context.Context) {
	for {
		select {
		case raw, ok := <-s.conn.Inbound():
			if !ok {
				return
			}
			s.mu.Lock()
			s.st = Reduce(s.st, raw)
			s.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// Snapshot returns the current reduced state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st
}

// SendChat sends a chat line; the chat socket speaks raw text outbound.
// Buffered if the transport is still opening, so nothing typed is lost.
func (s *Session) SendChat(text string) error {
	return s.conn.Send([]byte(text))
}

// NotifyPick ends this user's draft turn early.
func (s *Session) NotifyPick() error {
	return s.conn.Send(wire.Picked().Encode())
}

// Close tears down the underlying connection. Idempotent.
func (s *Session) Close() error {
	return s.conn.Close()
}
