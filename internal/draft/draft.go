// Package draft holds the pure turn-scheduler state machine. All mutation
// goes through Apply so the room actor stays a thin shell around it and the
// scheduler is testable against literal command sequences.
package draft

import (
	"errors"
	"slices"
	"time"
)

var ErrAlreadyStarted = errors.New("draft already started")
var ErrCompleted = errors.New("draft already completed")
var ErrNotInProgress = errors.New("draft not in progress")
var ErrNotYourTurn = errors.New("not this member's turn")
var ErrNoMembers = errors.New("cannot start a draft with no members")

type Phase string

const (
	PhaseNotStarted Phase = "NOT_STARTED"
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseCompleted  Phase = "COMPLETED"
)

type Rules struct {
	PicksPerMember int
	TurnTimeout    time.Duration
}

// State is the authoritative draft state for one room. Order is frozen at
// start time so every client derives the same turn sequence.
type State struct {
	Phase Phase
	Order []string
	Round int // 1-based turn counter, strictly increasing
	Rules Rules
}

func NewState(rules Rules) State {
	if rules.PicksPerMember <= 0 {
		rules.PicksPerMember = 1
	}
	return State{Phase: PhaseNotStarted, Rules: rules}
}

// CurrentUser reports whose turn it is. Only meaningful while IN_PROGRESS.
func (s State) CurrentUser() (string, bool) {
	if s.Phase != PhaseInProgress || len(s.Order) == 0 {
		return "", false
	}
	return s.Order[(s.Round-1)%len(s.Order)], true
}

func (s State) totalTurns() int {
	return s.Rules.PicksPerMember * len(s.Order)
}

type CommandType string

const (
	CmdStart          CommandType = "Start"
	CmdPick           CommandType = "Pick"
	CmdTimeoutAdvance CommandType = "TimeoutAdvance"
	CmdReset          CommandType = "Reset"
)

type Command struct {
	Type   CommandType
	UserID string   // CmdPick: the member claiming the turn
	Order  []string // CmdStart: deterministic member order
}

type EventType string

const (
	EvtTurnStarted  EventType = "TurnStarted"
	EvtTurnEnded    EventType = "TurnEnded"
	EvtPhaseChanged EventType = "PhaseChanged"
)

type Event struct {
	Type   EventType
	Round  int
	UserID string
	Phase  Phase
}

// Apply runs one command against the state and returns the events the room
// should broadcast plus the successor state. The input state is never
// mutated.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdStart:
		if s.Phase == PhaseInProgress {
			return nil, s, ErrAlreadyStarted
		}
		if s.Phase == PhaseCompleted {
			return nil, s, ErrCompleted
		}
		if len(cmd.Order) == 0 {
			return nil, s, ErrNoMembers
		}
		next := s
		next.Phase = PhaseInProgress
		next.Order = slices.Clone(cmd.Order)
		next.Round = 1
		events := []Event{
			{Type: EvtPhaseChanged, Phase: PhaseInProgress},
			{Type: EvtTurnStarted, Round: 1, UserID: next.Order[0]},
		}
		return events, next, nil

	case CmdPick:
		if s.Phase != PhaseInProgress {
			return nil, s, ErrNotInProgress
		}
		current, _ := s.CurrentUser()
		if cmd.UserID != current {
			return nil, s, ErrNotYourTurn
		}
		return advance(s)

	case CmdTimeoutAdvance:
		if s.Phase != PhaseInProgress {
			return nil, s, ErrNotInProgress
		}
		return advance(s)

	case CmdReset:
		next := NewState(s.Rules)
		return []Event{{Type: EvtPhaseChanged, Phase: PhaseNotStarted}}, next, nil

	default:
		return nil, s, errors.New("unsupported command")
	}
}

// advance ends the current turn and either starts the next one or completes
// the draft when the sequence is exhausted.
func advance(s State) ([]Event, State, error) {
	current, _ := s.CurrentUser()
	events := []Event{{Type: EvtTurnEnded, Round: s.Round, UserID: current}}

	next := s
	if s.Round >= s.totalTurns() {
		next.Phase = PhaseCompleted
		events = append(events, Event{Type: EvtPhaseChanged, Phase: PhaseCompleted})
		return events, next, nil
	}

	next.Round = s.Round + 1
	user, _ := next.CurrentUser()
	events = append(events, Event{Type: EvtTurnStarted, Round: next.Round, UserID: user})
	return events, next, nil
}
