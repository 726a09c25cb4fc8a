// Package wire defines the JSON text frames exchanged over a room's
// websocket. Frame types and field names match what the browser clients
// already speak.
package wire

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrMalformed = errors.New("malformed frame")
var ErrUnknownType = errors.New("unknown frame type")

const (
	TypeState            = "state"
	TypePresenceJoin     = "presence.join"
	TypePresenceLeave    = "presence.leave"
	TypeChatMessage      = "chat.message"
	TypeDraftStateChange = "draft.stateChange"
	TypeDraftInfo        = "draft.info"
	TypeDraftTurnStart   = "draft.turnStart"
	TypeDraftTurnEnd     = "draft.turnEnd"
	TypeDraftPicked      = "draft.picked"
	TypeError            = "error"
)

// Frame is the superset of every message on the wire. Which fields are
// populated depends on Type; omitempty keeps frames as small as the
// originals.
type Frame struct {
	Type        string   `json:"type"`
	TS          string   `json:"ts,omitempty"`
	AllUsers    []string `json:"allUsers,omitempty"`
	ActiveUsers []string `json:"activeUsers,omitempty"`
	UserID      string   `json:"userId,omitempty"`
	Text        string   `json:"text,omitempty"`
	RoundNum    int      `json:"roundNum,omitempty"`
	CurrentUser string   `json:"currentUserId,omitempty"`
	Deadline    string   `json:"deadline,omitempty"`
	DraftState  string   `json:"draftState,omitempty"`
	Error       string   `json:"error,omitempty"`
}

var knownTypes = map[string]bool{
	TypeState:            true,
	TypePresenceJoin:     true,
	TypePresenceLeave:    true,
	TypeChatMessage:      true,
	TypeDraftStateChange: true,
	TypeDraftInfo:        true,
	TypeDraftTurnStart:   true,
	TypeDraftTurnEnd:     true,
	TypeDraftPicked:      true,
	TypeError:            true,
}

// Decode parses one inbound frame. A payload that is not JSON, or JSON
// without a recognized type, is a protocol error, not a chat line.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, ErrMalformed
	}
	if !knownTypes[f.Type] {
		return Frame{}, ErrUnknownType
	}
	return f, nil
}

func (f Frame) Encode() []byte {
	b, _ := json.Marshal(f)
	return b
}

// Timestamp returns the stamp carried by every server-originated frame.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func State(allUsers, activeUsers []string) Frame {
	return Frame{Type: TypeState, AllUsers: allUsers, ActiveUsers: activeUsers, TS: Timestamp()}
}

func Join(userID string) Frame {
	return Frame{Type: TypePresenceJoin, UserID: userID, TS: Timestamp()}
}

func Leave(userID string) Frame {
	return Frame{Type: TypePresenceLeave, UserID: userID, TS: Timestamp()}
}

func Chat(userID, text string) Frame {
	return Frame{Type: TypeChatMessage, UserID: userID, Text: text, TS: Timestamp()}
}

func StateChange(draftState string) Frame {
	return Frame{Type: TypeDraftStateChange, DraftState: draftState, TS: Timestamp()}
}

// Turn builds a draft.turnStart or draft.info frame; both carry the same
// payload, the type only tells the client whether the turn just began.
func Turn(frameType string, round int, currentUser string, deadline time.Time, draftState string) Frame {
	return Frame{
		Type:        frameType,
		RoundNum:    round,
		CurrentUser: currentUser,
		Deadline:    deadline.UTC().Format(time.RFC3339),
		DraftState:  draftState,
		TS:          Timestamp(),
	}
}

func TurnEnd() Frame {
	return Frame{Type: TypeDraftTurnEnd, TS: Timestamp()}
}

func Picked() Frame {
	return Frame{Type: TypeDraftPicked}
}

func Error(msg string) Frame {
	return Frame{Type: TypeError, Error: msg, TS: Timestamp()}
}
