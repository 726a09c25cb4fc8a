// Package room hosts the live session for one league: the presence set, the
// chat log, and the draft turn scheduler. A Room is a single goroutine that
// owns all of that state; everything reaches it through typed messages on
// its inbox, and connections receive mutations only via broadcast frames.
package room

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fantasystreet/league-backend/internal/bus"
	"github.com/fantasystreet/league-backend/internal/draft"
	"github.com/fantasystreet/league-backend/internal/metrics"
	"github.com/fantasystreet/league-backend/internal/store"
	"github.com/fantasystreet/league-backend/internal/wire"
)

var ErrNotAllPresent = errors.New("draft requires every league member present")

type Kind string

const (
	KindChat  Kind = "chat"
	KindDraft Kind = "draft"
)

type Msg interface{ isRoomMsg() }

// Join registers one socket. The joining socket receives the full state
// snapshot before any delta; other members see presence.join only when this
// is the user's first open socket.
type Join struct {
	UserID string
	ConnID string
	Outbox chan wire.Frame
}

// Leave unregisters one socket. Safe to send twice for the same ConnID;
// presence.leave goes out only when the user's last socket closes.
type Leave struct {
	UserID string
	ConnID string
}

type Chat struct {
	UserID string
	Text   string
}

// Pick is the current turn user ending their turn early. Picks from anyone
// else are dropped.
type Pick struct{ UserID string }

// StartDraft flips the scheduler to IN_PROGRESS. Fails unless every roster
// member is present.
type StartDraft struct{ Reply chan error }

// ResetDraft is the administrative return to NOT_STARTED.
type ResetDraft struct{ Reply chan error }

// Forward injects a frame that originated on another instance. It is
// broadcast locally and never re-published.
type Forward struct{ Frame wire.Frame }

// GetView reflects internal state without data races. Test-only.
type GetView struct{ Reply chan View }

type Shutdown struct{}

type timerFired struct{ gen uint64 }

func (Join) isRoomMsg()       {}
func (Leave) isRoomMsg()      {}
func (Chat) isRoomMsg()       {}
func (Pick) isRoomMsg()       {}
func (StartDraft) isRoomMsg() {}
func (ResetDraft) isRoomMsg() {}
func (Forward) isRoomMsg()    {}
func (GetView) isRoomMsg()    {}
func (Shutdown) isRoomMsg()   {}
func (timerFired) isRoomMsg() {}

type View struct {
	ActiveUsers []string
	NumConns    int
	ChatLen     int
	Draft       draft.State
	Deadline    time.Time
}

type client struct {
	userID string
	outbox chan wire.Frame
}

type Config struct {
	LeagueID string
	Kind     Kind
	Roster   []store.Member
	Rules    draft.Rules
	Bus      bus.Bus
	Origin   string // this instance's id, stamped on published envelopes
	Log      *zap.Logger
	// OnEmpty is invoked from the room loop when the last socket leaves
	// and no draft is running, so the registry can reap the room.
	OnEmpty func()
}

type Room struct {
	cfg   Config
	inbox chan Msg
	pub   chan bus.Envelope

	order   []string // roster user ids in draft position order
	conns   map[string]client
	sockets map[string]int // open socket count per user

	chat     []wire.Frame
	draft    draft.State
	deadline time.Time
	timer    *time.Timer
	timerGen uint64

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, cfg Config) *Room {
	if cfg.Bus == nil {
		cfg.Bus = bus.Noop{}
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}

	order := make([]string, 0, len(cfg.Roster))
	for _, m := range cfg.Roster {
		order = append(order, m.UserID)
	}

	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		cfg:     cfg,
		inbox:   make(chan Msg, 64),
		pub:     make(chan bus.Envelope, 64),
		order:   order,
		conns:   make(map[string]client),
		sockets: make(map[string]int),
		draft:   draft.NewState(cfg.Rules),
		ctx:     ctx,
		cancel:  cancel,
	}
	go r.loop()
	go r.publisher()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)
			case Leave:
				r.handleLeave(msg.ConnID)
			case Chat:
				r.handleChat(msg)
			case Pick:
				r.handlePick(msg)
			case StartDraft:
				msg.Reply <- r.handleStartDraft()
			case ResetDraft:
				msg.Reply <- r.handleResetDraft()
			case Forward:
				r.handleForward(msg.Frame)
			case timerFired:
				r.handleTimer(msg.gen)
			case GetView:
				msg.Reply <- View{
					ActiveUsers: r.activeUsers(),
					NumConns:    len(r.conns),
					ChatLen:     len(r.chat),
					Draft:       r.draft,
					Deadline:    r.deadline,
				}
			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleJoin(msg Join) {
	r.conns[msg.ConnID] = client{userID: msg.UserID, outbox: msg.Outbox}
	first := r.sockets[msg.UserID] == 0
	r.sockets[msg.UserID]++

	// Snapshot happens-before any delta on this connection.
	r.deliver(msg.ConnID, wire.State(append([]string(nil), r.order...), r.activeUsers()))

	if r.cfg.Kind == KindDraft {
		switch r.draft.Phase {
		case draft.PhaseInProgress:
			current, _ := r.draft.CurrentUser()
			r.deliver(msg.ConnID, wire.Turn(wire.TypeDraftInfo, r.draft.Round, current, r.deadline, string(r.draft.Phase)))
		case draft.PhaseCompleted:
			r.deliver(msg.ConnID, wire.StateChange(string(draft.PhaseCompleted)))
		}
	}

	// Presence is a logical OR over the user's sockets: a second socket
	// changes nothing, so no join is re-broadcast.
	if first {
		r.broadcastExcept(msg.ConnID, wire.Join(msg.UserID))
	}
}

func (r *Room) handleLeave(connID string) {
	c, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)
	close(c.outbox)

	r.sockets[c.userID]--
	if r.sockets[c.userID] <= 0 {
		delete(r.sockets, c.userID)
		r.broadcast(wire.Leave(c.userID))
	}

	// Empty rooms are reaped, but never out from under a running draft:
	// the scheduler outlives any one connection.
	if len(r.conns) == 0 && r.draft.Phase != draft.PhaseInProgress && r.cfg.OnEmpty != nil {
		r.cfg.OnEmpty()
	}
}

func (r *Room) handleChat(msg Chat) {
	frame := wire.Chat(msg.UserID, msg.Text)
	r.chat = append(r.chat, frame)
	r.broadcast(frame)

	env := bus.Envelope{
		Origin:   r.cfg.Origin,
		LeagueID: r.cfg.LeagueID,
		Kind:     string(r.cfg.Kind),
		Frame:    frame,
	}
	select {
	case r.pub <- env:
	default:
		r.cfg.Log.Warn("publish queue full, dropping chat envelope", zap.String("league", r.cfg.LeagueID))
	}
}

// publisher drains the publish queue on a single goroutine so chat lines
// reach the bus in the order the room broadcast them.
func (r *Room) publisher() {
	for {
		select {
		case <-r.ctx.Done():
			return
		case env := <-r.pub:
			if err := r.cfg.Bus.Publish(r.ctx, env); err != nil {
				r.cfg.Log.Warn("bus publish failed", zap.String("league", r.cfg.LeagueID), zap.Error(err))
			}
		}
	}
}

func (r *Room) handleForward(frame wire.Frame) {
	if frame.Type != wire.TypeChatMessage {
		return
	}
	r.chat = append(r.chat, frame)
	r.broadcast(frame)
}

func (r *Room) handleStartDraft() error {
	if len(r.activeUsers()) != len(r.order) {
		return ErrNotAllPresent
	}
	events, next, err := draft.Apply(r.draft, draft.Command{Type: draft.CmdStart, Order: r.order})
	if err != nil {
		return err
	}
	r.draft = next
	r.emit(events)
	return nil
}

func (r *Room) handleResetDraft() error {
	events, next, err := draft.Apply(r.draft, draft.Command{Type: draft.CmdReset})
	if err != nil {
		return err
	}
	r.draft = next
	r.stopTimer()
	r.emit(events)
	return nil
}

func (r *Room) handlePick(msg Pick) {
	events, next, err := draft.Apply(r.draft, draft.Command{Type: draft.CmdPick, UserID: msg.UserID})
	if err != nil {
		// Out-of-turn and pre-start picks are dropped, not answered.
		r.cfg.Log.Debug("pick ignored",
			zap.String("league", r.cfg.LeagueID),
			zap.String("user", msg.UserID),
			zap.Error(err))
		return
	}
	r.draft = next
	r.emit(events)
}

func (r *Room) handleTimer(gen uint64) {
	if gen != r.timerGen {
		return // stale fire from a turn that already advanced
	}
	events, next, err := draft.Apply(r.draft, draft.Command{Type: draft.CmdTimeoutAdvance})
	if err != nil {
		return
	}
	r.draft = next
	r.emit(events)
}

// emit turns scheduler events into broadcast frames and (re)arms the turn
// timer. The deadline is server-authoritative; clients only render it.
func (r *Room) emit(events []draft.Event) {
	for _, e := range events {
		switch e.Type {
		case draft.EvtTurnEnded:
			r.broadcast(wire.TurnEnd())
		case draft.EvtTurnStarted:
			r.armTurnTimer()
			r.broadcast(wire.Turn(wire.TypeDraftTurnStart, e.Round, e.UserID, r.deadline, string(draft.PhaseInProgress)))
		case draft.EvtPhaseChanged:
			if e.Phase != draft.PhaseInProgress {
				r.stopTimer()
			}
			if e.Phase == draft.PhaseCompleted {
				metrics.DraftsCompleted.Inc()
			}
			r.broadcast(wire.StateChange(string(e.Phase)))
		}
	}
}

func (r *Room) armTurnTimer() {
	r.stopTimer()
	r.timerGen++
	gen := r.timerGen
	r.deadline = time.Now().Add(r.cfg.Rules.TurnTimeout)
	r.timer = time.AfterFunc(r.cfg.Rules.TurnTimeout, func() {
		select {
		case r.inbox <- timerFired{gen: gen}:
		case <-r.ctx.Done():
		}
	})
}

func (r *Room) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// activeUsers lists present users in roster order, so every client sees the
// same deterministic set.
func (r *Room) activeUsers() []string {
	active := make([]string, 0, len(r.sockets))
	for _, u := range r.order {
		if r.sockets[u] > 0 {
			active = append(active, u)
		}
	}
	return active
}

func (r *Room) deliver(connID string, frame wire.Frame) {
	c, ok := r.conns[connID]
	if !ok {
		return
	}
	select {
	case c.outbox <- frame:
	default:
		r.handleLeave(connID)
	}
}

func (r *Room) broadcast(frame wire.Frame) {
	r.broadcastExcept("", frame)
}

func (r *Room) broadcastExcept(skipConnID string, frame wire.Frame) {
	metrics.FramesBroadcast.Inc()
	var slow []string
	for connID, c := range r.conns {
		if connID == skipConnID {
			continue
		}
		select {
		case c.outbox <- frame:
		default:
			slow = append(slow, connID)
		}
	}
	// A full outbox means the client stopped draining; drop it through the
	// normal leave path so presence stays truthful.
	for _, connID := range slow {
		r.handleLeave(connID)
	}
}

func (r *Room) shutdown() {
	r.stopTimer()
	for connID, c := range r.conns {
		close(c.outbox)
		delete(r.conns, connID)
	}
	clear(r.sockets)
	r.cancel()
}
