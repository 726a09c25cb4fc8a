// Package registry owns the map of live rooms. Like the rooms themselves it
// is a single goroutine fed by typed messages, so room creation and reaping
// never race.
package registry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fantasystreet/league-backend/internal/bus"
	"github.com/fantasystreet/league-backend/internal/draft"
	"github.com/fantasystreet/league-backend/internal/metrics"
	"github.com/fantasystreet/league-backend/internal/room"
	"github.com/fantasystreet/league-backend/internal/store"
)

type Msg interface{ isRegistryMsg() }

type getRoom struct {
	key   string
	reply chan *room.Room
}

type ensureRoom struct {
	key      string
	leagueID string
	kind     room.Kind
	roster   []store.Member
	reply    chan *room.Room
}

type removeRoom struct{ key string }

type forward struct{ env bus.Envelope }

type shutdown struct{}

func (getRoom) isRegistryMsg()    {}
func (ensureRoom) isRegistryMsg() {}
func (removeRoom) isRegistryMsg() {}
func (forward) isRegistryMsg()    {}
func (shutdown) isRegistryMsg()   {}

type Config struct {
	Store  store.Store
	Bus    bus.Bus
	Origin string // this instance's id
	Rules  draft.Rules
	Log    *zap.Logger
}

type Registry struct {
	cfg    Config
	inbox  chan Msg
	rooms  map[string]*room.Room
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, cfg Config) *Registry {
	if cfg.Bus == nil {
		cfg.Bus = bus.Noop{}
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		cfg:    cfg,
		inbox:  make(chan Msg, 64),
		rooms:  make(map[string]*room.Room),
		ctx:    ctx,
		cancel: cancel,
	}
	go r.loop()
	go cfg.Bus.Subscribe(ctx, func(env bus.Envelope) {
		if env.Origin == cfg.Origin {
			return // our own publish echoing back
		}
		select {
		case r.inbox <- forward{env: env}:
		case <-ctx.Done():
		}
	})
	return r
}

func key(leagueID string, kind room.Kind) string {
	return fmt.Sprintf("%s:%s", kind, leagueID)
}

// Get returns the live room for a league, or nil. Nil after Shutdown.
func (r *Registry) Get(leagueID string, kind room.Kind) *room.Room {
	reply := make(chan *room.Room, 1)
	select {
	case r.inbox <- getRoom{key: key(leagueID, kind), reply: reply}:
	case <-r.ctx.Done():
		return nil
	}
	select {
	case rm := <-reply:
		return rm
	case <-r.ctx.Done():
		return nil
	}
}

// Ensure returns the live room for a league, creating it on first touch.
// The roster lookup happens here, in the caller's goroutine, so a slow
// store never stalls the registry loop.
func (r *Registry) Ensure(ctx context.Context, leagueID string, kind room.Kind) (*room.Room, error) {
	if rm := r.Get(leagueID, kind); rm != nil {
		return rm, nil
	}

	roster, err := r.cfg.Store.Members(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("load roster for league %s: %w", leagueID, err)
	}

	reply := make(chan *room.Room, 1)
	select {
	case r.inbox <- ensureRoom{key: key(leagueID, kind), leagueID: leagueID, kind: kind, roster: roster, reply: reply}:
	case <-r.ctx.Done():
		return nil, r.ctx.Err()
	}
	select {
	case rm := <-reply:
		return rm, nil
	case <-r.ctx.Done():
		return nil, r.ctx.Err()
	}
}

// Shutdown stops every room and then the registry itself.
func (r *Registry) Shutdown() {
	r.inbox <- shutdown{}
}

func (r *Registry) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.stopAll()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case getRoom:
				msg.reply <- r.rooms[msg.key] // may be nil

			case ensureRoom:
				if rm := r.rooms[msg.key]; rm != nil {
					msg.reply <- rm
					break
				}
				k := msg.key
				rm := room.New(r.ctx, room.Config{
					LeagueID: msg.leagueID,
					Kind:     msg.kind,
					Roster:   msg.roster,
					Rules:    r.cfg.Rules,
					Bus:      r.cfg.Bus,
					Origin:   r.cfg.Origin,
					Log:      r.cfg.Log.Named("room").With(zap.String("league", msg.leagueID), zap.String("kind", string(msg.kind))),
					OnEmpty: func() {
						select {
						case r.inbox <- removeRoom{key: k}:
						case <-r.ctx.Done():
						}
					},
				})
				r.rooms[k] = rm
				metrics.RoomsActive.Set(float64(len(r.rooms)))
				msg.reply <- rm

			case removeRoom:
				if rm := r.rooms[msg.key]; rm != nil {
					rm.Inbox() <- room.Shutdown{}
					delete(r.rooms, msg.key)
					metrics.RoomsActive.Set(float64(len(r.rooms)))
				}

			case forward:
				if rm := r.rooms[key(msg.env.LeagueID, room.Kind(msg.env.Kind))]; rm != nil {
					rm.Inbox() <- room.Forward{Frame: msg.env.Frame}
				}

			case shutdown:
				r.stopAll()
				r.cancel()
				return
			}
		}
	}
}

func (r *Registry) stopAll() {
	for k, rm := range r.rooms {
		rm.Inbox() <- room.Shutdown{}
		delete(r.rooms, k)
	}
	metrics.RoomsActive.Set(0)
}
