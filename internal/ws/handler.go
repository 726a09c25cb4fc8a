// Package ws bridges websocket connections into room actors: one reader
// loop and one writer goroutine per connection, with the room's outbox
// channel in between.
package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fantasystreet/league-backend/internal/metrics"
	"github.com/fantasystreet/league-backend/internal/registry"
	"github.com/fantasystreet/league-backend/internal/room"
	"github.com/fantasystreet/league-backend/internal/store"
	"github.com/fantasystreet/league-backend/internal/wire"
)

const (
	writeTimeout = 3 * time.Second
	pingInterval = 20 * time.Second
)

// ChatHandler serves /chat/ws/{leagueID}/{userID}. Inbound text frames are
// chat lines.
func ChatHandler(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return serve(reg, log, room.KindChat)
}

// DraftHandler serves /draft/ws/{leagueID}/{userID}. Inbound frames are
// JSON; only draft.picked is meaningful.
func DraftHandler(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return serve(reg, log, room.KindDraft)
}

func serve(reg *registry.Registry, log *zap.Logger, kind room.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leagueID := chi.URLParam(r, "leagueID")
		userID := chi.URLParam(r, "userID")
		if leagueID == "" || userID == "" {
			http.Error(w, "missing league or user id", http.StatusBadRequest)
			return
		}

		rm, err := reg.Ensure(r.Context(), leagueID, kind)
		if err != nil {
			if errors.Is(err, store.ErrLeagueNotFound) {
				http.Error(w, "league not found", http.StatusNotFound)
				return
			}
			log.Error("room lookup failed", zap.String("league", leagueID), zap.Error(err))
			http.Error(w, "room unavailable", http.StatusInternalServerError)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		metrics.Connections.Inc()
		defer metrics.Connections.Dec()

		out := make(chan wire.Frame, 32)
		connID := uuid.NewString()

		rm.Inbox() <- room.Join{UserID: userID, ConnID: connID, Outbox: out}
		// Any exit, clean or not, is a leave. Leave is idempotent, so a
		// room-side drop racing this defer is harmless.
		defer func() { rm.Inbox() <- room.Leave{UserID: userID, ConnID: connID} }()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go writeLoop(writeCtx, conn, out)

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					// Abnormal closure is just a presence leave, not an
					// error worth surfacing.
					log.Debug("socket read ended", zap.String("user", userID), zap.Error(err))
				}
				return
			}

			switch kind {
			case room.KindChat:
				rm.Inbox() <- room.Chat{UserID: userID, Text: string(data)}

			case room.KindDraft:
				frame, err := wire.Decode(data)
				if err != nil {
					metrics.ProtocolErrors.Inc()
					writeFrame(r.Context(), conn, wire.Error("bad payload"))
					continue
				}
				if frame.Type != wire.TypeDraftPicked {
					metrics.ProtocolErrors.Inc()
					writeFrame(r.Context(), conn, wire.Error("unexpected frame type"))
					continue
				}
				rm.Inbox() <- room.Pick{UserID: userID}
			}
		}
	}
}

// writeLoop drains the room outbox and keeps the connection alive with
// pings. Exits when the room closes the outbox or the request ends.
func writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan wire.Frame) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-out:
			if !ok {
				return
			}
			writeFrame(ctx, conn, frame)
		case <-ticker.C:
			_ = conn.Ping(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, frame wire.Frame) {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, frame.Encode())
}
