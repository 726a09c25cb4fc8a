package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fantasystreet/league-backend/internal/draft"
	"github.com/fantasystreet/league-backend/internal/market"
	"github.com/fantasystreet/league-backend/internal/registry"
	"github.com/fantasystreet/league-backend/internal/room"
	"github.com/fantasystreet/league-backend/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// StartDraft flips a league's draft to IN_PROGRESS. Gated on every member
// being present in the draft room; the new phase is mirrored into the
// league record.
func StartDraft(reg *registry.Registry, st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leagueID := chi.URLParam(r, "leagueID")

		rm, err := reg.Ensure(r.Context(), leagueID, room.KindDraft)
		if err != nil {
			if errors.Is(err, store.ErrLeagueNotFound) {
				writeError(w, http.StatusNotFound, "league not found")
				return
			}
			log.Error("draft room lookup failed", zap.String("league", leagueID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "room unavailable")
			return
		}

		reply := make(chan error, 1)
		rm.Inbox() <- room.StartDraft{Reply: reply}
		switch err := <-reply; {
		case errors.Is(err, room.ErrNotAllPresent):
			writeError(w, http.StatusConflict, "all league members must be connected to start the draft")
			return
		case errors.Is(err, draft.ErrAlreadyStarted):
			writeJSON(w, http.StatusOK, map[string]string{"status": "draft_previously_started"})
			return
		case err != nil:
			writeError(w, http.StatusConflict, err.Error())
			return
		}

		if err := st.SetDraftPhase(r.Context(), leagueID, string(draft.PhaseInProgress)); err != nil {
			log.Warn("draft phase mirror failed", zap.String("league", leagueID), zap.Error(err))
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
	}
}

// ResetDraft is the administrative return to NOT_STARTED.
func ResetDraft(reg *registry.Registry, st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leagueID := chi.URLParam(r, "leagueID")

		rm, err := reg.Ensure(r.Context(), leagueID, room.KindDraft)
		if err != nil {
			writeError(w, http.StatusNotFound, "league not found")
			return
		}

		reply := make(chan error, 1)
		rm.Inbox() <- room.ResetDraft{Reply: reply}
		if err := <-reply; err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}

		if err := st.SetDraftPhase(r.Context(), leagueID, string(draft.PhaseNotStarted)); err != nil {
			log.Warn("draft phase mirror failed", zap.String("league", leagueID), zap.Error(err))
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	}
}

// Price looks up the bar for a ticker at an optional timestamp (default
// now), clamped to the trading calendar.
func Price(mkt *market.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticker := r.URL.Query().Get("ticker")
		if ticker == "" {
			writeError(w, http.StatusBadRequest, "ticker required")
			return
		}

		ts := time.Now()
		if raw := r.URL.Query().Get("ts"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "ts must be RFC3339")
				return
			}
			ts = parsed
		}

		bar, err := mkt.Price(r.Context(), ticker, ts)
		if err != nil {
			if errors.Is(err, market.ErrNoData) {
				writeError(w, http.StatusNotFound, "no price data for ticker")
				return
			}
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"price_data": bar})
	}
}

type stockRequest struct {
	LeagueID string `json:"leagueId"`
	MemberID string `json:"leagueMemberId"`
	Ticker   string `json:"ticker"`
}

// AddStock drafts a ticker for a member; each ticker is held by at most one
// member per league.
func AddStock(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req stockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LeagueID == "" || req.MemberID == "" || req.Ticker == "" {
			writeError(w, http.StatusBadRequest, "leagueId, leagueMemberId and ticker required")
			return
		}

		err := st.AddStock(r.Context(), store.Stock{LeagueID: req.LeagueID, MemberID: req.MemberID, Ticker: req.Ticker})
		if errors.Is(err, store.ErrDuplicateStock) {
			writeError(w, http.StatusBadRequest, "stock already exists in the league")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "stock added"})
	}
}

// RemoveStock releases a ticker the member owns.
func RemoveStock(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req stockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LeagueID == "" || req.MemberID == "" || req.Ticker == "" {
			writeError(w, http.StatusBadRequest, "leagueId, leagueMemberId and ticker required")
			return
		}

		err := st.RemoveStock(r.Context(), store.Stock{LeagueID: req.LeagueID, MemberID: req.MemberID, Ticker: req.Ticker})
		if errors.Is(err, store.ErrStockNotOwned) {
			writeError(w, http.StatusNotFound, "you do not own this stock")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "stock removed"})
	}
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
