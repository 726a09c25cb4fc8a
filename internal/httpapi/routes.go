// Package httpapi wires the REST and websocket surface onto a chi router.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/fantasystreet/league-backend/internal/market"
	"github.com/fantasystreet/league-backend/internal/metrics"
	"github.com/fantasystreet/league-backend/internal/registry"
	"github.com/fantasystreet/league-backend/internal/store"
	"github.com/fantasystreet/league-backend/internal/ws"
)

type Deps struct {
	Registry  *registry.Registry
	Store     store.Store
	Market    *market.Client
	Log       *zap.Logger
	CORSAllow []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   d.CORSAllow,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/healthz", Healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Get("/price", Price(d.Market))

	r.Post("/stocks", AddStock(d.Store))
	r.Delete("/stocks", RemoveStock(d.Store))

	r.Post("/draft/{leagueID}/start", StartDraft(d.Registry, d.Store, d.Log))
	r.Post("/draft/{leagueID}/reset", ResetDraft(d.Registry, d.Store, d.Log))

	r.Get("/chat/ws/{leagueID}/{userID}", ws.ChatHandler(d.Registry, d.Log))
	r.Get("/draft/ws/{leagueID}/{userID}", ws.DraftHandler(d.Registry, d.Log))

	return r
}
