package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fantasystreet/league-backend/internal/bus"
	"github.com/fantasystreet/league-backend/internal/config"
	"github.com/fantasystreet/league-backend/internal/draft"
	"github.com/fantasystreet/league-backend/internal/httpapi"
	"github.com/fantasystreet/league-backend/internal/logger"
	"github.com/fantasystreet/league-backend/internal/market"
	"github.com/fantasystreet/league-backend/internal/registry"
	"github.com/fantasystreet/league-backend/internal/store"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal("connect postgres", zap.Error(err))
		}
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
		st = pg
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		st = store.NewMemory()
	}

	var b bus.Bus = bus.Noop{}
	if cfg.RedisAddr != "" {
		rb, err := bus.NewRedis(ctx, cfg.RedisAddr, cfg.RedisDB, log)
		if err != nil {
			log.Fatal("connect redis", zap.Error(err))
		}
		defer rb.Close() //nolint:errcheck
		b = rb
	}

	origin := uuid.NewString()
	reg := registry.New(ctx, registry.Config{
		Store:  st,
		Bus:    b,
		Origin: origin,
		Rules: draft.Rules{
			PicksPerMember: cfg.PicksPerMember,
			TurnTimeout:    cfg.TurnTimeout,
		},
		Log: log,
	})

	mkt := market.NewClient(market.Config{
		BaseURL:      cfg.MarketBaseURL,
		APIKey:       cfg.MarketAPIKey,
		APISecret:    cfg.MarketAPISecret,
		ChunkMinutes: cfg.ChunkMinutes,
	}, log)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Registry:  reg,
			Store:     st,
			Market:    mkt,
			Log:       log,
			CORSAllow: cfg.CORSAllow,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("origin", origin))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		reg.Shutdown()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
