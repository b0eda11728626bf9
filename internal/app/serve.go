package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cricketattax/auctioneer/internal/auction"
	"github.com/cricketattax/auctioneer/internal/config"
	"github.com/cricketattax/auctioneer/internal/domain"
	"github.com/cricketattax/auctioneer/internal/inventory"
	"github.com/cricketattax/auctioneer/internal/ledger"
	"github.com/cricketattax/auctioneer/internal/server"
	"github.com/cricketattax/auctioneer/internal/server/handler"
	"github.com/cricketattax/auctioneer/internal/server/ws"
)

// shutdownTimeout bounds the graceful HTTP shutdown on exit.
const shutdownTimeout = 10 * time.Second

// Serve builds the engine and API front from the wired dependencies and runs
// them until the context is cancelled.
func (a *App) Serve(ctx context.Context, deps *Dependencies) error {
	policy, err := buildPolicy(a.cfg.Auction.IncrementTiers)
	if err != nil {
		return err
	}

	inv := inventory.New(deps.PoolStore, deps.StateStore, a.logger)
	if err := inv.Restore(ctx); err != nil {
		return fmt.Errorf("app: restore inventory: %w", err)
	}

	engine := auction.NewEngine(auction.Deps{
		Policy:    policy,
		Catalog:   inv,
		Ledger:    ledger.New(deps.TeamStore, a.logger),
		Teams:     deps.TeamStore,
		Sold:      deps.SoldStore,
		State:     deps.StateStore,
		Snapshots: deps.SnapshotCache,
		Broadcast: auction.NewBroadcaster(deps.EventBus, a.logger),
		Notifier:  deps.Notifier,
		Archiver:  deps.Archiver,
		Logger:    a.logger,
	})
	if err := engine.Restore(ctx); err != nil {
		return fmt.Errorf("app: restore engine: %w", err)
	}

	hub := ws.NewHub(deps.EventBus, engine, deps.RateLimiter,
		ws.Config{BidRateLimit: a.cfg.Server.BidRateLimit}, a.logger)

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Teams: handler.NewTeamHandler(deps.TeamStore, engine,
			domain.MoneyFromFloat(a.cfg.Auction.DefaultBudget), a.logger),
		Pools: handler.NewPoolHandler(handler.PoolHandlerDeps{
			Pools:     deps.PoolStore,
			Teams:     deps.TeamStore,
			Sold:      deps.SoldStore,
			State:     deps.StateStore,
			Engine:    engine,
			Catalog:   inv,
			Writer:    deps.BlobWriter,
			Deleter:   deps.BlobDeleter,
			Locks:     deps.LockManager,
			BasePrice: domain.MoneyFromFloat(a.cfg.Auction.DefaultBasePrice),
			Logger:    a.logger,
		}),
		State: handler.NewStateHandler(engine, deps.SoldStore, a.logger),
	}
	if deps.BlobReader != nil {
		handlers.Photos = handler.NewPhotoHandler(deps.BlobReader, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:           a.cfg.Server.Port,
		CORSOrigins:    a.cfg.Server.CORSOrigins,
		APIKey:         a.cfg.Server.APIKey,
		WriteRateLimit: a.cfg.Server.BidRateLimit,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := hub.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("app: serve: %w", err)
	}
	return nil
}

// buildPolicy converts the configured increment schedule into an engine
// policy.
func buildPolicy(tiers []config.IncrementTier) (auction.Policy, error) {
	if len(tiers) == 0 {
		return auction.DefaultPolicy(), nil
	}
	conv := make([]auction.Tier, len(tiers))
	for i, t := range tiers {
		conv[i] = auction.Tier{Below: t.Below, Step: t.Step}
	}
	policy, err := auction.NewPolicy(conv)
	if err != nil {
		return auction.Policy{}, fmt.Errorf("app: build increment policy: %w", err)
	}
	return policy, nil
}
