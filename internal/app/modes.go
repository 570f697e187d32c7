package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/polyview/polyview/internal/pipeline"
	"github.com/polyview/polyview/internal/server"
	"github.com/polyview/polyview/internal/server/handler"
	"github.com/polyview/polyview/internal/server/ws"
)

// shutdownTimeout bounds graceful HTTP shutdown once the context is cancelled.
const shutdownTimeout = 10 * time.Second

// ServeMode runs the read-only HTTP API and the WebSocket refresh feed.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps)
	return g.Wait()
}

// ArchiveMode runs the periodic snapshot archiver without the HTTP API.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startArchiver(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the HTTP API and the archiver together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps)
	a.startArchiver(ctx, g, deps)
	return g.Wait()
}

// startServer wires the handlers and hub, and launches the HTTP server with
// graceful shutdown tied to the group context.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(a.logger)
	deps.Cache.OnRefresh(hub.BroadcastRefresh)

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(deps.HealthChecks, a.logger),
		Markets: handler.NewMarketHandler(deps.MarketSvc, a.logger),
		Status:  handler.NewStatusHandler(deps.MarketSvc, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	})
}

// startArchiver launches the snapshot archiver loop.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	archiver := pipeline.NewSnapshotArchiver(deps.Cache, deps.SnapshotStore, deps.BlobWriter, a.logger)
	interval := a.cfg.Archive.Interval()

	g.Go(func() error {
		return archiver.RunLoop(ctx, interval)
	})
}
