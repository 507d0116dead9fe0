// Package app wires the room engine's components together: the admission
// counter, durable-write sink, room registry, SQLite store, and the HTTP
// and WebSocket surfaces.
package app

import (
	"context"
	"fmt"
	stdhttp "net/http"

	"github.com/rs/zerolog"

	"github.com/ashbrook/roomengine/internal/admission"
	"github.com/ashbrook/roomengine/internal/auth"
	"github.com/ashbrook/roomengine/internal/config"
	"github.com/ashbrook/roomengine/internal/roomcore"
	"github.com/ashbrook/roomengine/internal/roomregistry"
	"github.com/ashbrook/roomengine/internal/store"
	"github.com/ashbrook/roomengine/internal/store/sqlite"
	httptransport "github.com/ashbrook/roomengine/internal/transport/http"
	"github.com/ashbrook/roomengine/internal/transport/ws"
	"github.com/ashbrook/roomengine/internal/writesink"
)

// App bundles every long-lived component for cmd/roomengine's serve command.
type App struct {
	cfg      config.Config
	log      *zerolog.Logger
	store    store.Store
	sink     *writesink.Sink
	registry *roomregistry.Registry
	admit    *admission.Counter
	server   *stdhttp.Server
}

// New constructs the full dependency graph and re-hydrates every persisted
// room into a live actor before returning.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sinkCfg := writesink.Config{
		BufferSize:    1024,
		BatchSize:     cfg.WriteSinkBatchSize,
		FlushInterval: cfg.WriteSinkFlushInterval,
	}
	sink := writesink.New(st, sinkCfg, logger)

	registry := roomregistry.New()
	admit := admission.NewCounter(cfg.AdmissionCeiling)

	roomCfg := roomcore.DefaultConfig()
	roomCfg.RateLimitInterval = cfg.RateLimitInterval
	roomCfg.CoalesceWindow = cfg.CoalesceWindow

	roomHandlers := httptransport.NewRoomHandlers(registry, st, sink, roomCfg, "ws://"+cfg.Addr, logger)
	historyHandlers := httptransport.NewHistoryHandlers(st, logger)
	wsHandler := ws.NewHandler(registry, admit, logger)

	jwtCfg := &auth.JWTConfig{
		Secret:   []byte(cfg.AdminJWTSecret),
		Issuer:   "roomengine",
		Audience: "roomengine-admin",
		TTL:      cfg.AdminJWTTTL,
	}
	adminCfg := httptransport.AdminAuthConfig{
		APIKeyHash: cfg.AdminAPIKeyHash,
		JWT:        jwtCfg,
	}

	server := httptransport.NewServer(cfg, roomHandlers, historyHandlers, wsHandler, adminCfg, logger)

	app := &App{cfg: cfg, log: logger, store: st, sink: sink, registry: registry, admit: admit, server: server}
	if err := app.rehydrateRooms(roomHandlers); err != nil {
		return nil, fmt.Errorf("rehydrate rooms: %w", err)
	}
	return app, nil
}

// rehydrateRooms spawns an actor for every persisted room, loading its
// admin and ban sets from the store, so a process restart never loses a
// room.
func (a *App) rehydrateRooms(roomHandlers *httptransport.RoomHandlers) error {
	ctx := context.Background()
	rooms, err := a.store.ListRooms(ctx)
	if err != nil {
		return err
	}
	for _, r := range rooms {
		admins, err := a.store.LoadAdmins(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("load admins for room %s: %w", r.ID, err)
		}
		bans, err := a.store.LoadBans(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("load bans for room %s: %w", r.ID, err)
		}
		roomHandlers.SpawnRoom(r.ID, admins, bans)
	}
	a.log.Info().Int("room_count", len(rooms)).Msg("rehydrated persisted rooms")
	return nil
}

// Run starts the write sink and HTTP server, blocking until ctx is
// cancelled, then drains both in reverse dependency order.
func (a *App) Run(ctx context.Context) error {
	sinkCtx, cancelSink := context.WithCancel(context.Background())
	defer cancelSink()
	sinkDone := make(chan struct{})
	go func() {
		a.sink.Run(sinkCtx)
		close(sinkDone)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.cfg.Addr).Msg("starting http server")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("http server shutdown error")
	}

	a.sink.Close()
	<-sinkDone
	cancelSink()

	return a.store.Close()
}
