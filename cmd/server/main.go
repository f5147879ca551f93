// Command server runs the LAN inventory sync master: the HTTP sync surface,
// the UDP presence beacon, and the websocket event feed over one SQLite
// database.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/himslabs/syncserver/cmd/server/handlers"
	"github.com/himslabs/syncserver/internal/config"
	"github.com/himslabs/syncserver/internal/discovery"
	"github.com/himslabs/syncserver/internal/ledger"
	"github.com/himslabs/syncserver/internal/logging"
	"github.com/himslabs/syncserver/internal/registry"
	"github.com/himslabs/syncserver/internal/store"
	syncengine "github.com/himslabs/syncserver/internal/sync"
)

func main() {
	cfg := config.FromEnv()
	if err := logging.Setup(cfg.LogLevel, cfg.LogDir); err != nil {
		logrus.WithError(err).Warn("file logging disabled")
	}

	if err := run(cfg); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}

func run(cfg config.Config) error {
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	reg := registry.New(st)
	conflicts := ledger.NewConflictLedger(st)
	audit := ledger.NewSyncLedger(st)
	engine := syncengine.New(st, reg, conflicts, audit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := newWSHub()
	go hub.run(ctx)
	engine.SetEventHandler(hub)

	beacon := discovery.New(cfg.Port, cfg.DiscoveryPort, cfg.ServerName, config.Version)
	if err := beacon.Start(ctx); err != nil {
		// Sync still works with discovery down; peers can be configured
		// with the address directly.
		logrus.WithError(err).Warn("discovery disabled")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           buildHandler(cfg, engine, reg, conflicts, audit, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":      srv.Addr,
			"server_ip": discovery.LocalIP(),
			"discovery": cfg.DiscoveryPort,
			"name":      cfg.ServerName,
		}).Info("sync server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logrus.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logrus.Info("sync server stopped")
	return nil
}

func buildHandler(cfg config.Config, engine *syncengine.Engine, reg *registry.Registry,
	conflicts *ledger.ConflictLedger, audit *ledger.SyncLedger, hub *wsHub) http.Handler {

	syncH := handlers.NewSyncHandler(engine)
	deviceH := handlers.NewDeviceHandler(reg)
	conflictH := handlers.NewConflictHandler(conflicts)
	serverH := handlers.NewServerHandler(cfg, reg, conflicts, audit)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", serverH.Ping)
	mux.HandleFunc("GET /info", serverH.Info)
	mux.HandleFunc("GET /stats", serverH.Stats)

	mux.HandleFunc("POST /devices/register", deviceH.Register)
	mux.HandleFunc("GET /devices", deviceH.List)
	mux.HandleFunc("GET /devices/{uuid}", deviceH.Get)
	mux.HandleFunc("DELETE /devices/{uuid}", deviceH.Deactivate)

	mux.HandleFunc("POST /sync/pull", syncH.Pull)
	mux.HandleFunc("POST /sync/push", syncH.Push)

	mux.HandleFunc("GET /conflicts", conflictH.List)
	mux.HandleFunc("GET /conflicts/{deviceUuid}", conflictH.ForDevice)
	mux.HandleFunc("POST /conflicts/{conflictId}/resolve", conflictH.Resolve)

	mux.HandleFunc("GET /ws", hub.serveWS)

	mux.HandleFunc("/", handlers.NotFound)

	return chain(mux, withRecovery, withRequestLog, withCORS, withBodyLimit)
}
