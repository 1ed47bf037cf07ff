package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sheshasaibaba/taxbynav-backend/app"
	"github.com/sheshasaibaba/taxbynav-backend/internal/observability"
)

const sweepInterval = 24 * time.Hour

func main() {
	runtime, err := app.Build(app.Options{
		LoadDotEnv:    true,
		RunMigrations: true,
	})
	if err != nil {
		observability.NewLogger().Error("bootstrap_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer runtime.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// retention sweep: once at startup, then every 24h
	go runtime.Sweeper.Run(ctx, sweepInterval)

	server := &http.Server{
		Addr:    ":" + runtime.Config.Port,
		Handler: runtime.Handler,
	}

	go func() {
		runtime.Logger.Info("server_start", map[string]any{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			runtime.Logger.Error("server_failed", map[string]any{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	runtime.Logger.Info("server_shutdown", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		runtime.Logger.Error("server_shutdown_failed", map[string]any{"error": err.Error()})
	}
}
