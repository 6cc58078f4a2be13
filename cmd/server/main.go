// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/eGGnogSC/booksync/config"
	"github.com/eGGnogSC/booksync/infrastructure"
	"github.com/eGGnogSC/booksync/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Application context; cancelling it stops background routines
	// (health checks, token replication).
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := infrastructure.NewContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependencies: %v", err)
	}
	defer container.Shutdown()

	router := mux.NewRouter()
	routes.SetupRoutes(
		router,
		container.AuthHandler,
		container.AuthService,
		container.SyncHandler,
		container.ImportHandler,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.Timeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.Timeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		container.Log.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Log.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	container.Log.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		container.Log.WithError(err).Fatal("Server shutdown failed")
	}

	container.Log.Info("Server stopped")
}
