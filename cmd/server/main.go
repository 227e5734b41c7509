// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/netrisk/netrisk-service/internal/cache"
	"github.com/netrisk/netrisk-service/internal/database"
	"github.com/netrisk/netrisk-service/internal/handlers"
	"github.com/netrisk/netrisk-service/internal/lobby"
	"github.com/netrisk/netrisk-service/internal/middleware"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	ctx := context.Background()

	// Both backing services are optional: the lobby keeps working with
	// neither a database nor a Redis feed.
	var store database.Store
	if pg, err := database.Connect(ctx); err != nil {
		logger.Debugf("Database connection skipped: %v", err)
	} else {
		store = pg
		defer pg.Close()
	}

	if err := cache.ConnectRedis(); err != nil {
		logger.Debugf("Lobby feed disabled: %v", err)
	}

	coord := lobby.NewCoordinator(store, logger)
	registry := lobby.NewRegistry()

	mux := http.NewServeMux()

	mux.Handle("/health", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.HealthHandler(coord),
	)))
	mux.Handle("/lobby/summary", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.SummaryHandler(coord),
	)))

	// lobby ws
	mux.Handle("/lobby/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.LobbyWSHandler(logger, coord, registry),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
