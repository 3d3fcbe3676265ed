// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/turbotrivia/race-service/internal/auth"
	"github.com/turbotrivia/race-service/internal/config"
	"github.com/turbotrivia/race-service/internal/game"
	"github.com/turbotrivia/race-service/internal/handlers"
	"github.com/turbotrivia/race-service/internal/middleware"
)

func main() {
	if err := auth.Init(); err != nil {
		log.Fatalf("failed to initialize signing keys: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("Unknown log level %q, using info.", cfg.LogLevel)
	}

	registry := game.NewRegistry(cfg.ReconnectGrace, cfg.PacksDir)
	srv := handlers.NewServer(logger, registry, cfg)

	mux := http.NewServeMux()

	// game websockets
	mux.HandleFunc("/ws/host", handlers.HostWSHandler(logger, srv))
	mux.HandleFunc("/ws/player", handlers.PlayerWSHandler(logger, srv))

	// host view helpers
	mux.Handle("/join/qr", middleware.LogMiddleware(logger)(http.HandlerFunc(
		srv.JoinQRHandler,
	)))
	mux.Handle("/packs", middleware.LogMiddleware(logger)(http.HandlerFunc(
		srv.ListPacksHandler,
	)))

	addr := ":" + cfg.Port
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
