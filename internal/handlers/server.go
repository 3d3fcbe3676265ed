// internal/handlers/server.go
package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/turbotrivia/race-service/internal/config"
	"github.com/turbotrivia/race-service/internal/game"
)

// Server bundles the shared dependencies of the HTTP and WebSocket handlers.
type Server struct {
	Logger   *logrus.Logger
	Registry *game.Registry
	Cfg      *config.Config
}

// NewServer wires the handler dependencies together.
func NewServer(logger *logrus.Logger, registry *game.Registry, cfg *config.Config) *Server {
	return &Server{
		Logger:   logger,
		Registry: registry,
		Cfg:      cfg,
	}
}

// joinURL is the address players open to join a given room.
func (s *Server) joinURL(code string) string {
	return s.Cfg.PublicURL + "/join?code=" + code
}
