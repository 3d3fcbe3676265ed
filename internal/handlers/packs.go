// internal/handlers/packs.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/turbotrivia/race-service/internal/trivia"
)

// ListPacksHandler returns the metadata of every trivia pack available on
// disk, for the host's lobby settings screen.
func (s *Server) ListPacksHandler(w http.ResponseWriter, r *http.Request) {
	packs, err := trivia.ListPacks(s.Cfg.PacksDir)
	if err != nil {
		s.Logger.Errorf("Failed to list trivia packs in %s: %v", s.Cfg.PacksDir, err)
		http.Error(w, "Failed to list packs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(packs); err != nil {
		s.Logger.Warnf("Failed to write pack list: %v", err)
	}
}
