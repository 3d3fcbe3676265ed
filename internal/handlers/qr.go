// internal/handlers/qr.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/skip2/go-qrcode"
)

// JoinQRHandler serves a PNG QR code encoding the player join URL for a
// room, for the host view to project.
func (s *Server) JoinQRHandler(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(r.URL.Query().Get("code"))
	if code == "" {
		http.Error(w, "Missing code query parameter", http.StatusBadRequest)
		return
	}
	if s.Registry.RoomByCode(code) == nil {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}

	png, err := qrcode.Encode(s.joinURL(code), qrcode.Medium, 512)
	if err != nil {
		s.Logger.Errorf("Failed to encode join QR for room %s: %v", code, err)
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(png); err != nil {
		s.Logger.Warnf("Failed to write join QR for room %s: %v", code, err)
	}
}
