// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/turbotrivia/race-service/internal/game"
	"github.com/turbotrivia/race-service/internal/models"
)

// attachEmitters installs the room's outbound event functions. Both are
// invoked with the room lock held, so they marshal synchronously, snapshot
// the connection pointer, and hand the write to a goroutine with its own
// timeout instead of blocking room logic on a slow client.
// Assumes the room lock is held.
func attachEmitters(room *game.Room, logger *logrus.Logger) {
	room.EmitToHostFn = func(ev game.Event) {
		conn := room.HostConn
		if conn == nil {
			return
		}
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Failed to marshal host event (%s) for room %s: %v", ev.Type, room.Code, err)
			return
		}
		go writeRaw(conn, data, logger, room.Code, "host")
	}
	room.EmitToPlayerFn = func(p *models.Player, ev game.Event) {
		conn := p.Conn
		if conn == nil {
			return
		}
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Failed to marshal player event (%s) for room %s: %v", ev.Type, room.Code, err)
			return
		}
		go writeRaw(conn, data, logger, room.Code, p.Name)
	}
}

func writeRaw(conn *websocket.Conn, data []byte, logger *logrus.Logger, roomCode, recipient string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		logger.Warnf("Failed to write event to %s in room %s: %v", recipient, roomCode, err)
	}
}

// sendWsMessage marshals a message and sends it to the WebSocket client.
// Used for direct replies outside the room emit path.
func sendWsMessage(ctx context.Context, c *websocket.Conn, message interface{}) {
	if c == nil {
		log.Println("Error: Attempted to send WebSocket message on nil connection.")
		return
	}
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling WebSocket message: %v", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Write(writeCtx, websocket.MessageText, data); err != nil {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			log.Printf("Error writing WebSocket message: %v (Status: %d)", err, status)
		}
	}
}

// sendWsError sends a structured error message to the client.
func sendWsError(ctx context.Context, c *websocket.Conn, errorMsg string) {
	sendWsMessage(ctx, c, map[string]interface{}{
		"type":    "error",
		"message": errorMsg,
	})
}

// isExpectedClose reports whether a read-loop error is a routine closure
// rather than something worth a warning.
func isExpectedClose(err error) bool {
	status := websocket.CloseStatus(err)
	return status == websocket.StatusNormalClosure ||
		status == websocket.StatusGoingAway ||
		strings.Contains(err.Error(), "context canceled")
}
