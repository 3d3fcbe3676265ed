// internal/handlers/player_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/turbotrivia/race-service/internal/game"
	"github.com/turbotrivia/race-service/internal/middleware"
	"github.com/turbotrivia/race-service/internal/minigames"
	"github.com/turbotrivia/race-service/internal/models"
)

// PlayerMessage represents the structure for incoming player WebSocket
// messages. The first message on a connection must be a join.
type PlayerMessage struct {
	Type string `json:"type"`

	// Join.
	Code           string `json:"code,omitempty"`
	Name           string `json:"name,omitempty"`
	ReconnectToken string `json:"reconnectToken,omitempty"`

	// Trivia submission.
	Answer *int `json:"answer,omitempty"`

	// Mini-game payload.
	Input *minigames.Input `json:"input,omitempty"`

	// Power-up use.
	PowerUpID       string `json:"powerUpId,omitempty"`
	TargetTeamIndex int    `json:"targetTeamIndex,omitempty"`
}

// PlayerWSHandler upgrades a player's connection, resolves the mandatory
// join (or reconnect) handshake, and runs the in-race message loop.
func PlayerWSHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("Player WebSocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		connID := uuid.New()
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		room, player, err := awaitJoin(ctx, c, connID, logger, s)
		if err != nil {
			middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
			c.Close(websocket.StatusPolicyViolation, err.Error())
			return
		}

		readErr := readPlayerMessages(ctx, c, room, player, logger)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)

		if res := s.Registry.HandleDisconnect(connID); res != nil && res.Kind == "player" {
			res.Room.Mu.Lock()
			res.Room.EmitToHost("player_disconnected", map[string]interface{}{
				"playerId":   res.Player.ID,
				"playerName": res.Player.Name,
			})
			res.Room.Mu.Unlock()
		}
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// awaitJoin reads messages until a valid join arrives, resolves it against
// the registry, binds the connection, and sends the joined reply.
func awaitJoin(ctx context.Context, c *websocket.Conn, connID uuid.UUID, logger *logrus.Logger, s *Server) (*game.Room, *models.Player, error) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			return nil, nil, err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg PlayerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWsError(ctx, c, "Invalid JSON format.")
			continue
		}
		if msg.Type != "join" {
			sendWsError(ctx, c, "First message must be a join.")
			continue
		}
		if msg.Name == "" && msg.ReconnectToken == "" {
			sendWsError(ctx, c, "join requires a name.")
			continue
		}

		res, err := s.Registry.JoinRoom(msg.Code, connID, msg.Name, msg.ReconnectToken)
		if err != nil {
			sendWsError(ctx, c, joinErrorMessage(err))
			switch {
			case errors.Is(err, game.ErrRoomNotFound),
				errors.Is(err, game.ErrGameFinished),
				errors.Is(err, game.ErrGameInProgress),
				errors.Is(err, game.ErrRoomFull):
				// Recoverable from the client's side: let them retry
				// with a different code without reconnecting.
				continue
			default:
				return nil, nil, err
			}
		}

		room, p := res.Room, res.Player
		room.Mu.Lock()
		p.Conn = c

		reply := map[string]interface{}{
			"playerId":       p.ID,
			"reconnectToken": p.ReconnectToken,
			"teamIndex":      p.TeamIndex,
			"reconnected":    res.Reconnected,
			"phase":          room.Phase,
			"state":          room.State(),
		}
		if res.Reconnected && room.Orchestrator != nil {
			if round := room.Orchestrator.CurrentRoundStart(); round != nil {
				reply["currentRound"] = round
			}
		}
		room.EmitToPlayer(p, "joined", reply)

		if res.Reconnected {
			room.EmitToHost("player_reconnected", map[string]interface{}{
				"playerId":   p.ID,
				"playerName": p.Name,
			})
		} else {
			room.EmitToAll("lobby_update", room.LobbyState())
		}
		room.Mu.Unlock()

		logger.Infof("Player %s bound to room %s (reconnected=%v).", p.Name, room.Code, res.Reconnected)
		return room, p, nil
	}
}

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		return "Room not found."
	case errors.Is(err, game.ErrGameFinished):
		return "This game has already finished."
	case errors.Is(err, game.ErrGameInProgress):
		return "This game is already in progress."
	case errors.Is(err, game.ErrRoomFull):
		return "This room is full."
	default:
		return err.Error()
	}
}

func readPlayerMessages(ctx context.Context, c *websocket.Conn, room *game.Room, p *models.Player, logger *logrus.Logger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			if !isExpectedClose(err) {
				logger.Warnf("Error reading from player %s in room %s: %v", p.Name, room.Code, err)
			}
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg PlayerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWsError(ctx, c, "Invalid JSON format.")
			continue
		}
		logger.Debugf("Received player action '%s' from %s in room %s.", msg.Type, p.Name, room.Code)

		switch msg.Type {
		case "answer":
			if msg.Answer == nil {
				sendWsError(ctx, c, "answer requires an answer index.")
				continue
			}
			room.Mu.Lock()
			room.SubmitAnswer(p, *msg.Answer)
			room.Mu.Unlock()

		case "minigame_input":
			if msg.Input == nil {
				sendWsError(ctx, c, "minigame_input requires an input payload.")
				continue
			}
			room.Mu.Lock()
			room.HandleMiniGameInput(p, *msg.Input)
			room.Mu.Unlock()

		case "use_powerup":
			room.Mu.Lock()
			err := room.UsePowerUp(p, msg.PowerUpID, msg.TargetTeamIndex)
			room.Mu.Unlock()
			if err != nil {
				sendWsError(ctx, c, err.Error())
			}

		case "ping":
			sendWsMessage(ctx, c, map[string]string{"type": "pong"})

		default:
			logger.Warnf("Unknown player action type '%s' from %s in room %s.", msg.Type, p.Name, room.Code)
			sendWsError(ctx, c, fmt.Sprintf("Unknown action type: %s", msg.Type))
		}
	}
}
