// internal/handlers/host_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/turbotrivia/race-service/internal/game"
	"github.com/turbotrivia/race-service/internal/middleware"
)

// HostMessage represents the structure for incoming host WebSocket messages.
type HostMessage struct {
	Type string `json:"type"`

	// Code names an existing room for reconnect.
	Code string `json:"code,omitempty"`

	// Lobby settings.
	NumTeams    int      `json:"numTeams,omitempty"`
	TriviaPacks []string `json:"triviaPacks,omitempty"`

	// Team assignment.
	PlayerID  string `json:"playerId,omitempty"`
	TeamIndex *int   `json:"teamIndex,omitempty"`
}

// HostWSHandler upgrades the host's connection and runs its message loop:
// room creation, lobby configuration, race start, and reset. Each host
// connection owns at most one room at a time.
func HostWSHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("Host WebSocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		connID := uuid.New()
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		readErr := readHostMessages(ctx, c, connID, logger, s)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)

		s.Registry.HandleDisconnect(connID)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

func readHostMessages(ctx context.Context, c *websocket.Conn, connID uuid.UUID, logger *logrus.Logger, s *Server) error {
	var room *game.Room

	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			if !isExpectedClose(err) {
				logger.Warnf("Error reading from host WebSocket %s: %v", connID, err)
			}
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg HostMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid JSON from host %s: %v", connID, err)
			sendWsError(ctx, c, "Invalid JSON format.")
			continue
		}
		logger.Debugf("Received host action '%s' from connection %s.", msg.Type, connID)

		switch msg.Type {
		case "create":
			if room != nil {
				sendWsError(ctx, c, "This connection already hosts a room.")
				continue
			}
			room = s.Registry.CreateRoom(connID)
			room.Mu.Lock()
			room.HostConn = c
			attachEmitters(room, logger)
			room.EmitToHost("room_created", map[string]interface{}{
				"code":    room.Code,
				"joinUrl": s.joinURL(room.Code),
			})
			room.Mu.Unlock()

		case "reconnect":
			rejoined := s.Registry.ReconnectHost(msg.Code, connID)
			if rejoined == nil {
				sendWsError(ctx, c, "Room not found.")
				continue
			}
			room = rejoined
			room.Mu.Lock()
			room.HostConn = c
			attachEmitters(room, logger)
			state := room.State()
			if round := currentRoundPayload(room); round != nil {
				state["currentRound"] = round
			}
			room.EmitToHost("lobby_update", state)
			room.Mu.Unlock()

		case "settings":
			if room == nil {
				sendWsError(ctx, c, "No room. Send create first.")
				continue
			}
			room.Mu.Lock()
			if room.Phase != game.PhaseLobby {
				room.Mu.Unlock()
				sendWsError(ctx, c, "Settings can only change in the lobby.")
				continue
			}
			if msg.NumTeams > 0 {
				room.SetTeamCount(msg.NumTeams)
			}
			if len(msg.TriviaPacks) > 0 {
				room.TriviaPacks = msg.TriviaPacks
			}
			room.EmitToAll("lobby_update", room.LobbyState())
			room.Mu.Unlock()

		case "assign_team":
			if room == nil {
				sendWsError(ctx, c, "No room. Send create first.")
				continue
			}
			playerID, err := uuid.Parse(msg.PlayerID)
			if err != nil || msg.TeamIndex == nil {
				sendWsError(ctx, c, "assign_team requires playerId and teamIndex.")
				continue
			}
			room.Mu.Lock()
			if err := room.AssignTeam(playerID, *msg.TeamIndex); err != nil {
				room.Mu.Unlock()
				sendWsError(ctx, c, err.Error())
				continue
			}
			if p := room.FindPlayerByID(playerID); p != nil {
				room.EmitToPlayer(p, "team_assigned", map[string]interface{}{
					"teamIndex": *msg.TeamIndex,
				})
			}
			room.EmitToAll("lobby_update", room.LobbyState())
			room.Mu.Unlock()

		case "auto_assign":
			if room == nil {
				sendWsError(ctx, c, "No room. Send create first.")
				continue
			}
			room.Mu.Lock()
			room.AutoAssignTeams()
			for _, p := range room.Players {
				room.EmitToPlayer(p, "team_assigned", map[string]interface{}{
					"teamIndex": p.TeamIndex,
				})
			}
			room.EmitToAll("lobby_update", room.LobbyState())
			room.Mu.Unlock()

		case "start_game":
			if room == nil {
				sendWsError(ctx, c, "No room. Send create first.")
				continue
			}
			room.Mu.Lock()
			if err := room.StartGame(); err != nil {
				room.Mu.Unlock()
				sendWsError(ctx, c, err.Error())
				continue
			}
			room.EmitToAll("game_started", room.State())
			room.Mu.Unlock()

		case "play_again":
			if room == nil {
				sendWsError(ctx, c, "No room. Send create first.")
				continue
			}
			room.Mu.Lock()
			room.ResetGame()
			room.EmitToAll("game_reset", room.LobbyState())
			room.Mu.Unlock()

		case "ping":
			sendWsMessage(ctx, c, map[string]string{"type": "pong"})

		default:
			logger.Warnf("Unknown host action type '%s' from connection %s.", msg.Type, connID)
			sendWsError(ctx, c, fmt.Sprintf("Unknown action type: %s", msg.Type))
		}
	}
}

// currentRoundPayload snapshots the round in flight, without the answer.
// Assumes the room lock is held.
func currentRoundPayload(room *game.Room) *game.RoundStart {
	if room.Orchestrator == nil {
		return nil
	}
	return room.Orchestrator.CurrentRoundStart()
}
