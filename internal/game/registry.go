// internal/game/registry.go
package game

import (
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turbotrivia/race-service/internal/auth"
	"github.com/turbotrivia/race-service/internal/models"
)

// Registry maps short room codes to rooms and connection ids to rooms, and
// runs the host/player disconnect grace-period bookkeeping across all rooms.
// It is constructed at process start and passed explicitly to whatever
// accepts inbound events; there are no ambient singletons.
//
// Lock order: Registry.mu before Room.Mu, never the reverse.
type Registry struct {
	mu sync.Mutex

	rooms    map[string]*Room
	connRoom map[uuid.UUID]string

	grace    time.Duration
	packsDir string
	rng      *rand.Rand
}

// NewRegistry creates an empty registry with the given reconnect grace
// period and trivia content directory.
func NewRegistry(grace time.Duration, packsDir string) *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		connRoom: make(map[uuid.UUID]string),
		grace:    grace,
		packsDir: packsDir,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// generateCode rejection-samples the code alphabet until the code is unique.
// Assumes the registry lock is held.
func (reg *Registry) generateCode() string {
	buf := make([]byte, RoomCodeLength)
	for {
		for i := range buf {
			buf[i] = roomCodeAlphabet[reg.rng.Intn(len(roomCodeAlphabet))]
		}
		code := string(buf)
		if _, exists := reg.rooms[code]; !exists {
			return code
		}
	}
}

// CreateRoom builds a new lobby-phase room owned by the given host
// connection and registers it under a fresh code.
func (reg *Registry) CreateRoom(hostConnID uuid.UUID) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	code := reg.generateCode()
	room := NewRoom(code, hostConnID, reg.packsDir)
	reg.rooms[code] = room
	reg.connRoom[hostConnID] = code
	log.Printf("Room %s created by host connection %s.", code, hostConnID)
	return room
}

// JoinResult is the successful outcome of JoinRoom.
type JoinResult struct {
	Player      *models.Player
	Room        *Room
	Reconnected bool
}

// JoinRoom resolves a join request against the rules: unknown code, finished
// session, reconnect-credential rebind (any phase), race already in
// progress, roster full, and finally a fresh join. The new player's
// reconnect credential is issued here.
func (reg *Registry) JoinRoom(code string, connID uuid.UUID, name, reconnectToken string) (*JoinResult, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[strings.ToUpper(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.Phase == PhaseFinished {
		return nil, ErrGameFinished
	}

	if reconnectToken != "" {
		if p := reg.resolveReconnect(room, reconnectToken); p != nil {
			p.Reconnect(connID, nil)
			reg.connRoom[connID] = room.Code
			log.Printf("Room %s: player %s reconnected.", room.Code, p.Name)
			return &JoinResult{Player: p, Room: room, Reconnected: true}, nil
		}
	}

	if room.Phase != PhaseLobby {
		return nil, ErrGameInProgress
	}

	p := models.NewPlayer(connID, name)
	if token, err := auth.CreateReconnectToken(p.ID, room.Code); err == nil {
		p.ReconnectToken = token
	} else {
		log.Printf("Room %s: failed to issue reconnect token for %s: %v", room.Code, p.Name, err)
	}
	if !room.AddPlayer(p) {
		return nil, ErrRoomFull
	}
	reg.connRoom[connID] = room.Code
	log.Printf("Room %s: player %s joined.", room.Code, p.Name)
	return &JoinResult{Player: p, Room: room}, nil
}

// resolveReconnect validates a reconnect credential against a room's roster:
// the signature and room claim must verify, and the credential must be the
// one issued to the player it names. Assumes both locks are held.
func (reg *Registry) resolveReconnect(room *Room, token string) *models.Player {
	playerID, roomCode, err := auth.ParseReconnectToken(token)
	if err != nil || roomCode != room.Code {
		return nil
	}
	p := room.FindPlayerByToken(token)
	if p == nil || p.ID != playerID {
		return nil
	}
	return p
}

// RoomByConn resolves the room an active connection belongs to, or nil.
func (reg *Registry) RoomByConn(connID uuid.UUID) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	code, ok := reg.connRoom[connID]
	if !ok {
		return nil
	}
	return reg.rooms[code]
}

// RoomByCode resolves a room by its code, or nil.
func (reg *Registry) RoomByCode(code string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.rooms[strings.ToUpper(code)]
}

// DisconnectResult tells the transport layer what a dropped connection was.
type DisconnectResult struct {
	Kind   string // "host" or "player"
	Room   *Room
	Player *models.Player
}

// HandleDisconnect processes a dropped connection. A host drop arms a grace
// timer that destroys the room unless the host rebinds first; a player drop
// marks the player disconnected and arms an independent purge timer that the
// player's reconnect cancels.
func (reg *Registry) HandleDisconnect(connID uuid.UUID) *DisconnectResult {
	reg.mu.Lock()
	code, ok := reg.connRoom[connID]
	if !ok {
		reg.mu.Unlock()
		return nil
	}
	delete(reg.connRoom, connID)
	room := reg.rooms[code]
	reg.mu.Unlock()
	if room == nil {
		return nil
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.HostConnID == connID {
		room.HostConn = nil
		reg.armHostGrace(room, connID)
		log.Printf("Room %s: host disconnected, grace timer armed.", room.Code)
		return &DisconnectResult{Kind: "host", Room: room}
	}

	p := room.FindPlayerByConn(connID)
	if p == nil {
		return nil
	}
	p.Disconnect()
	reg.armPlayerGrace(room, p)
	log.Printf("Room %s: player %s disconnected, grace timer armed.", room.Code, p.Name)
	return &DisconnectResult{Kind: "player", Room: room, Player: p}
}

// armHostGrace schedules room destruction unless the host connection is
// rebound before expiry. Assumes the room lock is held.
func (reg *Registry) armHostGrace(room *Room, oldConnID uuid.UUID) {
	if room.HostGraceTimer != nil {
		room.HostGraceTimer.Stop()
	}
	room.HostGraceTimer = time.AfterFunc(reg.grace, func() {
		room.Mu.Lock()
		stale := room.HostConnID != oldConnID || room.HostConn != nil
		room.Mu.Unlock()
		if stale {
			log.Printf("Room %s: host grace timer fired after rebind. Ignoring.", room.Code)
			return
		}
		reg.DestroyRoom(room.Code, "Host left the game")
	})
}

// armPlayerGrace schedules purging a disconnected player. The timer handle
// lives on the player so a reconnect cancels it explicitly; the connected
// flag is re-checked anyway in case the stop raced the firing. Assumes the
// room lock is held.
func (reg *Registry) armPlayerGrace(room *Room, p *models.Player) {
	if p.GraceTimer != nil {
		p.GraceTimer.Stop()
	}
	p.GraceTimer = time.AfterFunc(reg.grace, func() {
		room.Mu.Lock()
		defer room.Mu.Unlock()
		if p.Connected {
			return
		}
		if room.RemovePlayer(p.ID) {
			log.Printf("Room %s: player %s purged after grace period.", room.Code, p.Name)
			room.EmitToHost("player_left", map[string]interface{}{
				"playerId":   p.ID,
				"playerName": p.Name,
			})
		}
	})
}

// ReconnectHost rebinds a room's host to a new connection, cancelling any
// pending destroy timer. Returns nil for unknown codes.
func (reg *Registry) ReconnectHost(code string, connID uuid.UUID) *Room {
	reg.mu.Lock()
	room, ok := reg.rooms[strings.ToUpper(code)]
	if !ok {
		reg.mu.Unlock()
		return nil
	}
	reg.connRoom[connID] = room.Code
	reg.mu.Unlock()

	room.Mu.Lock()
	defer room.Mu.Unlock()
	room.HostConnID = connID
	if room.HostGraceTimer != nil {
		room.HostGraceTimer.Stop()
		room.HostGraceTimer = nil
	}
	log.Printf("Room %s: host reconnected.", room.Code)
	return room
}

// DestroyRoom removes a room, cancels its timers, and notifies remaining
// players. Safe to call with no locks held.
func (reg *Registry) DestroyRoom(code, reason string) {
	reg.mu.Lock()
	room, ok := reg.rooms[code]
	if !ok {
		reg.mu.Unlock()
		return
	}
	delete(reg.rooms, code)
	for connID, c := range reg.connRoom {
		if c == code {
			delete(reg.connRoom, connID)
		}
	}
	reg.mu.Unlock()

	room.Mu.Lock()
	defer room.Mu.Unlock()
	if room.Orchestrator != nil {
		room.Orchestrator.Cleanup()
	}
	if room.HostGraceTimer != nil {
		room.HostGraceTimer.Stop()
		room.HostGraceTimer = nil
	}
	for _, p := range room.Players {
		if p.GraceTimer != nil {
			p.GraceTimer.Stop()
			p.GraceTimer = nil
		}
	}
	room.EmitToPlayers("room_destroyed", map[string]interface{}{"message": reason})
	log.Printf("Room %s destroyed: %s", code, reason)
}

// RoomCount reports how many rooms are live.
func (reg *Registry) RoomCount() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}
