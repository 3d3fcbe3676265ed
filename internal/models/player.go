// internal/models/player.go
package models

import (
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// UnassignedTeam is the sentinel team index for players not yet placed on a team.
const UnassignedTeam = -1

// Player is a participant in a single room. It is created on join and lives
// until the room is destroyed or the reconnect grace period expires after a
// disconnect.
type Player struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`

	TeamIndex int `json:"teamIndex"`

	Connected      bool            `json:"connected"`
	DisconnectedAt time.Time       `json:"-"`
	Conn           *websocket.Conn `json:"-"`
	ConnID         uuid.UUID       `json:"-"`

	// ReconnectToken is a signed credential handed to the client on join.
	// Presenting it on a later join re-binds this player to a new connection.
	ReconnectToken string `json:"-"`

	// Round scratch state, reset at the start of every round.
	CurrentAnswer *int          `json:"-"`
	AnswerTime    time.Duration `json:"-"`
	RoundScore    int           `json:"-"`

	PowerUps        []PowerUp `json:"powerUps"`
	Shielded        bool      `json:"shielded"`
	SkipNextAdvance bool      `json:"-"`

	// GraceTimer is the pending purge timer after a disconnect. Cancelled
	// explicitly on reconnect so a stale purge can never fire.
	GraceTimer *time.Timer `json:"-"`
}

// NewPlayer creates a connected player with no team assignment.
func NewPlayer(connID uuid.UUID, name string) *Player {
	return &Player{
		ID:        uuid.New(),
		Name:      name,
		TeamIndex: UnassignedTeam,
		Connected: true,
		ConnID:    connID,
		PowerUps:  []PowerUp{},
	}
}

// Disconnect marks the player as gone and records when.
func (p *Player) Disconnect() {
	p.Connected = false
	p.DisconnectedAt = time.Now()
	p.Conn = nil
}

// Reconnect re-binds the player to a new connection and cancels any pending purge.
func (p *Player) Reconnect(connID uuid.UUID, conn *websocket.Conn) {
	p.ConnID = connID
	p.Conn = conn
	p.Connected = true
	p.DisconnectedAt = time.Time{}
	if p.GraceTimer != nil {
		p.GraceTimer.Stop()
		p.GraceTimer = nil
	}
}

// ResetRoundState clears the per-round scratch fields.
func (p *Player) ResetRoundState() {
	p.CurrentAnswer = nil
	p.AnswerTime = 0
	p.RoundScore = 0
}

// Eligible reports whether the player counts toward round participation:
// connected and assigned to a team.
func (p *Player) Eligible() bool {
	return p.Connected && p.TeamIndex != UnassignedTeam
}
