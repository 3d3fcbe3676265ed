// internal/game/powerups.go
package game

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/turbotrivia/race-service/internal/models"
)

// PowerUpManager awards and resolves power-ups against the owning room's
// players and teams. All methods assume the room lock is held.
type PowerUpManager struct {
	room *Room
	rng  *rand.Rand
}

// NewPowerUpManager wires a manager to its room.
func NewPowerUpManager(room *Room, rng *rand.Rand) *PowerUpManager {
	return &PowerUpManager{room: room, rng: rng}
}

// Award records one power-up grant for broadcast.
type Award struct {
	PlayerID   uuid.UUID      `json:"playerId"`
	PlayerName string         `json:"playerName"`
	TeamIndex  int            `json:"teamIndex"`
	PowerUp    models.PowerUp `json:"powerUp"`
}

// UseResult describes a resolved power-up use for broadcast.
type UseResult struct {
	User    string `json:"user"`
	PowerUp string `json:"powerUp"`
	Target  string `json:"target,omitempty"`
	Effect  string `json:"effect"`
}

// AwardAfterRound rolls a spawn chance for every eligible player under the
// inventory cap. The chance is indexed by the player's team standing, so
// trailing teams are favored.
func (m *PowerUpManager) AwardAfterRound() []Award {
	standings := m.room.Race.Standings()
	var awarded []Award

	for _, p := range m.room.Players {
		if !p.Eligible() {
			continue
		}
		if len(p.PowerUps) >= MaxPowerUpsPerPlayer {
			continue
		}

		pos := -1
		for i, s := range standings {
			if s.TeamIndex == p.TeamIndex {
				pos = i
				break
			}
		}
		if pos < 0 {
			continue
		}

		chance := defaultSpawnChance
		if pos < len(PowerUpSpawnChance) {
			chance = PowerUpSpawnChance[pos]
		}

		if m.rng.Float64() < chance {
			pu := PowerUpCatalog[m.rng.Intn(len(PowerUpCatalog))]
			p.PowerUps = append(p.PowerUps, pu)
			awarded = append(awarded, Award{
				PlayerID:   p.ID,
				PlayerName: p.Name,
				TeamIndex:  p.TeamIndex,
				PowerUp:    pu,
			})
		}
	}
	return awarded
}

// Use consumes the named power-up from the player's inventory and applies its
// effect. An unknown power-up id is a silent no-op (nil, nil). Debuff and
// disable effects require a valid target team other than the user's own — a
// rejected target leaves the inventory untouched — and are blocked entirely
// if any connected member of the target team holds a shield (the shield is
// consumed instead).
func (m *PowerUpManager) Use(p *models.Player, powerUpID string, targetTeamIndex int) (*UseResult, error) {
	idx := -1
	for i, pu := range p.PowerUps {
		if pu.ID == powerUpID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, nil
	}
	pu := p.PowerUps[idx]

	// Validate before consuming so a rejected use never destroys the item.
	var target *models.Team
	switch pu.Category {
	case models.DebuffOther, models.DisableOther:
		var err error
		if target, err = m.validateTarget(p, targetTeamIndex); err != nil {
			return nil, err
		}
	}

	p.PowerUps = append(p.PowerUps[:idx], p.PowerUps[idx+1:]...)
	result := &UseResult{User: p.Name, PowerUp: pu.Name}

	switch pu.Category {
	case models.BoostSelf:
		if p.TeamIndex >= 0 && p.TeamIndex < len(m.room.Teams) {
			m.room.Teams[p.TeamIndex].AdvanceProgress(pu.Effect)
			result.Effect = fmt.Sprintf("+%.0f%% boost!", pu.Effect*100)
		}

	case models.DebuffOther:
		if shielded := m.findShielded(targetTeamIndex); shielded != nil {
			shielded.Shielded = false
			result.Effect = "Blocked by shield!"
		} else {
			target.AdvanceProgress(pu.Effect)
			result.Target = target.Name
			result.Effect = fmt.Sprintf("%.0f%% to %s!", pu.Effect*100, target.Name)
		}

	case models.DisableOther:
		if shielded := m.findShielded(targetTeamIndex); shielded != nil {
			shielded.Shielded = false
			result.Effect = "Blocked by shield!"
		} else {
			for _, member := range target.Members(m.room.Players) {
				member.SkipNextAdvance = true
			}
			result.Target = target.Name
			result.Effect = fmt.Sprintf("%s skips next advance!", target.Name)
		}

	case models.SelfShield:
		p.Shielded = true
		result.Effect = "Shield activated!"
	}

	return result, nil
}

// validateTarget rejects out-of-range and self-targeted team indices.
func (m *PowerUpManager) validateTarget(p *models.Player, targetTeamIndex int) (*models.Team, error) {
	if targetTeamIndex < 0 || targetTeamIndex >= len(m.room.Teams) || targetTeamIndex == p.TeamIndex {
		return nil, ErrInvalidTeamIndex
	}
	return m.room.Teams[targetTeamIndex], nil
}

// findShielded returns a connected shielded member of the team, or nil.
func (m *PowerUpManager) findShielded(teamIndex int) *models.Player {
	for _, p := range m.room.Players {
		if p.TeamIndex == teamIndex && p.Connected && p.Shielded {
			return p
		}
	}
	return nil
}
