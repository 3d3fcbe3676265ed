// internal/models/powerup.go
package models

// PowerUpCategory groups power-ups by how their effect resolves.
type PowerUpCategory string

const (
	BoostSelf    PowerUpCategory = "boost_self"
	DebuffOther  PowerUpCategory = "debuff_other"
	DisableOther PowerUpCategory = "disable_other"
	SelfShield   PowerUpCategory = "self_shield"
)

// PowerUp is an ephemeral value copy held in a player's inventory and
// consumed on use.
type PowerUp struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Effect      float64         `json:"-"`
	Category    PowerUpCategory `json:"category"`
	Description string          `json:"description"`
}
