// internal/models/team.go
package models

// Team tracks one team's race state. Teams own no players; membership is
// inferred by matching Player.TeamIndex.
type Team struct {
	Index      int     `json:"index"`
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	Progress   float64 `json:"progress"`
	TotalScore int     `json:"totalScore"`
	RoundsWon  int     `json:"roundsWon"`
}

// AdvanceProgress adds amount to progress, clamped to [0, 1]. Negative
// amounts (debuffs) clamp at the floor.
func (t *Team) AdvanceProgress(amount float64) {
	t.Progress += amount
	if t.Progress > 1.0 {
		t.Progress = 1.0
	}
	if t.Progress < 0 {
		t.Progress = 0
	}
}

// Members returns the connected players assigned to this team.
func (t *Team) Members(players []*Player) []*Player {
	var out []*Player
	for _, p := range players {
		if p.TeamIndex == t.Index && p.Connected {
			out = append(out, p)
		}
	}
	return out
}
