// internal/game/race.go
package game

import (
	"sort"

	"github.com/turbotrivia/race-service/internal/models"
)

// RaceEngine converts round scores into track advancement and reports
// standings and the win condition. It operates on the owning room's teams
// and is guarded by the room's lock.
type RaceEngine struct {
	teams []*models.Team
}

// NewRaceEngine wraps the given teams.
func NewRaceEngine(teams []*models.Team) *RaceEngine {
	return &RaceEngine{teams: teams}
}

// Standing is one row of the race leaderboard.
type Standing struct {
	TeamIndex int     `json:"teamIndex"`
	Position  int     `json:"position"`
	Progress  float64 `json:"progress"`
}

// Advance applies round scores to team progress. The best-scoring team earns
// MaxAdvancePerRound; other scoring teams interpolate between the
// participation floor and the cap by relative performance. Teams scoring
// zero, and teams in the skipped set, advance nothing. Returns the per-team
// deltas actually applied.
func (r *RaceEngine) Advance(teamScores []TeamScore, skipped map[int]bool) map[int]float64 {
	advances := map[int]float64{}
	if len(teamScores) == 0 {
		return advances
	}

	maxScore := 0.0
	for _, ts := range teamScores {
		if ts.Score > maxScore {
			maxScore = ts.Score
		}
	}
	if maxScore <= 0 {
		return advances
	}

	for _, ts := range teamScores {
		if ts.TeamIndex < 0 || ts.TeamIndex >= len(r.teams) {
			continue
		}
		advance := 0.0
		if ts.Score > 0 && !skipped[ts.TeamIndex] {
			ratio := ts.Score / maxScore
			advance = MinAdvancePerRound + (MaxAdvancePerRound-MinAdvancePerRound)*ratio
		}
		r.teams[ts.TeamIndex].AdvanceProgress(advance)
		advances[ts.TeamIndex] = advance
	}
	return advances
}

// CheckWinner returns the first team at or past the finish threshold, or nil.
// Lowest index wins ties.
func (r *RaceEngine) CheckWinner() *models.Team {
	for _, t := range r.teams {
		if t.Progress >= TrackProgressWin {
			return t
		}
	}
	return nil
}

// Standings returns teams ordered by descending progress with 1-based ranks.
func (r *RaceEngine) Standings() []Standing {
	sorted := make([]*models.Team, len(r.teams))
	copy(sorted, r.teams)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Progress > sorted[j].Progress
	})

	standings := make([]Standing, len(sorted))
	for i, t := range sorted {
		standings[i] = Standing{TeamIndex: t.Index, Position: i + 1, Progress: t.Progress}
	}
	return standings
}

// State snapshots the teams for broadcast.
func (r *RaceEngine) State() []models.Team {
	out := make([]models.Team, len(r.teams))
	for i, t := range r.teams {
		out[i] = *t
	}
	return out
}
