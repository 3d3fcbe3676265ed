// internal/minigames/reaction.go
package minigames

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/turbotrivia/race-service/internal/models"
)

// reaction scores raw reaction times reported by the client: full score at
// 100ms, scaling to zero at 1500ms. A time of -1 means the player tapped
// before the signal and forfeits the round.
type reaction struct {
	submissions map[uuid.UUID]int // milliseconds, -1 = too early
}

func newReaction() *reaction {
	return &reaction{}
}

func (g *reaction) ID() string { return "reaction" }
func (g *reaction) Name() string { return "Reaction Time!" }
func (g *reaction) TimeLimit() time.Duration { return 10 * time.Second }
func (g *reaction) SubmissionCount() int { return len(g.submissions) }

func (g *reaction) Setup() map[string]interface{} {
	g.submissions = make(map[uuid.UUID]int)
	return map[string]interface{}{
		"instructions": "Wait for the green light, then tap as fast as you can! Tap too early = penalty!",
	}
}

func (g *reaction) HandleInput(p *models.Player, in Input, startedAt time.Time) *Feedback {
	if _, done := g.submissions[p.ID]; done {
		return nil
	}
	if in.Type != g.ID() || in.TimeMs == nil {
		return nil
	}
	g.submissions[p.ID] = *in.TimeMs
	if *in.TimeMs == -1 {
		return &Feedback{Message: "Too early! Penalty!"}
	}
	return &Feedback{Message: fmt.Sprintf("%dms reaction time!", *in.TimeMs)}
}

func (g *reaction) Score(players []*models.Player, timeLimit time.Duration) map[uuid.UUID]int {
	scores := make(map[uuid.UUID]int)
	for _, p := range players {
		if !p.Eligible() {
			continue
		}
		ms, ok := g.submissions[p.ID]
		if !ok || ms <= 0 {
			// No tap, or tapped before the signal.
			scores[p.ID] = 0
			continue
		}
		normalized := 1 - float64(ms-100)/1400
		if normalized < 0 {
			normalized = 0
		}
		if normalized > 1 {
			normalized = 1
		}
		scores[p.ID] = int(math.Round(maxSubmissionScore * normalized))
	}
	return scores
}
