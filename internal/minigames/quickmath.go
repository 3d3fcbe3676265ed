// internal/minigames/quickmath.go
package minigames

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/turbotrivia/race-service/internal/models"
)

// quickMath generates a random arithmetic problem and scores by speed among
// correct answers.
type quickMath struct {
	rng         *rand.Rand
	problem     string
	answer      int
	submissions map[uuid.UUID]time.Duration
}

func newQuickMath(rng *rand.Rand) *quickMath {
	return &quickMath{rng: rng}
}

func (g *quickMath) ID() string { return "quick-math" }
func (g *quickMath) Name() string { return "Quick Math!" }
func (g *quickMath) TimeLimit() time.Duration { return 12 * time.Second }
func (g *quickMath) SubmissionCount() int { return len(g.submissions) }

func (g *quickMath) generateProblem() (string, int) {
	switch g.rng.Intn(5) {
	case 0:
		a, b := g.rng.Intn(50)+2, g.rng.Intn(50)+2
		return fmt.Sprintf("%d + %d", a, b), a + b
	case 1:
		a := g.rng.Intn(80) + 20
		b := g.rng.Intn(a) + 1
		return fmt.Sprintf("%d - %d", a, b), a - b
	case 2:
		a, b := g.rng.Intn(20)+2, g.rng.Intn(12)+2
		return fmt.Sprintf("%d × %d", a, b), a * b
	case 3:
		a, b, c := g.rng.Intn(20)+2, g.rng.Intn(12)+2, g.rng.Intn(30)+1
		return fmt.Sprintf("%d × %d + %d", a, b, c), a*b + c
	default:
		a, b, c := g.rng.Intn(30)+10, g.rng.Intn(20)+2, g.rng.Intn(10)+1
		return fmt.Sprintf("%d + %d - %d", a, b, c), a + b - c
	}
}

func (g *quickMath) Setup() map[string]interface{} {
	g.problem, g.answer = g.generateProblem()
	g.submissions = make(map[uuid.UUID]time.Duration)
	return map[string]interface{}{
		"instructions": "Solve the math problem!",
		"problem":      g.problem + " = ?",
	}
}

func (g *quickMath) HandleInput(p *models.Player, in Input, startedAt time.Time) *Feedback {
	if _, done := g.submissions[p.ID]; done {
		return nil
	}
	if in.Type != g.ID() || in.Answer == nil {
		return nil
	}
	if *in.Answer != g.answer {
		return &Feedback{Message: "Wrong, try again!"}
	}
	elapsed := time.Since(startedAt)
	g.submissions[p.ID] = elapsed
	return &Feedback{Message: fmt.Sprintf("Correct in %.1fs!", elapsed.Seconds())}
}

func (g *quickMath) Score(players []*models.Player, timeLimit time.Duration) map[uuid.UUID]int {
	return scoreBySpeed(g.submissions, players, timeLimit)
}
