// internal/minigames/speedtype.go
package minigames

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turbotrivia/race-service/internal/models"
)

var speedTypePhrases = []string{
	"the quick brown fox",
	"turbo trivia race",
	"speed is everything",
	"pixel perfect victory",
	"race to the finish",
	"type it out now",
	"winner takes all",
	"fast and furious",
	"checkered flag ahead",
	"neon arcade dreams",
	"press start to play",
	"level up champion",
	"full throttle mode",
	"retro racing glory",
	"nitro boost active",
}

// speedType asks players to type a phrase verbatim; scoring is relative to
// the fastest finisher.
type speedType struct {
	rng         *rand.Rand
	phrase      string
	submissions map[uuid.UUID]time.Duration
}

func newSpeedType(rng *rand.Rand) *speedType {
	return &speedType{rng: rng}
}

func (g *speedType) ID() string { return "speed-type" }
func (g *speedType) Name() string { return "Speed Type!" }
func (g *speedType) TimeLimit() time.Duration { return 15 * time.Second }
func (g *speedType) SubmissionCount() int { return len(g.submissions) }

func (g *speedType) Setup() map[string]interface{} {
	g.phrase = speedTypePhrases[g.rng.Intn(len(speedTypePhrases))]
	g.submissions = make(map[uuid.UUID]time.Duration)
	return map[string]interface{}{
		"instructions": "Type the phrase as fast as you can!",
		"phrase":       g.phrase,
	}
}

func (g *speedType) HandleInput(p *models.Player, in Input, startedAt time.Time) *Feedback {
	if _, done := g.submissions[p.ID]; done {
		return nil
	}
	if in.Type != g.ID() || in.Text == "" {
		return nil
	}
	typed := strings.ToLower(strings.TrimSpace(in.Text))
	if typed != strings.ToLower(g.phrase) {
		return nil
	}
	elapsed := time.Since(startedAt)
	g.submissions[p.ID] = elapsed
	return &Feedback{Message: fmt.Sprintf("Done in %.1fs!", elapsed.Seconds())}
}

func (g *speedType) Score(players []*models.Player, timeLimit time.Duration) map[uuid.UUID]int {
	return scoreBySpeed(g.submissions, players, timeLimit)
}
