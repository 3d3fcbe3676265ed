// internal/minigames/unscramble.go
package minigames

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turbotrivia/race-service/internal/models"
)

var unscrambleWords = []string{
	"TRIVIA", "RACING", "TURBO", "WINNER", "ARCADE",
	"PLAYER", "FINISH", "TROPHY", "ROCKET", "DRAGON",
	"GALAXY", "PIRATE", "PLANET", "CASTLE", "FOREST",
	"KNIGHT", "SHIELD", "BRIDGE", "TEMPLE", "MYSTIC",
	"FALCON", "VOYAGE", "SPIRIT", "IMPACT", "LAUNCH",
	"HUNTER", "BREEZE", "COBALT", "FROZEN", "BLITZ",
}

// unscramble shuffles a word's letters and asks players to restore it.
type unscramble struct {
	rng         *rand.Rand
	answer      string
	scrambled   string
	submissions map[uuid.UUID]time.Duration
}

func newUnscramble(rng *rand.Rand) *unscramble {
	return &unscramble{rng: rng}
}

func (g *unscramble) ID() string { return "unscramble" }
func (g *unscramble) Name() string { return "Unscramble!" }
func (g *unscramble) TimeLimit() time.Duration { return 12 * time.Second }
func (g *unscramble) SubmissionCount() int { return len(g.submissions) }

// scrambleWord shuffles until the result differs from the original, giving up
// after a bounded number of attempts (short words with repeated letters may
// scramble to themselves).
func (g *unscramble) scrambleWord(word string) string {
	chars := []rune(word)
	for attempts := 0; attempts < 20; attempts++ {
		g.rng.Shuffle(len(chars), func(i, j int) {
			chars[i], chars[j] = chars[j], chars[i]
		})
		if string(chars) != word {
			break
		}
	}
	return string(chars)
}

func (g *unscramble) Setup() map[string]interface{} {
	word := unscrambleWords[g.rng.Intn(len(unscrambleWords))]
	g.answer = strings.ToLower(word)
	g.scrambled = g.scrambleWord(word)
	g.submissions = make(map[uuid.UUID]time.Duration)
	return map[string]interface{}{
		"instructions": "Unscramble the letters to form a word!",
		"scrambled":    g.scrambled,
	}
}

func (g *unscramble) HandleInput(p *models.Player, in Input, startedAt time.Time) *Feedback {
	if _, done := g.submissions[p.ID]; done {
		return nil
	}
	if in.Type != g.ID() || in.Text == "" {
		return nil
	}
	typed := strings.ToLower(strings.TrimSpace(in.Text))
	if typed != g.answer {
		return &Feedback{Message: "Wrong, try again!"}
	}
	elapsed := time.Since(startedAt)
	g.submissions[p.ID] = elapsed
	return &Feedback{Message: fmt.Sprintf("Correct in %.1fs!", elapsed.Seconds())}
}

func (g *unscramble) Score(players []*models.Player, timeLimit time.Duration) map[uuid.UUID]int {
	return scoreBySpeed(g.submissions, players, timeLimit)
}
