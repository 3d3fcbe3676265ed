// internal/minigames/emojidecoder.go
package minigames

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turbotrivia/race-service/internal/models"
)

type emojiPuzzle struct {
	emojis string
	answer string
}

var emojiPuzzles = []emojiPuzzle{
	{"🌍🔥", "global warming"},
	{"🏠📖", "homework"},
	{"⏰💣", "time bomb"},
	{"🌙🚶", "moonwalk"},
	{"🔥🚒", "fire truck"},
	{"⭐🐟", "starfish"},
	{"🌈🦄", "unicorn"},
	{"❄️🧊", "ice cold"},
	{"🌊🏄", "surfing"},
	{"🎂🎉", "birthday party"},
	{"🔑🗝️", "keyboard"},
	{"🐝🏠", "beehive"},
	{"👀🐮", "eyebrow"},
	{"🦷🧚", "tooth fairy"},
	{"🌻🌞", "sunflower"},
	{"🐴👟", "horseshoe"},
	{"🏖️⚽", "beach ball"},
	{"🍳🥞", "breakfast"},
	{"📱🤳", "selfie"},
	{"🎤🌟", "rock star"},
}

// emojiDecoder shows an emoji pair and accepts free-text guesses until the
// player lands the answer; wrong guesses don't lock them out.
type emojiDecoder struct {
	rng         *rand.Rand
	answer      string
	emojis      string
	submissions map[uuid.UUID]time.Duration
}

func newEmojiDecoder(rng *rand.Rand) *emojiDecoder {
	return &emojiDecoder{rng: rng}
}

func (g *emojiDecoder) ID() string { return "emoji-decoder" }
func (g *emojiDecoder) Name() string { return "Emoji Decoder!" }
func (g *emojiDecoder) TimeLimit() time.Duration { return 15 * time.Second }
func (g *emojiDecoder) SubmissionCount() int { return len(g.submissions) }

func (g *emojiDecoder) Setup() map[string]interface{} {
	puzzle := emojiPuzzles[g.rng.Intn(len(emojiPuzzles))]
	g.answer = puzzle.answer
	g.emojis = puzzle.emojis
	g.submissions = make(map[uuid.UUID]time.Duration)
	return map[string]interface{}{
		"instructions": "Decode the emoji phrase!",
		"emojis":       g.emojis,
	}
}

func (g *emojiDecoder) HandleInput(p *models.Player, in Input, startedAt time.Time) *Feedback {
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

func (g *emojiDecoder) Score(players []*models.Player, timeLimit time.Duration) map[uuid.UUID]int {
	return scoreBySpeed(g.submissions, players, timeLimit)
}
