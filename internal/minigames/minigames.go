// internal/minigames/minigames.go

// Package minigames holds the skill-based round implementations. Each game
// carries per-round state that is reset by Setup, so callers must use a
// fresh set of instances per session (see All).
package minigames

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/turbotrivia/race-service/internal/models"
)

// Input is a typed payload forwarded from a player during a mini-game round.
// Which fields matter depends on Type.
type Input struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Answer *int   `json:"answer,omitempty"`
	TimeMs *int   `json:"time,omitempty"`
}

// Feedback is the per-input response sent privately to the submitting player.
type Feedback struct {
	Message string `json:"message"`
}

// Game is the capability set every mini-game implements. Setup returns the
// public payload broadcast at round start. HandleInput returns nil when the
// input is ignored (wrong type, already submitted).
type Game interface {
	ID() string
	Name() string
	TimeLimit() time.Duration
	Setup() map[string]interface{}
	HandleInput(p *models.Player, in Input, startedAt time.Time) *Feedback
	Score(players []*models.Player, timeLimit time.Duration) map[uuid.UUID]int
}

// SubmissionCounter is implemented by games that track one final submission
// per player, enabling early round termination.
type SubmissionCounter interface {
	SubmissionCount() int
}

// All returns a fresh set of game instances. Instances hold round state and
// must not be shared between sessions.
func All(rng *rand.Rand) []Game {
	return []Game{
		newSpeedType(rng),
		newReaction(),
		newEmojiDecoder(rng),
		newQuickMath(rng),
		newUnscramble(rng),
	}
}

// maxSubmissionScore is the score of the fastest correct submission; slower
// submissions scale down proportionally.
const maxSubmissionScore = 150

// scoreBySpeed gives the fastest submitter maxSubmissionScore and everyone
// else a share proportional to fastest/theirTime. Eligible players without a
// submission score zero.
func scoreBySpeed(submissions map[uuid.UUID]time.Duration, players []*models.Player, timeLimit time.Duration) map[uuid.UUID]int {
	fastest := timeLimit
	for _, t := range submissions {
		if t < fastest {
			fastest = t
		}
	}

	scores := make(map[uuid.UUID]int)
	for _, p := range players {
		if !p.Eligible() {
			continue
		}
		t, ok := submissions[p.ID]
		if !ok || t <= 0 {
			scores[p.ID] = 0
			continue
		}
		ratio := float64(fastest) / float64(t)
		scores[p.ID] = int(math.Round(maxSubmissionScore * ratio))
	}
	return scores
}
