// internal/trivia/engine.go
package trivia

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Scoring constants: a correct answer earns BaseScore plus a speed bonus
// that decays linearly from SpeedBonusMax at t=0 to zero at the deadline.
const (
	BaseScore     = 100
	SpeedBonusMax = 50
)

// ErrNoQuestions is returned when the engine has no packs loaded.
var ErrNoQuestions = errors.New("trivia: no questions loaded")

// Engine draws questions without replacement for the lifetime of one session.
// When every question has been used, the used set resets and drawing resumes.
type Engine struct {
	packs map[string]Pack
	used  map[string]bool
	rng   *rand.Rand
}

// NewEngine builds an engine over the given packs.
func NewEngine(packs []Pack) *Engine {
	e := &Engine{
		packs: make(map[string]Pack, len(packs)),
		used:  make(map[string]bool),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, p := range packs {
		e.packs[p.ID] = p
	}
	return e
}

// LoadEngine loads the named packs from dir and builds an engine.
func LoadEngine(dir string, packIDs []string) (*Engine, error) {
	var packs []Pack
	for _, id := range packIDs {
		p, err := LoadPack(dir, id)
		if err != nil {
			return nil, err
		}
		packs = append(packs, p)
	}
	return NewEngine(packs), nil
}

// Draw picks a random unused question. When the pool is exhausted the used
// set is cleared and the draw retried, so sessions cycle rather than stall.
func (e *Engine) Draw() (Question, error) {
	type keyed struct {
		q   Question
		key string
	}
	var available []keyed
	total := 0
	for id, pack := range e.packs {
		for i, q := range pack.Questions {
			total++
			key := fmt.Sprintf("%s:%d", id, i)
			if !e.used[key] {
				available = append(available, keyed{q: q, key: key})
			}
		}
	}
	if total == 0 {
		return Question{}, ErrNoQuestions
	}
	if len(available) == 0 {
		e.used = make(map[string]bool)
		return e.Draw()
	}
	pick := available[e.rng.Intn(len(available))]
	e.used[pick.key] = true
	return pick.q, nil
}

// Score computes the points for one answer: 0 if wrong, otherwise BaseScore
// plus a speed bonus proportional to how much of the time limit was left.
// Answering exactly at the deadline yields no bonus.
func Score(answer, correct int, elapsed, timeLimit time.Duration) int {
	if answer != correct {
		return 0
	}
	if elapsed <= 0 {
		elapsed = 0
	}
	ratio := 1 - float64(elapsed)/float64(timeLimit)
	if ratio < 0 {
		ratio = 0
	}
	return BaseScore + int(math.Round(SpeedBonusMax*ratio))
}
