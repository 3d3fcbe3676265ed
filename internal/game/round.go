// internal/game/round.go
package game

import (
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/turbotrivia/race-service/internal/minigames"
	"github.com/turbotrivia/race-service/internal/models"
	"github.com/turbotrivia/race-service/internal/trivia"
)

// RoundKind distinguishes trivia rounds from mini-game rounds.
type RoundKind string

const (
	RoundTrivia   RoundKind = "trivia"
	RoundMiniGame RoundKind = "mini_game"
)

// Round is the transient state of one in-flight round.
type Round struct {
	Kind      RoundKind
	Number    int
	StartedAt time.Time
	TimeLimit time.Duration

	// Trivia rounds.
	Question trivia.Question

	// Mini-game rounds. Setup is captured at round start so mid-round
	// rebinds see the same puzzle instead of a fresh roll.
	Game  minigames.Game
	Setup map[string]interface{}
}

// RoundStart is the payload broadcast when a round begins. CorrectAnswer is
// stripped before the payload reaches players.
type RoundStart struct {
	Kind          RoundKind              `json:"type"`
	Number        int                    `json:"number"`
	TimeLimitMs   int64                  `json:"timeLimit"`
	Question      string                 `json:"question,omitempty"`
	Options       []string               `json:"options,omitempty"`
	CorrectAnswer *int                   `json:"correctAnswer,omitempty"`
	GameID        string                 `json:"gameId,omitempty"`
	GameName      string                 `json:"gameName,omitempty"`
	Setup         map[string]interface{} `json:"setup,omitempty"`
}

// AnswerResult is the private feedback for one accepted trivia submission.
type AnswerResult struct {
	Correct bool `json:"correct"`
	Score   int  `json:"score"`
}

// TeamScore is one team's normalized result for a round.
type TeamScore struct {
	TeamIndex int     `json:"teamIndex"`
	Score     float64 `json:"score"`
	AvgScore  float64 `json:"avgScore"`
	IsWinner  bool    `json:"isWinner"`
}

// PlayerResult is one player's line in the round results.
type PlayerResult struct {
	Name    string `json:"name"`
	Answer  *int   `json:"answer,omitempty"`
	Correct bool   `json:"correct"`
	Score   int    `json:"score"`
	TimeMs  int64  `json:"time"`
}

// RoundResults is the aggregate broadcast at round end. Advances, RaceState,
// Standings and Winner are filled in by the room's round-end callback.
type RoundResults struct {
	Kind          RoundKind               `json:"type"`
	Number        int                     `json:"number"`
	CorrectAnswer *int                    `json:"correctAnswer,omitempty"`
	GameID        string                  `json:"gameId,omitempty"`
	TeamScores    []TeamScore             `json:"teamScores"`
	PlayerScores  map[string]PlayerResult `json:"playerScores"`
	Advances      map[int]float64         `json:"advances"`
	RaceState     []models.Team           `json:"raceState"`
	Standings     []Standing              `json:"standings"`
	Winner        *models.Team            `json:"winner,omitempty"`
	ShowMs        int64                   `json:"showTime"`
}

// RoundOrchestrator runs one round at a time to completion on behalf of its
// room: type selection, the authoritative deadline timer, at-most-once
// submission collection, early termination, and team aggregation. All
// methods assume the room lock is held; timer callbacks re-acquire it and
// re-validate before acting.
type RoundOrchestrator struct {
	room *Room

	trivia *trivia.Engine
	games  []minigames.Game
	rng    *rand.Rand

	roundNumber int
	current     *Round
	answered    map[uuid.UUID]bool
	timer       *time.Timer
}

// NewRoundOrchestrator binds an orchestrator to its room and content.
func NewRoundOrchestrator(room *Room, engine *trivia.Engine, games []minigames.Game, rng *rand.Rand) *RoundOrchestrator {
	return &RoundOrchestrator{
		room:   room,
		trivia: engine,
		games:  games,
		rng:    rng,
	}
}

// StartNextRound begins a new round and returns the start payload. Round
// type is trivia unless a mini-game is registered and the weighted roll
// selects one. Trivia falls back to a mini-game when the content pool is
// empty, and vice versa a failed trivia draw with no games produces an error.
func (o *RoundOrchestrator) StartNextRound() (*RoundStart, error) {
	o.roundNumber++
	o.answered = make(map[uuid.UUID]bool)

	for _, p := range o.room.Players {
		p.ResetRoundState()
	}

	wantMiniGame := len(o.games) > 0 && o.rng.Float64() < MiniGameChance
	if !wantMiniGame {
		start, err := o.startTriviaRound()
		if err == nil {
			return start, nil
		}
		if len(o.games) == 0 {
			return nil, err
		}
		log.Printf("Room %s: trivia draw failed (%v), falling back to mini-game", o.room.Code, err)
	}
	return o.startMiniGameRound(), nil
}

func (o *RoundOrchestrator) startTriviaRound() (*RoundStart, error) {
	q, err := o.trivia.Draw()
	if err != nil {
		return nil, err
	}

	round := &Round{
		Kind:      RoundTrivia,
		Number:    o.roundNumber,
		StartedAt: time.Now(),
		TimeLimit: TriviaTimeLimit,
		Question:  q,
	}
	o.current = round
	o.scheduleDeadline(round)

	answer := q.Answer
	return &RoundStart{
		Kind:          RoundTrivia,
		Number:        round.Number,
		TimeLimitMs:   round.TimeLimit.Milliseconds(),
		Question:      q.Prompt,
		Options:       q.Options,
		CorrectAnswer: &answer,
	}, nil
}

func (o *RoundOrchestrator) startMiniGameRound() *RoundStart {
	g := o.games[o.rng.Intn(len(o.games))]
	setup := g.Setup()

	round := &Round{
		Kind:      RoundMiniGame,
		Number:    o.roundNumber,
		StartedAt: time.Now(),
		TimeLimit: g.TimeLimit(),
		Game:      g,
		Setup:     setup,
	}
	o.current = round
	o.scheduleDeadline(round)

	return &RoundStart{
		Kind:        RoundMiniGame,
		Number:      round.Number,
		TimeLimitMs: round.TimeLimit.Milliseconds(),
		GameID:      g.ID(),
		GameName:    g.Name(),
		Setup:       setup,
	}
}

// scheduleDeadline starts the authoritative round timer. The callback
// re-acquires the room lock and verifies the round it was scheduled for is
// still the current one, so a deadline that lost the race against early
// termination (or a reset) is a no-op.
func (o *RoundOrchestrator) scheduleDeadline(round *Round) {
	o.timer = time.AfterFunc(round.TimeLimit, func() {
		o.room.Mu.Lock()
		defer o.room.Mu.Unlock()
		if o.current != round {
			log.Printf("Room %s: stale deadline fired for round %d. Ignoring.", o.room.Code, round.Number)
			return
		}
		log.Printf("Room %s: round %d deadline reached.", o.room.Code, round.Number)
		o.endRound()
	})
}

// SubmitAnswer records a trivia submission. Returns nil when the submission
// is a no-op: no trivia round in flight, or the player already answered this
// round. The first accepted submission per player is authoritative. The
// round ends immediately once every eligible player has answered.
func (o *RoundOrchestrator) SubmitAnswer(p *models.Player, answerIndex int) *AnswerResult {
	round := o.current
	if round == nil || round.Kind != RoundTrivia {
		return nil
	}
	if o.answered[p.ID] {
		return nil
	}

	o.answered[p.ID] = true
	elapsed := time.Since(round.StartedAt)
	p.AnswerTime = elapsed
	answer := answerIndex
	p.CurrentAnswer = &answer
	p.RoundScore = trivia.Score(answerIndex, round.Question.Answer, elapsed, round.TimeLimit)

	result := &AnswerResult{
		Correct: answerIndex == round.Question.Answer,
		Score:   p.RoundScore,
	}

	if o.eligibleAnswered() >= o.eligibleCount() {
		o.stopDeadline()
		o.endRound()
	}
	return result
}

// HandleMiniGameInput forwards an input to the current mini-game and returns
// its private feedback (nil if ignored). Games that expose a submission
// count trigger the same early-termination check as trivia.
func (o *RoundOrchestrator) HandleMiniGameInput(p *models.Player, in minigames.Input) *minigames.Feedback {
	round := o.current
	if round == nil || round.Kind != RoundMiniGame {
		return nil
	}

	feedback := round.Game.HandleInput(p, in, round.StartedAt)

	// HandleInput may have ended nothing, but check anyway: the game owns
	// its own submitted set.
	if o.current == round {
		if counter, ok := round.Game.(minigames.SubmissionCounter); ok {
			if counter.SubmissionCount() >= o.eligibleCount() {
				o.stopDeadline()
				o.endRound()
			}
		}
	}
	return feedback
}

// AnswerCount reports how many players have submitted so far this round.
func (o *RoundOrchestrator) AnswerCount() int {
	return len(o.answered)
}

// eligibleCount counts connected, team-assigned players.
func (o *RoundOrchestrator) eligibleCount() int {
	n := 0
	for _, p := range o.room.Players {
		if p.Eligible() {
			n++
		}
	}
	return n
}

// eligibleAnswered counts submissions from players who are still eligible.
func (o *RoundOrchestrator) eligibleAnswered() int {
	n := 0
	for _, p := range o.room.Players {
		if p.Eligible() && o.answered[p.ID] {
			n++
		}
	}
	return n
}

// endRound finishes the current round exactly once: it clears the round
// reference before any callback runs, so the competing trigger (deadline vs
// final submission) becomes a no-op.
func (o *RoundOrchestrator) endRound() {
	round := o.current
	if round == nil {
		return
	}
	o.current = nil
	o.stopDeadline()

	results := &RoundResults{
		Kind:         round.Kind,
		Number:       round.Number,
		PlayerScores: make(map[string]PlayerResult),
		ShowMs:       ShowResultsTime.Milliseconds(),
	}

	switch round.Kind {
	case RoundTrivia:
		answer := round.Question.Answer
		results.CorrectAnswer = &answer
		for _, p := range o.room.Players {
			if p.TeamIndex == models.UnassignedTeam {
				continue
			}
			results.PlayerScores[p.ID.String()] = PlayerResult{
				Name:    p.Name,
				Answer:  p.CurrentAnswer,
				Correct: p.CurrentAnswer != nil && *p.CurrentAnswer == round.Question.Answer,
				Score:   p.RoundScore,
				TimeMs:  p.AnswerTime.Milliseconds(),
			}
		}

	case RoundMiniGame:
		results.GameID = round.Game.ID()
		scores := round.Game.Score(o.room.Players, round.TimeLimit)
		for _, p := range o.room.Players {
			score, ok := scores[p.ID]
			if !ok {
				continue
			}
			p.RoundScore = score
			results.PlayerScores[p.ID.String()] = PlayerResult{
				Name:  p.Name,
				Score: score,
			}
		}
	}

	results.TeamScores = o.calculateTeamScores()
	o.room.onRoundEnd(results)
}

// calculateTeamScores averages each team's round scores over its eligible
// members (empty teams score 0), accumulates the average into the team's
// cumulative score, and marks round winners: every team matching the round
// maximum wins, provided that maximum is above zero.
func (o *RoundOrchestrator) calculateTeamScores() []TeamScore {
	var teamScores []TeamScore

	for _, team := range o.room.Teams {
		members := team.Members(o.room.Players)
		if len(members) == 0 {
			teamScores = append(teamScores, TeamScore{TeamIndex: team.Index})
			continue
		}
		total := 0
		for _, p := range members {
			total += p.RoundScore
		}
		avg := float64(total) / float64(len(members))
		team.TotalScore += int(math.Round(avg))
		teamScores = append(teamScores, TeamScore{TeamIndex: team.Index, Score: avg, AvgScore: avg})
	}

	maxScore := 0.0
	for _, ts := range teamScores {
		if ts.Score > maxScore {
			maxScore = ts.Score
		}
	}
	for i := range teamScores {
		if maxScore > 0 && teamScores[i].Score == maxScore {
			teamScores[i].IsWinner = true
			o.room.Teams[teamScores[i].TeamIndex].RoundsWon++
		}
	}
	return teamScores
}

// stopDeadline cancels any pending deadline timer.
func (o *RoundOrchestrator) stopDeadline() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

// Cleanup cancels the deadline and drops the in-flight round, if any.
func (o *RoundOrchestrator) Cleanup() {
	o.stopDeadline()
	o.current = nil
}

// CurrentRound exposes the in-flight round, or nil.
func (o *RoundOrchestrator) CurrentRound() *Round {
	return o.current
}

// CurrentRoundStart rebuilds the start payload for the in-flight round with
// the remaining time, for clients that rebind mid-round. Returns nil when no
// round is running. The correct answer is never included.
func (o *RoundOrchestrator) CurrentRoundStart() *RoundStart {
	round := o.current
	if round == nil {
		return nil
	}
	remaining := round.TimeLimit - time.Since(round.StartedAt)
	if remaining < 0 {
		remaining = 0
	}
	start := &RoundStart{
		Kind:        round.Kind,
		Number:      round.Number,
		TimeLimitMs: remaining.Milliseconds(),
	}
	switch round.Kind {
	case RoundTrivia:
		start.Question = round.Question.Prompt
		start.Options = round.Question.Options
	case RoundMiniGame:
		start.GameID = round.Game.ID()
		start.GameName = round.Game.Name()
		start.Setup = round.Setup
	}
	return start
}
