// internal/game/room.go
package game

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/turbotrivia/race-service/internal/minigames"
	"github.com/turbotrivia/race-service/internal/models"
	"github.com/turbotrivia/race-service/internal/trivia"
)

// Event is one outbound message to the presentation layer.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Room owns one session: the phase state machine, the roster and teams, the
// round orchestrator, and the progression and power-up subsystems. A single
// mutex guards all of it; every method below assumes the lock is held unless
// documented otherwise, and every timer callback re-acquires the lock and
// re-validates phase and generation before acting.
type Room struct {
	Code string

	HostConnID uuid.UUID
	HostConn   *websocket.Conn

	Phase    Phase
	Players  []*models.Player
	Teams    []*models.Team
	NumTeams int

	TriviaPacks []string
	PacksDir    string

	Orchestrator *RoundOrchestrator
	Race         *RaceEngine
	PowerUps     *PowerUpManager

	RoundInProgress bool
	CreatedAt       time.Time

	// raceGen increments on every start/reset so delayed round timers
	// scheduled against an earlier race become no-ops.
	raceGen int

	// HostGraceTimer is the pending room-destroy timer after a host
	// disconnect, cancelled when the host rebinds.
	HostGraceTimer *time.Timer

	rng *rand.Rand

	// EmitToHostFn and EmitToPlayerFn are injected by the transport layer.
	// They are called with the room lock held and must not block or
	// re-acquire it.
	EmitToHostFn   func(ev Event)
	EmitToPlayerFn func(p *models.Player, ev Event)

	Mu sync.Mutex
}

// NewRoom creates a lobby-phase room bound to the creating host connection.
func NewRoom(code string, hostConnID uuid.UUID, packsDir string) *Room {
	return &Room{
		Code:        code,
		HostConnID:  hostConnID,
		Phase:       PhaseLobby,
		NumTeams:    2,
		TriviaPacks: []string{"general-knowledge"},
		PacksDir:    packsDir,
		CreatedAt:   time.Now(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// --- Emit helpers ---

// EmitToHost sends an event to the host view.
func (r *Room) EmitToHost(eventType string, data interface{}) {
	if r.EmitToHostFn != nil {
		r.EmitToHostFn(Event{Type: eventType, Data: data})
	}
}

// EmitToPlayer sends an event to a single connected player.
func (r *Room) EmitToPlayer(p *models.Player, eventType string, data interface{}) {
	if p.Connected && r.EmitToPlayerFn != nil {
		r.EmitToPlayerFn(p, Event{Type: eventType, Data: data})
	}
}

// EmitToPlayers sends an event to every connected player.
func (r *Room) EmitToPlayers(eventType string, data interface{}) {
	for _, p := range r.Players {
		r.EmitToPlayer(p, eventType, data)
	}
}

// EmitToAll sends an event to the host and every connected player.
func (r *Room) EmitToAll(eventType string, data interface{}) {
	r.EmitToHost(eventType, data)
	r.EmitToPlayers(eventType, data)
}

// --- Roster ---

// AddPlayer appends a player to the roster, refusing when at capacity.
func (r *Room) AddPlayer(p *models.Player) bool {
	if len(r.Players) >= MaxPlayersPerRoom {
		return false
	}
	r.Players = append(r.Players, p)
	return true
}

// RemovePlayer drops a player from the roster by id.
func (r *Room) RemovePlayer(id uuid.UUID) bool {
	for i, p := range r.Players {
		if p.ID == id {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return true
		}
	}
	return false
}

// FindPlayerByID looks a player up by identity.
func (r *Room) FindPlayerByID(id uuid.UUID) *models.Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// FindPlayerByConn looks a player up by their bound connection id.
func (r *Room) FindPlayerByConn(connID uuid.UUID) *models.Player {
	for _, p := range r.Players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

// FindPlayerByToken looks a player up by their issued reconnect credential.
func (r *Room) FindPlayerByToken(token string) *models.Player {
	if token == "" {
		return nil
	}
	for _, p := range r.Players {
		if p.ReconnectToken == token {
			return p
		}
	}
	return nil
}

// --- Lobby configuration ---

// SetTeamCount clamps and applies the configured team count.
func (r *Room) SetTeamCount(n int) {
	if n < MinTeams {
		n = MinTeams
	}
	if n > MaxTeams {
		n = MaxTeams
	}
	r.NumTeams = n
}

// AssignTeam places a player on a team. Fails with ErrInvalidTeamIndex when
// the index is outside the configured team count.
func (r *Room) AssignTeam(playerID uuid.UUID, teamIndex int) error {
	p := r.FindPlayerByID(playerID)
	if p == nil {
		return ErrRoomNotFound
	}
	if teamIndex < 0 || teamIndex >= r.NumTeams {
		return ErrInvalidTeamIndex
	}
	p.TeamIndex = teamIndex
	return nil
}

// AutoAssignTeams distributes unassigned players round-robin across the
// configured team slots.
func (r *Room) AutoAssignTeams() {
	i := 0
	for _, p := range r.Players {
		if p.TeamIndex == models.UnassignedTeam {
			p.TeamIndex = i % r.NumTeams
			i++
		}
	}
}

// --- Phase transitions ---

// StartGame moves the room from lobby to racing: auto-assigns stragglers,
// creates the teams, builds the race engine, power-up manager and round
// orchestrator, and schedules the first round after a short delay.
func (r *Room) StartGame() error {
	if r.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	if len(r.Players) < 1 {
		return ErrNotEnoughPlayers
	}

	r.AutoAssignTeams()

	r.Teams = make([]*models.Team, 0, r.NumTeams)
	for i := 0; i < r.NumTeams; i++ {
		r.Teams = append(r.Teams, NewTeam(i))
	}

	engine, err := trivia.LoadEngine(r.PacksDir, r.TriviaPacks)
	if err != nil {
		log.Printf("Room %s: failed to load trivia packs %v: %v. Continuing with mini-games only.", r.Code, r.TriviaPacks, err)
		engine = trivia.NewEngine(nil)
	}

	r.Race = NewRaceEngine(r.Teams)
	r.PowerUps = NewPowerUpManager(r, r.rng)
	r.Orchestrator = NewRoundOrchestrator(r, engine, minigames.All(r.rng), r.rng)

	r.Phase = PhaseRacing
	r.raceGen++
	log.Printf("Room %s: game started with %d players across %d teams.", r.Code, len(r.Players), r.NumTeams)

	r.scheduleRound(FirstRoundDelay)
	return nil
}

// StartNextRound kicks off a round. It is a deliberate no-op outside the
// racing phase or while a round is already in flight, which defends against
// duplicate triggers.
func (r *Room) StartNextRound() {
	if r.Phase != PhaseRacing || r.RoundInProgress {
		return
	}
	r.RoundInProgress = true

	start, err := r.Orchestrator.StartNextRound()
	if err != nil {
		// No content at all: nothing to run. Clear the flag so a later
		// settings change can recover the session.
		log.Printf("Room %s: cannot start round: %v", r.Code, err)
		r.RoundInProgress = false
		return
	}

	r.EmitToHost("round_start", start)

	playerStart := *start
	playerStart.CorrectAnswer = nil
	r.EmitToPlayers("round_start", &playerStart)
}

// scheduleRound arms a timer that starts the next round if, at fire time,
// the room is still racing the same race.
func (r *Room) scheduleRound(delay time.Duration) {
	gen := r.raceGen
	time.AfterFunc(delay, func() {
		r.Mu.Lock()
		defer r.Mu.Unlock()
		if r.Phase != PhaseRacing || r.raceGen != gen {
			log.Printf("Room %s: stale round timer fired. Ignoring.", r.Code)
			return
		}
		r.StartNextRound()
	})
}

// onRoundEnd is invoked by the orchestrator when a round finishes, exactly
// once per round. It converts team scores into advancement, checks the win
// condition, broadcasts results, awards power-ups, and either schedules the
// next round or finishes the race.
func (r *Room) onRoundEnd(results *RoundResults) {
	r.RoundInProgress = false

	skipped := r.consumeSkipFlags()
	results.Advances = r.Race.Advance(results.TeamScores, skipped)
	results.RaceState = r.Race.State()
	results.Standings = r.Race.Standings()

	winner := r.Race.CheckWinner()
	if winner != nil {
		w := *winner
		results.Winner = &w
		r.Phase = PhaseFinished
	}

	r.EmitToAll("round_results", results)

	if winner != nil {
		log.Printf("Room %s: team %q wins after round %d.", r.Code, winner.Name, results.Number)
		r.EmitToAll("game_finished", map[string]interface{}{
			"winner": *winner,
			"teams":  r.Race.State(),
		})
		return
	}

	if awards := r.PowerUps.AwardAfterRound(); len(awards) > 0 {
		r.EmitToHost("powerup_awarded", awards)
		for _, a := range awards {
			if p := r.FindPlayerByID(a.PlayerID); p != nil {
				r.EmitToPlayer(p, "powerup_inventory", p.PowerUps)
			}
		}
	}

	r.scheduleRound(ShowResultsTime)
}

// consumeSkipFlags collects the teams whose pending advancement is nulled
// by a disable effect and clears the one-shot flags. A team is skipped when
// any of its connected members carries the flag.
func (r *Room) consumeSkipFlags() map[int]bool {
	skipped := map[int]bool{}
	for _, p := range r.Players {
		if p.SkipNextAdvance {
			if p.Connected && p.TeamIndex != models.UnassignedTeam {
				skipped[p.TeamIndex] = true
			}
			p.SkipNextAdvance = false
		}
	}
	return skipped
}

// ResetGame returns the room to the lobby from any phase: the only legal
// path back. Teams and the orchestrator are discarded and every player's
// assignment, scratch state, inventory and shield are cleared.
func (r *Room) ResetGame() {
	if r.Orchestrator != nil {
		r.Orchestrator.Cleanup()
		r.Orchestrator = nil
	}
	r.Phase = PhaseLobby
	r.Teams = nil
	r.Race = nil
	r.PowerUps = nil
	r.RoundInProgress = false
	r.raceGen++

	for _, p := range r.Players {
		p.TeamIndex = models.UnassignedTeam
		p.ResetRoundState()
		p.PowerUps = []models.PowerUp{}
		p.Shielded = false
		p.SkipNextAdvance = false
	}
}

// --- Round input ---

// SubmitAnswer routes a trivia submission to the orchestrator and emits the
// private result plus the host-side answer counter. Duplicate and
// out-of-round submissions are silently ignored.
func (r *Room) SubmitAnswer(p *models.Player, answerIndex int) {
	if !r.RoundInProgress || r.Orchestrator == nil {
		return
	}
	result := r.Orchestrator.SubmitAnswer(p, answerIndex)
	if result == nil {
		return
	}
	r.EmitToPlayer(p, "answer_result", result)
	r.EmitToHost("answer_received", map[string]interface{}{
		"playerId":   p.ID,
		"playerName": p.Name,
		"teamIndex":  p.TeamIndex,
		"count":      r.answerCount(),
	})
}

// answerCount is the host-facing submissions-so-far figure. After an early
// termination the orchestrator round is gone; report the roster-wide count.
func (r *Room) answerCount() int {
	if r.Orchestrator == nil {
		return 0
	}
	return r.Orchestrator.AnswerCount()
}

// HandleMiniGameInput routes a typed mini-game payload to the orchestrator
// and emits the private feedback and a host-side update when accepted.
func (r *Room) HandleMiniGameInput(p *models.Player, in minigames.Input) {
	if !r.RoundInProgress || r.Orchestrator == nil {
		return
	}
	feedback := r.Orchestrator.HandleMiniGameInput(p, in)
	if feedback == nil {
		return
	}
	r.EmitToPlayer(p, "minigame_result", feedback)
	r.EmitToHost("minigame_update", map[string]interface{}{
		"playerId":   p.ID,
		"playerName": p.Name,
		"message":    feedback.Message,
	})
}

// UsePowerUp resolves a power-up use during the race and broadcasts the
// outcome plus the actor's updated inventory. Unknown ids are silent no-ops;
// invalid targets return an error for the caller to surface.
func (r *Room) UsePowerUp(p *models.Player, powerUpID string, targetTeamIndex int) error {
	if r.Phase != PhaseRacing || r.PowerUps == nil {
		return ErrWrongPhase
	}
	result, err := r.PowerUps.Use(p, powerUpID, targetTeamIndex)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	r.EmitToAll("powerup_used", result)
	r.EmitToPlayer(p, "powerup_inventory", p.PowerUps)
	return nil
}

// --- Snapshots ---

// LobbyState is the lobby-phase snapshot for broadcast.
func (r *Room) LobbyState() map[string]interface{} {
	return map[string]interface{}{
		"code":        r.Code,
		"players":     r.playerSnapshots(),
		"numTeams":    r.NumTeams,
		"triviaPacks": r.TriviaPacks,
	}
}

// State is the full snapshot, including race state once teams exist.
func (r *Room) State() map[string]interface{} {
	state := map[string]interface{}{
		"code":     r.Code,
		"phase":    r.Phase,
		"players":  r.playerSnapshots(),
		"numTeams": r.NumTeams,
	}
	if r.Race != nil {
		state["teams"] = r.Race.State()
		state["raceState"] = r.Race.State()
		state["standings"] = r.Race.Standings()
	}
	return state
}

func (r *Room) playerSnapshots() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, map[string]interface{}{
			"id":        p.ID,
			"name":      p.Name,
			"teamIndex": p.TeamIndex,
			"connected": p.Connected,
			"powerUps":  p.PowerUps,
			"shielded":  p.Shielded,
		})
	}
	return out
}
