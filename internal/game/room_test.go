// internal/game/room_test.go
package game

import (
	"fmt"
	"math/rand"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbotrivia/race-service/internal/auth"
	"github.com/turbotrivia/race-service/internal/models"
	"github.com/turbotrivia/race-service/internal/trivia"
)

func TestMain(m *testing.M) {
	if err := auth.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// mockEmitter collects events instead of sending them over WS.
type mockEmitter struct {
	mu           sync.Mutex
	hostEvents   []Event
	playerEvents map[uuid.UUID][]Event
}

func newMockEmitter() *mockEmitter {
	return &mockEmitter{
		playerEvents: make(map[uuid.UUID][]Event),
	}
}

func (me *mockEmitter) hostFn(ev Event) {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.hostEvents = append(me.hostEvents, ev)
}

func (me *mockEmitter) playerFn(p *models.Player, ev Event) {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.playerEvents[p.ID] = append(me.playerEvents[p.ID], ev)
}

func (me *mockEmitter) clear() {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.hostEvents = nil
	me.playerEvents = make(map[uuid.UUID][]Event)
}

func (me *mockEmitter) hostEventCount(eventType string) int {
	me.mu.Lock()
	defer me.mu.Unlock()
	n := 0
	for _, ev := range me.hostEvents {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func (me *mockEmitter) lastHostEvent(eventType string) *Event {
	me.mu.Lock()
	defer me.mu.Unlock()
	for i := len(me.hostEvents) - 1; i >= 0; i-- {
		if me.hostEvents[i].Type == eventType {
			return &me.hostEvents[i]
		}
	}
	return nil
}

func (me *mockEmitter) lastPlayerEvent(playerID uuid.UUID, eventType string) *Event {
	me.mu.Lock()
	defer me.mu.Unlock()
	events := me.playerEvents[playerID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == eventType {
			return &events[i]
		}
	}
	return nil
}

// setupTestRoom builds a room with players round-robin assigned to teams and
// event collection in place of real connections.
func setupTestRoom(t *testing.T, numPlayers, numTeams int) (*Room, []*models.Player, *mockEmitter) {
	t.Helper()

	room := NewRoom("TEST", uuid.New(), "testdata")
	room.TriviaPacks = []string{"test-pack"}
	room.NumTeams = numTeams

	me := newMockEmitter()
	room.EmitToHostFn = me.hostFn
	room.EmitToPlayerFn = me.playerFn

	players := make([]*models.Player, numPlayers)
	for i := 0; i < numPlayers; i++ {
		p := models.NewPlayer(uuid.New(), fmt.Sprintf("player-%d", i))
		p.TeamIndex = i % numTeams
		require.True(t, room.AddPlayer(p))
		players[i] = p
	}

	t.Cleanup(func() {
		room.Mu.Lock()
		room.ResetGame()
		room.Mu.Unlock()
	})

	return room, players, me
}

// startRace moves the room to racing and swaps in a deterministic
// trivia-only orchestrator so tests control the round content.
func startRace(t *testing.T, room *Room, me *mockEmitter, questions ...trivia.Question) {
	t.Helper()

	room.Mu.Lock()
	defer room.Mu.Unlock()
	require.NoError(t, room.StartGame())

	engine := trivia.NewEngine([]trivia.Pack{{ID: "fixture", Questions: questions}})
	room.Orchestrator = NewRoundOrchestrator(room, engine, nil, rand.New(rand.NewSource(1)))
	me.clear()
}

var fixtureQuestion = trivia.Question{
	Prompt:  "What is 2 + 2?",
	Options: []string{"3", "4", "5", "6"},
	Answer:  1,
}

func TestStartGameRequiresLobbyPhase(t *testing.T) {
	room, _, _ := setupTestRoom(t, 2, 2)

	room.Mu.Lock()
	defer room.Mu.Unlock()
	require.NoError(t, room.StartGame())
	assert.Equal(t, PhaseRacing, room.Phase)
	assert.ErrorIs(t, room.StartGame(), ErrWrongPhase)
}

func TestStartGameRequiresPlayers(t *testing.T) {
	room, _, _ := setupTestRoom(t, 0, 2)

	room.Mu.Lock()
	defer room.Mu.Unlock()
	assert.ErrorIs(t, room.StartGame(), ErrNotEnoughPlayers)
	assert.Equal(t, PhaseLobby, room.Phase)
}

func TestStartGameCreatesTeamsFromPalette(t *testing.T) {
	room, _, _ := setupTestRoom(t, 4, 3)

	room.Mu.Lock()
	defer room.Mu.Unlock()
	require.NoError(t, room.StartGame())

	require.Len(t, room.Teams, 3)
	assert.Equal(t, "Red Rockets", room.Teams[0].Name)
	assert.Equal(t, "#ff4444", room.Teams[0].Color)
	assert.Equal(t, "Blue Blazers", room.Teams[1].Name)
	for i, team := range room.Teams {
		assert.Equal(t, i, team.Index)
		assert.Zero(t, team.Progress)
	}
}

func TestAutoAssignTeamsRoundRobin(t *testing.T) {
	room, players, _ := setupTestRoom(t, 5, 2)

	room.Mu.Lock()
	defer room.Mu.Unlock()
	for _, p := range players {
		p.TeamIndex = models.UnassignedTeam
	}
	room.AutoAssignTeams()

	counts := map[int]int{}
	for _, p := range players {
		require.NotEqual(t, models.UnassignedTeam, p.TeamIndex)
		counts[p.TeamIndex]++
	}
	assert.Equal(t, 3, counts[0])
	assert.Equal(t, 2, counts[1])
}

func TestSetTeamCountClamps(t *testing.T) {
	room, _, _ := setupTestRoom(t, 1, 2)

	room.Mu.Lock()
	defer room.Mu.Unlock()
	room.SetTeamCount(0)
	assert.Equal(t, MinTeams, room.NumTeams)
	room.SetTeamCount(99)
	assert.Equal(t, MaxTeams, room.NumTeams)
	room.SetTeamCount(4)
	assert.Equal(t, 4, room.NumTeams)
}

func TestAssignTeamRejectsInvalidIndex(t *testing.T) {
	room, players, _ := setupTestRoom(t, 1, 2)

	room.Mu.Lock()
	defer room.Mu.Unlock()
	assert.ErrorIs(t, room.AssignTeam(players[0].ID, 2), ErrInvalidTeamIndex)
	assert.ErrorIs(t, room.AssignTeam(players[0].ID, -1), ErrInvalidTeamIndex)
	assert.NoError(t, room.AssignTeam(players[0].ID, 1))
	assert.Equal(t, 1, players[0].TeamIndex)
}

func TestRoomCapacity(t *testing.T) {
	room, _, _ := setupTestRoom(t, MaxPlayersPerRoom, 2)

	room.Mu.Lock()
	defer room.Mu.Unlock()
	extra := models.NewPlayer(uuid.New(), "one-too-many")
	assert.False(t, room.AddPlayer(extra))
	assert.Len(t, room.Players, MaxPlayersPerRoom)
}

func TestConsumeSkipFlags(t *testing.T) {
	room, players, _ := setupTestRoom(t, 4, 2)

	room.Mu.Lock()
	defer room.Mu.Unlock()

	// One flagged member is enough; disconnected carriers don't count,
	// but every flag is cleared regardless.
	players[0].SkipNextAdvance = true // team 0, connected
	players[3].SkipNextAdvance = true // team 1, disconnected
	players[3].Disconnect()

	skipped := room.consumeSkipFlags()
	assert.True(t, skipped[0])
	assert.False(t, skipped[1])
	for _, p := range players {
		assert.False(t, p.SkipNextAdvance)
	}

	// Flags are one-shot: a second consume sees nothing.
	assert.Empty(t, room.consumeSkipFlags())
}

func TestResetGameReturnsToLobby(t *testing.T) {
	room, players, me := setupTestRoom(t, 3, 2)
	startRace(t, room, me, fixtureQuestion)

	room.Mu.Lock()
	defer room.Mu.Unlock()

	players[0].PowerUps = append(players[0].PowerUps, PowerUpCatalog[0])
	players[1].Shielded = true
	players[2].SkipNextAdvance = true

	room.ResetGame()

	assert.Equal(t, PhaseLobby, room.Phase)
	assert.Nil(t, room.Teams)
	assert.Nil(t, room.Race)
	assert.Nil(t, room.Orchestrator)
	assert.False(t, room.RoundInProgress)
	for _, p := range players {
		assert.Equal(t, models.UnassignedTeam, p.TeamIndex)
		assert.Empty(t, p.PowerUps)
		assert.False(t, p.Shielded)
		assert.False(t, p.SkipNextAdvance)
	}
}

func TestRoundStartStripsAnswerForPlayers(t *testing.T) {
	room, players, me := setupTestRoom(t, 2, 2)
	startRace(t, room, me, fixtureQuestion)

	room.Mu.Lock()
	room.StartNextRound()
	room.Mu.Unlock()

	hostStart := me.lastHostEvent("round_start")
	require.NotNil(t, hostStart)
	require.NotNil(t, hostStart.Data.(*RoundStart).CorrectAnswer)
	assert.Equal(t, 1, *hostStart.Data.(*RoundStart).CorrectAnswer)

	for _, p := range players {
		playerStart := me.lastPlayerEvent(p.ID, "round_start")
		require.NotNil(t, playerStart)
		assert.Nil(t, playerStart.Data.(*RoundStart).CorrectAnswer)
	}
}

// TestFullRound drives a complete round: three players on two teams all
// answer, the round terminates early, advancement is applied, and results
// reach everyone.
func TestFullRound(t *testing.T) {
	room, players, me := setupTestRoom(t, 3, 2)
	startRace(t, room, me, fixtureQuestion)

	room.Mu.Lock()
	room.StartNextRound()
	require.True(t, room.RoundInProgress)

	room.SubmitAnswer(players[0], 1) // team 0, correct
	room.SubmitAnswer(players[1], 0) // team 1, wrong
	room.SubmitAnswer(players[2], 1) // team 0, correct

	// All eligible players answered, so the round ended without the timer.
	assert.False(t, room.RoundInProgress)
	assert.Nil(t, room.Orchestrator.CurrentRound())

	team0 := room.Teams[0].Progress
	team1 := room.Teams[1].Progress
	room.Mu.Unlock()

	assert.InDelta(t, MaxAdvancePerRound, team0, 1e-9)
	assert.Zero(t, team1)

	assert.Equal(t, 1, me.hostEventCount("round_results"))
	results := me.lastHostEvent("round_results").Data.(*RoundResults)
	require.NotNil(t, results.CorrectAnswer)
	assert.Equal(t, 1, *results.CorrectAnswer)
	assert.Len(t, results.PlayerScores, 3)
	assert.Nil(t, results.Winner)

	for _, p := range players {
		assert.NotNil(t, me.lastPlayerEvent(p.ID, "round_results"))
	}

	// The host saw one answer_received per accepted submission.
	assert.Equal(t, 3, me.hostEventCount("answer_received"))
}

func TestWinnerFinishesRace(t *testing.T) {
	room, players, me := setupTestRoom(t, 2, 2)
	startRace(t, room, me, fixtureQuestion)

	room.Mu.Lock()
	room.Teams[0].Progress = TrackProgressWin - 0.001

	room.StartNextRound()
	room.SubmitAnswer(players[0], 1)
	room.SubmitAnswer(players[1], 1)

	assert.Equal(t, PhaseFinished, room.Phase)
	room.Mu.Unlock()

	results := me.lastHostEvent("round_results").Data.(*RoundResults)
	require.NotNil(t, results.Winner)
	assert.Equal(t, 0, results.Winner.Index)
	assert.Equal(t, 1, me.hostEventCount("game_finished"))
}

func TestSubmitAnswerIgnoredOutsideRound(t *testing.T) {
	room, players, me := setupTestRoom(t, 2, 2)
	startRace(t, room, me, fixtureQuestion)

	room.Mu.Lock()
	room.SubmitAnswer(players[0], 1)
	room.Mu.Unlock()

	assert.Equal(t, 0, me.hostEventCount("answer_received"))
	assert.Nil(t, me.lastPlayerEvent(players[0].ID, "answer_result"))
}

func TestDisconnectedPlayerDoesNotBlockEarlyTermination(t *testing.T) {
	room, players, me := setupTestRoom(t, 3, 2)
	startRace(t, room, me, fixtureQuestion)

	room.Mu.Lock()
	defer room.Mu.Unlock()

	players[2].Disconnect()
	room.StartNextRound()

	room.SubmitAnswer(players[0], 1)
	assert.True(t, room.RoundInProgress)

	room.SubmitAnswer(players[1], 1)
	assert.False(t, room.RoundInProgress)
}
