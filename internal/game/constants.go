// internal/game/constants.go
package game

import (
	"time"

	"github.com/turbotrivia/race-service/internal/models"
)

// Phase is a room's lifecycle state.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseRacing   Phase = "racing"
	PhaseFinished Phase = "finished"
)

// Room settings.
const (
	RoomCodeLength    = 4
	MaxPlayersPerRoom = 20
	MinTeams          = 1
	MaxTeams          = 8

	// roomCodeAlphabet excludes I and O, which read ambiguously on a shared screen.
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"
)

// Round timing.
const (
	TriviaTimeLimit = 15 * time.Second
	ShowResultsTime = 4 * time.Second
	FirstRoundDelay = 2 * time.Second

	// MiniGameChance is the probability a round is a mini-game rather than
	// trivia, given at least one mini-game is registered.
	MiniGameChance = 0.4
)

// Race settings.
const (
	TrackProgressWin   = 1.0
	MaxAdvancePerRound = 0.05
	MinAdvancePerRound = 0.01
)

// Power-up settings.
const MaxPowerUpsPerPlayer = 2

// PowerUpSpawnChance is indexed by a team's standing (1st place first).
// Trailing teams roll against higher probabilities — rubber-banding.
var PowerUpSpawnChance = []float64{0.15, 0.25, 0.35, 0.50, 0.55, 0.60, 0.65, 0.70}

// defaultSpawnChance applies when a standing falls outside the table.
const defaultSpawnChance = 0.25

// PowerUpCatalog is the fixed set of power-up types awarded uniformly at random.
var PowerUpCatalog = []models.PowerUp{
	{ID: "nitro", Name: "Nitro Boost", Effect: 0.05, Category: models.BoostSelf, Description: "+5% track progress"},
	{ID: "oil", Name: "Oil Slick", Effect: -0.03, Category: models.DebuffOther, Description: "-3% to opponent"},
	{ID: "tire_pop", Name: "Tire Pop", Effect: 0, Category: models.DisableOther, Description: "Opponent skips advancement"},
	{ID: "shield", Name: "Shield", Effect: 0, Category: models.SelfShield, Description: "Blocks one attack"},
}

// Team palette, indexed by team index.
var (
	teamColors = []string{"#ff4444", "#4488ff", "#44ff44", "#ffaa00", "#ff44ff", "#00ffcc", "#ff8844", "#aaff00"}
	teamNames  = []string{"Red Rockets", "Blue Blazers", "Green Machines", "Gold Gears", "Purple Panthers", "Cyan Comets", "Orange Outlaws", "Lime Legends"}
)

// NewTeam builds the team for a given index with its palette entry.
func NewTeam(index int) *models.Team {
	return &models.Team{
		Index: index,
		Name:  teamNames[index],
		Color: teamColors[index],
	}
}
