// internal/models/game.go
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/netrisk/netrisk-service/internal/game"
)

// GamePhase is the lifecycle stage of a session. The lobby protocol only
// ever manipulates PhaseLobby; the later phases belong to board resolution.
type GamePhase string

const (
	PhaseLobby      GamePhase = "lobby"
	PhaseDeployment GamePhase = "deployment"
	PhaseBattle     GamePhase = "battle"
	PhaseCompleted  GamePhase = "completed"
)

// GameState is the canonical session snapshot handed to transports.
// Consumers must treat a returned snapshot as immutable; every mutation in
// the coordinator produces a new value.
type GameState struct {
	ID        uuid.UUID      `json:"id"`
	Code      string         `json:"code"`
	Phase     GamePhase      `json:"phase"`
	Players   []PlayerState  `json:"players"`
	Rules     game.GameRules `json:"rules"`
	CreatedAt string         `json:"createdAt"`
	UpdatedAt string         `json:"updatedAt"`
}

// GameSummary is the listing projection of a session.
type GameSummary struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Phase       GamePhase `json:"phase"`
	PlayerCount int       `json:"playerCount"`
	MaxPlayers  int       `json:"maxPlayers"`
}

// Summary projects the state into its listing shape.
func (s GameState) Summary() GameSummary {
	return GameSummary{
		ID:          s.ID,
		Code:        s.Code,
		Phase:       s.Phase,
		PlayerCount: len(s.Players),
		MaxPlayers:  s.Rules.MaxPlayers,
	}
}

// isoLayout renders UTC with millisecond precision and a Z suffix, the
// wire format clients already parse. Fixed width keeps string comparison
// consistent with chronological order.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// ISOTimestamp formats t in the session timestamp wire format.
func ISOTimestamp(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// NewInitialGameState fabricates an empty lobby-phase session: fresh random
// identity, an independent copy of the default rules, and both timestamps
// equal to createdAt. Used whenever no durable record is available.
func NewInitialGameState(code string, createdAt time.Time) GameState {
	ts := ISOTimestamp(createdAt)
	return GameState{
		ID:        uuid.New(),
		Code:      code,
		Phase:     PhaseLobby,
		Players:   []PlayerState{},
		Rules:     game.DefaultGameRules(),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}
