// internal/game/rules.go
package game

// ReinforcementRule controls how many armies a player receives per turn.
type ReinforcementRule struct {
	Minimum          int `json:"minimum"`          // floor applied regardless of territory count
	TerritoryDivisor int `json:"territoryDivisor"` // one reinforcement per this many territories held
}

// BattleRule bounds the dice each side may roll during combat resolution.
// Declared for the full game; the lobby protocol never reads these.
type BattleRule struct {
	MaxAttackerDice int `json:"maxAttackerDice"`
	MaxDefenderDice int `json:"maxDefenderDice"`
}

// GameRules is the per-session rule configuration. Treat values as immutable
// once attached to a session; DefaultGameRules hands out independent copies.
type GameRules struct {
	MinPlayers    int               `json:"minPlayers"`
	MaxPlayers    int               `json:"maxPlayers"`
	Reinforcement ReinforcementRule `json:"reinforcement"`
	Battle        BattleRule        `json:"battle"`
}

// DefaultGameRules returns a fresh copy of the standard ruleset so each
// session owns an independent snapshot.
func DefaultGameRules() GameRules {
	return GameRules{
		MinPlayers: 2,
		MaxPlayers: 6,
		Reinforcement: ReinforcementRule{
			Minimum:          3,
			TerritoryDivisor: 3,
		},
		Battle: BattleRule{
			MaxAttackerDice: 3,
			MaxDefenderDice: 2,
		},
	}
}

// CanStartGame reports whether playerCount satisfies the configured bounds.
func CanStartGame(playerCount int, rules GameRules) bool {
	return playerCount >= rules.MinPlayers && playerCount <= rules.MaxPlayers
}

// CalculateReinforcements returns the armies granted for holding
// territoryCount territories: floor(count/divisor), never below the
// configured minimum. Validation guarantees TerritoryDivisor >= 1.
func CalculateReinforcements(territoryCount int, rules GameRules) int {
	reinforcements := territoryCount / rules.Reinforcement.TerritoryDivisor
	if reinforcements < rules.Reinforcement.Minimum {
		return rules.Reinforcement.Minimum
	}
	return reinforcements
}
