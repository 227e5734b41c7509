// internal/schema/schema.go
//
// Typed parsers for every payload crossing the lobby boundary. Each Parse
// function is deterministic and side-effect free: it either returns a
// normalized value with defaults applied, or a *ValidationError listing
// every violated field.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/netrisk/netrisk-service/internal/game"
	"github.com/netrisk/netrisk-service/internal/models"
)

var (
	colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}){1,2}$`)
	codePattern  = regexp.MustCompile(`^[A-Z0-9]+$`)
)

const maxNameLength = 50

// PlayerProfileInput is the raw, untrusted shape of a player profile.
// Optional fields are pointers so an omitted value can take its default.
type PlayerProfileInput struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Color *string `json:"color,omitempty"`
	Role  *string `json:"role,omitempty"`
}

// JoinGameRequestInput is the raw shape of a game:join payload.
type JoinGameRequestInput struct {
	GameCode string             `json:"gameCode"`
	Player   PlayerProfileInput `json:"player"`
}

// PlayerStateInput is the raw shape of a seated player record.
type PlayerStateInput struct {
	Profile     PlayerProfileInput `json:"profile"`
	Status      *string            `json:"status,omitempty"`
	Territories *int               `json:"territories,omitempty"`
}

// GameStateInput is the raw shape of a full session snapshot.
type GameStateInput struct {
	ID        string             `json:"id"`
	Code      string             `json:"code"`
	Phase     string             `json:"phase"`
	Players   []PlayerStateInput `json:"players"`
	Rules     *game.GameRules    `json:"rules,omitempty"`
	CreatedAt string             `json:"createdAt"`
	UpdatedAt string             `json:"updatedAt"`
}

// ParsePlayerProfile validates a profile and fills in the color and role
// defaults when omitted.
func ParsePlayerProfile(in PlayerProfileInput) (models.PlayerProfile, error) {
	verr := &ValidationError{}
	out := validatePlayerProfile(in, verr)
	if err := verr.orNil(); err != nil {
		return models.PlayerProfile{}, err
	}
	return out, nil
}

func validatePlayerProfile(in PlayerProfileInput, verr *ValidationError) models.PlayerProfile {
	if in.ID == "" {
		verr.add("id", "must not be empty")
	}
	if in.Name == "" {
		verr.add("name", "must not be empty")
	} else if utf8.RuneCountInString(in.Name) > maxNameLength {
		verr.add("name", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}

	color := models.DefaultPlayerColor
	if in.Color != nil {
		if !colorPattern.MatchString(*in.Color) {
			verr.add("color", "must be a #RGB or #RRGGBB hex color")
		} else {
			color = *in.Color
		}
	}

	role := models.RoleAttacker
	if in.Role != nil {
		switch models.PlayerRole(*in.Role) {
		case models.RoleAttacker, models.RoleDefender, models.RoleObserver:
			role = models.PlayerRole(*in.Role)
		default:
			verr.add("role", "must be one of attacker, defender, observer")
		}
	}

	return models.PlayerProfile{
		ID:    in.ID,
		Name:  in.Name,
		Color: color,
		Role:  role,
	}
}

// ParseJoinGameRequest validates a join payload: the game code format plus
// the embedded player profile. Codes must be uppercase alphanumeric,
// 4 to 12 characters.
func ParseJoinGameRequest(in JoinGameRequestInput) (models.JoinGameRequest, error) {
	verr := &ValidationError{}

	if len(in.GameCode) < 4 || len(in.GameCode) > 12 {
		verr.add("gameCode", "must be 4 to 12 characters")
	} else if !codePattern.MatchString(in.GameCode) {
		verr.add("gameCode", "game codes must be uppercase alphanumeric")
	}

	profileErr := &ValidationError{}
	player := validatePlayerProfile(in.Player, profileErr)
	verr.merge("player", profileErr)

	if err := verr.orNil(); err != nil {
		return models.JoinGameRequest{}, err
	}
	return models.JoinGameRequest{
		GameCode: in.GameCode,
		Player:   player,
	}, nil
}

// ParseGameRules bounds-checks a ruleset. A nil input yields the defaults,
// so callers can pass through an omitted rules object.
func ParseGameRules(in *game.GameRules) (game.GameRules, error) {
	if in == nil {
		return game.DefaultGameRules(), nil
	}

	verr := &ValidationError{}
	if in.MinPlayers < 2 {
		verr.add("minPlayers", "must be at least 2")
	}
	if in.MaxPlayers > 8 {
		verr.add("maxPlayers", "must be at most 8")
	}
	if in.MaxPlayers < in.MinPlayers {
		verr.add("maxPlayers", "must not be below minPlayers")
	}
	if in.Reinforcement.Minimum < 1 {
		verr.add("reinforcement.minimum", "must be at least 1")
	}
	if in.Reinforcement.TerritoryDivisor < 1 {
		verr.add("reinforcement.territoryDivisor", "must be at least 1")
	}
	if in.Battle.MaxAttackerDice < 1 || in.Battle.MaxAttackerDice > 3 {
		verr.add("battle.maxAttackerDice", "must be between 1 and 3")
	}
	if in.Battle.MaxDefenderDice < 1 || in.Battle.MaxDefenderDice > 2 {
		verr.add("battle.maxDefenderDice", "must be between 1 and 2")
	}

	if err := verr.orNil(); err != nil {
		return game.GameRules{}, err
	}
	return *in, nil
}

// ParseGameState validates a full snapshot: UUID identity, code length,
// the closed phase enum, every seated player, and the rules (defaulted
// when omitted).
func ParseGameState(in GameStateInput) (models.GameState, error) {
	verr := &ValidationError{}

	id, err := uuid.Parse(in.ID)
	if err != nil {
		verr.add("id", "must be a UUID")
	}
	if len(in.Code) < 4 {
		verr.add("code", "must be at least 4 characters")
	}

	phase := models.GamePhase(in.Phase)
	switch phase {
	case models.PhaseLobby, models.PhaseDeployment, models.PhaseBattle, models.PhaseCompleted:
	default:
		verr.add("phase", "must be one of lobby, deployment, battle, completed")
	}

	players := make([]models.PlayerState, 0, len(in.Players))
	for i, p := range in.Players {
		playerErr := &ValidationError{}
		players = append(players, validatePlayerState(p, playerErr))
		verr.merge(fmt.Sprintf("players.%d", i), playerErr)
	}

	rules, rulesErr := ParseGameRules(in.Rules)
	if rulesErr != nil {
		var rve *ValidationError
		if errors.As(rulesErr, &rve) {
			verr.merge("rules", rve)
		}
	}

	if err := verr.orNil(); err != nil {
		return models.GameState{}, err
	}
	return models.GameState{
		ID:        id,
		Code:      in.Code,
		Phase:     phase,
		Players:   players,
		Rules:     rules,
		CreatedAt: in.CreatedAt,
		UpdatedAt: in.UpdatedAt,
	}, nil
}

func validatePlayerState(in PlayerStateInput, verr *ValidationError) models.PlayerState {
	profileErr := &ValidationError{}
	profile := validatePlayerProfile(in.Profile, profileErr)
	verr.merge("profile", profileErr)

	status := models.StatusOnline
	if in.Status != nil {
		switch models.PlayerStatus(*in.Status) {
		case models.StatusOnline, models.StatusDisconnected:
			status = models.PlayerStatus(*in.Status)
		default:
			verr.add("status", "must be one of online, disconnected")
		}
	}

	territories := 0
	if in.Territories != nil {
		if *in.Territories < 0 {
			verr.add("territories", "must not be negative")
		} else {
			territories = *in.Territories
		}
	}

	return models.PlayerState{
		Profile:     profile,
		Status:      status,
		Territories: territories,
	}
}
