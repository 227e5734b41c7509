// internal/models/player.go
package models

// PlayerRole is the declared intent of a participant in a session.
type PlayerRole string

const (
	RoleAttacker PlayerRole = "attacker"
	RoleDefender PlayerRole = "defender"
	RoleObserver PlayerRole = "observer"
)

// PlayerStatus tracks connection presence for a seated player.
type PlayerStatus string

const (
	StatusOnline       PlayerStatus = "online"
	StatusDisconnected PlayerStatus = "disconnected"
)

// DefaultPlayerColor is assigned when a join omits a color.
const DefaultPlayerColor = "#3366ff"

// PlayerProfile is the client-supplied identity of a player. Profiles are
// only trusted after schema validation.
type PlayerProfile struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Color string     `json:"color"`
	Role  PlayerRole `json:"role"`
}

// PlayerState is a seated player within a session. A rejoin replaces the
// whole record, resetting territories to zero.
type PlayerState struct {
	Profile     PlayerProfile `json:"profile"`
	Status      PlayerStatus  `json:"status"`
	Territories int           `json:"territories"`
}

// JoinGameRequest is a validated request to seat a player in a session.
type JoinGameRequest struct {
	GameCode string        `json:"gameCode"`
	Player   PlayerProfile `json:"player"`
}
