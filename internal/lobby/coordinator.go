// internal/lobby/coordinator.go
package lobby

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/netrisk/netrisk-service/internal/cache"
	"github.com/netrisk/netrisk-service/internal/database"
	"github.com/netrisk/netrisk-service/internal/models"
	"github.com/netrisk/netrisk-service/internal/schema"
)

// FallbackCode names the fabricated session used when no durable record is
// available.
const FallbackCode = "LOBBY"

// feedPublishTimeout bounds the best-effort lobby feed publish.
const feedPublishTimeout = 2 * time.Second

// publishLobbyUpdate is swappable in tests.
var publishLobbyUpdate = cache.PublishLobbyUpdate

// Coordinator reconciles persisted or fabricated session state with
// incoming join requests. It is the single source of truth for the
// snapshots handed to transports: every snapshot it returns is a fresh
// value and must not be mutated by consumers.
//
// The store is optional. With a nil Store the coordinator runs fully
// in-memory, fabricating a fallback session per snapshot request.
type Coordinator struct {
	store  database.Store
	logger *logrus.Logger

	// mu guards locks; each session code gets its own mutex so concurrent
	// joins to the same code serialize their read-merge-write cycle.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCoordinator builds a Coordinator. store may be nil to express "no
// database available".
func NewCoordinator(store database.Store, logger *logrus.Logger) *Coordinator {
	return &Coordinator{
		store:  store,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// GetSnapshot returns the current session state: the most recently updated
// persisted record when one exists, otherwise a fabricated lobby under
// FallbackCode. Persistence trouble is swallowed here; an unreachable
// store is a normal demo/offline condition, never an error to the caller.
func (c *Coordinator) GetSnapshot(ctx context.Context) models.GameState {
	if c.store != nil {
		rec, err := c.store.FindLatestGame(ctx)
		if err != nil {
			c.logger.Debugf("Falling back to generated lobby state: %v", err)
		} else if rec != nil {
			return projectRecord(rec)
		}
	}
	return models.NewInitialGameState(FallbackCode, time.Now())
}

// RecordJoin validates a join request and reconciles it into the current
// snapshot. Validation failure is the one error path that propagates; it
// aborts before any state read or persistence attempt. The durable write
// is a single best-effort attempt that never blocks the in-memory result.
func (c *Coordinator) RecordJoin(ctx context.Context, in schema.JoinGameRequestInput) (models.GameState, error) {
	payload, err := schema.ParseJoinGameRequest(in)
	if err != nil {
		return models.GameState{}, err
	}

	unlock := c.lockCode(payload.GameCode)
	defer unlock()

	state := c.GetSnapshot(ctx)

	// One clock read feeds both the persistence timestamp and the
	// returned UpdatedAt, keeping the two consistent.
	now := time.Now()

	if c.store != nil {
		if err := c.store.UpsertPlayer(ctx, payload, state.Rules, now); err != nil {
			c.logger.Debugf("Skipping persistence for join event: %v", err)
		}
	}

	// Dedup by player identity, preserving the relative order of everyone
	// else, then seat the new player last. A rejoin resets territories.
	players := make([]models.PlayerState, 0, len(state.Players)+1)
	for _, p := range state.Players {
		if p.Profile.ID != payload.Player.ID {
			players = append(players, p)
		}
	}
	players = append(players, models.PlayerState{
		Profile:     payload.Player,
		Status:      models.StatusOnline,
		Territories: 0,
	})

	next := state
	// The latest join owns the session code, even when it differs from the
	// established one. Kept bug-for-bug with the reference behavior; see
	// DESIGN.md.
	next.Code = payload.GameCode
	next.Players = players
	next.UpdatedAt = models.ISOTimestamp(now)

	// The publish runs under the per-code lock, so it gets its own short
	// deadline; a stalled feed must not delay subsequent joins.
	publishCtx, cancel := context.WithTimeout(ctx, feedPublishTimeout)
	if err := publishLobbyUpdate(publishCtx, next); err != nil {
		c.logger.Debugf("Skipping lobby feed publish: %v", err)
	}
	cancel()

	return next, nil
}

// lockCode acquires the per-session mutex for code and returns its release
// func.
func (c *Coordinator) lockCode(code string) func() {
	c.mu.Lock()
	l, ok := c.locks[code]
	if !ok {
		l = &sync.Mutex{}
		c.locks[code] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// projectRecord maps a persisted record into the in-memory snapshot shape.
func projectRecord(rec *database.GameRecord) models.GameState {
	players := make([]models.PlayerState, 0, len(rec.Players))
	for _, p := range rec.Players {
		players = append(players, models.PlayerState{
			Profile: models.PlayerProfile{
				ID:    p.ExternalID,
				Name:  p.Name,
				Color: p.Color,
				Role:  models.PlayerRole(p.Role),
			},
			Status:      models.PlayerStatus(p.Status),
			Territories: p.Territories,
		})
	}
	return models.GameState{
		ID:        rec.ID,
		Code:      rec.Code,
		Phase:     models.GamePhase(rec.Phase),
		Players:   players,
		Rules:     rec.Rules,
		CreatedAt: models.ISOTimestamp(rec.CreatedAt),
		UpdatedAt: models.ISOTimestamp(rec.UpdatedAt),
	}
}
