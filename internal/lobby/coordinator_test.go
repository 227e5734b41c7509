// internal/lobby/coordinator_test.go
package lobby

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netrisk/netrisk-service/internal/database"
	"github.com/netrisk/netrisk-service/internal/game"
	"github.com/netrisk/netrisk-service/internal/models"
	"github.com/netrisk/netrisk-service/internal/schema"
)

// fakeStore is an in-memory Store. With applyWrites set it behaves like
// the real gateway: upserts accumulate into the record that later
// FindLatestGame calls return.
type fakeStore struct {
	mu          sync.Mutex
	record      *database.GameRecord
	findErr     error
	upsertErr   error
	findCalls   int
	upsertCalls int
	applyWrites bool
}

func (f *fakeStore) FindLatestGame(ctx context.Context) (*database.GameRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.record == nil {
		return nil, nil
	}
	rec := *f.record
	rec.Players = append([]database.PlayerRecord(nil), f.record.Players...)
	return &rec, nil
}

func (f *fakeStore) UpsertPlayer(ctx context.Context, req models.JoinGameRequest, rules game.GameRules, ts time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if !f.applyWrites {
		return nil
	}

	if f.record == nil {
		f.record = &database.GameRecord{
			ID:        uuid.New(),
			Code:      req.GameCode,
			Phase:     "lobby",
			Rules:     rules,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
	} else {
		f.record.UpdatedAt = ts
	}

	for i, p := range f.record.Players {
		if p.ExternalID == req.Player.ID {
			f.record.Players[i].Name = req.Player.Name
			f.record.Players[i].Color = req.Player.Color
			f.record.Players[i].Role = string(req.Player.Role)
			f.record.Players[i].Status = "online"
			return nil
		}
	}
	f.record.Players = append(f.record.Players, database.PlayerRecord{
		ExternalID:  req.Player.ID,
		Name:        req.Player.Name,
		Color:       req.Player.Color,
		Role:        string(req.Player.Role),
		Status:      "online",
		Territories: 0,
	})
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func joinInput(code, playerID, name string) schema.JoinGameRequestInput {
	return schema.JoinGameRequestInput{
		GameCode: code,
		Player:   schema.PlayerProfileInput{ID: playerID, Name: name},
	}
}

func TestGetSnapshotProjectsPersistedRecord(t *testing.T) {
	createdAt := time.Date(2024, 3, 25, 10, 15, 0, 0, time.UTC)
	updatedAt := time.Date(2024, 3, 25, 10, 20, 0, 0, time.UTC)
	gameID := uuid.New()

	store := &fakeStore{
		record: &database.GameRecord{
			ID:    gameID,
			Code:  "ALFA",
			Phase: "lobby",
			Rules: game.DefaultGameRules(),
			Players: []database.PlayerRecord{
				{ExternalID: "player-1", Name: "Alice", Color: "#ff0000", Role: "attacker", Status: "online", Territories: 5},
				{ExternalID: "player-2", Name: "Bob", Color: "#0000ff", Role: "defender", Status: "disconnected", Territories: 3},
			},
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		},
	}
	coord := NewCoordinator(store, testLogger())

	state := coord.GetSnapshot(context.Background())

	assert.Equal(t, gameID, state.ID)
	assert.Equal(t, "ALFA", state.Code)
	assert.Equal(t, models.PhaseLobby, state.Phase)
	assert.Equal(t, "2024-03-25T10:15:00.000Z", state.CreatedAt)
	assert.Equal(t, "2024-03-25T10:20:00.000Z", state.UpdatedAt)

	require.Len(t, state.Players, 2)
	assert.Equal(t, models.PlayerProfile{ID: "player-1", Name: "Alice", Color: "#ff0000", Role: models.RoleAttacker}, state.Players[0].Profile)
	assert.Equal(t, models.StatusOnline, state.Players[0].Status)
	assert.Equal(t, 5, state.Players[0].Territories)
	assert.Equal(t, models.StatusDisconnected, state.Players[1].Status)
	assert.Equal(t, 3, state.Players[1].Territories)
}

func TestGetSnapshotFallsBackOnStoreError(t *testing.T) {
	store := &fakeStore{findErr: errors.New("database offline")}
	coord := NewCoordinator(store, testLogger())

	state := coord.GetSnapshot(context.Background())

	assert.Equal(t, FallbackCode, state.Code)
	assert.Equal(t, models.PhaseLobby, state.Phase)
	assert.Empty(t, state.Players)
	assert.Equal(t, game.DefaultGameRules(), state.Rules)
	assert.Equal(t, state.CreatedAt, state.UpdatedAt)
}

func TestGetSnapshotFallsBackWhenStoreEmpty(t *testing.T) {
	coord := NewCoordinator(&fakeStore{}, testLogger())

	state := coord.GetSnapshot(context.Background())

	assert.Equal(t, FallbackCode, state.Code)
	assert.Empty(t, state.Players)
	assert.Equal(t, state.CreatedAt, state.UpdatedAt)
}

func TestGetSnapshotFallbackIsIdempotent(t *testing.T) {
	coord := NewCoordinator(nil, testLogger())

	a := coord.GetSnapshot(context.Background())
	b := coord.GetSnapshot(context.Background())

	assert.Equal(t, FallbackCode, a.Code)
	assert.Equal(t, FallbackCode, b.Code)
	assert.Equal(t, a.Rules, b.Rules)
	assert.NotEqual(t, a.ID, b.ID, "each fabricated state owns a fresh identity")
}

func TestRecordJoinSeatsPlayer(t *testing.T) {
	coord := NewCoordinator(nil, testLogger())

	state, err := coord.RecordJoin(context.Background(), schema.JoinGameRequestInput{
		GameCode: "RISK2024",
		Player: schema.PlayerProfileInput{
			ID:   "player-123",
			Name: "Strategist",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "RISK2024", state.Code, "session code follows the join request")
	require.Len(t, state.Players, 1)
	seat := state.Players[0]
	assert.Equal(t, "player-123", seat.Profile.ID)
	assert.Equal(t, "Strategist", seat.Profile.Name)
	assert.Equal(t, models.DefaultPlayerColor, seat.Profile.Color)
	assert.Equal(t, models.RoleAttacker, seat.Profile.Role)
	assert.Equal(t, models.StatusOnline, seat.Status)
	assert.Equal(t, 0, seat.Territories)
	assert.GreaterOrEqual(t, state.UpdatedAt, state.CreatedAt)
}

func TestRecordJoinRejectsInvalidPayloadBeforeStoreAccess(t *testing.T) {
	store := &fakeStore{}
	coord := NewCoordinator(store, testLogger())

	_, err := coord.RecordJoin(context.Background(), schema.JoinGameRequestInput{
		GameCode: "bad code",
		Player:   schema.PlayerProfileInput{ID: "", Name: ""},
	})
	require.Error(t, err)

	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.GreaterOrEqual(t, len(verr.Issues), 3)

	assert.Zero(t, store.findCalls, "no state read before validation")
	assert.Zero(t, store.upsertCalls, "no persistence attempt before validation")
}

func TestRecordJoinDeduplicatesRejoin(t *testing.T) {
	store := &fakeStore{
		record: &database.GameRecord{
			ID:    uuid.New(),
			Code:  "RISK2024",
			Phase: "lobby",
			Rules: game.DefaultGameRules(),
			Players: []database.PlayerRecord{
				{ExternalID: "player-1", Name: "Old Name", Color: "#ff0000", Role: "attacker", Status: "disconnected", Territories: 7},
				{ExternalID: "player-2", Name: "Bob", Color: "#0000ff", Role: "defender", Status: "online", Territories: 3},
			},
			CreatedAt: time.Now().Add(-time.Hour),
			UpdatedAt: time.Now().Add(-time.Minute),
		},
	}
	coord := NewCoordinator(store, testLogger())

	state, err := coord.RecordJoin(context.Background(), schema.JoinGameRequestInput{
		GameCode: "RISK2024",
		Player: schema.PlayerProfileInput{
			ID:   "player-1",
			Name: "New Name",
		},
	})
	require.NoError(t, err)

	require.Len(t, state.Players, 2, "exactly one seat per identity")
	assert.Equal(t, "player-2", state.Players[0].Profile.ID, "relative order of other players preserved")
	rejoined := state.Players[1]
	assert.Equal(t, "player-1", rejoined.Profile.ID)
	assert.Equal(t, "New Name", rejoined.Profile.Name)
	assert.Equal(t, models.StatusOnline, rejoined.Status)
	assert.Equal(t, 0, rejoined.Territories, "rejoin resets territory count")
}

func TestRecordJoinSurvivesPersistenceFailure(t *testing.T) {
	store := &fakeStore{upsertErr: errors.New("disk full")}
	coord := NewCoordinator(store, testLogger())

	state, err := coord.RecordJoin(context.Background(), joinInput("RISK2024", "player-1", "Alex"))
	require.NoError(t, err, "persistence failure must not surface")

	require.Len(t, state.Players, 1)
	assert.Equal(t, 1, store.upsertCalls, "exactly one attempt, no retries")
}

func TestRecordJoinAccumulatesPlayersThroughStore(t *testing.T) {
	store := &fakeStore{applyWrites: true}
	coord := NewCoordinator(store, testLogger())
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := coord.RecordJoin(ctx, joinInput("RISK2024", fmt.Sprintf("player-%d", i), fmt.Sprintf("Player %d", i)))
		require.NoError(t, err)
	}

	state := coord.GetSnapshot(ctx)
	require.Len(t, state.Players, 3)
	for i, seat := range state.Players {
		assert.Equal(t, fmt.Sprintf("player-%d", i+1), seat.Profile.ID, "insertion order equals join order")
	}
}

func TestRecordJoinTimestampsMonotonic(t *testing.T) {
	store := &fakeStore{applyWrites: true}
	coord := NewCoordinator(store, testLogger())
	ctx := context.Background()

	first, err := coord.RecordJoin(ctx, joinInput("RISK2024", "player-1", "Alex"))
	require.NoError(t, err)

	// The first join persists the record; from the second result onward the
	// creation timestamp is established and must never move.
	second, err := coord.RecordJoin(ctx, joinInput("RISK2024", "player-2", "Alex"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, second.UpdatedAt, first.UpdatedAt)

	prev := second
	for i := 3; i <= 5; i++ {
		next, err := coord.RecordJoin(ctx, joinInput("RISK2024", fmt.Sprintf("player-%d", i), "Later"))
		require.NoError(t, err)

		assert.GreaterOrEqual(t, next.UpdatedAt, prev.UpdatedAt)
		assert.Equal(t, prev.CreatedAt, next.CreatedAt, "creation timestamp never changes once established")
		prev = next
	}
}

func TestRecordJoinOverwritesSessionCode(t *testing.T) {
	store := &fakeStore{
		record: &database.GameRecord{
			ID:        uuid.New(),
			Code:      "OLDCODE",
			Phase:     "lobby",
			Rules:     game.DefaultGameRules(),
			CreatedAt: time.Now().Add(-time.Hour),
			UpdatedAt: time.Now().Add(-time.Minute),
		},
	}
	coord := NewCoordinator(store, testLogger())

	state, err := coord.RecordJoin(context.Background(), joinInput("NEWCODE1", "player-1", "Alex"))
	require.NoError(t, err)

	assert.Equal(t, "NEWCODE1", state.Code, "latest join renames the session")
}

func TestRecordJoinBoundsFeedPublish(t *testing.T) {
	orig := publishLobbyUpdate
	defer func() { publishLobbyUpdate = orig }()

	var captured context.Context
	publishLobbyUpdate = func(ctx context.Context, state models.GameState) error {
		captured = ctx
		return nil
	}

	coord := NewCoordinator(nil, testLogger())
	_, err := coord.RecordJoin(context.Background(), joinInput("RISK2024", "player-1", "Alex"))
	require.NoError(t, err)

	require.NotNil(t, captured)
	deadline, ok := captured.Deadline()
	require.True(t, ok, "feed publish must carry its own deadline")
	assert.LessOrEqual(t, time.Until(deadline), feedPublishTimeout)
}

func TestRecordJoinConcurrentSameCode(t *testing.T) {
	store := &fakeStore{applyWrites: true}
	coord := NewCoordinator(store, testLogger())
	ctx := context.Background()

	const joiners = 8
	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := coord.RecordJoin(ctx, joinInput("RISK2024", fmt.Sprintf("player-%d", n), "Racer"))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	state := coord.GetSnapshot(ctx)
	assert.Len(t, state.Players, joiners, "per-code serialization prevents lost updates")
}
