// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/netrisk/netrisk-service/internal/game"
	"github.com/netrisk/netrisk-service/internal/models"
)

// PlayerRecord is a persisted seat row, keyed by (external_id, game_code).
type PlayerRecord struct {
	ExternalID  string
	Name        string
	Color       string
	Role        string
	Status      string
	Territories int
}

// GameRecord is a persisted session row with its seated players.
type GameRecord struct {
	ID        uuid.UUID
	Code      string
	Phase     string
	Rules     game.GameRules
	Players   []PlayerRecord
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the narrow persistence contract the lobby coordinator depends
// on. A nil Store expresses "no database available" — a normal condition,
// not an error; the lobby protocol keeps working without one.
type Store interface {
	// FindLatestGame returns the most recently updated session with its
	// players, or nil when no session has been persisted yet.
	FindLatestGame(ctx context.Context) (*GameRecord, error)

	// UpsertPlayer durably records a validated join against the session
	// identified by the request's game code, creating the session row on
	// first contact.
	UpsertPlayer(ctx context.Context, req models.JoinGameRequest, rules game.GameRules, ts time.Time) error
}

// Connect opens a pgx pool using DATABASE_URL, or the POSTGRES_USER,
// POSTGRES_PASSWORD, PG_HOST, PG_PORT, PG_DATABASE pieces when unset.
// Callers treat a connection failure as "run without a store".
func Connect(ctx context.Context) (*Postgres, error) {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		connStr = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			os.Getenv("POSTGRES_USER"),
			os.Getenv("POSTGRES_PASSWORD"),
			os.Getenv("PG_HOST"),
			os.Getenv("PG_PORT"),
			os.Getenv("PG_DATABASE"),
		)
	}

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return &Postgres{pool: pool}, nil
}
