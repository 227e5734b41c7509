// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/netrisk/netrisk-service/internal/game"
	"github.com/netrisk/netrisk-service/internal/models"
)

// Postgres implements Store over a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// Close releases the underlying pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// FindLatestGame fetches the most recently updated session and its players,
// in join order. Returns (nil, nil) when no session exists.
func (p *Postgres) FindLatestGame(ctx context.Context) (*GameRecord, error) {
	var rec GameRecord
	var rulesJSON []byte

	q := `
	SELECT id, code, phase, rules, created_at, updated_at
	  FROM games
	 ORDER BY updated_at DESC
	 LIMIT 1
	`
	err := p.pool.QueryRow(ctx, q).Scan(
		&rec.ID,
		&rec.Code,
		&rec.Phase,
		&rulesJSON,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest game: %w", err)
	}
	if err := json.Unmarshal(rulesJSON, &rec.Rules); err != nil {
		return nil, fmt.Errorf("decode rules for game %s: %w", rec.Code, err)
	}

	pq := `
	SELECT external_id, name, color, role, status, territories
	  FROM game_players
	 WHERE game_code = $1
	 ORDER BY joined_at ASC
	`
	rows, err := p.pool.Query(ctx, pq, rec.Code)
	if err != nil {
		return nil, fmt.Errorf("load players for game %s: %w", rec.Code, err)
	}
	defer rows.Close()

	for rows.Next() {
		var pl PlayerRecord
		if err := rows.Scan(
			&pl.ExternalID,
			&pl.Name,
			&pl.Color,
			&pl.Role,
			&pl.Status,
			&pl.Territories,
		); err != nil {
			return nil, fmt.Errorf("scan player for game %s: %w", rec.Code, err)
		}
		rec.Players = append(rec.Players, pl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players for game %s: %w", rec.Code, err)
	}

	return &rec, nil
}

// UpsertPlayer records a join in one transaction: the session row is
// created on first contact (or its updated_at advanced), then the seat is
// upserted by (external_id, game_code). A rejoin refreshes the profile and
// status but leaves the persisted territory count alone.
func (p *Postgres) UpsertPlayer(ctx context.Context, req models.JoinGameRequest, rules game.GameRules, ts time.Time) error {
	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}

	return pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		gq := `
		INSERT INTO games (id, code, phase, rules, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, 'lobby', $2, $3, $3)
		ON CONFLICT (code) DO UPDATE
		   SET updated_at = EXCLUDED.updated_at
		`
		if _, err := tx.Exec(ctx, gq, req.GameCode, rulesJSON, ts); err != nil {
			return fmt.Errorf("upsert game %s: %w", req.GameCode, err)
		}

		pq := `
		INSERT INTO game_players (
			external_id, game_code, name, color, role,
			status, territories, joined_at
		)
		VALUES ($1, $2, $3, $4, $5, 'online', 0, $6)
		ON CONFLICT (external_id, game_code) DO UPDATE
		   SET name   = EXCLUDED.name,
		       color  = EXCLUDED.color,
		       role   = EXCLUDED.role,
		       status = EXCLUDED.status
		`
		if _, err := tx.Exec(ctx, pq,
			req.Player.ID,
			req.GameCode,
			req.Player.Name,
			req.Player.Color,
			string(req.Player.Role),
			ts,
		); err != nil {
			return fmt.Errorf("upsert player %s in game %s: %w", req.Player.ID, req.GameCode, err)
		}
		return nil
	})
}
