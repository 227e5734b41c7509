// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/netrisk/netrisk-service/internal/models"
)

// Rdb is the global Redis client. Connect it once at application startup;
// a nil client means the lobby event feed is disabled.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for lobby snapshot events.
var DefaultQueueName = "netrisk_lobby_events"

// LobbyEventRecord is one reconciled snapshot pushed onto the feed for
// external consumers (dashboards, replay tooling).
type LobbyEventRecord struct {
	Event     string           `json:"event"`
	Game      models.GameState `json:"game"`
	Timestamp int64            `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		Rdb = nil
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishLobbyUpdate serializes the snapshot and pushes it onto the feed
// queue. No-op when the feed is disabled. Callers treat failures as
// best-effort; a push error never affects the lobby protocol.
func PublishLobbyUpdate(ctx context.Context, state models.GameState) error {
	if Rdb == nil {
		return nil
	}

	record := LobbyEventRecord{
		Event:     "lobby:update",
		Game:      state,
		Timestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal LobbyEventRecord: %w", err)
	}

	queueName := getEnv("LOBBY_FEED_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
