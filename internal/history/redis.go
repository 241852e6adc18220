package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aerodesk-ai/aerodesk/config"
	"github.com/aerodesk-ai/aerodesk/types"
)

// RedisStore keeps session history in a Redis list per session, newest
// at the head. Entries are JSON-encoded messages; each write trims the
// list to the retention cap and refreshes the session TTL.
type RedisStore struct {
	client      *redis.Client
	maxMessages int
	ttl         time.Duration
	logger      *zap.Logger
}

// NewRedisStore connects to Redis and returns a history store.
func NewRedisStore(cfg config.RedisConfig, hist config.HistoryConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	maxMessages := hist.MaxMessages
	if maxMessages <= 0 {
		maxMessages = 10
	}

	logger.Info("redis history store initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("max_messages", maxMessages))

	return &RedisStore{
		client:      client,
		maxMessages: maxMessages,
		ttl:         hist.TTL,
		logger:      logger.With(zap.String("component", "history")),
	}, nil
}

func sessionKey(sessionID string) string {
	return "aerodesk:history:" + sessionID
}

// Append pushes messages onto the session list and trims it.
func (s *RedisStore) Append(ctx context.Context, sessionID string, messages ...types.Message) error {
	if sessionID == "" || len(messages) == 0 {
		return nil
	}

	key := sessionKey(sessionID)
	values := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		values = append(values, b)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, values...)
	pipe.LTrim(ctx, key, 0, int64(s.maxMessages-1))
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("history append failed", zap.String("session", sessionID), zap.Error(err))
		return fmt.Errorf("history append failed: %w", err)
	}
	return nil
}

// Recent returns up to limit most recent messages, oldest first.
func (s *RedisStore) Recent(ctx context.Context, sessionID string, limit int) ([]types.Message, error) {
	if sessionID == "" || limit <= 0 {
		return nil, nil
	}
	if limit > s.maxMessages {
		limit = s.maxMessages
	}

	raw, err := s.client.LRange(ctx, sessionKey(sessionID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("history read failed: %w", err)
	}

	// The list is newest-first; reverse into chronological order.
	out := make([]types.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var m types.Message
		if err := json.Unmarshal([]byte(raw[i]), &m); err != nil {
			s.logger.Warn("skipping malformed history entry",
				zap.String("session", sessionID), zap.Error(err))
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Clear removes the session's history.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("history clear failed: %w", err)
	}
	return nil
}

// Ping checks the Redis connection, for readiness probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
