package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/taskforge/taskforge-backend/internal/platform/logger"
)

// RetentionQueue tracks attachments whose version chains changed since
// the last sweep, so out-of-band sweeps can skip the untouched ones.
// It is an optimization hint only: losing marks never loses data, a
// full sweep over all attachments reaches the same end state.
type RetentionQueue interface {
	Mark(ctx context.Context, attachmentID uuid.UUID) error
	Drain(ctx context.Context, max int) ([]uuid.UUID, error)
	Close() error
}

type redisRetentionQueue struct {
	log *logger.Logger
	rdb *redis.Client
	key string
}

func NewRedisRetentionQueue(log *logger.Logger) (RetentionQueue, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	key := strings.TrimSpace(os.Getenv("RETENTION_QUEUE_KEY"))
	if key == "" {
		key = "retention:dirty"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisRetentionQueue{
		log: log.With("service", "RedisRetentionQueue"),
		rdb: rdb,
		key: key,
	}, nil
}

func (q *redisRetentionQueue) Mark(ctx context.Context, attachmentID uuid.UUID) error {
	return q.rdb.SAdd(ctx, q.key, attachmentID.String()).Err()
}

// Drain pops up to max marked attachments. Malformed members are
// logged and skipped rather than failing the drain.
func (q *redisRetentionQueue) Drain(ctx context.Context, max int) ([]uuid.UUID, error) {
	if max < 1 {
		return nil, nil
	}
	members, err := q.rdb.SPopN(ctx, q.key, int64(max)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis spop: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			q.log.Warn("bad retention queue member", "member", m, "error", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (q *redisRetentionQueue) Close() error {
	if q == nil || q.rdb == nil {
		return nil
	}
	return q.rdb.Close()
}
