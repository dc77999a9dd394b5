package notification

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const presenceKeyPrefix = "presence:"

// presenceTTL bounds how long a binding can outlive a crashed process.
const presenceTTL = 24 * time.Hour

// RedisRegistry is a PresenceRegistry backed by Redis, for deployments
// where the websocket tier runs more than one process.
type RedisRegistry struct {
	client *redis.Client
}

// NewRedisRegistry builds a registry over the given Redis client.
func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

func (r *RedisRegistry) Set(userID, connID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Set(ctx, presenceKeyPrefix+userID, connID, presenceTTL).Err(); err != nil {
		zap.L().Warn("presence set failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (r *RedisRegistry) Get(userID string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	connID, err := r.client.Get(ctx, presenceKeyPrefix+userID).Result()
	if err != nil {
		return "", false
	}
	return connID, true
}

func (r *RedisRegistry) Delete(userID, connID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cur, err := r.client.Get(ctx, presenceKeyPrefix+userID).Result()
	if err != nil || cur != connID {
		return
	}
	if err := r.client.Del(ctx, presenceKeyPrefix+userID).Err(); err != nil {
		zap.L().Warn("presence delete failed", zap.String("user_id", userID), zap.Error(err))
	}
}
