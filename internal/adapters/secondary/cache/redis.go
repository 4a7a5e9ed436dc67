package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRelationCache est le cache look-aside du booléen "A suit B".
// Clé : following:{follower}:{following}, valeur "1"/"0", TTL court.
// Un miss (clé absente ou Redis down) tombe sur le store sans retry.
type RedisRelationCache struct {
	client *redis.Client
}

func NewRedisRelationCache(client *redis.Client) *RedisRelationCache {
	return &RedisRelationCache{client: client}
}

func relationKey(followerID, followingID string) string {
	return fmt.Sprintf("following:%s:%s", followerID, followingID)
}

func (c *RedisRelationCache) GetFollowing(ctx context.Context, followerID, followingID string) (bool, bool) {
	val, err := c.client.Get(ctx, relationKey(followerID, followingID)).Result()
	if err != nil {
		// redis.Nil = miss normal, tout le reste = dégradation silencieuse
		if err != redis.Nil {
			slog.Warn("⚠️ Relation cache read failed", "error", err)
		}
		return false, false
	}
	return val == "1", true
}

func (c *RedisRelationCache) SetFollowing(ctx context.Context, followerID, followingID string, value bool, ttl time.Duration) {
	val := "0"
	if value {
		val = "1"
	}
	if err := c.client.Set(ctx, relationKey(followerID, followingID), val, ttl).Err(); err != nil {
		slog.Warn("⚠️ Relation cache write failed", "error", err)
	}
}

func (c *RedisRelationCache) InvalidatePair(ctx context.Context, followerID, followingID string) {
	if err := c.client.Del(ctx, relationKey(followerID, followingID)).Err(); err != nil {
		slog.Warn("⚠️ Relation cache invalidation failed", "error", err)
	}
}

// RedisInvalidator purge les clés dérivées d'un user quand son graphe bouge :
// compteurs et timeline matérialisée. Le prochain lecteur repeuple.
type RedisInvalidator struct {
	client *redis.Client
}

func NewRedisInvalidator(client *redis.Client) *RedisInvalidator {
	return &RedisInvalidator{client: client}
}

func (i *RedisInvalidator) InvalidateUser(ctx context.Context, userID string) error {
	pipe := i.client.Pipeline()

	// 1. Compteurs follower/following
	pipe.Del(ctx, fmt.Sprintf("followers:count:%s", userID))
	pipe.Del(ctx, fmt.Sprintf("following:count:%s", userID))
	// 2. Timeline matérialisée (le feed la reconstruit au prochain accès)
	pipe.Del(ctx, fmt.Sprintf("timeline:%s", userID))

	_, err := pipe.Exec(ctx)
	return err
}
