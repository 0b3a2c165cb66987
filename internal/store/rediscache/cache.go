// Package rediscache caches rendered per-user bookmark lists in Redis.
// The cache is a read-path optimization only: every accepted write
// invalidates the owner's entry, and the database stays the source of
// truth. All operations are best effort.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/favbox/favbox/internal/domain"
	"github.com/favbox/favbox/internal/logger"
)

const keyPrefixUserList = "favbox:bookmarks:user:"

// DefaultTTL bounds staleness if an invalidation is ever lost.
const DefaultTTL = 5 * time.Minute

type ConnectOptions struct {
	Addr     string
	User     string
	Password string
	DB       int
}

// Connect opens a Redis client and verifies it with a ping.
func Connect(ctx context.Context, opts ConnectOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.User,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func New(client *redis.Client, ttl time.Duration, log logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl, logger: log}
}

func userListKey(userID int64) string {
	return keyPrefixUserList + strconv.FormatInt(userID, 10)
}

// GetList returns the cached list for the user, or (nil, false) on miss.
func (c *Cache) GetList(ctx context.Context, userID int64) ([]*domain.Bookmark, bool) {
	data, err := c.client.Get(ctx, userListKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("cache get failed", logger.Int64("user_id", userID), logger.Error(err))
		}
		return nil, false
	}

	var bookmarks []*domain.Bookmark
	if err := json.Unmarshal(data, &bookmarks); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", logger.Int64("user_id", userID), logger.Error(err))
		_ = c.client.Del(ctx, userListKey(userID)).Err()
		return nil, false
	}
	return bookmarks, true
}

// SetList stores the user's list with the configured TTL.
func (c *Cache) SetList(ctx context.Context, userID int64, bookmarks []*domain.Bookmark) {
	data, err := json.Marshal(bookmarks)
	if err != nil {
		c.logger.Warn("failed to marshal cache entry", logger.Int64("user_id", userID), logger.Error(err))
		return
	}
	if err := c.client.Set(ctx, userListKey(userID), data, c.ttl).Err(); err != nil {
		c.logger.Debug("cache set failed", logger.Int64("user_id", userID), logger.Error(err))
	}
}

// Invalidate drops the user's cached list.
func (c *Cache) Invalidate(ctx context.Context, userID int64) {
	if err := c.client.Del(ctx, userListKey(userID)).Err(); err != nil {
		c.logger.Debug("cache invalidate failed", logger.Int64("user_id", userID), logger.Error(err))
	}
}
