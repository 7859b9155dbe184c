package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chirino/social-service/internal/config"
	"github.com/chirino/social-service/internal/model"
	registrycache "github.com/chirino/social-service/internal/registry/cache"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const defaultTTL = 5 * time.Minute

func init() {
	registrycache.Register(registrycache.Plugin{
		Name:   "redis",
		Loader: load,
	})
}

func load(ctx context.Context) (registrycache.ProfileCache, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis cache: SOCIAL_SERVICE_REDIS_URL is required")
	}
	return LoadFromURLWithTTL(ctx, cfg.RedisURL, cfg.CacheProfileTTL)
}

// LoadFromURLWithTTL creates a ProfileCache from a Redis URL with a default entry TTL.
func LoadFromURLWithTTL(ctx context.Context, redisURL string, ttl time.Duration) (registrycache.ProfileCache, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis cache: invalid URL: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis cache: ping failed: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &redisProfileCache{client: client, ttl: ttl}, nil
}

type redisProfileCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func profileKey(id uuid.UUID) string {
	return "profile:" + id.String()
}

func (c *redisProfileCache) Available() bool {
	return true
}

func (c *redisProfileCache) Get(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.UserSummary, error) {
	out := make(map[uuid.UUID]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = profileKey(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var s model.UserSummary
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, nil
}

func (c *redisProfileCache) Set(ctx context.Context, summaries []model.UserSummary, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}
	_, err := c.client.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for _, s := range summaries {
			data, err := json.Marshal(s)
			if err != nil {
				return err
			}
			p.Set(ctx, profileKey(s.ID), data, ttl)
		}
		return nil
	})
	return err
}

func (c *redisProfileCache) Remove(ctx context.Context, id uuid.UUID) error {
	err := c.client.Del(ctx, profileKey(id)).Err()
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	return err
}

var _ registrycache.ProfileCache = (*redisProfileCache)(nil)
