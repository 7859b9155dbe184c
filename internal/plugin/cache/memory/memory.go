package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/chirino/social-service/internal/config"
	"github.com/chirino/social-service/internal/model"
	registrycache "github.com/chirino/social-service/internal/registry/cache"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"
)

func init() {
	registrycache.Register(registrycache.Plugin{
		Name:   "memory",
		Loader: load,
	})
}

func load(ctx context.Context) (registrycache.ProfileCache, error) {
	cfg := config.FromContext(ctx)
	maxEntries := int64(10_000)
	ttl := 5 * time.Minute
	if cfg != nil {
		if cfg.CacheMemoryMaxEntries > 0 {
			maxEntries = cfg.CacheMemoryMaxEntries
		}
		if cfg.CacheProfileTTL > 0 {
			ttl = cfg.CacheProfileTTL
		}
	}
	return New(maxEntries, ttl)
}

// New creates an in-process profile cache holding up to maxEntries summaries.
func New(maxEntries int64, ttl time.Duration) (*ProfileCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, model.UserSummary]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("memory cache: %w", err)
	}
	return &ProfileCache{cache: c, ttl: ttl}, nil
}

// ProfileCache is a ristretto-backed registrycache.ProfileCache. Every entry has cost 1.
type ProfileCache struct {
	cache *ristretto.Cache[string, model.UserSummary]
	ttl   time.Duration
}

func (c *ProfileCache) Available() bool { return true }

func (c *ProfileCache) Get(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.UserSummary, error) {
	out := make(map[uuid.UUID]model.UserSummary, len(ids))
	for _, id := range ids {
		if s, ok := c.cache.Get(id.String()); ok {
			out[id] = s
		}
	}
	return out, nil
}

func (c *ProfileCache) Set(_ context.Context, summaries []model.UserSummary, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}
	for _, s := range summaries {
		c.cache.SetWithTTL(s.ID.String(), s, 1, ttl)
	}
	// Make writes visible to the next Get.
	c.cache.Wait()
	return nil
}

func (c *ProfileCache) Remove(_ context.Context, id uuid.UUID) error {
	c.cache.Del(id.String())
	return nil
}

// Close stops the cache's background goroutines.
func (c *ProfileCache) Close() {
	c.cache.Close()
}

var _ registrycache.ProfileCache = (*ProfileCache)(nil)
