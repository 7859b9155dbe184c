package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chirino/social-service/internal/model"
	"github.com/chirino/social-service/internal/security"
	"github.com/google/uuid"
)

type profileCacheKey struct{}

// WithContext returns a new context carrying the given ProfileCache.
func WithContext(ctx context.Context, c ProfileCache) context.Context {
	return context.WithValue(ctx, profileCacheKey{}, c)
}

// FromContext retrieves the ProfileCache from the context.
// Returns nil if none was set.
func FromContext(ctx context.Context) ProfileCache {
	c, _ := ctx.Value(profileCacheKey{}).(ProfileCache)
	return c
}

// ProfileCache caches user display summaries, which are attached to nearly every
// response and change rarely.
type ProfileCache interface {
	Available() bool
	// Get returns the cached summaries for ids; missing ids are absent from the map.
	Get(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.UserSummary, error)
	Set(ctx context.Context, summaries []model.UserSummary, ttl time.Duration) error
	Remove(ctx context.Context, id uuid.UUID) error
}

// SummaryLoader loads summaries from the backing store.
type SummaryLoader func(ctx context.Context, ids []uuid.UUID) ([]model.UserSummary, error)

// Summaries resolves ids through the cache, loading and back-filling misses with
// load. Cache failures are logged and fall through to the loader.
func Summaries(ctx context.Context, c ProfileCache, ttl time.Duration, ids []uuid.UUID, load SummaryLoader) (map[uuid.UUID]model.UserSummary, error) {
	found := map[uuid.UUID]model.UserSummary{}
	if c != nil && c.Available() && len(ids) > 0 {
		cached, err := c.Get(ctx, ids)
		if err != nil {
			log.Warn("Profile cache read failed", "err", err)
		} else {
			found = cached
		}
	}

	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	recordLookups(len(ids)-len(missing), len(missing))
	if len(missing) == 0 {
		return found, nil
	}

	loaded, err := load(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, s := range loaded {
		found[s.ID] = s
	}
	if c != nil && c.Available() && len(loaded) > 0 {
		if err := c.Set(ctx, loaded, ttl); err != nil {
			log.Warn("Profile cache write failed", "err", err)
		}
	}
	return found, nil
}

func recordLookups(hits, misses int) {
	if security.CacheHitsTotal == nil {
		return
	}
	security.CacheHitsTotal.Add(float64(hits))
	security.CacheMissesTotal.Add(float64(misses))
}

// Loader creates a cache from config.
type Loader func(ctx context.Context) (ProfileCache, error)

// Plugin represents a cache plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a cache plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered cache plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named cache plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown cache %q; valid: %v", name, Names())
}
