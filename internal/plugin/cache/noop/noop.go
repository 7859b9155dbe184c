package noop

import (
	"context"
	"time"

	"github.com/chirino/social-service/internal/model"
	"github.com/chirino/social-service/internal/registry/cache"
	"github.com/google/uuid"
)

func init() {
	cache.Register(cache.Plugin{
		Name: "none",
		Loader: func(ctx context.Context) (cache.ProfileCache, error) {
			return &noopProfileCache{}, nil
		},
	})
}

type noopProfileCache struct{}

func (n *noopProfileCache) Available() bool { return false }
func (n *noopProfileCache) Get(_ context.Context, _ []uuid.UUID) (map[uuid.UUID]model.UserSummary, error) {
	return map[uuid.UUID]model.UserSummary{}, nil
}
func (n *noopProfileCache) Set(_ context.Context, _ []model.UserSummary, _ time.Duration) error {
	return nil
}
func (n *noopProfileCache) Remove(_ context.Context, _ uuid.UUID) error { return nil }

var _ cache.ProfileCache = (*noopProfileCache)(nil)
