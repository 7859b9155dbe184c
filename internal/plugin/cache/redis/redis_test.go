package redis

import (
	"context"
	"testing"
	"time"

	"github.com/chirino/social-service/internal/model"
	"github.com/chirino/social-service/internal/testutil/testredis"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRedisProfileCache(t *testing.T) {
	url := testredis.StartRedis(t)
	ctx := context.Background()

	c, err := LoadFromURLWithTTL(ctx, url, time.Minute)
	require.NoError(t, err)
	require.True(t, c.Available())

	avatar := "https://cdn.example.com/a.png"
	alice := model.UserSummary{ID: uuid.New(), Username: "alice", FullName: "Alice", AvatarURL: &avatar}
	require.NoError(t, c.Set(ctx, []model.UserSummary{alice}, 0))

	missing := uuid.New()
	got, err := c.Get(ctx, []uuid.UUID{alice.ID, missing})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, alice, got[alice.ID])

	require.NoError(t, c.Remove(ctx, alice.ID))
	got, err = c.Get(ctx, []uuid.UUID{alice.ID})
	require.NoError(t, err)
	require.Empty(t, got)
}
