package memory

import (
	"context"
	"testing"
	"time"

	"github.com/chirino/social-service/internal/model"
	registrycache "github.com/chirino/social-service/internal/registry/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestProfileCache_SetGetRemove(t *testing.T) {
	c, err := New(100, time.Minute)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	alice := model.UserSummary{ID: uuid.New(), Username: "alice", FullName: "Alice"}
	bob := model.UserSummary{ID: uuid.New(), Username: "bob", FullName: "Bob"}
	require.NoError(t, c.Set(ctx, []model.UserSummary{alice, bob}, 0))

	got, err := c.Get(ctx, []uuid.UUID{alice.ID, bob.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, alice, got[alice.ID])

	require.NoError(t, c.Remove(ctx, alice.ID))
	got, err = c.Get(ctx, []uuid.UUID{alice.ID})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSummaries_BackfillsMisses(t *testing.T) {
	c, err := New(100, time.Minute)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	cached := model.UserSummary{ID: uuid.New(), Username: "cached"}
	require.NoError(t, c.Set(ctx, []model.UserSummary{cached}, 0))
	fresh := model.UserSummary{ID: uuid.New(), Username: "fresh"}

	var asked []uuid.UUID
	loader := func(_ context.Context, ids []uuid.UUID) ([]model.UserSummary, error) {
		asked = append(asked, ids...)
		return []model.UserSummary{fresh}, nil
	}

	got, err := registrycache.Summaries(ctx, c, 0, []uuid.UUID{cached.ID, fresh.ID}, loader)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{fresh.ID}, asked)
	require.Equal(t, "cached", got[cached.ID].Username)
	require.Equal(t, "fresh", got[fresh.ID].Username)

	asked = nil
	_, err = registrycache.Summaries(ctx, c, 0, []uuid.UUID{fresh.ID}, loader)
	require.NoError(t, err)
	require.Empty(t, asked, "second lookup is served from cache")
}
