package feed

import (
	"errors"
	"testing"

	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func posts(n int) []Post {
	out := make([]Post, n)
	for i := range out {
		out[i] = Post{ID: uuid.New()}
	}
	return out
}

func TestState_BeginGuards(t *testing.T) {
	s := NewState(2)
	s, err := s.Begin()
	require.NoError(t, err)
	require.True(t, s.Loading)

	_, err = s.Begin()
	require.ErrorIs(t, err, ErrBusy)

	s = s.Apply(posts(1), registrystore.PageInfo{HasNext: false})
	require.True(t, s.Exhausted)
	_, err = s.Begin()
	require.ErrorIs(t, err, ErrExhausted)
}

func TestState_ApplyAppendsAndDedupes(t *testing.T) {
	first := posts(2)
	s, _ := NewState(2).Begin()
	s = s.Apply(first, registrystore.PageInfo{HasNext: true})
	require.Equal(t, 1, s.Page)
	require.False(t, s.Exhausted)
	require.False(t, s.Loading)

	before := s
	second := append([]Post{first[1]}, posts(1)...)
	s, _ = s.Begin()
	s = s.Apply(second, registrystore.PageInfo{HasNext: true})
	require.Len(t, s.Posts, 3, "duplicate post skipped")
	require.Equal(t, 2, s.Page)
	require.False(t, s.Exhausted, "a full page with hasNext keeps the feed open")
	require.Len(t, before.Posts, 2, "earlier snapshot unchanged")
}

func TestState_ShortPageExhausts(t *testing.T) {
	s, _ := NewState(3).Begin()
	s = s.Apply(posts(2), registrystore.PageInfo{HasNext: true})
	require.True(t, s.Exhausted)
}

func TestState_FailStopsAutoLoad(t *testing.T) {
	s, _ := NewState(3).Begin()
	s = s.Fail(errors.New("boom"))
	require.False(t, s.Loading)
	require.False(t, s.CanAutoLoad())

	s, err := s.Begin()
	require.NoError(t, err)
	require.NoError(t, s.Err, "explicit retry clears the error")
}

func TestState_ToggleLikeAndRestore(t *testing.T) {
	p := Post{ID: uuid.New(), LikeCount: 4}
	s, _ := NewState(1).Begin()
	s = s.Apply([]Post{p}, registrystore.PageInfo{})

	liked, err := s.ToggleLike(p.ID)
	require.NoError(t, err)
	require.True(t, liked.Posts[0].IsLiked)
	require.EqualValues(t, 5, liked.Posts[0].LikeCount)
	require.False(t, s.Posts[0].IsLiked, "receiver unchanged")

	unliked, err := liked.ToggleLike(p.ID)
	require.NoError(t, err)
	require.False(t, unliked.Posts[0].IsLiked)
	require.EqualValues(t, 4, unliked.Posts[0].LikeCount)

	restored := liked.Restore(p)
	require.False(t, restored.Posts[0].IsLiked)
	require.EqualValues(t, 4, restored.Posts[0].LikeCount)

	_, err = s.ToggleLike(uuid.New())
	require.ErrorIs(t, err, ErrUnknownPost)
}

func TestNearBottom(t *testing.T) {
	require.True(t, NearBottom(Viewport{ScrollTop: 700, Height: 1000, ContentHeight: 2000}))
	require.True(t, NearBottom(Viewport{ScrollTop: 1000, Height: 1000, ContentHeight: 2000}))
	require.False(t, NearBottom(Viewport{ScrollTop: 699, Height: 1000, ContentHeight: 2000}))
}
