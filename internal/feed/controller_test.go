package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type pagedFetcher struct {
	all   []Post
	calls atomic.Int32
	err   error
	block chan struct{}
}

func (f *pagedFetcher) FetchPage(ctx context.Context, page, limit int) ([]Post, registrystore.PageInfo, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, registrystore.PageInfo{}, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, registrystore.PageInfo{}, f.err
	}
	p := registrystore.PageRequest{Page: page, Limit: limit}
	start := min(p.Offset(), len(f.all))
	end := min(p.Window(), len(f.all))
	return f.all[start:end], registrystore.NewPageInfo(p, int64(len(f.all))), nil
}

func TestController_LoadsUntilExhausted(t *testing.T) {
	f := &pagedFetcher{all: posts(5)}
	c := NewController(context.Background(), f, nil, 2, time.Second)
	defer c.Close()

	require.NoError(t, c.LoadMore())
	require.NoError(t, c.LoadMore())
	require.NoError(t, c.LoadMore())
	s := c.State()
	require.Len(t, s.Posts, 5)
	require.Equal(t, f.all, s.Posts, "pages appended in fetch order")
	require.True(t, s.Exhausted)

	require.ErrorIs(t, c.LoadMore(), ErrExhausted)
	require.EqualValues(t, 3, f.calls.Load())
}

func TestController_InFlightGuard(t *testing.T) {
	f := &pagedFetcher{all: posts(4), block: make(chan struct{})}
	c := NewController(context.Background(), f, nil, 2, 0)
	defer c.Close()

	done := make(chan error, 1)
	go func() { done <- c.LoadMore() }()
	require.Eventually(t, func() bool { return c.State().Loading }, time.Second, time.Millisecond)

	require.ErrorIs(t, c.LoadMore(), ErrBusy)
	require.NoError(t, c.OnScroll(Viewport{ContentHeight: 100}), "scroll while loading is ignored")

	close(f.block)
	require.NoError(t, <-done)
	require.Len(t, c.State().Posts, 2)
	require.EqualValues(t, 1, f.calls.Load())
}

func TestController_TimeoutStopsAutoLoadUntilRetry(t *testing.T) {
	f := &pagedFetcher{all: posts(2), block: make(chan struct{})}
	c := NewController(context.Background(), f, nil, 2, 10*time.Millisecond)
	defer c.Close()

	err := c.LoadMore()
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, c.State().Err, ErrTimeout)

	require.NoError(t, c.OnScroll(Viewport{ContentHeight: 100}))
	require.EqualValues(t, 1, f.calls.Load(), "no auto-load after a failure")

	close(f.block)
	require.NoError(t, c.Retry())
	require.Len(t, c.State().Posts, 2)
}

func TestController_OnScrollFarFromBottom(t *testing.T) {
	f := &pagedFetcher{all: posts(2)}
	c := NewController(context.Background(), f, nil, 2, 0)
	defer c.Close()

	require.NoError(t, c.OnScroll(Viewport{ScrollTop: 0, Height: 500, ContentHeight: 5000}))
	require.EqualValues(t, 0, f.calls.Load())

	require.NoError(t, c.OnScroll(Viewport{ScrollTop: 4500, Height: 500, ContentHeight: 5000}))
	require.EqualValues(t, 1, f.calls.Load())
}

func TestController_CloseDiscardsLateResults(t *testing.T) {
	f := &pagedFetcher{all: posts(2), block: make(chan struct{})}
	c := NewController(context.Background(), f, nil, 2, 0)

	done := make(chan error, 1)
	go func() { done <- c.LoadMore() }()
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)

	c.Close()
	require.ErrorIs(t, <-done, ErrClosed)
	require.Empty(t, c.State().Posts)
	require.ErrorIs(t, c.LoadMore(), ErrClosed)
}

type fakeLiker struct {
	err     error
	during  func()
	liked   []uuid.UUID
	unliked []uuid.UUID
}

func (l *fakeLiker) Like(_ context.Context, id uuid.UUID) error {
	if l.during != nil {
		l.during()
	}
	l.liked = append(l.liked, id)
	return l.err
}

func (l *fakeLiker) Unlike(_ context.Context, id uuid.UUID) error {
	if l.during != nil {
		l.during()
	}
	l.unliked = append(l.unliked, id)
	return l.err
}

func TestController_OptimisticLike(t *testing.T) {
	p := Post{ID: uuid.New(), LikeCount: 1}
	f := &pagedFetcher{all: []Post{p}}
	l := &fakeLiker{}
	c := NewController(context.Background(), f, l, 10, time.Second)
	defer c.Close()
	require.NoError(t, c.LoadMore())

	l.during = func() {
		got, _ := c.State().Find(p.ID)
		require.True(t, got.IsLiked, "applied before the request completes")
		require.EqualValues(t, 2, got.LikeCount)
		require.ErrorIs(t, c.ToggleLike(p.ID), ErrBusy)
	}
	require.NoError(t, c.ToggleLike(p.ID))
	require.Equal(t, []uuid.UUID{p.ID}, l.liked)

	l.during = nil
	require.NoError(t, c.ToggleLike(p.ID))
	require.Equal(t, []uuid.UUID{p.ID}, l.unliked)
	got, _ := c.State().Find(p.ID)
	require.False(t, got.IsLiked)
	require.EqualValues(t, 1, got.LikeCount)
}

func TestController_LikeFailureRollsBack(t *testing.T) {
	p := Post{ID: uuid.New(), LikeCount: 3}
	c := NewController(context.Background(), &pagedFetcher{all: []Post{p}}, &fakeLiker{err: errors.New("conflict")}, 10, 0)
	defer c.Close()
	require.NoError(t, c.LoadMore())

	require.ErrorContains(t, c.ToggleLike(p.ID), "conflict")
	got, _ := c.State().Find(p.ID)
	require.False(t, got.IsLiked)
	require.EqualValues(t, 3, got.LikeCount)

	require.ErrorIs(t, c.ToggleLike(uuid.New()), ErrUnknownPost)
}
