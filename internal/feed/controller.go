package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/google/uuid"
)

// Fetcher loads one page of posts.
type Fetcher interface {
	FetchPage(ctx context.Context, page, limit int) ([]Post, registrystore.PageInfo, error)
}

// Liker sends like and unlike requests.
type Liker interface {
	Like(ctx context.Context, postID uuid.UUID) error
	Unlike(ctx context.Context, postID uuid.UUID) error
}

// Controller owns a State and serialises the requests that change it. It is
// safe for concurrent use.
type Controller struct {
	fetcher Fetcher
	liker   Liker
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	state  State
	liking map[uuid.UUID]bool
}

// NewController creates a controller for a feed of limit posts per page. Every
// request is bounded by timeout when it is positive. liker may be nil for a
// read-only feed.
func NewController(ctx context.Context, fetcher Fetcher, liker Liker, limit int, timeout time.Duration) *Controller {
	ctx, cancel := context.WithCancel(ctx)
	return &Controller{
		fetcher: fetcher,
		liker:   liker,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		state:   NewState(limit),
		liking:  map[uuid.UUID]bool{},
	}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close abandons in-flight requests. Their results are discarded.
func (c *Controller) Close() {
	c.cancel()
}

func (c *Controller) requestContext() (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(c.ctx, c.timeout)
	}
	return context.WithCancel(c.ctx)
}

// classify maps a request error to the controller's error kinds.
func (c *Controller) classify(err error) error {
	switch {
	case c.ctx.Err() != nil:
		return ErrClosed
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Join(ErrTimeout, err)
	default:
		return err
	}
}

// LoadMore fetches and appends the next page. Only one load runs at a time;
// overlapping calls fail with ErrBusy.
func (c *Controller) LoadMore() error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	c.mu.Lock()
	next, err := c.state.Begin()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = next
	page, limit := next.NextPage(), next.Limit
	c.mu.Unlock()

	ctx, cancel := c.requestContext()
	rows, info, err := c.fetcher.FetchPage(ctx, page, limit)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	if err != nil {
		err = c.classify(err)
		c.state = c.state.Fail(err)
		return err
	}
	c.state = c.state.Apply(rows, info)
	return nil
}

// OnScroll loads the next page when the viewport is near the bottom and the
// feed may auto-load. It is a no-op otherwise.
func (c *Controller) OnScroll(v Viewport) error {
	if !NearBottom(v) || !c.State().CanAutoLoad() {
		return nil
	}
	err := c.LoadMore()
	if errors.Is(err, ErrBusy) || errors.Is(err, ErrExhausted) {
		return nil
	}
	return err
}

// Retry resumes loading after a failure.
func (c *Controller) Retry() error {
	return c.LoadMore()
}

// ToggleLike optimistically flips the like state of a loaded post and sends the
// matching request. If the request fails the post's previous like state is
// restored and the error returned.
func (c *Controller) ToggleLike(postID uuid.UUID) error {
	if c.liker == nil {
		return errors.New("feed: likes are not supported")
	}
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	c.mu.Lock()
	if c.liking[postID] {
		c.mu.Unlock()
		return ErrBusy
	}
	snapshot, ok := c.state.Find(postID)
	if !ok {
		c.mu.Unlock()
		return ErrUnknownPost
	}
	next, _ := c.state.ToggleLike(postID)
	c.state = next
	c.liking[postID] = true
	c.mu.Unlock()

	ctx, cancel := c.requestContext()
	var err error
	if snapshot.IsLiked {
		err = c.liker.Unlike(ctx, postID)
	} else {
		err = c.liker.Like(ctx, postID)
	}
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.liking, postID)
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	if err != nil {
		c.state = c.state.Restore(snapshot)
		return c.classify(err)
	}
	return nil
}
