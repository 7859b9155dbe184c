// Package feed drives an incrementally loaded list of posts: a profile feed or
// the saved-posts feed. State is a value with pure transitions; Controller adds
// the in-flight guard, cancellation and timeouts around a Fetcher.
package feed

import (
	"errors"
	"slices"

	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/google/uuid"
)

// ScrollThreshold is how close to the bottom, in pixels, the viewport must be
// before the next page is loaded.
const ScrollThreshold = 300

var (
	// ErrBusy is returned when a load (or a like request for the same post) is already in flight.
	ErrBusy = errors.New("feed: request already in flight")
	// ErrExhausted is returned once the last page has been loaded.
	ErrExhausted = errors.New("feed: no more posts")
	// ErrTimeout is returned when a request exceeds the controller's timeout.
	ErrTimeout = errors.New("feed: request timed out")
	// ErrClosed is returned after Close; late results are discarded.
	ErrClosed = errors.New("feed: closed")
	// ErrUnknownPost is returned when liking a post that is not in the feed.
	ErrUnknownPost = errors.New("feed: post not loaded")
)

// Post is one feed item.
type Post = registrystore.PostView

// State is an immutable snapshot of the feed. Transitions return a new State and
// never modify the receiver's Posts slice.
type State struct {
	Posts     []Post
	Page      int // last page applied; 0 before the first load
	Limit     int
	Loading   bool
	Exhausted bool
	Err       error
}

// NewState returns the idle state of an empty feed loading limit posts per page.
func NewState(limit int) State {
	if limit < 1 {
		limit = registrystore.DefaultPageLimit
	}
	return State{Limit: limit}
}

// NextPage is the page the next load will request.
func (s State) NextPage() int { return s.Page + 1 }

// CanAutoLoad reports whether a scroll trigger may start a load. A failed load
// stops auto-loading until an explicit retry.
func (s State) CanAutoLoad() bool {
	return !s.Loading && !s.Exhausted && s.Err == nil
}

// Begin moves to Loading. It fails with ErrBusy while a load is in flight and
// with ErrExhausted once the feed is terminal.
func (s State) Begin() (State, error) {
	if s.Loading {
		return s, ErrBusy
	}
	if s.Exhausted {
		return s, ErrExhausted
	}
	s.Loading = true
	s.Err = nil
	return s, nil
}

// Apply appends a fetched page. Posts already present are skipped. The feed is
// exhausted when the page is short or the server reports no next page.
func (s State) Apply(rows []Post, info registrystore.PageInfo) State {
	seen := make(map[uuid.UUID]struct{}, len(s.Posts))
	for _, p := range s.Posts {
		seen[p.ID] = struct{}{}
	}
	posts := slices.Clip(s.Posts)
	for _, p := range rows {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		posts = append(posts, p)
	}
	s.Posts = posts
	s.Page++
	s.Loading = false
	s.Err = nil
	s.Exhausted = len(rows) < s.Limit || !info.HasNext
	return s
}

// Fail records a failed load.
func (s State) Fail(err error) State {
	s.Loading = false
	s.Err = err
	return s
}

// Find returns the loaded post with id.
func (s State) Find(id uuid.UUID) (Post, bool) {
	i := s.index(id)
	if i < 0 {
		return Post{}, false
	}
	return s.Posts[i], true
}

func (s State) index(id uuid.UUID) int {
	return slices.IndexFunc(s.Posts, func(p Post) bool { return p.ID == id })
}

// ToggleLike flips the post's like state and adjusts its like count.
func (s State) ToggleLike(id uuid.UUID) (State, error) {
	i := s.index(id)
	if i < 0 {
		return s, ErrUnknownPost
	}
	p := s.Posts[i]
	if p.IsLiked {
		p.IsLiked = false
		p.LikeCount = max(p.LikeCount-1, 0)
	} else {
		p.IsLiked = true
		p.LikeCount++
	}
	return s.replace(i, p), nil
}

// Restore puts back the like state of a snapshot taken before an optimistic
// mutation. Other fields of the current post are kept.
func (s State) Restore(snapshot Post) State {
	i := s.index(snapshot.ID)
	if i < 0 {
		return s
	}
	p := s.Posts[i]
	p.IsLiked = snapshot.IsLiked
	p.LikeCount = snapshot.LikeCount
	return s.replace(i, p)
}

func (s State) replace(i int, p Post) State {
	posts := slices.Clone(s.Posts)
	posts[i] = p
	s.Posts = posts
	return s
}

// Viewport describes the scroll position of the rendered list.
type Viewport struct {
	ScrollTop     float64
	Height        float64
	ContentHeight float64
}

// NearBottom reports whether the viewport is within ScrollThreshold of the end.
func NearBottom(v Viewport) bool {
	return v.ContentHeight-(v.ScrollTop+v.Height) <= ScrollThreshold
}
