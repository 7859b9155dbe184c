// Package conversations builds a user's conversation list by merging the newest
// message of every direct thread and every group thread the user belongs to.
package conversations

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"github.com/chirino/social-service/internal/model"
	registrycache "github.com/chirino/social-service/internal/registry/cache"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/google/uuid"
)

// Conversation kinds.
const (
	KindDirect = "direct"
	KindGroup  = "group"
)

// Conversation is one row of the conversation list.
type Conversation struct {
	Kind        string                      `json:"type"`
	User        *model.UserSummary          `json:"user,omitempty"`
	Group       *registrystore.GroupSummary `json:"group,omitempty"`
	LastMessage model.Message               `json:"lastMessage"`
}

// Pagination is the page metadata of a conversation list. HasMore is derived
// from the heads fetched for this page rather than a total count.
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

// Page is one page of conversations, newest first.
type Page struct {
	Conversations []Conversation `json:"conversations"`
	Pagination    Pagination     `json:"pagination"`
}

// HeadSource supplies thread heads and user summaries.
type HeadSource interface {
	ListDirectThreadHeads(ctx context.Context, userID uuid.UUID, limit int) ([]registrystore.ThreadHead, error)
	ListGroupThreadHeads(ctx context.Context, userID uuid.UUID, limit int) ([]registrystore.ThreadHead, error)
	GetUserSummaries(ctx context.Context, userIDs []uuid.UUID) ([]model.UserSummary, error)
}

// Aggregator lists conversations. The profile cache is optional.
type Aggregator struct {
	source   HeadSource
	profiles registrycache.ProfileCache
	ttl      time.Duration
}

// NewAggregator creates an Aggregator. profiles may be nil.
func NewAggregator(source HeadSource, profiles registrycache.ProfileCache, ttl time.Duration) *Aggregator {
	return &Aggregator{source: source, profiles: profiles, ttl: ttl}
}

// List returns page of userID's conversations.
func (a *Aggregator) List(ctx context.Context, userID uuid.UUID, page registrystore.PageRequest) (*Page, error) {
	// One head past the window from each source decides whether anything
	// follows this page.
	fetch := page.Window() + 1
	direct, err := a.source.ListDirectThreadHeads(ctx, userID, fetch)
	if err != nil {
		return nil, err
	}
	groups, err := a.source.ListGroupThreadHeads(ctx, userID, fetch)
	if err != nil {
		return nil, err
	}

	merged := Merge(direct, groups)
	rows := Window(merged, page)

	var userIDs []uuid.UUID
	for _, h := range rows {
		if h.Group == nil {
			userIDs = append(userIDs, h.CounterpartID)
		}
	}
	users, err := registrycache.Summaries(ctx, a.profiles, a.ttl, userIDs, a.source.GetUserSummaries)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation counterparts: %w", err)
	}

	out := make([]Conversation, 0, len(rows))
	for _, h := range rows {
		c := Conversation{LastMessage: h.Message}
		if h.Group != nil {
			c.Kind = KindGroup
			c.Group = h.Group
		} else {
			c.Kind = KindDirect
			u, ok := users[h.CounterpartID]
			if !ok {
				// A page always holds its full window of rows.
				return nil, fmt.Errorf("conversation counterpart %s not found", h.CounterpartID)
			}
			c.User = &u
		}
		out = append(out, c)
	}

	return &Page{
		Conversations: out,
		Pagination: Pagination{
			Page:    page.Page,
			Limit:   page.Limit,
			HasMore: len(merged) > page.Window(),
		},
	}, nil
}

// Merge combines two head lists, each already sorted newest first, into one list
// ordered by createdAt descending with the higher message id first on ties.
func Merge(a, b []registrystore.ThreadHead) []registrystore.ThreadHead {
	out := make([]registrystore.ThreadHead, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if newer(a[i], b[j]) >= 0 {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// newer is positive when x sorts before y.
func newer(x, y registrystore.ThreadHead) int {
	if c := x.Message.CreatedAt.Compare(y.Message.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(x.Message.ID, y.Message.ID)
}

// Window returns rows [offset, offset+limit) of heads, clamped to its length.
func Window(heads []registrystore.ThreadHead, page registrystore.PageRequest) []registrystore.ThreadHead {
	start := page.Offset()
	if start >= len(heads) {
		return []registrystore.ThreadHead{}
	}
	return heads[start:min(page.Window(), len(heads))]
}
