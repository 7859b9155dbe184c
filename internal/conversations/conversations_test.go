package conversations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chirino/social-service/internal/model"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/chirino/social-service/internal/testutil/testsqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func head(id int64, minute int, counterpart uuid.UUID) registrystore.ThreadHead {
	return registrystore.ThreadHead{
		Message:       model.Message{ID: id, CreatedAt: base.Add(time.Duration(minute) * time.Minute)},
		CounterpartID: counterpart,
	}
}

func groupHead(id int64, minute int, groupID uuid.UUID) registrystore.ThreadHead {
	h := head(id, minute, groupID)
	h.Group = &registrystore.GroupSummary{ID: groupID, Name: "g"}
	return h
}

func ids(heads []registrystore.ThreadHead) []int64 {
	out := make([]int64, len(heads))
	for i, h := range heads {
		out[i] = h.Message.ID
	}
	return out
}

func TestMerge_OrdersByCreatedAtThenID(t *testing.T) {
	u := uuid.New()
	direct := []registrystore.ThreadHead{head(5, 10, u), head(3, 5, u), head(1, 1, u)}
	groups := []registrystore.ThreadHead{groupHead(6, 10, u), groupHead(4, 7, u)}

	require.Equal(t, []int64{6, 5, 4, 3, 1}, ids(Merge(direct, groups)))
	require.Equal(t, []int64{5, 3, 1}, ids(Merge(direct, nil)))
	require.Empty(t, Merge(nil, nil))
}

func TestWindow(t *testing.T) {
	u := uuid.New()
	heads := []registrystore.ThreadHead{head(3, 3, u), head(2, 2, u), head(1, 1, u)}

	require.Equal(t, []int64{3, 2}, ids(Window(heads, registrystore.PageRequest{Page: 1, Limit: 2})))
	require.Equal(t, []int64{1}, ids(Window(heads, registrystore.PageRequest{Page: 2, Limit: 2})))
	require.Empty(t, Window(heads, registrystore.PageRequest{Page: 3, Limit: 2}))
}

type fakeSource struct {
	direct, groups []registrystore.ThreadHead
	users          map[uuid.UUID]model.UserSummary
	limits         []int
	err            error
}

func (f *fakeSource) ListDirectThreadHeads(_ context.Context, _ uuid.UUID, limit int) ([]registrystore.ThreadHead, error) {
	f.limits = append(f.limits, limit)
	return f.direct[:min(limit, len(f.direct))], f.err
}

func (f *fakeSource) ListGroupThreadHeads(_ context.Context, _ uuid.UUID, limit int) ([]registrystore.ThreadHead, error) {
	f.limits = append(f.limits, limit)
	return f.groups[:min(limit, len(f.groups))], nil
}

func (f *fakeSource) GetUserSummaries(_ context.Context, ids []uuid.UUID) ([]model.UserSummary, error) {
	var out []model.UserSummary
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func TestList_PagesAndHasMore(t *testing.T) {
	bob := model.UserSummary{ID: uuid.New(), Username: "bob"}
	carol := model.UserSummary{ID: uuid.New(), Username: "carol"}
	gid := uuid.New()
	src := &fakeSource{
		direct: []registrystore.ThreadHead{head(4, 4, bob.ID), head(1, 1, carol.ID)},
		groups: []registrystore.ThreadHead{groupHead(3, 3, gid)},
		users:  map[uuid.UUID]model.UserSummary{bob.ID: bob, carol.ID: carol},
	}
	agg := NewAggregator(src, nil, 0)
	ctx := context.Background()

	page, err := agg.List(ctx, uuid.New(), registrystore.PageRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, []int{3, 3}, src.limits)
	require.Len(t, page.Conversations, 2)
	require.Equal(t, KindDirect, page.Conversations[0].Kind)
	require.Equal(t, "bob", page.Conversations[0].User.Username)
	require.Equal(t, KindGroup, page.Conversations[1].Kind)
	require.Equal(t, gid, page.Conversations[1].Group.ID)
	require.Equal(t, Pagination{Page: 1, Limit: 2, HasMore: true}, page.Pagination)

	page, err = agg.List(ctx, uuid.New(), registrystore.PageRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Conversations, 1)
	require.Equal(t, "carol", page.Conversations[0].User.Username)
	require.False(t, page.Pagination.HasMore)
}

func TestList_ExactlyFullPageHasNoMore(t *testing.T) {
	bob := model.UserSummary{ID: uuid.New(), Username: "bob"}
	src := &fakeSource{
		direct: []registrystore.ThreadHead{head(2, 2, bob.ID), head(1, 1, bob.ID)},
		users:  map[uuid.UUID]model.UserSummary{bob.ID: bob},
	}
	page, err := NewAggregator(src, nil, 0).List(context.Background(), uuid.New(), registrystore.PageRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Conversations, 2)
	require.False(t, page.Pagination.HasMore)
}

func TestList_SourceError(t *testing.T) {
	src := &fakeSource{err: errors.New("db down")}
	_, err := NewAggregator(src, nil, 0).List(context.Background(), uuid.New(), registrystore.PageRequest{Page: 1, Limit: 10})
	require.ErrorContains(t, err, "db down")
}

func TestList_MissingCounterpartFails(t *testing.T) {
	bob := model.UserSummary{ID: uuid.New(), Username: "bob"}
	src := &fakeSource{
		direct: []registrystore.ThreadHead{head(2, 2, uuid.New()), head(1, 1, bob.ID)},
		users:  map[uuid.UUID]model.UserSummary{bob.ID: bob},
	}
	page, err := NewAggregator(src, nil, 0).List(context.Background(), uuid.New(), registrystore.PageRequest{Page: 1, Limit: 1})
	require.ErrorContains(t, err, "counterpart")
	require.Nil(t, page)
}

func TestList_AgainstStore(t *testing.T) {
	store := testsqlite.NewStore(t)
	ctx := context.Background()
	newUser := func(name string) *model.User {
		u, err := store.CreateUser(ctx, registrystore.NewUser{Username: name, Email: name + "@example.com", FullName: name, PasswordHash: "x"})
		require.NoError(t, err)
		return u
	}
	a, b := newUser("a"), newUser("b")

	hi := "hi"
	sent, err := store.SendMessage(ctx, a.ID, registrystore.NewMessage{ReceiverID: &b.ID, Content: &hi})
	require.NoError(t, err)

	agg := NewAggregator(store, nil, 0)
	for _, viewer := range []*model.User{a, b} {
		page, err := agg.List(ctx, viewer.ID, registrystore.PageRequest{Page: 1, Limit: 20})
		require.NoError(t, err)
		require.Len(t, page.Conversations, 1)
		require.Equal(t, "hi", *page.Conversations[0].LastMessage.Content)
		require.False(t, page.Conversations[0].LastMessage.IsRead, "listing does not mark read")
	}

	fetched, err := store.GetMessage(ctx, b.ID, sent.ID)
	require.NoError(t, err)
	require.True(t, fetched.IsRead)
}
