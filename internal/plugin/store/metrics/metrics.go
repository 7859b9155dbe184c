package metrics

import (
	"context"
	"time"

	"github.com/chirino/social-service/internal/model"
	"github.com/chirino/social-service/internal/registry/store"
	"github.com/chirino/social-service/internal/security"
	"github.com/google/uuid"
)

// Wrap returns a SocialStore that records StoreLatency for every operation.
func Wrap(inner store.SocialStore) store.SocialStore {
	if security.StoreLatency == nil {
		return inner
	}
	return &metricsStore{inner: inner}
}

type metricsStore struct {
	inner store.SocialStore
}

func observe(op string, start time.Time) {
	security.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *metricsStore) CreateUser(ctx context.Context, user store.NewUser) (*model.User, error) {
	defer observe("create_user", time.Now())
	return m.inner.CreateUser(ctx, user)
}

func (m *metricsStore) FindUserForLogin(ctx context.Context, username string, email string) (*model.User, error) {
	defer observe("find_user_for_login", time.Now())
	return m.inner.FindUserForLogin(ctx, username, email)
}

func (m *metricsStore) GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	defer observe("get_user", time.Now())
	return m.inner.GetUser(ctx, userID)
}

func (m *metricsStore) GetUserProfile(ctx context.Context, viewerID uuid.UUID, username string) (*store.UserProfile, error) {
	defer observe("get_user_profile", time.Now())
	return m.inner.GetUserProfile(ctx, viewerID, username)
}

func (m *metricsStore) UpdateUser(ctx context.Context, userID uuid.UUID, update store.UserUpdate) (*model.User, error) {
	defer observe("update_user", time.Now())
	return m.inner.UpdateUser(ctx, userID, update)
}

func (m *metricsStore) GetUserSummaries(ctx context.Context, userIDs []uuid.UUID) ([]model.UserSummary, error) {
	defer observe("get_user_summaries", time.Now())
	return m.inner.GetUserSummaries(ctx, userIDs)
}

func (m *metricsStore) Follow(ctx context.Context, followerID uuid.UUID, username string) (*model.Follow, error) {
	defer observe("follow", time.Now())
	return m.inner.Follow(ctx, followerID, username)
}

func (m *metricsStore) Unfollow(ctx context.Context, followerID uuid.UUID, username string) error {
	defer observe("unfollow", time.Now())
	return m.inner.Unfollow(ctx, followerID, username)
}

func (m *metricsStore) ListFollowers(ctx context.Context, username string, page store.PageRequest) ([]model.UserSummary, store.PageInfo, error) {
	defer observe("list_followers", time.Now())
	return m.inner.ListFollowers(ctx, username, page)
}

func (m *metricsStore) ListFollowing(ctx context.Context, username string, page store.PageRequest) ([]model.UserSummary, store.PageInfo, error) {
	defer observe("list_following", time.Now())
	return m.inner.ListFollowing(ctx, username, page)
}

func (m *metricsStore) CreatePost(ctx context.Context, authorID uuid.UUID, caption *string, imageURLs []string) (*store.PostView, error) {
	defer observe("create_post", time.Now())
	return m.inner.CreatePost(ctx, authorID, caption, imageURLs)
}

func (m *metricsStore) ListPostsByAuthor(ctx context.Context, viewerID uuid.UUID, authorID uuid.UUID, page store.PageRequest) ([]store.PostView, store.PageInfo, error) {
	defer observe("list_posts_by_author", time.Now())
	return m.inner.ListPostsByAuthor(ctx, viewerID, authorID, page)
}

func (m *metricsStore) GetPost(ctx context.Context, viewerID uuid.UUID, postID uuid.UUID) (*store.PostView, error) {
	defer observe("get_post", time.Now())
	return m.inner.GetPost(ctx, viewerID, postID)
}

func (m *metricsStore) UpdatePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID, caption *string) (*store.PostView, error) {
	defer observe("update_post", time.Now())
	return m.inner.UpdatePost(ctx, userID, postID, caption)
}

func (m *metricsStore) DeletePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID) error {
	defer observe("delete_post", time.Now())
	return m.inner.DeletePost(ctx, userID, postID)
}

func (m *metricsStore) LikePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID) error {
	defer observe("like_post", time.Now())
	return m.inner.LikePost(ctx, userID, postID)
}

func (m *metricsStore) UnlikePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID) error {
	defer observe("unlike_post", time.Now())
	return m.inner.UnlikePost(ctx, userID, postID)
}

func (m *metricsStore) SavePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID) error {
	defer observe("save_post", time.Now())
	return m.inner.SavePost(ctx, userID, postID)
}

func (m *metricsStore) UnsavePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID) error {
	defer observe("unsave_post", time.Now())
	return m.inner.UnsavePost(ctx, userID, postID)
}

func (m *metricsStore) ListSavedPosts(ctx context.Context, userID uuid.UUID, page store.PageRequest) ([]store.PostView, store.PageInfo, error) {
	defer observe("list_saved_posts", time.Now())
	return m.inner.ListSavedPosts(ctx, userID, page)
}

func (m *metricsStore) ListComments(ctx context.Context, postID uuid.UUID, page store.PageRequest) ([]store.CommentView, store.PageInfo, error) {
	defer observe("list_comments", time.Now())
	return m.inner.ListComments(ctx, postID, page)
}

func (m *metricsStore) GetComment(ctx context.Context, commentID uuid.UUID) (*store.CommentView, error) {
	defer observe("get_comment", time.Now())
	return m.inner.GetComment(ctx, commentID)
}

func (m *metricsStore) CreateComment(ctx context.Context, userID uuid.UUID, postID uuid.UUID, content string, parentCommentID *uuid.UUID) (*store.CommentView, error) {
	defer observe("create_comment", time.Now())
	return m.inner.CreateComment(ctx, userID, postID, content, parentCommentID)
}

func (m *metricsStore) UpdateComment(ctx context.Context, userID uuid.UUID, commentID uuid.UUID, content string) (*store.CommentView, error) {
	defer observe("update_comment", time.Now())
	return m.inner.UpdateComment(ctx, userID, commentID, content)
}

func (m *metricsStore) DeleteComment(ctx context.Context, userID uuid.UUID, commentID uuid.UUID) error {
	defer observe("delete_comment", time.Now())
	return m.inner.DeleteComment(ctx, userID, commentID)
}

func (m *metricsStore) LikeComment(ctx context.Context, userID uuid.UUID, commentID uuid.UUID) error {
	defer observe("like_comment", time.Now())
	return m.inner.LikeComment(ctx, userID, commentID)
}

func (m *metricsStore) UnlikeComment(ctx context.Context, userID uuid.UUID, commentID uuid.UUID) error {
	defer observe("unlike_comment", time.Now())
	return m.inner.UnlikeComment(ctx, userID, commentID)
}

func (m *metricsStore) CreateGroup(ctx context.Context, creatorID uuid.UUID, name string, memberIDs []uuid.UUID) (*store.GroupSummary, error) {
	defer observe("create_group", time.Now())
	return m.inner.CreateGroup(ctx, creatorID, name, memberIDs)
}

func (m *metricsStore) AddGroupMember(ctx context.Context, userID uuid.UUID, groupID uuid.UUID, memberID uuid.UUID) (*model.GroupMember, error) {
	defer observe("add_group_member", time.Now())
	return m.inner.AddGroupMember(ctx, userID, groupID, memberID)
}

func (m *metricsStore) RemoveGroupMember(ctx context.Context, userID uuid.UUID, groupID uuid.UUID, memberID uuid.UUID) error {
	defer observe("remove_group_member", time.Now())
	return m.inner.RemoveGroupMember(ctx, userID, groupID, memberID)
}

func (m *metricsStore) SendMessage(ctx context.Context, senderID uuid.UUID, msg store.NewMessage) (*store.MessageView, error) {
	defer observe("send_message", time.Now())
	return m.inner.SendMessage(ctx, senderID, msg)
}

func (m *metricsStore) GetMessage(ctx context.Context, userID uuid.UUID, messageID int64) (*store.MessageView, error) {
	defer observe("get_message", time.Now())
	return m.inner.GetMessage(ctx, userID, messageID)
}

func (m *metricsStore) DeleteMessage(ctx context.Context, userID uuid.UUID, messageID int64) error {
	defer observe("delete_message", time.Now())
	return m.inner.DeleteMessage(ctx, userID, messageID)
}

func (m *metricsStore) ListDirectThread(ctx context.Context, userID uuid.UUID, counterpartID uuid.UUID, page store.PageRequest) ([]store.MessageView, store.PageInfo, error) {
	defer observe("list_direct_thread", time.Now())
	return m.inner.ListDirectThread(ctx, userID, counterpartID, page)
}

func (m *metricsStore) ListGroupThread(ctx context.Context, userID uuid.UUID, groupID uuid.UUID, page store.PageRequest) ([]store.MessageView, store.PageInfo, error) {
	defer observe("list_group_thread", time.Now())
	return m.inner.ListGroupThread(ctx, userID, groupID, page)
}

func (m *metricsStore) ListDirectThreadHeads(ctx context.Context, userID uuid.UUID, limit int) ([]store.ThreadHead, error) {
	defer observe("list_direct_thread_heads", time.Now())
	return m.inner.ListDirectThreadHeads(ctx, userID, limit)
}

func (m *metricsStore) ListGroupThreadHeads(ctx context.Context, userID uuid.UUID, limit int) ([]store.ThreadHead, error) {
	defer observe("list_group_thread_heads", time.Now())
	return m.inner.ListGroupThreadHeads(ctx, userID, limit)
}

func (m *metricsStore) ListNotifications(ctx context.Context, userID uuid.UUID, page store.PageRequest) ([]model.Notification, store.PageInfo, error) {
	defer observe("list_notifications", time.Now())
	return m.inner.ListNotifications(ctx, userID, page)
}

func (m *metricsStore) MarkNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	defer observe("mark_notifications_read", time.Now())
	return m.inner.MarkNotificationsRead(ctx, userID)
}

func (m *metricsStore) PurgeReadNotifications(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	defer observe("purge_read_notifications", time.Now())
	return m.inner.PurgeReadNotifications(ctx, cutoff, limit)
}
