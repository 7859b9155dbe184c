package store

import (
	"context"
	"fmt"
	"time"

	"github.com/chirino/social-service/internal/model"
	"github.com/google/uuid"
)

// NewUser is the input for account creation. PasswordHash is already hashed.
type NewUser struct {
	Username     string
	Email        string
	FullName     string
	PasswordHash string
}

// UserUpdate defines the mutable profile fields. Nil fields are left unchanged.
type UserUpdate struct {
	FullName     *string
	Bio          *string
	AvatarURL    *string
	PasswordHash *string
}

// IsEmpty reports whether the update carries no changes.
func (u UserUpdate) IsEmpty() bool {
	return u.FullName == nil && u.Bio == nil && u.AvatarURL == nil && u.PasswordHash == nil
}

// UserProfile is the public profile of a user as seen by a viewer.
type UserProfile struct {
	model.UserSummary
	Bio            *string   `json:"bio,omitempty"`
	FollowerCount  int64     `json:"followerCount"`
	FollowingCount int64     `json:"followingCount"`
	PostCount      int64     `json:"postCount"`
	IsFollowing    bool      `json:"isFollowing"`
	CreatedAt      time.Time `json:"createdAt"`
}

// PostView is a post with author projection, counts and viewer-relative flags.
type PostView struct {
	ID           uuid.UUID         `json:"id"`
	Caption      *string           `json:"caption,omitempty"`
	Author       model.UserSummary `json:"author"`
	Images       []model.PostImage `json:"images"`
	LikeCount    int64             `json:"likeCount"`
	CommentCount int64             `json:"commentCount"`
	IsLiked      bool              `json:"isLiked"`
	IsSaved      bool              `json:"isSaved"`
	SavedAt      *time.Time        `json:"savedAt,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// CommentView is a comment with author projection and counts.
type CommentView struct {
	ID              uuid.UUID         `json:"id"`
	PostID          uuid.UUID         `json:"postId"`
	ParentCommentID *uuid.UUID        `json:"parentCommentId,omitempty"`
	Content         string            `json:"content"`
	Author          model.UserSummary `json:"author"`
	LikeCount       int64             `json:"likeCount"`
	ReplyCount      int64             `json:"replyCount"`
	CreatedAt       time.Time         `json:"createdAt"`
	Replies         []CommentView     `json:"replies,omitempty"`
}

// GroupSummary is the display projection of a group.
type GroupSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	AvatarURL   *string   `json:"avatarUrl,omitempty"`
	MemberCount int64     `json:"memberCount"`
}

// NewMessage is the input for sending a message. Exactly one of ReceiverID
// and GroupID must be set, and at least one of Content and MediaURL.
type NewMessage struct {
	ReceiverID *uuid.UUID
	GroupID    *uuid.UUID
	Content    *string
	MediaURL   *string
}

// MessageView is a message with sender and receiver-or-group projections attached.
type MessageView struct {
	model.Message
	Sender   model.UserSummary  `json:"sender"`
	Receiver *model.UserSummary `json:"receiver,omitempty"`
	Group    *GroupSummary      `json:"group,omitempty"`
}

// ThreadHead is the representative (newest) message of one conversation partition.
// For direct threads CounterpartID is the other participant; for group threads Group is set.
type ThreadHead struct {
	Message       model.Message
	CounterpartID uuid.UUID
	Group         *GroupSummary
}

// SocialStore defines the primary data access interface of the social service.
type SocialStore interface {
	// Users
	CreateUser(ctx context.Context, user NewUser) (*model.User, error)
	FindUserForLogin(ctx context.Context, username string, email string) (*model.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error)
	GetUserProfile(ctx context.Context, viewerID uuid.UUID, username string) (*UserProfile, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, update UserUpdate) (*model.User, error)
	GetUserSummaries(ctx context.Context, userIDs []uuid.UUID) ([]model.UserSummary, error)

	// Follows
	Follow(ctx context.Context, followerID uuid.UUID, username string) (*model.Follow, error)
	Unfollow(ctx context.Context, followerID uuid.UUID, username string) error
	ListFollowers(ctx context.Context, username string, page PageRequest) ([]model.UserSummary, PageInfo, error)
	ListFollowing(ctx context.Context, username string, page PageRequest) ([]model.UserSummary, PageInfo, error)

	// Posts
	CreatePost(ctx context.Context, authorID uuid.UUID, caption *string, imageURLs []string) (*PostView, error)
	ListPostsByAuthor(ctx context.Context, viewerID uuid.UUID, authorID uuid.UUID, page PageRequest) ([]PostView, PageInfo, error)
	GetPost(ctx context.Context, viewerID uuid.UUID, postID uuid.UUID) (*PostView, error)
	UpdatePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID, caption *string) (*PostView, error)
	DeletePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID) error

	// Likes and saves
	LikePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID) error
	UnlikePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID) error
	SavePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID) error
	UnsavePost(ctx context.Context, userID uuid.UUID, postID uuid.UUID) error
	ListSavedPosts(ctx context.Context, userID uuid.UUID, page PageRequest) ([]PostView, PageInfo, error)

	// Comments
	ListComments(ctx context.Context, postID uuid.UUID, page PageRequest) ([]CommentView, PageInfo, error)
	GetComment(ctx context.Context, commentID uuid.UUID) (*CommentView, error)
	CreateComment(ctx context.Context, userID uuid.UUID, postID uuid.UUID, content string, parentCommentID *uuid.UUID) (*CommentView, error)
	UpdateComment(ctx context.Context, userID uuid.UUID, commentID uuid.UUID, content string) (*CommentView, error)
	DeleteComment(ctx context.Context, userID uuid.UUID, commentID uuid.UUID) error
	LikeComment(ctx context.Context, userID uuid.UUID, commentID uuid.UUID) error
	UnlikeComment(ctx context.Context, userID uuid.UUID, commentID uuid.UUID) error

	// Groups
	CreateGroup(ctx context.Context, creatorID uuid.UUID, name string, memberIDs []uuid.UUID) (*GroupSummary, error)
	AddGroupMember(ctx context.Context, userID uuid.UUID, groupID uuid.UUID, memberID uuid.UUID) (*model.GroupMember, error)
	RemoveGroupMember(ctx context.Context, userID uuid.UUID, groupID uuid.UUID, memberID uuid.UUID) error

	// Messages
	SendMessage(ctx context.Context, senderID uuid.UUID, msg NewMessage) (*MessageView, error)
	// GetMessage marks a direct message read when the requester is its receiver.
	GetMessage(ctx context.Context, userID uuid.UUID, messageID int64) (*MessageView, error)
	DeleteMessage(ctx context.Context, userID uuid.UUID, messageID int64) error
	// ListDirectThread marks the counterpart's unread messages to userID as read.
	ListDirectThread(ctx context.Context, userID uuid.UUID, counterpartID uuid.UUID, page PageRequest) ([]MessageView, PageInfo, error)
	ListGroupThread(ctx context.Context, userID uuid.UUID, groupID uuid.UUID, page PageRequest) ([]MessageView, PageInfo, error)
	// ListDirectThreadHeads returns at most limit direct thread heads, newest first.
	ListDirectThreadHeads(ctx context.Context, userID uuid.UUID, limit int) ([]ThreadHead, error)
	// ListGroupThreadHeads returns at most limit group thread heads of groups the user
	// currently belongs to, newest first.
	ListGroupThreadHeads(ctx context.Context, userID uuid.UUID, limit int) ([]ThreadHead, error)

	// Notifications
	ListNotifications(ctx context.Context, userID uuid.UUID, page PageRequest) ([]model.Notification, PageInfo, error)
	MarkNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	// PurgeReadNotifications hard-deletes up to limit read notifications created
	// before cutoff and returns how many were removed.
	PurgeReadNotifications(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// Loader creates a SocialStore from config.
type Loader func(ctx context.Context) (SocialStore, error)

// Plugin represents a store plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a store plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered store plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named store plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown store %q; valid: %v", name, Names())
}
